// Package connection owns the single game-session connection lifecycle.
package connection

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Overlay/internal/core"
	"github.com/dkeye/Overlay/internal/domain"
)

type Trigger int

const (
	UserConnect Trigger = iota
	UserDisconnect
	UserReconnect
	HostConnect
	HostDisconnect
	HostDisconnectError
	HostFatal
)

func (t Trigger) String() string {
	switch t {
	case UserConnect:
		return "user_connect"
	case UserDisconnect:
		return "user_disconnect"
	case UserReconnect:
		return "user_reconnect"
	case HostConnect:
		return "host_connect"
	case HostDisconnect:
		return "host_disconnect"
	case HostDisconnectError:
		return "host_disconnect_error"
	case HostFatal:
		return "host_fatal"
	default:
		return "unknown"
	}
}

// Next is the total transition table. Pairs not matched keep the current state.
func Next(s domain.ConnectionState, t Trigger) domain.ConnectionState {
	if t == HostFatal {
		return domain.StateError
	}
	switch s {
	case domain.StateDisconnected:
		switch t {
		case UserConnect, UserReconnect:
			return domain.StateConnecting
		case HostConnect:
			return domain.StateConnected
		}
	case domain.StateConnecting:
		switch t {
		case HostConnect:
			return domain.StateConnected
		case HostDisconnect:
			return domain.StateDisconnected
		case HostDisconnectError:
			return domain.StateError
		case UserDisconnect:
			return domain.StateDisconnecting
		}
	case domain.StateConnected:
		switch t {
		case UserDisconnect:
			return domain.StateDisconnecting
		case HostDisconnect:
			return domain.StateDisconnected
		case HostDisconnectError:
			return domain.StateError
		}
	case domain.StateDisconnecting:
		switch t {
		case HostDisconnect, HostDisconnectError:
			return domain.StateDisconnected
		}
	case domain.StateError:
		switch t {
		case UserConnect, UserReconnect:
			return domain.StateConnecting
		case HostConnect:
			return domain.StateConnected
		case HostDisconnect, HostDisconnectError:
			return domain.StateDisconnected
		}
	}
	return s
}

// Machine holds the current ConnectionStatus. It is mutated only by Fire,
// which is called from bridge reactions and dispatcher-validated commands.
type Machine struct {
	status *core.Observable[domain.ConnectionStatus]
}

func NewMachine() *Machine {
	return &Machine{
		status: core.NewObservable(domain.ConnectionStatus{State: domain.StateDisconnected}),
	}
}

func (m *Machine) Status() domain.ConnectionStatus { return m.status.Get() }

func (m *Machine) State() domain.ConnectionState { return m.status.Get().State }

// Subscribe notifies fn after every transition that changed the state.
func (m *Machine) Subscribe(fn func(domain.ConnectionStatus)) (cancel func()) {
	return m.status.Subscribe(fn)
}

// Fire applies t and reports whether the state changed.
// tag is recorded only when the transition enters StateError; a second fatal
// event while already in StateError replaces the tag.
func (m *Machine) Fire(t Trigger, tag domain.ErrorTag) bool {
	cur := m.status.Get()
	next := Next(cur.State, t)
	retag := next == domain.StateError && t == HostFatal && tag != cur.LastError
	if next == cur.State && !retag {
		log.Debug().Str("module", "app.connection").Str("state", cur.State.String()).Str("trigger", t.String()).Msg("no transition")
		return false
	}

	out := domain.ConnectionStatus{State: next, LastError: cur.LastError}
	switch next {
	case domain.StateError:
		out.LastError = tag
	case domain.StateConnecting:
		out.LastError = domain.ErrorNone
	}
	log.Info().Str("module", "app.connection").
		Str("from", cur.State.String()).
		Str("to", next.String()).
		Str("trigger", t.String()).
		Str("error", string(out.LastError)).
		Msg("transition")
	m.status.Set(out)
	return true
}

// HandleEvent consumes connection-relevant bridge events.
func (m *Machine) HandleEvent(ev core.Event) {
	switch e := ev.(type) {
	case core.Connected:
		m.Fire(HostConnect, domain.ErrorNone)
	case core.Disconnected:
		if e.IsError {
			m.Fire(HostDisconnectError, domain.ErrorTransport)
		} else {
			m.Fire(HostDisconnect, domain.ErrorNone)
		}
	case core.ProtocolMismatch:
		m.Fire(HostFatal, domain.ErrorProtocolMismatch)
	case core.ErrorTriggered:
		m.Fire(HostFatal, domain.ErrorTriggered)
	}
}
