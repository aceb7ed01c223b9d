// Package dispatch translates user intents into guarded transport calls.
package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Overlay/internal/app/connection"
	"github.com/dkeye/Overlay/internal/core"
	"github.com/dkeye/Overlay/internal/domain"
)

const DefaultPort = 10578

var (
	ErrInvalidState  = errors.New("command not valid in current connection state")
	ErrUnknownPlayer = errors.New("player not in roster")
	ErrEmptyMessage  = errors.New("empty message")
	ErrEmptyHost     = errors.New("empty host")
)

// Lifecycle is the part of the connection state machine the dispatcher drives.
type Lifecycle interface {
	State() domain.ConnectionState
	Fire(t connection.Trigger, tag domain.ErrorTag) bool
}

type Members interface {
	Has(id domain.PlayerID) bool
}

// Dispatcher has no state of its own. Every method either calls the transport
// once or returns the reason the command was dropped.
type Dispatcher struct {
	transport   core.Transport
	conn        Lifecycle
	members     Members
	defaultPort int
}

func New(t core.Transport, conn Lifecycle, members Members, defaultPort int) *Dispatcher {
	if defaultPort <= 0 {
		defaultPort = DefaultPort
	}
	return &Dispatcher{transport: t, conn: conn, members: members, defaultPort: defaultPort}
}

func (d *Dispatcher) dropped(cmd string, err error) error {
	log.Debug().Str("module", "app.dispatch").Str("cmd", cmd).Str("state", d.conn.State().String()).Err(err).Msg("command dropped")
	return fmt.Errorf("%s: %w", cmd, err)
}

// Connect is valid from Disconnected or Error.
func (d *Dispatcher) Connect(host string, port int, token string) error {
	host = strings.TrimSpace(host)
	if host == "" {
		return d.dropped("connect", ErrEmptyHost)
	}
	switch d.conn.State() {
	case domain.StateDisconnected, domain.StateError:
	default:
		return d.dropped("connect", ErrInvalidState)
	}
	if host == "localhost" {
		host = "127.0.0.1"
	}
	if port <= 0 {
		port = d.defaultPort
	}
	d.conn.Fire(connection.UserConnect, domain.ErrorNone)
	log.Info().Str("module", "app.dispatch").Str("host", host).Int("port", port).Msg("connect")
	d.transport.Connect(host, port, token)
	return nil
}

// Disconnect is valid from Connected or Connecting; from Connecting it cancels the attempt.
func (d *Dispatcher) Disconnect() error {
	switch d.conn.State() {
	case domain.StateConnected, domain.StateConnecting:
	default:
		return d.dropped("disconnect", ErrInvalidState)
	}
	d.conn.Fire(connection.UserDisconnect, domain.ErrorNone)
	log.Info().Str("module", "app.dispatch").Msg("disconnect")
	d.transport.Disconnect()
	return nil
}

// Reconnect is valid from Error or Disconnected.
func (d *Dispatcher) Reconnect() error {
	switch d.conn.State() {
	case domain.StateError, domain.StateDisconnected:
	default:
		return d.dropped("reconnect", ErrInvalidState)
	}
	d.conn.Fire(connection.UserReconnect, domain.ErrorNone)
	log.Info().Str("module", "app.dispatch").Msg("reconnect")
	d.transport.Reconnect()
	return nil
}

// SendMessage is valid only while Connected. Nothing is queued.
func (d *Dispatcher) SendMessage(text string) error {
	if d.conn.State() != domain.StateConnected {
		return d.dropped("send_message", ErrInvalidState)
	}
	if strings.TrimSpace(text) == "" {
		return d.dropped("send_message", ErrEmptyMessage)
	}
	d.transport.SendMessage(text)
	return nil
}

// TeleportToPlayer is valid while Connected and only for a player in the roster.
func (d *Dispatcher) TeleportToPlayer(id domain.PlayerID) error {
	if d.conn.State() != domain.StateConnected {
		return d.dropped("teleport", ErrInvalidState)
	}
	if !d.members.Has(id) {
		return d.dropped("teleport", fmt.Errorf("%w: %d", ErrUnknownPlayer, id))
	}
	log.Info().Str("module", "app.dispatch").Int64("id", int64(id)).Msg("teleport")
	d.transport.TeleportToPlayer(int64(id))
	return nil
}

// Deactivate releases overlay control; it has no connection precondition.
func (d *Dispatcher) Deactivate() {
	log.Info().Str("module", "app.dispatch").Msg("deactivate")
	d.transport.Deactivate()
}
