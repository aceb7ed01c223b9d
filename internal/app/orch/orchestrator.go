package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Overlay/internal/app/bridge"
	"github.com/dkeye/Overlay/internal/app/chat"
	"github.com/dkeye/Overlay/internal/app/connection"
	"github.com/dkeye/Overlay/internal/app/dispatch"
	"github.com/dkeye/Overlay/internal/app/roster"
	"github.com/dkeye/Overlay/internal/app/session"
	"github.com/dkeye/Overlay/internal/app/telemetry"
	"github.com/dkeye/Overlay/internal/core"
	"github.com/dkeye/Overlay/internal/domain"
)

type Options struct {
	DefaultPort  int
	ChatCapacity int
}

// Orchestrator wires the bridge to every state owner and exposes
// read-only views plus user actions to presentation.
type Orchestrator struct {
	Bridge    *bridge.Bridge
	Conn      *connection.Machine
	Roster    *roster.Store
	Telemetry *telemetry.Aggregator
	Chat      *chat.Log
	Session   *session.Store
	Dispatch  *dispatch.Dispatcher

	exec core.Executor
}

func New(opts Options, src core.EventSource, tr core.Transport, exec core.Executor) *Orchestrator {
	o := &Orchestrator{
		Bridge:    bridge.New(src, exec),
		Conn:      connection.NewMachine(),
		Roster:    roster.NewStore(),
		Telemetry: telemetry.NewAggregator(),
		Chat:      chat.NewLog(opts.ChatCapacity),
		Session:   session.NewStore(),
		exec:      exec,
	}
	o.Dispatch = dispatch.New(tr, o.Conn, o.Roster, opts.DefaultPort)

	// The machine goes first so every later handler observes the post-transition state.
	o.Bridge.Subscribe(o.Conn)
	o.Bridge.Subscribe(o.Roster)
	o.Bridge.Subscribe(o.Telemetry)
	o.Bridge.Subscribe(o.Chat)
	o.Bridge.Subscribe(o.Session)

	o.Conn.Subscribe(o.Roster.ClearOnDisconnect)
	return o
}

// Start subscribes the bridge to the host.
func (o *Orchestrator) Start() { o.Bridge.Start() }

func (o *Orchestrator) Stop() { o.Bridge.Stop() }

// Snapshot is the full read model at one point in time.
type Snapshot struct {
	Connection domain.ConnectionStatus `json:"connection"`
	Roster     []domain.Player         `json:"roster"`
	Telemetry  telemetry.View          `json:"telemetry"`
	Chat       []domain.ChatMessage    `json:"chat"`
	Session    domain.LocalSession     `json:"session"`
}

// ErrUnavailable is returned when a snapshot cannot be taken before ctx ends.
var ErrUnavailable = errors.New("read model unavailable")

// Snapshot takes the read model inside a reaction, so a reader never sees a
// transition whose follow-up mutations are still pending (for example the
// Disconnected state with a roster not yet cleared). It must not be called
// from a reaction.
func (o *Orchestrator) Snapshot(ctx context.Context) (Snapshot, error) {
	out := make(chan Snapshot, 1)
	if !o.exec.Post(func() { out <- o.snapshot() }) {
		// Nothing mutates the stores once the executor has stopped.
		return o.snapshot(), nil
	}
	select {
	case snap := <-out:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	}
}

func (o *Orchestrator) snapshot() Snapshot {
	return Snapshot{
		Connection: o.Conn.Status(),
		Roster:     o.Roster.Snapshot(),
		Telemetry:  o.Telemetry.View(),
		Chat:       o.Chat.Messages(),
		Session:    o.Session.Snapshot(),
	}
}
