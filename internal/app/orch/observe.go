package orch

import (
	"sync"

	"github.com/dkeye/Overlay/internal/app/roster"
	"github.com/dkeye/Overlay/internal/app/telemetry"
	"github.com/dkeye/Overlay/internal/domain"
)

const (
	UpdateState       = "state"
	UpdateRoster      = "roster"
	UpdateRosterDelta = "roster_change"
	UpdateTelemetry   = "telemetry"
	UpdateChat        = "chat"
	UpdateChatHistory = "chat_history"
	UpdateSession     = "session"
)

// Update is one frame pushed to an observer.
type Update struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type observation struct {
	mu       sync.Mutex
	cancels  []func()
	canceled bool
}

func (ob *observation) add(c func()) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	if ob.canceled {
		c()
		return
	}
	ob.cancels = append(ob.cancels, c)
}

func (ob *observation) cancel() {
	ob.mu.Lock()
	cancels := ob.cancels
	ob.cancels = nil
	ob.canceled = true
	ob.mu.Unlock()
	for _, c := range cancels {
		c()
	}
}

// Observe registers fn for every change and, in the same reaction, sends the
// current snapshots first. An observer that arrives late therefore starts from
// the present state and misses nothing after it. fn runs on the reactor and must not block.
func (o *Orchestrator) Observe(fn func(Update)) (cancel func()) {
	ob := &observation{}
	if !o.exec.Post(func() { o.attach(ob, fn) }) {
		ob.cancel()
	}
	return ob.cancel
}

func (o *Orchestrator) attach(ob *observation, fn func(Update)) {
	ob.mu.Lock()
	canceled := ob.canceled
	ob.mu.Unlock()
	if canceled {
		return
	}

	snap := o.snapshot()
	fn(Update{Type: UpdateState, Data: snap.Connection})
	fn(Update{Type: UpdateRoster, Data: snap.Roster})
	fn(Update{Type: UpdateTelemetry, Data: snap.Telemetry})
	fn(Update{Type: UpdateChatHistory, Data: snap.Chat})
	fn(Update{Type: UpdateSession, Data: snap.Session})

	ob.add(o.Conn.Subscribe(func(s domain.ConnectionStatus) {
		fn(Update{Type: UpdateState, Data: s})
	}))
	ob.add(o.Roster.Subscribe(func(c roster.Change) {
		fn(Update{Type: UpdateRosterDelta, Data: c})
	}))
	ob.add(o.Telemetry.Subscribe(func(v telemetry.View) {
		fn(Update{Type: UpdateTelemetry, Data: v})
	}))
	ob.add(o.Chat.Subscribe(func(m domain.ChatMessage) {
		fn(Update{Type: UpdateChat, Data: m})
	}))
	ob.add(o.Session.Subscribe(func(s domain.LocalSession) {
		fn(Update{Type: UpdateSession, Data: s})
	}))
}
