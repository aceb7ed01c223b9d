package core

import "encoding/json"

// RawEvent is one host callback as delivered by the game host:
// a fixed event name and its positional arguments as a JSON array.
type RawEvent struct {
	Name string
	Args json.RawMessage
}

// EventSource abstracts the host's named-listener registration.
// The returned func unregisters the listener.
type EventSource interface {
	On(name string, fn func(RawEvent)) (off func())
}

//go:generate mockgen -destination=mocks/mock_transport.go -package=mocks github.com/dkeye/Overlay/internal/core Transport

// Transport is the outbound command surface of the game host.
// Every call is one-way; effects come back later as events.
type Transport interface {
	Connect(host string, port int, token string)
	Disconnect()
	SendMessage(text string)
	TeleportToPlayer(id int64)
	Reconnect()
	Deactivate()
}

// Executor runs reactions one after another on a single logical thread.
type Executor interface {
	Post(fn func()) bool
}

// Immediate runs every reaction inline on the caller's goroutine.
type Immediate struct{}

func (Immediate) Post(fn func()) bool {
	fn()
	return true
}
