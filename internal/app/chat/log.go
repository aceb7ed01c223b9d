// Package chat keeps a bounded history of chat messages received from the host.
package chat

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Overlay/internal/core"
	"github.com/dkeye/Overlay/internal/domain"
)

const DefaultCapacity = 100

type Log struct {
	mu    sync.RWMutex
	buf   []domain.ChatMessage
	start int
	size  int
	now   func() time.Time
	feed  core.Feed[domain.ChatMessage]
}

func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{buf: make([]domain.ChatMessage, capacity), now: time.Now}
}

func (l *Log) Subscribe(fn func(domain.ChatMessage)) (cancel func()) { return l.feed.Subscribe(fn) }

// Append stores m, evicting the oldest message once full.
func (l *Log) Append(m domain.ChatMessage) {
	if m.At.IsZero() {
		m.At = l.now()
	}
	l.mu.Lock()
	idx := (l.start + l.size) % len(l.buf)
	l.buf[idx] = m
	if l.size < len(l.buf) {
		l.size++
	} else {
		l.start = (l.start + 1) % len(l.buf)
	}
	l.mu.Unlock()

	log.Debug().Str("module", "app.chat").Str("kind", string(m.Kind)).Str("from", m.From).Msg("chat message")
	l.feed.Publish(m)
}

// Messages returns the history, oldest first.
func (l *Log) Messages() []domain.ChatMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.ChatMessage, 0, l.size)
	for i := 0; i < l.size; i++ {
		out = append(out, l.buf[(l.start+i)%len(l.buf)])
	}
	return out
}

func (l *Log) HandleEvent(ev core.Event) {
	if e, ok := ev.(core.ChatReceived); ok {
		l.Append(domain.ChatMessage{Kind: e.Kind, From: e.From, Text: e.Text})
	}
}
