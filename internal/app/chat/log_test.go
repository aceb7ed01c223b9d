package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dkeye/Overlay/internal/core"
	"github.com/dkeye/Overlay/internal/domain"
)

func texts(msgs []domain.ChatMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Text)
	}
	return out
}

func TestLog_EvictsOldest(t *testing.T) {
	l := NewLog(3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		l.HandleEvent(core.ChatReceived{Kind: domain.ChatPlayer, From: "x", Text: s})
	}
	assert.Equal(t, []string{"c", "d", "e"}, texts(l.Messages()))
}

func TestLog_StampsTime(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l := NewLog(2)
	l.now = func() time.Time { return at }

	var got domain.ChatMessage
	l.Subscribe(func(m domain.ChatMessage) { got = m })
	l.HandleEvent(core.ChatReceived{Kind: domain.ChatWhisper, From: "Ann", Text: "hi"})

	assert.Equal(t, domain.ChatMessage{Kind: domain.ChatWhisper, From: "Ann", Text: "hi", At: at}, got)
}

func TestLog_IgnoresOtherEvents(t *testing.T) {
	l := NewLog(0)
	l.HandleEvent(core.Connected{})
	assert.Empty(t, l.Messages())
}
