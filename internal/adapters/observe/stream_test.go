package observe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Overlay/internal/app/orch"
)

type fakeSource struct {
	mu       sync.Mutex
	fn       func(orch.Update)
	attached chan struct{}
	canceled chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{attached: make(chan struct{}), canceled: make(chan struct{})}
}

func (f *fakeSource) Observe(fn func(orch.Update)) func() {
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
	fn(orch.Update{Type: orch.UpdateState, Data: "disconnected"})
	close(f.attached)
	var once sync.Once
	return func() { once.Do(func() { close(f.canceled) }) }
}

func (f *fakeSource) push(u orch.Update) {
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	fn(u)
}

func startServer(t *testing.T, ctx context.Context, src Source) string {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		Serve(ctx, "test", conn, src, Options{Buffer: 8, PingPeriod: time.Second})
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readUpdate(t *testing.T, c *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestServe_StreamsInitialAndLaterUpdates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := newFakeSource()
	url := startServer(t, ctx, src)

	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer c.Close()

	first := readUpdate(t, c)
	assert.Equal(t, "state", first["type"])
	assert.Equal(t, "disconnected", first["data"])

	<-src.attached
	src.push(orch.Update{Type: orch.UpdateChat, Data: map[string]string{"text": "hi"}})
	second := readUpdate(t, c)
	assert.Equal(t, "chat", second["type"])
}

func TestServe_ClientCloseCancelsObservation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := newFakeSource()
	url := startServer(t, ctx, src)

	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	readUpdate(t, c)
	require.NoError(t, c.Close())

	select {
	case <-src.canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("observation was not canceled")
	}
}

func TestStream_BackpressurePolicy(t *testing.T) {
	newStream := func() (*Stream, *bool) {
		canceled := false
		return &Stream{
			id:     "s",
			send:   make(chan []byte, 1),
			policy: SimplePolicy{},
			cancel: func() { canceled = true },
		}, &canceled
	}

	t.Run("telemetry is dropped", func(t *testing.T) {
		s, canceled := newStream()
		s.push(orch.Update{Type: orch.UpdateTelemetry})
		s.push(orch.Update{Type: orch.UpdateTelemetry})
		assert.False(t, *canceled)
		assert.Len(t, s.send, 1)
		assert.NoError(t, func() error { <-s.send; return s.TrySend([]byte("x")) }())
	})

	t.Run("roster delta closes", func(t *testing.T) {
		s, canceled := newStream()
		s.push(orch.Update{Type: orch.UpdateTelemetry})
		s.push(orch.Update{Type: orch.UpdateRosterDelta})
		assert.True(t, *canceled)
		assert.ErrorIs(t, s.TrySend([]byte("x")), ErrClosed)
	})
}

func TestSimplePolicy(t *testing.T) {
	p := SimplePolicy{}
	assert.Equal(t, DropUpdate, p.OnBackpressure(orch.Update{Type: orch.UpdateTelemetry}))
	for _, typ := range []string{orch.UpdateState, orch.UpdateRoster, orch.UpdateRosterDelta, orch.UpdateChat, orch.UpdateSession} {
		assert.Equal(t, CloseStream, p.OnBackpressure(orch.Update{Type: typ}), typ)
	}
}
