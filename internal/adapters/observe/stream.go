// Package observe streams read-model updates to presentation clients over websocket.
package observe

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/Overlay/internal/app/orch"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("stream closed")
)

const (
	writeWait = 5 * time.Second
	pongWait  = 60 * time.Second
)

// Source is satisfied by *orch.Orchestrator.
type Source interface {
	Observe(fn func(orch.Update)) (cancel func())
}

type Options struct {
	Buffer     int
	PingPeriod time.Duration
	Policy     Policy
}

type Stream struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	policy Policy
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

func (s *Stream) TrySend(data []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (s *Stream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

// push runs on the reactor, so it never blocks.
func (s *Stream) push(u orch.Update) {
	data, err := json.Marshal(u)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.observe").Str("type", u.Type).Msg("marshal update")
		return
	}
	err = s.TrySend(data)
	if !errors.Is(err, ErrBackpressure) {
		return
	}
	switch s.policy.OnBackpressure(u) {
	case DropUpdate:
		log.Debug().Str("module", "adapters.observe").Str("sid", s.id).Str("type", u.Type).Msg("update dropped")
	case CloseStream:
		log.Warn().Str("module", "adapters.observe").Str("sid", s.id).Str("type", u.Type).Msg("slow observer, closing")
		s.Close()
	}
}

// Serve streams updates from src to conn until either side goes away.
func Serve(ctx context.Context, id string, conn *websocket.Conn, src Source, opts Options) {
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = (pongWait * 9) / 10
	}
	if opts.Policy == nil {
		opts.Policy = SimplePolicy{}
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, opts.Buffer),
		policy: opts.Policy,
		cancel: cancel,
	}
	log.Info().Str("module", "adapters.observe").Str("sid", id).Msg("observer attached")

	stop := src.Observe(s.push)

	var wg conc.WaitGroup
	wg.Go(func() {
		<-sctx.Done()
		stop()
		_ = conn.Close()
	})
	wg.Go(func() {
		defer s.Close()
		s.writePump(sctx, opts.PingPeriod)
	})
	wg.Go(func() {
		defer s.Close()
		s.readPump()
	})
	wg.Wait()
	log.Info().Str("module", "adapters.observe").Str("sid", id).Msg("observer detached")
}

func (s *Stream) writePump(ctx context.Context, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = s.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
			return
		case data := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.observe").Str("sid", s.id).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readPump only keeps the read deadline fresh; observers send nothing meaningful.
func (s *Stream) readPump() {
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("module", "adapters.observe").Str("sid", s.id).Msg("readPump read error")
			}
			return
		}
	}
}
