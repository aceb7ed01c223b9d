// Package host links the overlay to the game host over a websocket.
// It is both the inbound event source and the outbound command transport.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/tidwall/gjson"

	"github.com/dkeye/Overlay/internal/config"
	"github.com/dkeye/Overlay/internal/core"
)

var (
	ErrNotLinked    = errors.New("host link down")
	ErrBackpressure = errors.New("backpressure")
)

var (
	_ core.EventSource = (*Link)(nil)
	_ core.Transport   = (*Link)(nil)
)

type listener struct {
	id uint64
	fn func(core.RawEvent)
}

type Link struct {
	url          string
	retry        time.Duration
	writeTimeout time.Duration
	sendBuffer   int
	dialer       *websocket.Dialer

	lmu       sync.RWMutex
	nextID    uint64
	listeners map[string][]listener

	smu  sync.RWMutex
	send chan []byte
}

func New(cfg config.HostConfig) *Link {
	l := &Link{
		url:          cfg.URL,
		retry:        cfg.RetryInterval,
		writeTimeout: cfg.WriteTimeout,
		sendBuffer:   cfg.SendBuffer,
		dialer:       websocket.DefaultDialer,
		listeners:    make(map[string][]listener),
	}
	if l.retry <= 0 {
		l.retry = 2 * time.Second
	}
	if l.writeTimeout <= 0 {
		l.writeTimeout = 5 * time.Second
	}
	if l.sendBuffer <= 0 {
		l.sendBuffer = 64
	}
	return l
}

func (l *Link) On(name string, fn func(core.RawEvent)) (off func()) {
	l.lmu.Lock()
	l.nextID++
	id := l.nextID
	l.listeners[name] = append(l.listeners[name], listener{id: id, fn: fn})
	l.lmu.Unlock()

	return func() {
		l.lmu.Lock()
		defer l.lmu.Unlock()
		ls := l.listeners[name]
		for i, x := range ls {
			if x.id == id {
				l.listeners[name] = append(ls[:i:i], ls[i+1:]...)
				return
			}
		}
	}
}

func (l *Link) emit(ev core.RawEvent) {
	l.lmu.RLock()
	ls := l.listeners[ev.Name]
	l.lmu.RUnlock()
	if len(ls) == 0 {
		log.Debug().Str("module", "adapters.host").Str("event", ev.Name).Msg("no listener")
		return
	}
	for _, x := range ls {
		x.fn(ev)
	}
}

// Run keeps the link up until ctx is done, redialing after every drop.
func (l *Link) Run(ctx context.Context) error {
	for {
		conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.host").Str("url", l.url).Dur("retry", l.retry).Msg("dial failed")
		} else {
			log.Info().Str("module", "adapters.host").Str("url", l.url).Msg("host linked")
			l.serve(ctx, conn)
			if ctx.Err() == nil {
				// The game session cannot be trusted once the host link is lost.
				l.emit(core.RawEvent{Name: core.EvDisconnect, Args: json.RawMessage(`[true]`)})
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

func (l *Link) serve(ctx context.Context, conn *websocket.Conn) {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	send := make(chan []byte, l.sendBuffer)
	l.smu.Lock()
	l.send = send
	l.smu.Unlock()
	defer func() {
		l.smu.Lock()
		l.send = nil
		l.smu.Unlock()
	}()

	var wg conc.WaitGroup
	wg.Go(func() {
		<-sctx.Done()
		_ = conn.Close()
	})
	wg.Go(func() {
		defer cancel()
		l.writePump(sctx, conn, send)
	})
	wg.Go(func() {
		defer cancel()
		l.readPump(conn)
	})
	wg.Wait()
	log.Info().Str("module", "adapters.host").Msg("host link closed")
}

func (l *Link) writePump(ctx context.Context, conn *websocket.Conn, send <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-send:
			if err := conn.SetWriteDeadline(time.Now().Add(l.writeTimeout)); err != nil {
				log.Error().Err(err).Str("module", "adapters.host").Msg("writePump set deadline")
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.host").Msg("writePump write error")
				return
			}
		}
	}
}

func (l *Link) readPump(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error().Err(err).Str("module", "adapters.host").Msg("readPump read error")
			}
			return
		}
		ev, ok := parseFrame(data)
		if !ok {
			log.Warn().Str("module", "adapters.host").Int("bytes", len(data)).Msg("bad frame")
			continue
		}
		l.emit(ev)
	}
}

// parseFrame reads {"event": name, "args": [...]}.
func parseFrame(data []byte) (core.RawEvent, bool) {
	if !gjson.ValidBytes(data) {
		return core.RawEvent{}, false
	}
	name := gjson.GetBytes(data, "event")
	if name.Type != gjson.String || name.Str == "" {
		return core.RawEvent{}, false
	}
	ev := core.RawEvent{Name: name.Str}
	if args := gjson.GetBytes(data, "args"); args.IsArray() {
		ev.Args = json.RawMessage(args.Raw)
	}
	return ev, true
}

type frame struct {
	Event string `json:"event"`
	Args  []any  `json:"args"`
}

func (l *Link) call(name string, args ...any) {
	if args == nil {
		args = []any{}
	}
	data, err := json.Marshal(frame{Event: name, Args: args})
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.host").Str("cmd", name).Msg("marshal command")
		return
	}
	if err := l.trySend(data); err != nil {
		log.Warn().Err(err).Str("module", "adapters.host").Str("cmd", name).Msg("command not delivered")
	}
}

func (l *Link) trySend(data []byte) error {
	l.smu.RLock()
	defer l.smu.RUnlock()
	if l.send == nil {
		return ErrNotLinked
	}
	select {
	case l.send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (l *Link) Connect(host string, port int, token string) { l.call("connect", host, port, token) }
func (l *Link) Disconnect()                                 { l.call("disconnect") }
func (l *Link) SendMessage(text string)                     { l.call("sendMessage", text) }
func (l *Link) TeleportToPlayer(id int64)                   { l.call("teleportToPlayer", id) }
func (l *Link) Reconnect()                                  { l.call("reconnect") }
func (l *Link) Deactivate()                                 { l.call("deactivate") }
