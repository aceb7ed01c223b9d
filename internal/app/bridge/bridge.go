// Package bridge turns raw host callbacks into typed events and fans them out.
package bridge

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/dkeye/Overlay/internal/core"
	"github.com/dkeye/Overlay/internal/domain"
)

// Bridge owns nothing but its subscription handles.
// Payloads are forwarded as-is: validation belongs to the receiving component.
type Bridge struct {
	src  core.EventSource
	exec core.Executor

	mu       sync.RWMutex
	handlers []core.Handler
	offs     []func()
}

func New(src core.EventSource, exec core.Executor) *Bridge {
	return &Bridge{src: src, exec: exec}
}

// Subscribe registers h. Handlers are invoked in registration order.
// A late subscriber sees only events emitted after this call.
func (b *Bridge) Subscribe(h core.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Start listens once to every host event name.
func (b *Bridge) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.offs != nil {
		return
	}
	for _, name := range core.EventNames {
		b.offs = append(b.offs, b.src.On(name, b.onRaw))
	}
	log.Info().Str("module", "app.bridge").Int("events", len(core.EventNames)).Msg("bridge subscribed")
}

func (b *Bridge) Stop() {
	b.mu.Lock()
	offs := b.offs
	b.offs = nil
	b.mu.Unlock()
	for _, off := range offs {
		off()
	}
}

func (b *Bridge) onRaw(raw core.RawEvent) {
	if !b.exec.Post(func() { b.Dispatch(raw) }) {
		log.Warn().Str("module", "app.bridge").Str("event", raw.Name).Msg("executor stopped, event lost")
	}
}

// Dispatch decodes raw and delivers it synchronously to every handler.
func (b *Bridge) Dispatch(raw core.RawEvent) {
	ev, ok := Decode(raw)
	if !ok {
		log.Warn().Str("module", "app.bridge").Str("event", raw.Name).Msg("unknown event")
		return
	}
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()
	log.Debug().Str("module", "app.bridge").Str("event", raw.Name).Int("handlers", len(handlers)).Msg("dispatch")
	for _, h := range handlers {
		h.HandleEvent(ev)
	}
}

// Decode maps a raw host callback to exactly one typed event.
// Missing or mistyped arguments decode to zero values.
func Decode(raw core.RawEvent) (core.Event, bool) {
	args := gjson.ParseBytes(raw.Args).Array()
	arg := func(i int) gjson.Result {
		if i < len(args) {
			return args[i]
		}
		return gjson.Result{}
	}
	id := func(i int) domain.PlayerID { return domain.PlayerID(arg(i).Int()) }

	switch raw.Name {
	case core.EvConnect:
		return core.Connected{}, true
	case core.EvDisconnect:
		return core.Disconnected{IsError: arg(0).Bool()}, true
	case core.EvMessage:
		return core.ChatReceived{Kind: domain.ChatPlayer, From: arg(0).String(), Text: arg(1).String()}, true
	case core.EvSystemMessage:
		return core.ChatReceived{Kind: domain.ChatSystem, Text: arg(0).String()}, true
	case core.EvWhisperMessage:
		return core.ChatReceived{Kind: domain.ChatWhisper, From: arg(0).String(), Text: arg(1).String()}, true
	case core.EvPlayerConnected:
		return core.PlayerJoined{ID: id(0), Name: arg(1).String(), Level: int(arg(2).Int()), Cell: arg(3).String()}, true
	case core.EvPlayerDisconnected:
		return core.PlayerLeft{ID: id(0), Name: arg(1).String()}, true
	case core.EvSetHealth:
		return core.HealthChanged{ID: id(0), Health: arg(1).Float()}, true
	case core.EvSetLevel:
		return core.LevelChanged{ID: id(0), Level: int(arg(1).Int())}, true
	case core.EvSetCell:
		return core.CellChanged{ID: id(0), Cell: arg(1).String()}, true
	case core.EvSetPlayer3dLoaded:
		return core.Player3DLoaded{ID: id(0), Health: arg(1).Float()}, true
	case core.EvSetPlayer3dUnloaded:
		return core.Player3DUnloaded{ID: id(0)}, true
	case core.EvDebugData:
		return core.TelemetryReported{Snapshot: domain.TelemetrySnapshot{
			PacketsSent:       arg(0).Int(),
			PacketsReceived:   arg(1).Int(),
			RoundTripTime:     arg(2).Float(),
			PacketLoss:        arg(3).Float(),
			BandwidthSent:     arg(4).Float(),
			BandwidthReceived: arg(5).Float(),
		}}, true
	case core.EvDebug:
		return core.DebugToggled{Enabled: arg(0).Bool()}, true
	case core.EvProtocolMismatch:
		return core.ProtocolMismatch{}, true
	case core.EvTriggerError:
		return core.ErrorTriggered{}, true
	case core.EvSetServerID:
		return core.ServerIDSet{ID: id(0)}, true
	case core.EvSetName:
		return core.NameSet{Name: arg(0).String()}, true
	case core.EvSetVersion:
		return core.VersionSet{Version: arg(0).String()}, true
	case core.EvUserDataSet:
		return core.UserDataSet{Token: arg(0).String(), Username: arg(1).String()}, true
	case core.EvActivate:
		return core.OverlayActivated{}, true
	case core.EvDeactivate:
		return core.OverlayDeactivated{}, true
	case core.EvEnterGame:
		return core.GameEntered{}, true
	case core.EvExitGame:
		return core.GameExited{}, true
	case core.EvOpeningMenu:
		return core.MenuToggled{Open: arg(0).Bool()}, true
	}
	return nil, false
}
