package core

import "github.com/dkeye/Overlay/internal/domain"

// Host event names the bridge subscribes to.
const (
	EvConnect             = "connect"
	EvDisconnect          = "disconnect"
	EvMessage             = "message"
	EvSystemMessage       = "systemMessage"
	EvWhisperMessage      = "whisperMessage"
	EvPlayerConnected     = "playerConnected"
	EvPlayerDisconnected  = "playerDisconnected"
	EvSetHealth           = "setHealth"
	EvSetLevel            = "setLevel"
	EvSetCell             = "setCell"
	EvSetPlayer3dLoaded   = "setPlayer3dLoaded"
	EvSetPlayer3dUnloaded = "setPlayer3dUnloaded"
	EvDebugData           = "debugData"
	EvDebug               = "debug"
	EvProtocolMismatch    = "protocolMismatch"
	EvTriggerError        = "triggerError"
	EvSetServerID         = "setServerId"
	EvSetName             = "setName"
	EvSetVersion          = "setVersion"
	EvUserDataSet         = "userDataSet"
	EvActivate            = "activate"
	EvDeactivate          = "deactivate"
	EvEnterGame           = "enterGame"
	EvExitGame            = "exitGame"
	EvOpeningMenu         = "openingMenu"
)

// EventNames is the fixed set of host events, in subscription order.
var EventNames = []string{
	EvConnect, EvDisconnect,
	EvMessage, EvSystemMessage, EvWhisperMessage,
	EvPlayerConnected, EvPlayerDisconnected,
	EvSetHealth, EvSetLevel, EvSetCell, EvSetPlayer3dLoaded, EvSetPlayer3dUnloaded,
	EvDebugData, EvDebug,
	EvProtocolMismatch, EvTriggerError,
	EvSetServerID, EvSetName, EvSetVersion, EvUserDataSet,
	EvActivate, EvDeactivate, EvEnterGame, EvExitGame, EvOpeningMenu,
}

// Event is the closed set of typed domain events produced by the bridge.
type Event interface {
	EventName() string
	event()
}

type (
	Connected    struct{}
	Disconnected struct{ IsError bool }

	ChatReceived struct {
		Kind domain.ChatKind
		From string
		Text string
	}

	PlayerJoined struct {
		ID    domain.PlayerID
		Name  string
		Level int
		Cell  string
	}
	PlayerLeft struct {
		ID   domain.PlayerID
		Name string
	}
	HealthChanged struct {
		ID     domain.PlayerID
		Health float64
	}
	LevelChanged struct {
		ID    domain.PlayerID
		Level int
	}
	CellChanged struct {
		ID   domain.PlayerID
		Cell string
	}
	Player3DLoaded struct {
		ID     domain.PlayerID
		Health float64
	}
	Player3DUnloaded struct{ ID domain.PlayerID }

	TelemetryReported struct{ Snapshot domain.TelemetrySnapshot }
	DebugToggled      struct{ Enabled bool }

	ProtocolMismatch struct{}
	ErrorTriggered   struct{}

	ServerIDSet struct{ ID domain.PlayerID }
	NameSet     struct{ Name string }
	VersionSet  struct{ Version string }
	UserDataSet struct {
		Token    string
		Username string
	}

	OverlayActivated   struct{}
	OverlayDeactivated struct{}
	GameEntered        struct{}
	GameExited         struct{}
	MenuToggled        struct{ Open bool }
)

func (Connected) EventName() string    { return EvConnect }
func (Disconnected) EventName() string { return EvDisconnect }
func (e ChatReceived) EventName() string {
	switch e.Kind {
	case domain.ChatSystem:
		return EvSystemMessage
	case domain.ChatWhisper:
		return EvWhisperMessage
	default:
		return EvMessage
	}
}
func (PlayerJoined) EventName() string       { return EvPlayerConnected }
func (PlayerLeft) EventName() string         { return EvPlayerDisconnected }
func (HealthChanged) EventName() string      { return EvSetHealth }
func (LevelChanged) EventName() string       { return EvSetLevel }
func (CellChanged) EventName() string        { return EvSetCell }
func (Player3DLoaded) EventName() string     { return EvSetPlayer3dLoaded }
func (Player3DUnloaded) EventName() string   { return EvSetPlayer3dUnloaded }
func (TelemetryReported) EventName() string  { return EvDebugData }
func (DebugToggled) EventName() string       { return EvDebug }
func (ProtocolMismatch) EventName() string   { return EvProtocolMismatch }
func (ErrorTriggered) EventName() string     { return EvTriggerError }
func (ServerIDSet) EventName() string        { return EvSetServerID }
func (NameSet) EventName() string            { return EvSetName }
func (VersionSet) EventName() string         { return EvSetVersion }
func (UserDataSet) EventName() string        { return EvUserDataSet }
func (OverlayActivated) EventName() string   { return EvActivate }
func (OverlayDeactivated) EventName() string { return EvDeactivate }
func (GameEntered) EventName() string        { return EvEnterGame }
func (GameExited) EventName() string         { return EvExitGame }
func (MenuToggled) EventName() string        { return EvOpeningMenu }

func (Connected) event()          {}
func (Disconnected) event()       {}
func (ChatReceived) event()       {}
func (PlayerJoined) event()       {}
func (PlayerLeft) event()         {}
func (HealthChanged) event()      {}
func (LevelChanged) event()       {}
func (CellChanged) event()        {}
func (Player3DLoaded) event()     {}
func (Player3DUnloaded) event()   {}
func (TelemetryReported) event()  {}
func (DebugToggled) event()       {}
func (ProtocolMismatch) event()   {}
func (ErrorTriggered) event()     {}
func (ServerIDSet) event()        {}
func (NameSet) event()            {}
func (VersionSet) event()         {}
func (UserDataSet) event()        {}
func (OverlayActivated) event()   {}
func (OverlayDeactivated) event() {}
func (GameEntered) event()        {}
func (GameExited) event()         {}
func (MenuToggled) event()        {}

// Handler receives typed events from the bridge.
type Handler interface {
	HandleEvent(Event)
}

type HandlerFunc func(Event)

func (f HandlerFunc) HandleEvent(ev Event) { f(ev) }
