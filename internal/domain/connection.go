package domain

import "github.com/invopop/jsonschema"

// ConnectionState is the lifecycle of the single game-session connection.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
	StateError
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

func (s ConnectionState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// JSONSchema describes the text form produced by MarshalText.
func (ConnectionState) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "string",
		Enum: []any{
			StateDisconnected.String(),
			StateConnecting.String(),
			StateConnected.String(),
			StateDisconnecting.String(),
			StateError.String(),
		},
	}
}

// ErrorTag classifies why the connection entered StateError.
// It carries no payload on purpose: raw error details never reach presentation.
type ErrorTag string

const (
	ErrorNone             ErrorTag = ""
	ErrorProtocolMismatch ErrorTag = "protocol_mismatch"
	ErrorTransport        ErrorTag = "transport"
	ErrorTriggered        ErrorTag = "triggered"
)

func (ErrorTag) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "string",
		Enum: []any{ErrorProtocolMismatch, ErrorTransport, ErrorTriggered},
	}
}

// ConnectionStatus is the observable value of the state machine.
type ConnectionStatus struct {
	State     ConnectionState `json:"state"`
	LastError ErrorTag        `json:"last_error,omitempty"`
}
