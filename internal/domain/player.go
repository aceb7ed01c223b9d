// Package domain contains entities without logic, just meta-data
package domain

// PlayerID is the session-local id assigned by the game host.
// It is unique only within one connection's lifetime.
type PlayerID int64

type Player struct {
	ID       PlayerID `json:"id"`
	Name     string   `json:"name"`
	Level    int      `json:"level"`
	Cell     string   `json:"cell"`
	Health   *float64 `json:"health,omitempty"`
	Loaded3D bool     `json:"loaded"`
}

// Clone returns a copy that shares no memory with p.
func (p Player) Clone() Player {
	if p.Health != nil {
		h := *p.Health
		p.Health = &h
	}
	return p
}
