package domain

// LocalSession describes the local player and the overlay itself,
// as reported by the game host.
type LocalSession struct {
	ServerID *PlayerID `json:"server_id,omitempty"`
	Name     string    `json:"name"`
	Version  string    `json:"version"`
	Username string    `json:"username,omitempty"`
	Token    string    `json:"-"`

	Active   bool `json:"active"`
	InGame   bool `json:"in_game"`
	MenuOpen bool `json:"menu_open"`
}

func (s LocalSession) Clone() LocalSession {
	if s.ServerID != nil {
		id := *s.ServerID
		s.ServerID = &id
	}
	return s
}
