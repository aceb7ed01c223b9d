// Package session tracks the local player and overlay lifecycle reported by the host.
package session

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Overlay/internal/core"
	"github.com/dkeye/Overlay/internal/domain"
)

type Store struct {
	value *core.Observable[domain.LocalSession]
}

func NewStore() *Store {
	return &Store{value: core.NewObservable(domain.LocalSession{})}
}

func (s *Store) Snapshot() domain.LocalSession { return s.value.Get().Clone() }

func (s *Store) Subscribe(fn func(domain.LocalSession)) (cancel func()) {
	return s.value.Subscribe(func(v domain.LocalSession) { fn(v.Clone()) })
}

// Token is the launcher token from the last userDataSet event.
func (s *Store) Token() string { return s.value.Get().Token }

func (s *Store) mutate(field string, fn func(*domain.LocalSession)) {
	v := s.value.Get().Clone()
	fn(&v)
	log.Debug().Str("module", "app.session").Str("field", field).Msg("session updated")
	s.value.Set(v)
}

// MarkInactive records that the overlay released control.
func (s *Store) MarkInactive() {
	s.mutate("active", func(v *domain.LocalSession) { v.Active = false })
}

func (s *Store) HandleEvent(ev core.Event) {
	switch e := ev.(type) {
	case core.ServerIDSet:
		id := e.ID
		s.mutate("server_id", func(v *domain.LocalSession) { v.ServerID = &id })
	case core.NameSet:
		s.mutate("name", func(v *domain.LocalSession) { v.Name = e.Name })
	case core.VersionSet:
		s.mutate("version", func(v *domain.LocalSession) { v.Version = e.Version })
	case core.UserDataSet:
		s.mutate("user_data", func(v *domain.LocalSession) {
			v.Token = e.Token
			v.Username = e.Username
		})
	case core.OverlayActivated:
		s.mutate("active", func(v *domain.LocalSession) { v.Active = true })
	case core.OverlayDeactivated:
		s.MarkInactive()
	case core.GameEntered:
		s.mutate("in_game", func(v *domain.LocalSession) { v.InGame = true })
	case core.GameExited:
		s.mutate("in_game", func(v *domain.LocalSession) {
			v.InGame = false
			v.MenuOpen = false
		})
	case core.MenuToggled:
		s.mutate("menu_open", func(v *domain.LocalSession) { v.MenuOpen = e.Open })
	}
}
