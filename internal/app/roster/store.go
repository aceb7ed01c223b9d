// Package roster keeps the live mapping of connected players.
package roster

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Overlay/internal/core"
	"github.com/dkeye/Overlay/internal/domain"
)

type Op string

const (
	OpAdded   Op = "added"
	OpUpdated Op = "updated"
	OpRemoved Op = "removed"
	OpCleared Op = "cleared"
)

// Change describes one applied mutation. Player is the record after the change,
// or the removed record for OpRemoved; it is zero for OpCleared.
type Change struct {
	Op     Op              `json:"op"`
	ID     domain.PlayerID `json:"id"`
	Player domain.Player   `json:"player"`
}

// Store is owned by the reactor: only bridge reactions mutate it.
// Readers on other goroutines get copies.
type Store struct {
	mu      sync.RWMutex
	players map[domain.PlayerID]*domain.Player
	changes core.Feed[Change]
}

func NewStore() *Store {
	return &Store{players: make(map[domain.PlayerID]*domain.Player)}
}

func (s *Store) Subscribe(fn func(Change)) (cancel func()) { return s.changes.Subscribe(fn) }

// Upsert creates the record for id, overwriting a live one.
// A colliding id means a missed disconnect; last writer wins.
func (s *Store) Upsert(id domain.PlayerID, name string, level int, cell string) {
	s.mu.Lock()
	_, existed := s.players[id]
	p := &domain.Player{ID: id, Name: name, Level: level, Cell: cell}
	s.players[id] = p
	out := p.Clone()
	s.mu.Unlock()

	if existed {
		log.Warn().Str("module", "app.roster").Int64("id", int64(id)).Str("name", name).Msg("player id reused without leave, overwriting")
	} else {
		log.Info().Str("module", "app.roster").Int64("id", int64(id)).Str("name", name).Msg("player added")
	}
	s.changes.Publish(Change{Op: OpAdded, ID: id, Player: out})
}

func (s *Store) Remove(id domain.PlayerID) bool {
	s.mu.Lock()
	p, ok := s.players[id]
	if ok {
		delete(s.players, id)
	}
	s.mu.Unlock()

	if !ok {
		log.Debug().Str("module", "app.roster").Int64("id", int64(id)).Msg("remove: unknown player")
		return false
	}
	log.Info().Str("module", "app.roster").Int64("id", int64(id)).Msg("player removed")
	s.changes.Publish(Change{Op: OpRemoved, ID: id, Player: p.Clone()})
	return true
}

func (s *Store) UpdateHealth(id domain.PlayerID, health float64) bool {
	return s.update(id, "health", func(p *domain.Player) { p.Health = &health })
}

func (s *Store) UpdateLevel(id domain.PlayerID, level int) bool {
	return s.update(id, "level", func(p *domain.Player) { p.Level = level })
}

func (s *Store) UpdateCell(id domain.PlayerID, cell string) bool {
	return s.update(id, "cell", func(p *domain.Player) { p.Cell = cell })
}

func (s *Store) Update3DLoaded(id domain.PlayerID, loaded bool) bool {
	return s.update(id, "loaded", func(p *domain.Player) { p.Loaded3D = loaded })
}

// update applies a partial mutation. Unknown ids are absorbed.
func (s *Store) update(id domain.PlayerID, field string, apply func(*domain.Player)) bool {
	s.mu.Lock()
	p, ok := s.players[id]
	if ok {
		apply(p)
	}
	var out domain.Player
	if ok {
		out = p.Clone()
	}
	s.mu.Unlock()

	if !ok {
		log.Debug().Str("module", "app.roster").Int64("id", int64(id)).Str("field", field).Msg("update for unknown player ignored")
		return false
	}
	s.changes.Publish(Change{Op: OpUpdated, ID: id, Player: out})
	return true
}

// Clear drops every record.
func (s *Store) Clear() {
	s.mu.Lock()
	n := len(s.players)
	s.players = make(map[domain.PlayerID]*domain.Player)
	s.mu.Unlock()

	if n == 0 {
		return
	}
	log.Info().Str("module", "app.roster").Int("players", n).Msg("roster cleared")
	s.changes.Publish(Change{Op: OpCleared})
}

func (s *Store) Get(id domain.PlayerID) (domain.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return domain.Player{}, false
	}
	return p.Clone(), true
}

func (s *Store) Has(id domain.PlayerID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.players[id]
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

// Snapshot returns a copy of the roster ordered by id.
func (s *Store) Snapshot() []domain.Player {
	s.mu.RLock()
	out := make([]domain.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) HandleEvent(ev core.Event) {
	switch e := ev.(type) {
	case core.PlayerJoined:
		level := e.Level
		if level < 0 {
			log.Warn().Str("module", "app.roster").Int64("id", int64(e.ID)).Int("level", level).Msg("negative level clamped")
			level = 0
		}
		s.Upsert(e.ID, e.Name, level, e.Cell)
	case core.PlayerLeft:
		s.Remove(e.ID)
	case core.HealthChanged:
		s.UpdateHealth(e.ID, e.Health)
	case core.LevelChanged:
		if e.Level < 0 {
			log.Warn().Str("module", "app.roster").Int64("id", int64(e.ID)).Int("level", e.Level).Msg("negative level ignored")
			return
		}
		s.UpdateLevel(e.ID, e.Level)
	case core.CellChanged:
		s.UpdateCell(e.ID, e.Cell)
	case core.Player3DLoaded:
		health := e.Health
		s.update(e.ID, "loaded", func(p *domain.Player) {
			p.Loaded3D = true
			p.Health = &health
		})
	case core.Player3DUnloaded:
		s.Update3DLoaded(e.ID, false)
	}
}

// ClearOnDisconnect empties the roster whenever the connection lands on Disconnected.
func (s *Store) ClearOnDisconnect(status domain.ConnectionStatus) {
	if status.State == domain.StateDisconnected {
		s.Clear()
	}
}
