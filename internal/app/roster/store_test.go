package roster

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Overlay/internal/core"
	"github.com/dkeye/Overlay/internal/domain"
)

func ptr(f float64) *float64 { return &f }

func ids(players []domain.Player) []domain.PlayerID {
	out := make([]domain.PlayerID, 0, len(players))
	for _, p := range players {
		out = append(out, p.ID)
	}
	return out
}

func TestStore_ReplayMatchesLastJoinWithoutLaterLeave(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		s := NewStore()
		want := map[domain.PlayerID]bool{}
		for i := 0; i < 50; i++ {
			id := domain.PlayerID(rng.Intn(8))
			if rng.Intn(2) == 0 {
				s.HandleEvent(core.PlayerJoined{ID: id, Name: "p", Level: 1})
				want[id] = true
			} else {
				s.HandleEvent(core.PlayerLeft{ID: id})
				delete(want, id)
			}
		}

		got := ids(s.Snapshot())
		assert.Len(t, got, len(want))
		for _, id := range got {
			assert.True(t, want[id], "unexpected id %d in round %d", id, round)
		}
	}
}

func TestStore_UpdatesForUnknownIDAreNoOps(t *testing.T) {
	events := []core.Event{
		core.HealthChanged{ID: 99, Health: 10},
		core.LevelChanged{ID: 99, Level: 2},
		core.CellChanged{ID: 99, Cell: "Solitude"},
		core.Player3DLoaded{ID: 99, Health: 50},
		core.Player3DUnloaded{ID: 99},
		core.PlayerLeft{ID: 99},
	}

	s := NewStore()
	s.HandleEvent(core.PlayerJoined{ID: 1, Name: "Ann", Level: 5, Cell: "Riften"})
	before := s.Snapshot()

	changes := 0
	s.Subscribe(func(Change) { changes++ })
	for _, ev := range events {
		s.HandleEvent(ev)
	}

	assert.Equal(t, before, s.Snapshot())
	assert.Zero(t, changes)
}

func TestStore_Scenario(t *testing.T) {
	s := NewStore()

	s.HandleEvent(core.PlayerJoined{ID: 7, Name: "Bob", Level: 3, Cell: "Whiterun"})
	p, ok := s.Get(7)
	require.True(t, ok)
	assert.Equal(t, domain.Player{ID: 7, Name: "Bob", Level: 3, Cell: "Whiterun"}, p)
	assert.Nil(t, p.Health)
	assert.False(t, p.Loaded3D)

	s.HandleEvent(core.HealthChanged{ID: 7, Health: 80})
	p, _ = s.Get(7)
	require.NotNil(t, p.Health)
	assert.Equal(t, 80.0, *p.Health)

	s.HandleEvent(core.PlayerLeft{ID: 7, Name: "Bob"})
	assert.Empty(t, s.Snapshot())
}

func TestStore_PartialUpdates(t *testing.T) {
	s := NewStore()
	s.HandleEvent(core.PlayerJoined{ID: 2, Name: "Lydia", Level: 10, Cell: "Dragonsreach"})

	s.HandleEvent(core.LevelChanged{ID: 2, Level: 11})
	s.HandleEvent(core.CellChanged{ID: 2, Cell: "Whiterun"})
	s.HandleEvent(core.Player3DLoaded{ID: 2, Health: 250})

	p, _ := s.Get(2)
	assert.Equal(t, domain.Player{ID: 2, Name: "Lydia", Level: 11, Cell: "Whiterun", Health: ptr(250), Loaded3D: true}, p)

	s.HandleEvent(core.Player3DUnloaded{ID: 2})
	p, _ = s.Get(2)
	assert.False(t, p.Loaded3D)
	assert.Equal(t, 250.0, *p.Health)
}

func TestStore_CollidingJoinOverwrites(t *testing.T) {
	s := NewStore()
	s.HandleEvent(core.PlayerJoined{ID: 3, Name: "Old", Level: 1, Cell: "A"})
	s.HandleEvent(core.HealthChanged{ID: 3, Health: 5})

	s.HandleEvent(core.PlayerJoined{ID: 3, Name: "New", Level: 9, Cell: "B"})

	p, _ := s.Get(3)
	assert.Equal(t, domain.Player{ID: 3, Name: "New", Level: 9, Cell: "B"}, p)
	assert.Equal(t, 1, s.Len())
}

func TestStore_NegativeLevel(t *testing.T) {
	s := NewStore()
	s.HandleEvent(core.PlayerJoined{ID: 1, Name: "x", Level: -4})
	p, _ := s.Get(1)
	assert.Equal(t, 0, p.Level)

	s.HandleEvent(core.LevelChanged{ID: 1, Level: -1})
	p, _ = s.Get(1)
	assert.Equal(t, 0, p.Level)
}

func TestStore_ClearOnDisconnect(t *testing.T) {
	tests := []struct {
		state     domain.ConnectionState
		wantEmpty bool
	}{
		{domain.StateDisconnected, true},
		{domain.StateError, false},
		{domain.StateDisconnecting, false},
		{domain.StateConnected, false},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			s := NewStore()
			s.HandleEvent(core.PlayerJoined{ID: 1, Name: "a"})
			s.HandleEvent(core.PlayerJoined{ID: 2, Name: "b"})

			s.ClearOnDisconnect(domain.ConnectionStatus{State: tt.state})

			assert.Equal(t, tt.wantEmpty, s.Len() == 0)
		})
	}
}

func TestStore_ChangeFeed(t *testing.T) {
	s := NewStore()
	var ops []Op
	s.Subscribe(func(c Change) { ops = append(ops, c.Op) })

	s.HandleEvent(core.PlayerJoined{ID: 1, Name: "a"})
	s.HandleEvent(core.HealthChanged{ID: 1, Health: 1})
	s.HandleEvent(core.PlayerJoined{ID: 2, Name: "b"})
	s.HandleEvent(core.PlayerLeft{ID: 1})
	s.Clear()
	s.Clear()

	assert.Equal(t, []Op{OpAdded, OpUpdated, OpAdded, OpRemoved, OpCleared}, ops)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore()
	s.HandleEvent(core.PlayerJoined{ID: 1, Name: "a"})
	s.HandleEvent(core.HealthChanged{ID: 1, Health: 10})

	snap := s.Snapshot()
	*snap[0].Health = 999
	snap[0].Name = "mutated"

	p, _ := s.Get(1)
	assert.Equal(t, 10.0, *p.Health)
	assert.Equal(t, "a", p.Name)
}

func TestStore_SnapshotOrderedByID(t *testing.T) {
	s := NewStore()
	for _, id := range []domain.PlayerID{5, 1, 3} {
		s.HandleEvent(core.PlayerJoined{ID: id})
	}
	assert.Equal(t, []domain.PlayerID{1, 3, 5}, ids(s.Snapshot()))
}
