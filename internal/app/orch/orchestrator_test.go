package orch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Overlay/internal/app/reactor"
	"github.com/dkeye/Overlay/internal/app/roster"
	"github.com/dkeye/Overlay/internal/core"
	"github.com/dkeye/Overlay/internal/domain"
)

type fakeHost struct {
	listeners map[string]func(core.RawEvent)
	calls     []string
	connects  [][3]any
}

func newFakeHost() *fakeHost {
	return &fakeHost{listeners: make(map[string]func(core.RawEvent))}
}

func (h *fakeHost) On(name string, fn func(core.RawEvent)) func() {
	h.listeners[name] = fn
	return func() { delete(h.listeners, name) }
}

func (h *fakeHost) emit(name string, args ...any) {
	raw, _ := json.Marshal(args)
	if fn, ok := h.listeners[name]; ok {
		fn(core.RawEvent{Name: name, Args: raw})
	}
}

func (h *fakeHost) Connect(host string, port int, token string) {
	h.calls = append(h.calls, "connect")
	h.connects = append(h.connects, [3]any{host, port, token})
}
func (h *fakeHost) Disconnect()            { h.calls = append(h.calls, "disconnect") }
func (h *fakeHost) SendMessage(string)     { h.calls = append(h.calls, "sendMessage") }
func (h *fakeHost) TeleportToPlayer(int64) { h.calls = append(h.calls, "teleportToPlayer") }
func (h *fakeHost) Reconnect()             { h.calls = append(h.calls, "reconnect") }
func (h *fakeHost) Deactivate()            { h.calls = append(h.calls, "deactivate") }

func newTestOrchestrator() (*Orchestrator, *fakeHost) {
	h := newFakeHost()
	o := New(Options{}, h, h, core.Immediate{})
	o.Start()
	return o, h
}

func TestOrchestrator_SessionScenario(t *testing.T) {
	o, h := newTestOrchestrator()
	assert.Equal(t, domain.StateDisconnected, o.Conn.State())

	o.Connect("1.2.3.4", 1234, "tok")
	assert.Equal(t, domain.StateConnecting, o.Conn.State())
	require.Len(t, h.connects, 1)
	assert.Equal(t, [3]any{"1.2.3.4", 1234, "tok"}, h.connects[0])

	h.emit(core.EvConnect)
	assert.Equal(t, domain.StateConnected, o.Conn.State())

	h.emit(core.EvPlayerConnected, 7, "Bob", 3, "Whiterun")
	assert.Equal(t, []domain.Player{{ID: 7, Name: "Bob", Level: 3, Cell: "Whiterun"}}, o.Roster.Snapshot())

	h.emit(core.EvSetHealth, 7, 80)
	p, _ := o.Roster.Get(7)
	require.NotNil(t, p.Health)
	assert.Equal(t, 80.0, *p.Health)

	h.emit(core.EvPlayerDisconnected, 7, "Bob")
	assert.Empty(t, o.Roster.Snapshot())
}

func TestOrchestrator_RosterSurvivesErrorUntilDisconnected(t *testing.T) {
	o, h := newTestOrchestrator()
	h.emit(core.EvConnect)
	h.emit(core.EvPlayerConnected, 1, "A", 1, "X")
	h.emit(core.EvPlayerConnected, 2, "B", 1, "Y")

	h.emit(core.EvTriggerError)
	assert.Equal(t, domain.ConnectionStatus{State: domain.StateError, LastError: domain.ErrorTriggered}, o.Conn.Status())
	assert.Equal(t, 2, o.Roster.Len())

	h.emit(core.EvDisconnect, true)
	assert.Equal(t, domain.StateDisconnected, o.Conn.State())
	assert.Zero(t, o.Roster.Len())
}

func TestOrchestrator_RosterEmptyAfterUserDisconnect(t *testing.T) {
	o, h := newTestOrchestrator()
	o.Connect("host", 1, "t")
	h.emit(core.EvConnect)
	h.emit(core.EvPlayerConnected, 1, "A", 1, "X")

	o.Disconnect()
	assert.Equal(t, domain.StateDisconnecting, o.Conn.State())
	assert.Equal(t, 1, o.Roster.Len())

	h.emit(core.EvDisconnect, false)
	assert.Equal(t, domain.StateDisconnected, o.Conn.State())
	assert.Zero(t, o.Roster.Len())
	assert.Equal(t, []string{"connect", "disconnect"}, h.calls)
}

func TestOrchestrator_CommandsDroppedSilently(t *testing.T) {
	o, h := newTestOrchestrator()

	o.SendMessage("hello")
	o.TeleportToPlayer(3)
	o.Disconnect()

	assert.Empty(t, h.calls)
	assert.Equal(t, domain.StateDisconnected, o.Conn.State())
}

func TestOrchestrator_ConnectFallsBackToLauncherToken(t *testing.T) {
	o, h := newTestOrchestrator()
	h.emit(core.EvUserDataSet, "launcher-token", "dovah")

	o.Connect("localhost", 0, "")

	require.Len(t, h.connects, 1)
	assert.Equal(t, [3]any{"127.0.0.1", 10578, "launcher-token"}, h.connects[0])
}

func TestOrchestrator_DeactivateMarksInactive(t *testing.T) {
	o, h := newTestOrchestrator()
	h.emit(core.EvActivate)
	require.True(t, o.Session.Snapshot().Active)

	o.Deactivate()

	assert.False(t, o.Session.Snapshot().Active)
	assert.Equal(t, []string{"deactivate"}, h.calls)
}

func TestOrchestrator_ObserveStartsFromCurrentState(t *testing.T) {
	o, h := newTestOrchestrator()
	h.emit(core.EvConnect)
	h.emit(core.EvPlayerConnected, 4, "Late", 2, "Markarth")

	var updates []Update
	cancel := o.Observe(func(u Update) { updates = append(updates, u) })

	require.Len(t, updates, 5)
	assert.Equal(t, Update{Type: UpdateState, Data: domain.ConnectionStatus{State: domain.StateConnected}}, updates[0])
	assert.Equal(t, Update{Type: UpdateRoster, Data: []domain.Player{{ID: 4, Name: "Late", Level: 2, Cell: "Markarth"}}}, updates[1])

	h.emit(core.EvSetLevel, 4, 3)
	require.Len(t, updates, 6)
	assert.Equal(t, UpdateRosterDelta, updates[5].Type)
	change := updates[5].Data.(roster.Change)
	assert.Equal(t, roster.OpUpdated, change.Op)
	assert.Equal(t, 3, change.Player.Level)

	cancel()
	h.emit(core.EvSetLevel, 4, 4)
	assert.Len(t, updates, 6)
}

func TestOrchestrator_DisconnectStreamOrder(t *testing.T) {
	o, h := newTestOrchestrator()
	h.emit(core.EvConnect)
	h.emit(core.EvPlayerConnected, 1, "A", 1, "X")

	var types []string
	o.Observe(func(u Update) { types = append(types, u.Type) })
	types = nil

	h.emit(core.EvDisconnect, false)

	assert.Equal(t, []string{UpdateRosterDelta, UpdateState}, types)
}

type stoppedExecutor struct{}

func (stoppedExecutor) Post(func()) bool { return false }

func TestOrchestrator_ObserveAfterStop(t *testing.T) {
	h := newFakeHost()
	o := New(Options{}, h, h, stoppedExecutor{})

	called := false
	cancel := o.Observe(func(Update) { called = true })
	cancel()

	assert.False(t, called)
}

func TestOrchestrator_SnapshotNeverShowsHalfAppliedDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rx := reactor.New(64)
	go func() { _ = rx.Run(ctx) }()

	h := newFakeHost()
	o := New(Options{}, h, h, rx)
	o.Start()

	stop := make(chan struct{})
	torn := 0
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap, err := o.Snapshot(ctx)
			if err != nil {
				return
			}
			if snap.Connection.State == domain.StateDisconnected && len(snap.Roster) > 0 {
				torn++
			}
		}
	}()

	for i := 0; i < 300; i++ {
		h.emit(core.EvConnect)
		for id := 1; id <= 5; id++ {
			h.emit(core.EvPlayerConnected, id, "P", 1, "Cell")
		}
		h.emit(core.EvDisconnect, false)
	}

	final, err := o.Snapshot(ctx)
	close(stop)
	wg.Wait()

	require.NoError(t, err)
	assert.Zero(t, torn)
	assert.Equal(t, domain.StateDisconnected, final.Connection.State)
	assert.Empty(t, final.Roster)
}

func TestOrchestrator_SnapshotHonorsContext(t *testing.T) {
	h := newFakeHost()
	rx := reactor.New(1)
	o := New(Options{}, h, h, rx)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Snapshot(ctx)

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}
