// Package telemetry keeps the latest connection-quality report.
package telemetry

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Overlay/internal/core"
	"github.com/dkeye/Overlay/internal/domain"
)

// View is what presentation sees. Snapshot is nil while debug mode is off
// or before the first report.
type View struct {
	Visible  bool                      `json:"visible"`
	Snapshot *domain.TelemetrySnapshot `json:"snapshot,omitempty"`
}

type state struct {
	visible bool
	has     bool
	latest  domain.TelemetrySnapshot
}

// Aggregator replaces its snapshot wholesale on every report; smoothing is a
// presentation concern. The snapshot is kept while hidden.
type Aggregator struct {
	st   *core.Observable[state]
	feed core.Feed[View]
}

func NewAggregator() *Aggregator {
	return &Aggregator{st: core.NewObservable(state{})}
}

func (a *Aggregator) Current() (domain.TelemetrySnapshot, bool) {
	v := a.View()
	if v.Snapshot == nil {
		return domain.TelemetrySnapshot{}, false
	}
	return *v.Snapshot, true
}

// Latest ignores visibility.
func (a *Aggregator) Latest() (domain.TelemetrySnapshot, bool) {
	st := a.st.Get()
	return st.latest, st.has
}

func (a *Aggregator) Visible() bool { return a.st.Get().visible }

func (a *Aggregator) View() View { return viewOf(a.st.Get()) }

func (a *Aggregator) Subscribe(fn func(View)) (cancel func()) {
	return a.feed.Subscribe(fn)
}

func (a *Aggregator) Report(s domain.TelemetrySnapshot) {
	st := a.st.Get()
	st.latest = s
	st.has = true
	a.st.Set(st)
	if st.visible {
		a.feed.Publish(viewOf(st))
	}
}

func (a *Aggregator) SetVisible(on bool) {
	st := a.st.Get()
	if st.visible == on {
		return
	}
	st.visible = on
	a.st.Set(st)
	log.Info().Str("module", "app.telemetry").Bool("visible", on).Msg("debug visibility")
	a.feed.Publish(viewOf(st))
}

func (a *Aggregator) HandleEvent(ev core.Event) {
	switch e := ev.(type) {
	case core.TelemetryReported:
		a.Report(e.Snapshot)
	case core.DebugToggled:
		a.SetVisible(e.Enabled)
	}
}

func viewOf(st state) View {
	v := View{Visible: st.visible}
	if st.visible && st.has {
		snap := st.latest
		v.Snapshot = &snap
	}
	return v
}
