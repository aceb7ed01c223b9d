package observe

import "github.com/dkeye/Overlay/internal/app/orch"

type BackpressureAction int

const (
	DropUpdate BackpressureAction = iota
	CloseStream
)

// Policy decides what happens to an update that does not fit a slow observer's buffer.
type Policy interface {
	OnBackpressure(u orch.Update) BackpressureAction
}

// SimplePolicy drops telemetry, which is replaced wholesale by the next report anyway,
// and closes the stream for anything else: a missing roster or state delta would
// leave the observer inconsistent, and reconnecting gives it a fresh snapshot.
type SimplePolicy struct{}

func (SimplePolicy) OnBackpressure(u orch.Update) BackpressureAction {
	if u.Type == orch.UpdateTelemetry {
		return DropUpdate
	}
	return CloseStream
}
