// Package reactor runs every host event and user command as a discrete,
// non-preemptible reaction on one goroutine.
package reactor

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

var ErrStopped = errors.New("reactor stopped")

type Reactor struct {
	mailbox chan func()
	done    chan struct{}
	once    sync.Once

	// mu orders Post against the final drain in stop.
	mu      sync.RWMutex
	stopped bool
}

func New(size int) *Reactor {
	if size <= 0 {
		size = 1
	}
	return &Reactor{
		mailbox: make(chan func(), size),
		done:    make(chan struct{}),
	}
}

// Post enqueues fn. It blocks while the mailbox is full so that
// reactions are never dropped or reordered, and reports false once the reactor has stopped.
// A reaction accepted just before stopping is discarded by the drain and logged.
func (r *Reactor) Post(fn func()) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.mailbox <- fn:
		return true
	case <-r.done:
		return false
	}
}

// Run executes reactions in FIFO order until ctx is done.
func (r *Reactor) Run(ctx context.Context) error {
	defer r.stop()
	log.Info().Str("module", "app.reactor").Int("mailbox", cap(r.mailbox)).Msg("reactor started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.reactor").Msg("reactor ctx done")
			return ErrStopped
		case fn := <-r.mailbox:
			r.react(fn)
		}
	}
}

func (r *Reactor) react(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Str("module", "app.reactor").Interface("panic", p).Msg("reaction panicked")
		}
	}()
	fn()
}

func (r *Reactor) stop() {
	r.once.Do(func() {
		// Wakes any Post blocked on a full mailbox so it releases mu.
		close(r.done)

		r.mu.Lock()
		defer r.mu.Unlock()
		r.stopped = true
		dropped := 0
		for {
			select {
			case <-r.mailbox:
				dropped++
			default:
				if dropped > 0 {
					log.Warn().Str("module", "app.reactor").Int("dropped", dropped).Msg("pending reactions discarded on stop")
				}
				return
			}
		}
	})
}
