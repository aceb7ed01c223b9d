package core

import "sync"

// Feed fans a stream of values out to subscribers in subscription order.
// Publish runs subscribers on the caller's goroutine and never under the feed lock,
// so a subscriber may unsubscribe itself.
type Feed[T any] struct {
	mu   sync.RWMutex
	next uint64
	subs []feedSub[T]
}

type feedSub[T any] struct {
	id uint64
	fn func(T)
}

func (f *Feed[T]) Subscribe(fn func(T)) (cancel func()) {
	f.mu.Lock()
	f.next++
	id := f.next
	f.subs = append(f.subs, feedSub[T]{id: id, fn: fn})
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { f.remove(id) })
	}
}

func (f *Feed[T]) remove(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.subs {
		if s.id == id {
			f.subs = append(f.subs[:i:i], f.subs[i+1:]...)
			return
		}
	}
}

func (f *Feed[T]) Publish(v T) {
	f.mu.RLock()
	subs := f.subs
	f.mu.RUnlock()
	for _, s := range subs {
		s.fn(v)
	}
}

func (f *Feed[T]) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Observable holds a single current value and notifies on replacement.
type Observable[T any] struct {
	mu    sync.RWMutex
	value T
	feed  Feed[T]
}

func NewObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{value: initial}
}

func (o *Observable[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// Set stores v, then notifies subscribers. Readers never observe a half-written value.
func (o *Observable[T]) Set(v T) {
	o.mu.Lock()
	o.value = v
	o.mu.Unlock()
	o.feed.Publish(v)
}

func (o *Observable[T]) Subscribe(fn func(T)) (cancel func()) {
	return o.feed.Subscribe(fn)
}
