package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeed_PublishOrder(t *testing.T) {
	var f Feed[int]
	var got []string
	f.Subscribe(func(v int) { got = append(got, "a") })
	f.Subscribe(func(v int) { got = append(got, "b") })

	f.Publish(1)

	assert.Equal(t, []string{"a", "b"}, got)
}

func TestFeed_CancelInsideCallback(t *testing.T) {
	var f Feed[int]
	calls := 0
	var cancel func()
	cancel = f.Subscribe(func(int) {
		calls++
		cancel()
	})

	f.Publish(1)
	f.Publish(2)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, f.Len())
}

func TestFeed_CancelIsIdempotent(t *testing.T) {
	var f Feed[int]
	c1 := f.Subscribe(func(int) {})
	f.Subscribe(func(int) {})

	c1()
	c1()

	assert.Equal(t, 1, f.Len())
}

func TestObservable_SetNotifies(t *testing.T) {
	o := NewObservable("a")
	var seen []string
	o.Subscribe(func(v string) {
		assert.Equal(t, v, o.Get(), "value must be stored before notification")
		seen = append(seen, v)
	})

	o.Set("b")

	assert.Equal(t, "b", o.Get())
	assert.Equal(t, []string{"b"}, seen)
}
