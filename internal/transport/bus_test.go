package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusFanOut(t *testing.T) {
	bus := NewBus(4)
	a, cancelA := bus.Subscribe()
	defer cancelA()
	b, cancelB := bus.Subscribe()
	defer cancelB()
	require.Equal(t, 2, bus.Subscribers())

	require.NoError(t, bus.Emit("stream-finished", map[string]string{"streamId": "s1"}))

	for _, ch := range []<-chan Event{a, b} {
		ev := <-ch
		assert.Equal(t, "stream-finished", ev.Topic)
		assert.Equal(t, map[string]string{"streamId": "s1"}, ev.Payload)
	}
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus(1)
	ch, cancel := bus.Subscribe()
	defer cancel()

	require.NoError(t, bus.Emit("first", 1))
	require.NoError(t, bus.Emit("second", 2))

	ev := <-ch
	assert.Equal(t, "first", ev.Topic)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %s", ev.Topic)
	default:
	}
}

func TestBusCancel(t *testing.T) {
	bus := NewBus(0)
	ch, cancel := bus.Subscribe()
	cancel()
	cancel()

	assert.Equal(t, 0, bus.Subscribers())
	_, ok := <-ch
	assert.False(t, ok)

	assert.NoError(t, bus.Emit("nobody", nil))
}
