package transport

import (
	"log"
	"sync"
)

// Event is a single emitted notification
type Event struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// Bus is an in-process Emitter fanning events out to subscribers.
// Slow subscribers lose events instead of stalling producers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	buffer int
}

// NewBus creates a bus whose subscribers buffer up to buffer events each
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 1
	}
	return &Bus{
		subs:   make(map[int]chan Event),
		buffer: buffer,
	}
}

// Emit delivers the event to every current subscriber
func (b *Bus) Emit(topic string, payload any) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	event := Event{Topic: topic, Payload: payload}
	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			log.Printf("Event bus subscriber %d is full, dropping %s event", id, topic)
		}
	}
	return nil
}

// Subscribe registers a new subscriber. The returned cancel function
// unregisters it and closes the event channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of registered subscribers
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
