package transport

import "sync"

// Queue is a bounded in-process Channel. Producers block in Send while the
// queue is full; Close unblocks them with ErrChannelClosed.
type Queue struct {
	msgs      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue creates a queue holding at most capacity undelivered chunks
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		msgs: make(chan []byte, capacity),
		done: make(chan struct{}),
	}
}

// Send enqueues chunk, waiting for room
func (q *Queue) Send(chunk []byte) error {
	// Checked first so a closed queue never accepts a chunk even when
	// there is buffer space left.
	select {
	case <-q.done:
		return ErrChannelClosed
	default:
	}

	select {
	case q.msgs <- chunk:
		return nil
	case <-q.done:
		return ErrChannelClosed
	}
}

// Messages returns the receive side of the queue.
// It is never closed; consumers stop at the sentinel or on Done.
func (q *Queue) Messages() <-chan []byte {
	return q.msgs
}

// Done is closed once the consumer has gone away
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

// Close marks the consumer as gone. Safe to call more than once.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}

// Collect drains the queue until the sentinel and returns every chunk seen,
// the sentinel included. It returns early if the queue is closed.
func (q *Queue) Collect() [][]byte {
	var chunks [][]byte
	for {
		select {
		case chunk := <-q.msgs:
			chunks = append(chunks, chunk)
			if IsSentinel(chunk) {
				return chunks
			}
		case <-q.done:
			return chunks
		}
	}
}
