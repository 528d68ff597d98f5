// Package transport carries messages from a producer goroutine to a remote
// consumer without the consumer polling.
//
// Two shapes are provided:
//
//   - Channel delivers raw byte chunks for one session. An empty chunk is the
//     end-of-stream sentinel.
//   - Emitter broadcasts coarse lifecycle notifications by topic.
//
// Implementations: Queue (in-process), Bus (in-process broadcast),
// WebSocketChannel (gorilla/websocket) and PeerChannel (pion data channel).
package transport

import "errors"

// ErrChannelClosed is returned by Send once the remote endpoint is gone
var ErrChannelClosed = errors.New("channel is closed")

// Channel sends raw byte chunks to a single remote consumer
type Channel interface {
	// Send delivers chunk. The implementation owns chunk after the call.
	Send(chunk []byte) error
}

// Emitter broadcasts a payload under a topic to whoever is listening
type Emitter interface {
	Emit(topic string, payload any) error
}

// ChannelFunc adapts a function to the Channel interface
type ChannelFunc func(chunk []byte) error

func (f ChannelFunc) Send(chunk []byte) error {
	return f(chunk)
}

// EmitterFunc adapts a function to the Emitter interface
type EmitterFunc func(topic string, payload any) error

func (f EmitterFunc) Emit(topic string, payload any) error {
	return f(topic, payload)
}

// IsSentinel reports whether chunk marks the end of a stream
func IsSentinel(chunk []byte) bool {
	return len(chunk) == 0
}

var (
	_ Channel = (*Queue)(nil)
	_ Channel = (*WebSocketChannel)(nil)
	_ Emitter = (*Bus)(nil)
)
