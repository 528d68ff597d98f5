// Package streamer reads a resource incrementally and pushes it through a
// transport.Channel as fixed-size chunks followed by an empty sentinel.
package streamer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"onlycut/internal/config"
	"onlycut/internal/errs"
	"onlycut/internal/logging"
	"onlycut/internal/resource"
	"onlycut/internal/transport"
	"onlycut/pkg/utils"

	"github.com/google/uuid"
)

// Lifecycle topics emitted while a stream runs
const (
	TopicStarted  = "stream-started"
	TopicProgress = "stream-progress"
	TopicFinished = "stream-finished"
)

// StartedPayload is emitted once the source is open. Path is the resource
// path as the caller gave it, relative to the resource directory.
type StartedPayload struct {
	Path          string `json:"path"`
	StreamID      string `json:"streamId"`
	ContentLength int64  `json:"contentLength"`
}

// ProgressPayload is emitted after every delivered data chunk
type ProgressPayload struct {
	StreamID    string `json:"streamId"`
	ChunkLength int    `json:"chunkLength"`
}

// FinishedPayload is emitted after the sentinel has been delivered
type FinishedPayload struct {
	StreamID string `json:"streamId"`
}

// Session is the state of one transfer. It lives only for the duration of
// a Stream call.
type Session struct {
	ID            string
	Path          string
	ChunkSize     int
	ContentLength int64
	BytesSent     uint64
	Chunks        int
}

// Streamer streams resources in chunks
type Streamer struct {
	resolver  *resource.Resolver
	chunkSize int
	emitter   transport.Emitter
	logger    *logging.Logger
}

// Option configures a Streamer
type Option func(*Streamer)

// WithChunkSize overrides the default chunk size. Non-positive sizes are ignored.
func WithChunkSize(n int) Option {
	return func(s *Streamer) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithEmitter publishes lifecycle notifications to e
func WithEmitter(e transport.Emitter) Option {
	return func(s *Streamer) {
		s.emitter = e
	}
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(s *Streamer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a streamer resolving paths through resolver
func New(resolver *resource.Resolver, opts ...Option) *Streamer {
	s := &Streamer{
		resolver:  resolver,
		chunkSize: config.DefaultChunkSize,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ChunkSize returns the configured chunk size
func (s *Streamer) ChunkSize() int {
	return s.chunkSize
}

// Stream sends the resource at path through ch. Every data chunk is a fresh
// slice of at most ChunkSize bytes, in file order, and a successful stream
// ends with exactly one empty chunk.
//
// A send failure or a cancelled ctx stops the stream at once: nothing is
// resent and no sentinel follows. Errors are *errs.Error values.
func (s *Streamer) Stream(ctx context.Context, path string, ch transport.Channel) error {
	resolved, err := s.resolver.Resolve(path)
	if err != nil {
		return err
	}

	file, err := os.Open(resolved)
	if err != nil {
		return errs.IO(fmt.Errorf("failed to open resource: %w", err))
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return errs.IO(fmt.Errorf("failed to get resource info: %w", err))
	}
	if stat.IsDir() {
		return errs.IO(fmt.Errorf("resource %s is a directory", path))
	}

	session := &Session{
		ID:            uuid.NewString(),
		Path:          resolved,
		ChunkSize:     s.chunkSize,
		ContentLength: stat.Size(),
	}
	s.logger.Infof("Stream %s prepared: %s, size: %d bytes (%s)",
		session.ID, path, session.ContentLength, utils.FormatFileSize(session.ContentLength))

	s.emit(TopicStarted, StartedPayload{
		Path:          filepath.ToSlash(path),
		StreamID:      session.ID,
		ContentLength: session.ContentLength,
	})

	if err := s.pump(ctx, file, session, ch); err != nil {
		s.logger.Warnf("Stream %s aborted after %d chunks: %v", session.ID, session.Chunks, err)
		return err
	}

	s.emit(TopicFinished, FinishedPayload{StreamID: session.ID})
	s.logger.Infof("Stream %s completed: %d chunks, %s",
		session.ID, session.Chunks, utils.FormatFileSize(int64(session.BytesSent)))
	return nil
}

// pump copies r into ch chunk by chunk and finishes with the sentinel
func (s *Streamer) pump(ctx context.Context, r io.Reader, session *Session, ch transport.Channel) error {
	buffer := make([]byte, session.ChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return errs.Platform(fmt.Errorf("stream %s cancelled: %w", session.ID, err))
		}

		n, err := io.ReadFull(r, buffer)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return errs.IO(fmt.Errorf("failed to read resource: %w", err))
		}
		if n == 0 {
			break
		}

		chunk := make([]byte, n)
		copy(chunk, buffer[:n])
		if err := ch.Send(chunk); err != nil {
			return errs.Platform(fmt.Errorf("failed to send chunk %d of stream %s: %w", session.Chunks, session.ID, err))
		}
		session.Chunks++
		session.BytesSent += uint64(n)
		s.emit(TopicProgress, ProgressPayload{StreamID: session.ID, ChunkLength: n})

		if n < session.ChunkSize {
			break
		}
	}

	if err := ch.Send([]byte{}); err != nil {
		return errs.Platform(fmt.Errorf("failed to send end of stream %s: %w", session.ID, err))
	}
	return nil
}

func (s *Streamer) emit(topic string, payload any) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(topic, payload); err != nil {
		s.logger.Warnf("Failed to emit %s: %v", topic, err)
	}
}
