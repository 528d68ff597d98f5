package streamer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"onlycut/internal/logging"
	"onlycut/internal/transport"
)

// ErrIncomplete is returned when the chunk stream ends without a sentinel
var ErrIncomplete = errors.New("stream closed before end of stream")

// Sink writes a received chunk stream to a destination file
type Sink struct {
	file    *os.File
	path    string
	written uint64
	closed  bool
	logger  *logging.Logger
}

// CreateSink creates dst, and its parent directory if needed.
// A nil logger uses the process default.
func CreateSink(dst string, logger *logging.Logger) (*Sink, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}
	file, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	return &Sink{file: file, path: dst, logger: logger}, nil
}

// Path returns the destination path
func (s *Sink) Path() string {
	return s.path
}

// Written returns the number of bytes written so far
func (s *Sink) Written() uint64 {
	return s.written
}

// Write appends one data chunk
func (s *Sink) Write(chunk []byte) (int, error) {
	n, err := s.file.Write(chunk)
	s.written += uint64(n)
	if err != nil {
		return n, fmt.Errorf("failed to write data: %w", err)
	}
	return n, nil
}

// Close flushes and closes the destination file
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	s.logger.Infof("File writing completed: %s, %d bytes written", s.path, s.written)
	return nil
}

// Discard closes the sink and removes the partially written file
func (s *Sink) Discard() error {
	if !s.closed {
		s.closed = true
		_ = s.file.Close()
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove partial file: %w", err)
	}
	s.logger.Warnf("Removed incomplete file %s after %d bytes", s.path, s.written)
	return nil
}

// Drain writes chunks from q into sink until the sentinel arrives.
// onChunk, when set, is called with the length of every data chunk.
// Chunks queued before q was closed are still written.
func Drain(ctx context.Context, q *transport.Queue, sink *Sink, onChunk func(n int)) error {
	handle := func(chunk []byte) (bool, error) {
		if transport.IsSentinel(chunk) {
			return true, nil
		}
		if _, err := sink.Write(chunk); err != nil {
			return false, err
		}
		if onChunk != nil {
			onChunk(len(chunk))
		}
		return false, nil
	}

	for {
		select {
		case chunk := <-q.Messages():
			if done, err := handle(chunk); done || err != nil {
				return err
			}
		case <-q.Done():
			for {
				select {
				case chunk := <-q.Messages():
					if done, err := handle(chunk); done || err != nil {
						return err
					}
				default:
					return ErrIncomplete
				}
			}
		case <-ctx.Done():
			return fmt.Errorf("receive cancelled: %w", ctx.Err())
		}
	}
}
