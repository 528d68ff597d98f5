package signalling

import (
	"context"
	"fmt"
	"sync"

	"onlycut/pkg/utils"
)

// MemoryServer is an in-process SignalingServer. Both peers must share the
// same instance, which makes it useful for loopback transfers and tests.
type MemoryServer struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
}

type memorySession struct {
	offer    string
	answer   string
	answered chan struct{}
}

func NewMemoryServer() *MemoryServer {
	return &MemoryServer{sessions: make(map[string]*memorySession)}
}

func (m *MemoryServer) CreateSession(ctx context.Context, offer string) (string, error) {
	code, err := utils.NewSessionCode()
	if err != nil {
		return "", fmt.Errorf("error generating session code: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[code] = &memorySession{offer: offer, answered: make(chan struct{})}
	return code, nil
}

func (m *MemoryServer) lookup(sessionID string) (*memorySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return s, nil
}

func (m *MemoryServer) GetOffer(ctx context.Context, sessionID string) (string, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return "", err
	}
	return s.offer, nil
}

func (m *MemoryServer) UpdateAnswer(ctx context.Context, sessionID, answer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if s.answer != "" {
		return fmt.Errorf("session %s already answered", sessionID)
	}
	s.answer = answer
	close(s.answered)
	return nil
}

func (m *MemoryServer) WaitForAnswer(ctx context.Context, sessionID string) (string, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return "", err
	}
	select {
	case <-s.answered:
		m.mu.Lock()
		defer m.mu.Unlock()
		return s.answer, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *MemoryServer) DeleteSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}
