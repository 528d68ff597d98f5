// Package peer manages the pion PeerConnection used by the send and receive
// commands.
package peer

import (
	"fmt"
	"log"

	"onlycut/internal/config"

	"github.com/pion/webrtc/v4"
)

// ConnectionFailureError reports a peer connection that failed or closed
// before the transfer finished
type ConnectionFailureError struct {
	State   webrtc.PeerConnectionState
	Role    string
	Message string
}

func (e *ConnectionFailureError) Error() string {
	return fmt.Sprintf("connection failed in %s state for %s: %s", e.State.String(), e.Role, e.Message)
}

// Callbacks are invoked from pion's state change goroutine
type Callbacks struct {
	OnConnected func()
	OnFailed    func(err error)
	OnClosed    func()
}

// Connection wraps a PeerConnection together with its role
type Connection struct {
	*webrtc.PeerConnection
	Role string
}

// Service creates peer connections from configuration
type Service struct {
	config *config.WebRTCConfig
}

// NewService creates a new peer service with the given configuration
func NewService(cfg *config.WebRTCConfig) *Service {
	return &Service{config: cfg}
}

// Configuration returns the pion configuration for new connections
func (s *Service) Configuration() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: s.config.ICEServerList(),
	}
}

// CreatePeerConnection creates a connection and installs the state handler
func (s *Service) CreatePeerConnection(role string, cb Callbacks) (*Connection, error) {
	pc, err := webrtc.NewPeerConnection(s.Configuration())
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	conn := &Connection{PeerConnection: pc, Role: role}
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		HandleStateChange(state, role, cb)
	})
	return conn, nil
}

// Close gracefully closes the peer connection
func (c *Connection) Close() error {
	if c == nil || c.PeerConnection == nil {
		return nil
	}
	if err := c.PeerConnection.Close(); err != nil {
		return fmt.Errorf("failed to close %s peer connection: %w", c.Role, err)
	}
	return nil
}

// HandleStateChange maps a connection state onto the callbacks
func HandleStateChange(state webrtc.PeerConnectionState, role string, cb Callbacks) {
	log.Printf("Peer Connection State has changed: %s (%s)", state.String(), role)

	switch state {
	case webrtc.PeerConnectionStateConnected:
		if cb.OnConnected != nil {
			cb.OnConnected()
		}
	case webrtc.PeerConnectionStateFailed:
		if cb.OnFailed != nil {
			cb.OnFailed(&ConnectionFailureError{
				State:   state,
				Role:    role,
				Message: "peer connection failed",
			})
		}
	case webrtc.PeerConnectionStateClosed:
		if cb.OnClosed != nil {
			cb.OnClosed()
		}
	}
}
