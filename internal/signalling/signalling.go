// Package signalling exchanges SDP offers and answers between the send and
// receive commands through a shared session store.
package signalling

import (
	"context"
	"errors"
	"fmt"
	"log"

	"onlycut/internal/config"
	"onlycut/pkg/utils"

	"github.com/pion/webrtc/v4"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrAnswerTimeout   = errors.New("timeout waiting for answer")
)

// SignalingServer defines the interface for signaling storage operations
type SignalingServer interface {
	CreateSession(ctx context.Context, offer string) (sessionID string, err error)
	GetOffer(ctx context.Context, sessionID string) (offer string, err error)
	UpdateAnswer(ctx context.Context, sessionID, answer string) error
	WaitForAnswer(ctx context.Context, sessionID string) (answer string, err error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// SDPHandler produces complete local descriptions for a peer connection
type SDPHandler interface {
	Offer(ctx context.Context, peerConn *webrtc.PeerConnection) (*webrtc.SessionDescription, error)
	Answer(ctx context.Context, peerConn *webrtc.PeerConnection, offer webrtc.SessionDescription) (*webrtc.SessionDescription, error)
	Accept(peerConn *webrtc.PeerConnection, answer webrtc.SessionDescription) error
}

// SignalingService orchestrates the complete signaling flow using composition
type SignalingService struct {
	server SignalingServer
	sdp    SDPHandler

	// OnCode is called with the session code as soon as it exists
	OnCode func(code string)
}

func NewSignalingService(server SignalingServer, sdp SDPHandler) *SignalingService {
	return &SignalingService{
		server: server,
		sdp:    sdp,
		OnCode: func(code string) {
			log.Printf("Send this code to the receiver: %s", utils.FormatCode(code))
		},
	}
}

func NewDefaultSignalingService(ctx context.Context, cfg *config.Config) (*SignalingService, error) {
	if err := cfg.ValidateFirebase(); err != nil {
		return nil, fmt.Errorf("invalid Firebase configuration: %w", err)
	}

	server, err := NewFirebaseClient(ctx, &cfg.Firebase)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase client: %w", err)
	}

	return NewSignalingService(server, &PionSDP{}), nil
}

// StartSenderSignallingProcess publishes the offer, waits for the answer
// and applies it. It returns the session code.
func (s *SignalingService) StartSenderSignallingProcess(ctx context.Context, peerConn *webrtc.PeerConnection) (string, error) {
	offer, err := s.sdp.Offer(ctx, peerConn)
	if err != nil {
		return "", err
	}

	encodedOffer, err := encodeDescription(offer)
	if err != nil {
		return "", err
	}

	sessionID, err := s.server.CreateSession(ctx, encodedOffer)
	if err != nil {
		return "", fmt.Errorf("failed to create session with offer: %w", err)
	}

	if s.OnCode != nil {
		s.OnCode(sessionID)
	}

	answer, err := s.server.WaitForAnswer(ctx, sessionID)
	if err != nil {
		return sessionID, fmt.Errorf("failed to wait for answer: %w", err)
	}

	answerSD, err := decodeDescription(answer, webrtc.SDPTypeAnswer)
	if err != nil {
		return sessionID, err
	}

	if err := s.sdp.Accept(peerConn, answerSD); err != nil {
		return sessionID, err
	}

	return sessionID, nil
}

// StartReceiverSignallingProcess fetches the offer for sessionID and
// publishes the answer
func (s *SignalingService) StartReceiverSignallingProcess(ctx context.Context, peerConn *webrtc.PeerConnection, sessionID string) error {
	encodedOffer, err := s.server.GetOffer(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to get offer from session: %w", err)
	}

	offerSD, err := decodeDescription(encodedOffer, webrtc.SDPTypeOffer)
	if err != nil {
		return err
	}

	answer, err := s.sdp.Answer(ctx, peerConn, offerSD)
	if err != nil {
		return err
	}

	encodedAnswer, err := encodeDescription(answer)
	if err != nil {
		return err
	}

	if err := s.server.UpdateAnswer(ctx, sessionID, encodedAnswer); err != nil {
		return fmt.Errorf("failed to upload answer: %w", err)
	}

	return nil
}

// ClearSession deletes a session by its ID
func (s *SignalingService) ClearSession(ctx context.Context, sessionID string) error {
	return s.server.DeleteSession(ctx, sessionID)
}
