package signalling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"
)

// DefaultGatheringTimeout bounds how long Offer and Answer wait for ICE
// candidates before giving up
const DefaultGatheringTimeout = 30 * time.Second

var ErrNoLocalDescription = errors.New("local description is nil after ICE gathering")

// PionSDP implements SDPHandler on top of pion peer connections. Offers and
// answers carry every gathered candidate, since the session store only
// holds one description per side.
type PionSDP struct {
	GatheringTimeout time.Duration
}

// Offer creates the local offer and returns it once ICE gathering completes
func (h *PionSDP) Offer(ctx context.Context, peerConn *webrtc.PeerConnection) (*webrtc.SessionDescription, error) {
	offer, err := peerConn.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}
	return h.setLocal(ctx, peerConn, offer)
}

// Answer applies the remote offer and returns the gathered local answer
func (h *PionSDP) Answer(ctx context.Context, peerConn *webrtc.PeerConnection, offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if offer.Type != webrtc.SDPTypeOffer {
		return nil, fmt.Errorf("expected an offer, got %s", offer.Type)
	}
	if err := peerConn.SetRemoteDescription(offer); err != nil {
		return nil, fmt.Errorf("failed to set remote description: %w", err)
	}

	answer, err := peerConn.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create answer: %w", err)
	}
	return h.setLocal(ctx, peerConn, answer)
}

// Accept applies the remote answer to an offering peer connection
func (h *PionSDP) Accept(peerConn *webrtc.PeerConnection, answer webrtc.SessionDescription) error {
	if answer.Type != webrtc.SDPTypeAnswer {
		return fmt.Errorf("expected an answer, got %s", answer.Type)
	}
	if err := peerConn.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("failed to set remote description: %w", err)
	}
	return nil
}

func (h *PionSDP) setLocal(ctx context.Context, peerConn *webrtc.PeerConnection, desc webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	// Must be taken before SetLocalDescription starts gathering
	gathered := webrtc.GatheringCompletePromise(peerConn)

	if err := peerConn.SetLocalDescription(desc); err != nil {
		return nil, fmt.Errorf("failed to set local description: %w", err)
	}

	timeout := h.GatheringTimeout
	if timeout <= 0 {
		timeout = DefaultGatheringTimeout
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, fmt.Errorf("ICE gathering did not complete within %v", timeout)
	}

	final := peerConn.LocalDescription()
	if final == nil {
		return nil, ErrNoLocalDescription
	}
	return final, nil
}
