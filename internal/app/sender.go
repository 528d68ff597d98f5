package app

import (
	"context"
	"fmt"
	"path/filepath"

	"onlycut/internal/config"
	"onlycut/internal/logging"
	"onlycut/internal/peer"
	"onlycut/internal/resource"
	"onlycut/internal/signalling"
	"onlycut/internal/streamer"
	"onlycut/internal/transport"
	"onlycut/internal/ui"
)

// DataChannelLabel names the data channel carrying a resource
const DataChannelLabel = "resource"

// SenderOptions configures the sender application behavior
type SenderOptions struct {
	Resource string // Required: resource path relative to the resource directory
}

// SenderApp streams one resource to a remote receiver over WebRTC
type SenderApp struct {
	config           *config.Config
	peerService      *peer.Service
	signalingService *signalling.SignalingService
	resolver         *resource.Resolver
	progress         *ui.ProgressUI
	logger           *logging.Logger
}

// NewSenderApp creates a new sender application
func NewSenderApp(
	cfg *config.Config,
	peerService *peer.Service,
	signalingService *signalling.SignalingService,
	resolver *resource.Resolver,
	progress *ui.ProgressUI,
	logger *logging.Logger,
) *SenderApp {
	if logger == nil {
		logger = logging.Default()
	}
	return &SenderApp{
		config:           cfg,
		peerService:      peerService,
		signalingService: signalingService,
		resolver:         resolver,
		progress:         progress,
		logger:           logger,
	}
}

// Run starts the sender application with the given options
func (s *SenderApp) Run(ctx context.Context, opts *SenderOptions) error {
	if opts.Resource == "" {
		return fmt.Errorf("resource path is required")
	}
	// Fail before any signalling when the resource cannot be resolved
	if _, err := s.resolver.Resolve(opts.Resource); err != nil {
		return err
	}

	s.logger.Infof("Preparing to send resource: %s", opts.Resource)

	// Single exit channel for all termination conditions
	exitCh := make(chan error, 1)
	signalExit := func(err error) {
		select {
		case exitCh <- err:
		default:
		}
	}

	conn, err := s.peerService.CreatePeerConnection("sender", peer.Callbacks{
		OnFailed: signalExit,
		OnClosed: func() { signalExit(nil) },
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			s.logger.Warnf("Error closing peer connection: %v", err)
		}
	}()

	// The channel has to exist before the offer so the SDP carries it
	channel, err := transport.CreateDataChannel(ctx, &s.config.WebRTC, conn.PeerConnection, DataChannelLabel)
	if err != nil {
		return err
	}
	defer channel.Close()

	code, err := s.signalingService.StartSenderSignallingProcess(ctx, conn.PeerConnection)
	if code != "" {
		defer func() {
			if err := s.signalingService.ClearSession(context.WithoutCancel(ctx), code); err != nil {
				s.logger.Warnf("Failed to clear signalling session: %v", err)
			}
		}()
	}
	if err != nil {
		return fmt.Errorf("failed during signalling process: %w", err)
	}

	if err := channel.WaitReady(); err != nil {
		return fmt.Errorf("data channel never opened: %w", err)
	}

	st := streamer.New(s.resolver,
		streamer.WithChunkSize(s.config.Streamer.ChunkSize),
		streamer.WithEmitter(s.emitter(channel)),
		streamer.WithLogger(s.logger))
	if err := st.Stream(ctx, opts.Resource, channel); err != nil {
		return fmt.Errorf("failed to stream resource: %w", err)
	}
	if s.progress != nil {
		s.progress.CompleteProgress()
	}

	// The receiver closes the channel once it has seen the sentinel;
	// closing first could drop chunks still buffered on our side.
	select {
	case <-channel.Done():
		s.logger.Infof("Receiver confirmed the transfer")
		return nil
	case err := <-exitCh:
		if err != nil {
			return fmt.Errorf("peer connection ended before the receiver confirmed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// emitter forwards start and finish notifications to the receiver and
// keeps per-chunk progress local
func (s *SenderApp) emitter(channel *transport.PeerChannel) transport.Emitter {
	return transport.EmitterFunc(func(topic string, payload any) error {
		switch p := payload.(type) {
		case streamer.StartedPayload:
			if s.progress != nil {
				s.progress.StartProgressSending(filepath.Base(p.Path), p.ContentLength)
			}
		case streamer.ProgressPayload:
			if s.progress != nil {
				s.progress.Add(p.ChunkLength)
			}
			return nil
		}
		return channel.Emit(topic, payload)
	})
}
