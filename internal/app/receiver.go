package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"onlycut/internal/config"
	"onlycut/internal/logging"
	"onlycut/internal/peer"
	"onlycut/internal/signalling"
	"onlycut/internal/streamer"
	"onlycut/internal/transport"
	"onlycut/internal/ui"
	"onlycut/pkg/utils"
)

// ReceiverOptions configures the receiver application behavior
type ReceiverOptions struct {
	DestPath string // Required: destination directory or file path
	Code     string // Optional: session code, prompted for when empty
}

// ReceiverApp receives one resource from a remote sender over WebRTC
type ReceiverApp struct {
	config           *config.Config
	peerService      *peer.Service
	signalingService *signalling.SignalingService
	progress         *ui.ProgressUI
	logger           *logging.Logger

	// Prompt input and output, stdin and stdout by default
	In  io.Reader
	Out io.Writer
}

// NewReceiverApp creates a new receiver application
func NewReceiverApp(
	cfg *config.Config,
	peerService *peer.Service,
	signalingService *signalling.SignalingService,
	progress *ui.ProgressUI,
	logger *logging.Logger,
) *ReceiverApp {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReceiverApp{
		config:           cfg,
		peerService:      peerService,
		signalingService: signalingService,
		progress:         progress,
		logger:           logger,
		In:               os.Stdin,
		Out:              os.Stdout,
	}
}

// Run starts the receiver application with the given options
func (r *ReceiverApp) Run(ctx context.Context, opts *ReceiverOptions) error {
	if opts.DestPath == "" {
		return fmt.Errorf("destination path is required")
	}
	if err := checkDestination(opts.DestPath); err != nil {
		return err
	}

	r.logger.Infof("Preparing to receive resource to: %s", opts.DestPath)

	exitCh := make(chan error, 1)
	signalExit := func(err error) {
		select {
		case exitCh <- err:
		default:
		}
	}

	conn, err := r.peerService.CreatePeerConnection("receiver", peer.Callbacks{
		OnFailed: signalExit,
		OnClosed: func() { signalExit(nil) },
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			r.logger.Warnf("Error closing peer connection: %v", err)
		}
	}()

	accepted := transport.AcceptDataChannel(ctx, &r.config.WebRTC, conn.PeerConnection)

	code := opts.Code
	if code == "" {
		code, err = utils.AskForCode(ctx, r.In, r.Out)
		if err != nil {
			return fmt.Errorf("failed to get code from user: %w", err)
		}
	} else if !utils.IsValidCode(code) {
		return fmt.Errorf("invalid session code: %q", code)
	}
	code = utils.NormalizeCode(code)

	if err := r.signalingService.StartReceiverSignallingProcess(ctx, conn.PeerConnection, code); err != nil {
		return fmt.Errorf("failed during signalling process: %w", err)
	}

	var channel *transport.PeerChannel
	select {
	case channel = <-accepted:
	case err := <-exitCh:
		return fmt.Errorf("peer connection ended before the data channel opened: %w", errOrClosed(err))
	case <-ctx.Done():
		return ctx.Err()
	}
	defer channel.Close()

	started, err := r.awaitStart(ctx, channel, exitCh)
	if err != nil {
		return err
	}

	dst := destinationFile(opts.DestPath, remoteFileName(started.Path))
	if err := r.receiveInto(ctx, channel.Incoming(), dst, started.ContentLength); err != nil {
		return err
	}
	r.logger.Infof("Resource saved to %s", dst)
	return nil
}

// receiveInto drains q into dst. The file is removed again when the stream
// does not reach its sentinel.
func (r *ReceiverApp) receiveInto(ctx context.Context, q *transport.Queue, dst string, contentLength int64) error {
	sink, err := streamer.CreateSink(dst, r.logger)
	if err != nil {
		return err
	}

	if r.progress != nil {
		r.progress.StartProgressReceiving(filepath.Base(dst), contentLength)
	}
	onChunk := func(n int) {
		if r.progress != nil {
			r.progress.Add(n)
		}
	}

	drainErr := streamer.Drain(ctx, q, sink, onChunk)
	if drainErr == nil {
		drainErr = sink.Close()
	}
	if drainErr != nil {
		if err := sink.Discard(); err != nil {
			r.logger.Warnf("%v", err)
		}
		return fmt.Errorf("failed to receive resource: %w", drainErr)
	}

	if r.progress != nil {
		r.progress.CompleteProgress()
	}
	if int64(sink.Written()) != contentLength {
		r.logger.Warnf("Received %d bytes, sender announced %d", sink.Written(), contentLength)
	}
	return nil
}

// awaitStart waits for the stream-started notification that precedes the chunks
func (r *ReceiverApp) awaitStart(ctx context.Context, channel *transport.PeerChannel, exitCh <-chan error) (streamer.StartedPayload, error) {
	var started streamer.StartedPayload
	for {
		select {
		case msg := <-channel.Control():
			if msg.Topic != streamer.TopicStarted {
				r.logger.Debugf("Ignoring %s before stream start", msg.Topic)
				continue
			}
			if err := msg.Decode(&started); err != nil {
				return started, err
			}
			return started, nil
		case <-channel.Done():
			return started, fmt.Errorf("data channel closed before the stream started: %w", transport.ErrChannelClosed)
		case err := <-exitCh:
			return started, fmt.Errorf("peer connection ended before the stream started: %w", errOrClosed(err))
		case <-ctx.Done():
			return started, ctx.Err()
		}
	}
}

func errOrClosed(err error) error {
	if err == nil {
		return transport.ErrChannelClosed
	}
	return err
}

// checkDestination accepts an existing directory or a path whose parent
// directory exists
func checkDestination(dst string) error {
	info, err := os.Stat(dst)
	if err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("destination path '%s' exists but is not a directory", dst)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cannot access destination path: %w", err)
	}

	dir := filepath.Dir(dst)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("parent directory does not exist: %s", dir)
	}
	return nil
}

// remoteFileName reduces the sender's resource path to a bare file name
// that cannot leave the destination directory
func remoteFileName(p string) string {
	name := path.Base(strings.ReplaceAll(p, `\`, "/"))
	switch name {
	case "", ".", "..", "/":
		return DataChannelLabel
	}
	return name
}

// destinationFile returns where the received resource is written. An
// existing directory receives the sender's file name.
func destinationFile(dst, name string) string {
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		return filepath.Join(dst, name)
	}
	return dst
}
