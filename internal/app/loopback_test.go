package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"onlycut/internal/logging"
	"onlycut/internal/peer"
	"onlycut/internal/resource"
	"onlycut/internal/signalling"
	"onlycut/internal/streamer"
	"onlycut/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendReceiveLoopback(t *testing.T) {
	if testing.Short() {
		t.Skip("opens real peer connections")
	}

	cfg := testConfig(t)
	data := bytes.Repeat([]byte("onlycut"), 10000)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Resources.BaseDir, "clip.mp4"), data, 0644))

	resolver, err := resource.NewResolver(cfg.Resources.BaseDir)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	server := signalling.NewMemoryServer()
	codes := make(chan string, 1)

	senderSignalling := signalling.NewSignalingService(server, &signalling.PionSDP{})
	senderSignalling.OnCode = func(code string) { codes <- code }
	sender := NewSenderApp(cfg, peer.NewService(&cfg.WebRTC), senderSignalling, resolver, nil, logging.Discard())

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- sender.Run(ctx, &SenderOptions{Resource: "clip.mp4"})
	}()

	var code string
	select {
	case code = <-codes:
	case err := <-sendErr:
		t.Fatalf("sender stopped before publishing a code: %v", err)
	case <-ctx.Done():
		t.Fatal("sender never published a code")
	}

	dstDir := t.TempDir()
	receiver := NewReceiverApp(cfg, peer.NewService(&cfg.WebRTC),
		signalling.NewSignalingService(server, &signalling.PionSDP{}), nil, logging.Discard())
	require.NoError(t, receiver.Run(ctx, &ReceiverOptions{DestPath: dstDir, Code: code}))

	got, err := os.ReadFile(filepath.Join(dstDir, "clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, data, got)

	select {
	case err := <-sendErr:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("sender did not finish")
	}
}

func TestSenderRejectsUnresolvableResource(t *testing.T) {
	cfg := testConfig(t)
	resolver, err := resource.NewResolver(cfg.Resources.BaseDir)
	require.NoError(t, err)

	sender := NewSenderApp(cfg, peer.NewService(&cfg.WebRTC),
		signalling.NewSignalingService(signalling.NewMemoryServer(), &signalling.PionSDP{}),
		resolver, nil, logging.Discard())

	assert.Error(t, sender.Run(context.Background(), &SenderOptions{}))
	assert.Error(t, sender.Run(context.Background(), &SenderOptions{Resource: "/etc/passwd"}))
}

func TestReceiverValidatesOptions(t *testing.T) {
	cfg := testConfig(t)
	receiver := NewReceiverApp(cfg, peer.NewService(&cfg.WebRTC),
		signalling.NewSignalingService(signalling.NewMemoryServer(), &signalling.PionSDP{}), nil, logging.Discard())

	assert.Error(t, receiver.Run(context.Background(), &ReceiverOptions{}))
	assert.ErrorContains(t,
		receiver.Run(context.Background(), &ReceiverOptions{DestPath: "/definitely/not/here/out.bin"}),
		"parent directory does not exist")
	assert.ErrorContains(t,
		receiver.Run(context.Background(), &ReceiverOptions{DestPath: t.TempDir(), Code: "bad"}),
		"invalid session code")
}

func TestDestinationFile(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, "clip.mp4"), destinationFile(dir, "clip.mp4"))

	file := filepath.Join(dir, "named.mp4")
	assert.Equal(t, file, destinationFile(file, "clip.mp4"))
	assert.NoError(t, checkDestination(file))

	require.NoError(t, os.WriteFile(file, nil, 0644))
	assert.ErrorContains(t, checkDestination(file), "not a directory")
}

func TestRemoteFileName(t *testing.T) {
	assert.Equal(t, "clip.mp4", remoteFileName("video/clip.mp4"))
	assert.Equal(t, "clip.mp4", remoteFileName(`video\clip.mp4`))
	assert.Equal(t, "passwd", remoteFileName("../../etc/passwd"))
	assert.Equal(t, DataChannelLabel, remoteFileName(".."))
	assert.Equal(t, DataChannelLabel, remoteFileName(""))
}

func TestReceiveIntoRemovesIncompleteFile(t *testing.T) {
	cfg := testConfig(t)
	receiver := NewReceiverApp(cfg, nil, nil, nil, logging.Discard())
	dst := filepath.Join(t.TempDir(), "clip.mp4")

	q := transport.NewQueue(4)
	require.NoError(t, q.Send([]byte("first half")))
	q.Close()

	err := receiver.receiveInto(context.Background(), q, dst, 20)
	assert.ErrorIs(t, err, streamer.ErrIncomplete)

	_, statErr := os.Stat(dst)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestReceiveIntoKeepsCompleteFile(t *testing.T) {
	cfg := testConfig(t)
	receiver := NewReceiverApp(cfg, nil, nil, nil, logging.Discard())
	dst := filepath.Join(t.TempDir(), "clip.mp4")

	q := transport.NewQueue(4)
	require.NoError(t, q.Send([]byte("whole")))
	require.NoError(t, q.Send([]byte{}))

	require.NoError(t, receiver.receiveInto(context.Background(), q, dst, 5))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("whole"), got)
}
