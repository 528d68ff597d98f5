package transport

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"onlycut/internal/config"

	"github.com/pion/webrtc/v4"
)

// DataChannel is the subset of *webrtc.DataChannel used by PeerChannel
type DataChannel interface {
	Label() string
	ReadyState() webrtc.DataChannelState
	Send(data []byte) error
	SendText(s string) error
	BufferedAmount() uint64
	SetBufferedAmountLowThreshold(th uint64)
	OnBufferedAmountLow(f func())
	OnOpen(f func())
	OnClose(f func())
	OnError(f func(err error))
	OnMessage(f func(msg webrtc.DataChannelMessage))
	GracefulClose() error
}

var (
	_ Channel = (*PeerChannel)(nil)
	_ Emitter = (*PeerChannel)(nil)
)

// PeerChannel sends chunks over a WebRTC data channel with flow control
type PeerChannel struct {
	ctx         context.Context
	config      *config.WebRTCConfig
	dataChannel DataChannel

	// Channel management
	readyCh         chan struct{}
	bufferControlCh chan struct{}
	closedCh        chan struct{}

	readyOnce sync.Once
	closeOnce sync.Once

	// Inbound traffic, only consumed on the receiving side
	incoming *Queue
	control  chan ControlMessage

	flowControlTimeout time.Duration
}

// NewPeerChannel wraps dataChannel and installs its event handlers
func NewPeerChannel(ctx context.Context, cfg *config.WebRTCConfig, dataChannel DataChannel) *PeerChannel {
	c := &PeerChannel{
		ctx:                ctx,
		config:             cfg,
		dataChannel:        dataChannel,
		readyCh:            make(chan struct{}),
		bufferControlCh:    make(chan struct{}, 1),
		closedCh:           make(chan struct{}),
		incoming:           NewQueue(100),
		control:            make(chan ControlMessage, 16),
		flowControlTimeout: 30 * time.Second,
	}
	c.setupDataChannelHandlers()
	if dataChannel.ReadyState() == webrtc.DataChannelStateOpen {
		c.markReady()
	}
	return c
}

// CreateDataChannel creates an ordered data channel on peerConn and wraps it
func CreateDataChannel(ctx context.Context, cfg *config.WebRTCConfig, peerConn *webrtc.PeerConnection, label string) (*PeerChannel, error) {
	ordered := true
	options := &webrtc.DataChannelInit{
		Ordered: &ordered,
	}

	dataChannel, err := peerConn.CreateDataChannel(label, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create data channel: %w", err)
	}

	return NewPeerChannel(ctx, cfg, dataChannel), nil
}

// AcceptDataChannel waits for the remote peer to open a data channel
func AcceptDataChannel(ctx context.Context, cfg *config.WebRTCConfig, peerConn *webrtc.PeerConnection) <-chan *PeerChannel {
	accepted := make(chan *PeerChannel, 1)
	peerConn.OnDataChannel(func(dataChannel *webrtc.DataChannel) {
		log.Printf("Received data channel: %s-%d", dataChannel.Label(), *dataChannel.ID())
		select {
		case accepted <- NewPeerChannel(ctx, cfg, dataChannel):
		default:
			log.Printf("Ignoring extra data channel: %s", dataChannel.Label())
		}
	})
	return accepted
}

// setupDataChannelHandlers configures WebRTC data channel event handlers
func (c *PeerChannel) setupDataChannelHandlers() {
	c.dataChannel.OnOpen(func() {
		log.Printf("Data channel opened: %s", c.dataChannel.Label())
		c.markReady()
	})

	c.dataChannel.OnClose(func() {
		log.Printf("Data channel closed: %s", c.dataChannel.Label())
		c.markClosed()
	})

	c.dataChannel.OnError(func(err error) {
		log.Printf("Data channel error: %v", err)
		c.markClosed()
	})

	c.dataChannel.OnMessage(func(msg webrtc.DataChannelMessage) {
		if msg.IsString {
			c.handleControl(msg.Data)
			return
		}
		if err := c.incoming.Send(msg.Data); err != nil {
			log.Printf("Dropping inbound chunk: %v", err)
		}
	})

	// Set up flow control
	c.dataChannel.SetBufferedAmountLowThreshold(c.config.BufferedAmountLowThreshold)
	c.dataChannel.OnBufferedAmountLow(func() {
		select {
		case c.bufferControlCh <- struct{}{}:
		default:
		}
	})
}

// WaitReady blocks until the data channel is open
func (c *PeerChannel) WaitReady() error {
	select {
	case <-c.readyCh:
		if c.IsClosed() {
			return ErrChannelClosed
		}
		return nil
	case <-c.closedCh:
		return ErrChannelClosed
	case <-c.ctx.Done():
		return fmt.Errorf("cancelled while waiting for channel ready: %w", c.ctx.Err())
	}
}

// Send writes chunk to the data channel, waiting for the send buffer to
// drain when it is above the configured maximum
func (c *PeerChannel) Send(chunk []byte) error {
	if c.IsClosed() || c.dataChannel.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChannelClosed
	}

	if err := c.handleFlowControl(); err != nil {
		return err
	}

	if err := c.dataChannel.Send(chunk); err != nil {
		c.markClosed()
		return fmt.Errorf("%w: %v", ErrChannelClosed, err)
	}
	return nil
}

// Emit sends a control message as a text frame. It shares the ordering of
// the chunk stream, so a notification emitted before a chunk arrives first.
func (c *PeerChannel) Emit(topic string, payload any) error {
	if c.IsClosed() || c.dataChannel.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChannelClosed
	}
	data, err := SerializeControl(topic, payload)
	if err != nil {
		return err
	}
	if err := c.dataChannel.SendText(string(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrChannelClosed, err)
	}
	return nil
}

// Control returns the control messages received from the remote peer
func (c *PeerChannel) Control() <-chan ControlMessage {
	return c.control
}

// Incoming returns the queue of chunks received from the remote peer
func (c *PeerChannel) Incoming() *Queue {
	return c.incoming
}

// Done is closed when the data channel closes or fails
func (c *PeerChannel) Done() <-chan struct{} {
	return c.closedCh
}

// handleFlowControl manages WebRTC buffer flow control
func (c *PeerChannel) handleFlowControl() error {
	if c.dataChannel.BufferedAmount() <= c.config.MaxBufferedAmount {
		return nil
	}

	select {
	case <-c.bufferControlCh:
		return nil
	case <-c.closedCh:
		return ErrChannelClosed
	case <-c.ctx.Done():
		return fmt.Errorf("channel cancelled during flow control: %w", c.ctx.Err())
	case <-time.After(c.flowControlTimeout):
		return fmt.Errorf("%w: flow control timeout", ErrChannelClosed)
	}
}

// IsClosed returns whether the channel is closed
func (c *PeerChannel) IsClosed() bool {
	select {
	case <-c.closedCh:
		return true
	default:
		return false
	}
}

// Close gracefully closes the data channel
func (c *PeerChannel) Close() error {
	if c.IsClosed() {
		return nil
	}
	c.markClosed()

	if c.dataChannel.ReadyState() == webrtc.DataChannelStateOpen {
		if err := c.dataChannel.GracefulClose(); err != nil {
			log.Printf("Error during graceful close: %v", err)
		}
	}
	return nil
}

func (c *PeerChannel) handleControl(data []byte) {
	msg, err := DeserializeControl(data)
	if err != nil {
		log.Printf("Ignoring malformed control message: %v", err)
		return
	}
	select {
	case c.control <- msg:
	default:
		log.Printf("Control queue is full, dropping %s message", msg.Topic)
	}
}

func (c *PeerChannel) markReady() {
	c.readyOnce.Do(func() {
		close(c.readyCh)
	})
}

func (c *PeerChannel) markClosed() {
	c.closeOnce.Do(func() {
		close(c.closedCh)
		c.incoming.Close()
	})
}
