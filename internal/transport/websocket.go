package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10
)

// WebSocketChannel sends chunks as binary frames over a websocket.
// Text frames are reserved for JSON control messages.
type WebSocketChannel struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	closed   chan struct{}
	stopOnce sync.Once
}

// NewWebSocketChannel wraps an upgraded connection and starts the read and
// ping pumps that notice when the remote side goes away
func NewWebSocketChannel(conn *websocket.Conn) *WebSocketChannel {
	c := &WebSocketChannel{
		conn:   conn,
		closed: make(chan struct{}),
	}
	go c.readPump()
	go c.pingPump()
	return c
}

// Send writes chunk as one binary frame
func (c *WebSocketChannel) Send(chunk []byte) error {
	if c.IsClosed() {
		return ErrChannelClosed
	}
	if err := c.write(websocket.BinaryMessage, chunk); err != nil {
		c.markClosed()
		return fmt.Errorf("%w: %v", ErrChannelClosed, err)
	}
	return nil
}

// SendJSON writes v as a text frame
func (c *WebSocketChannel) SendJSON(v any) error {
	if c.IsClosed() {
		return ErrChannelClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("failed to write JSON frame: %w", err)
	}
	return nil
}

// Done is closed once the remote endpoint has gone away
func (c *WebSocketChannel) Done() <-chan struct{} {
	return c.closed
}

// IsClosed returns whether the remote endpoint has gone away
func (c *WebSocketChannel) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Close sends a normal close frame and releases the connection
func (c *WebSocketChannel) Close() error {
	if !c.IsClosed() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.write(websocket.CloseMessage, msg)
	}
	c.markClosed()
	return c.conn.Close()
}

func (c *WebSocketChannel) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

func (c *WebSocketChannel) markClosed() {
	c.stopOnce.Do(func() {
		close(c.closed)
	})
}

// readPump discards inbound frames; its only job is to process control
// frames and notice the close
func (c *WebSocketChannel) readPump() {
	defer c.markClosed()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *WebSocketChannel) pingPump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.markClosed()
				return
			}
		}
	}
}
