package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{}

// newWebSocketPair returns the server side channel and the client connection
func newWebSocketPair(t *testing.T) (*WebSocketChannel, *websocket.Conn) {
	t.Helper()

	serverCh := make(chan *WebSocketChannel, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		serverCh <- NewWebSocketChannel(conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case ch := <-serverCh:
		t.Cleanup(func() { ch.Close() })
		return ch, client
	case <-time.After(5 * time.Second):
		t.Fatal("server never upgraded the connection")
		return nil, nil
	}
}

func TestWebSocketChannelSendsBinaryFrames(t *testing.T) {
	ch, client := newWebSocketPair(t)

	require.NoError(t, ch.Send([]byte("hello")))
	require.NoError(t, ch.Send([]byte{}))
	require.NoError(t, ch.SendJSON(map[string]string{"kind": "io"}))

	mt, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, mt)
	assert.Equal(t, []byte("hello"), data)

	mt, data, err = client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, mt)
	assert.True(t, IsSentinel(data))

	mt, data, err = client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)
	assert.JSONEq(t, `{"kind":"io"}`, string(data))
}

func TestWebSocketChannelNoticesRemoteClose(t *testing.T) {
	ch, client := newWebSocketPair(t)

	require.NoError(t, client.Close())

	select {
	case <-ch.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("channel did not notice the remote close")
	}
	assert.True(t, ch.IsClosed())
	assert.ErrorIs(t, ch.Send([]byte("late")), ErrChannelClosed)
	assert.ErrorIs(t, ch.SendJSON("late"), ErrChannelClosed)
}

func TestWebSocketChannelClose(t *testing.T) {
	ch, client := newWebSocketPair(t)

	require.NoError(t, ch.Close())
	assert.True(t, ch.IsClosed())

	_, _, err := client.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}
