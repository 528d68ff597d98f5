package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"onlycut/internal/app"
	"onlycut/internal/config"
	"onlycut/internal/logging"
	"onlycut/internal/sidecar"
	"onlycut/internal/streamer"
	"onlycut/internal/transport"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	cfg    *config.Config
	bus    *transport.Bus
	server *httptest.Server
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Resources.BaseDir = t.TempDir()
	cfg.Sidecar.Dir = t.TempDir()
	for _, m := range mutate {
		m(cfg)
	}

	bus := transport.NewBus(64)
	cmds, err := app.NewCommands(cfg, bus, logging.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := httptest.NewServer(New(ctx, cmds, bus, logging.Discard(),
		WithAllowedOrigins(cfg.Server.AllowedOrigins...)).Handler())
	t.Cleanup(srv.Close)
	return &testEnv{cfg: cfg, bus: bus, server: srv}
}

func (e *testEnv) wsURL(path string) string {
	return "ws" + strings.TrimPrefix(e.server.URL, "http") + path
}

func (e *testEnv) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(e.wsURL(path), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	return conn
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestResourceStream(t *testing.T) {
	env := newTestEnv(t)
	data := bytes.Repeat([]byte{1, 2, 3, 4, 5}, 2000)
	require.NoError(t, os.WriteFile(filepath.Join(env.cfg.Resources.BaseDir, "clip.bin"), data, 0644))

	conn := env.dial(t, "/ws/resource?path=clip.bin")

	var chunks [][]byte
	for {
		mt, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, websocket.BinaryMessage, mt)
		chunks = append(chunks, msg)
		if transport.IsSentinel(msg) {
			break
		}
	}

	require.Len(t, chunks, 4)
	assert.Equal(t, data, bytes.Join(chunks, nil))

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestResourceStreamError(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		path string
		kind string
	}{
		{"../escape.bin", "platform"},
		{"missing.bin", "io"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			conn := env.dial(t, "/ws/resource?path="+tt.path)

			mt, msg, err := conn.ReadMessage()
			require.NoError(t, err)
			assert.Equal(t, websocket.TextMessage, mt)

			var wireErr struct {
				Kind    string `json:"kind"`
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(msg, &wireErr))
			assert.Equal(t, tt.kind, wireErr.Kind)
			assert.NotEmpty(t, wireErr.Message)
		})
	}
}

func TestProbeErrors(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Sidecar.Name = "onlycut-missing-sidecar"
	})

	tests := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{"malformed body", "{", http.StatusBadRequest, "platform"},
		{"absolute path", `{"filePath":"/etc/passwd"}`, http.StatusBadRequest, "platform"},
		{"sidecar missing", `{"filePath":"test.mp4"}`, http.StatusInternalServerError, "io"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(env.server.URL+"/api/probe", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			var wireErr map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&wireErr))
			assert.Equal(t, tt.kind, wireErr["kind"])
		})
	}
}

func TestProbeMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/api/probe")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestEventsRelayProbeOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	env := newTestEnv(t)
	script := "#!/bin/sh\necho \"Input #0 from '$2'\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(env.cfg.Sidecar.Dir, "ffprobe"), []byte(script), 0755))

	events := env.dial(t, "/ws/events")
	require.Eventually(t, func() bool { return env.bus.Subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)

	resp, err := http.Post(env.server.URL+"/api/probe", "application/json", strings.NewReader(`{"filePath":"test.mp4"}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.JSONEq(t, `{}`, string(body))

	var kinds []string
	for len(kinds) < 2 {
		var ev struct {
			Topic   string             `json:"topic"`
			Payload sidecar.ProbeEvent `json:"payload"`
		}
		require.NoError(t, events.ReadJSON(&ev))
		require.Equal(t, sidecar.TopicProbeEvent, ev.Topic)
		kinds = append(kinds, ev.Payload.Kind)
		if ev.Payload.Kind == "stdout" {
			assert.Contains(t, ev.Payload.Line, filepath.Join(env.cfg.Resources.BaseDir, "test.mp4"))
		}
	}
	assert.Equal(t, []string{"stdout", "terminated"}, kinds)
}

func TestEventsRelayStreamLifecycle(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.cfg.Resources.BaseDir, "a.bin"), []byte("abc"), 0644))

	events := env.dial(t, "/ws/events")
	require.Eventually(t, func() bool { return env.bus.Subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)

	stream := env.dial(t, "/ws/resource?path=a.bin")
	for {
		_, msg, err := stream.ReadMessage()
		require.NoError(t, err)
		if transport.IsSentinel(msg) {
			break
		}
	}

	var topics []string
	for len(topics) < 3 {
		var ev transport.Event
		require.NoError(t, events.ReadJSON(&ev))
		topics = append(topics, ev.Topic)
	}
	assert.Equal(t, []string{streamer.TopicStarted, streamer.TopicProgress, streamer.TopicFinished}, topics)
}

func TestWebsocketRejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.cfg.Resources.BaseDir, "secret.bin"), []byte("secret"), 0644))

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL("/ws/resource?path=secret.bin"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebsocketAcceptsAllowedAndSameOrigin(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Server.AllowedOrigins = []string{"http://localhost:1420/"}
	})
	require.NoError(t, os.WriteFile(filepath.Join(env.cfg.Resources.BaseDir, "a.bin"), []byte("abc"), 0644))

	for _, origin := range []string{"http://localhost:1420", env.server.URL} {
		header := http.Header{"Origin": []string{origin}}
		conn, _, err := websocket.DefaultDialer.Dial(env.wsURL("/ws/resource?path=a.bin"), header)
		require.NoError(t, err, origin)
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))

		mt, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.BinaryMessage, mt)
		assert.Equal(t, []byte("abc"), data)
		conn.Close()
	}
}

func TestProbeRejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/probe", strings.NewReader(`{"filePath":"a.mp4"}`))
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Content-Type", "text/plain")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
