package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"onlycut/internal/errs"
	"onlycut/internal/transport"
	"onlycut/pkg/utils"
)

const maxRequestBody = 64 * 1024

// ProbeRequest is the body of POST /api/probe
type ProbeRequest struct {
	FilePath string `json:"filePath"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "ok")
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		s.writeError(w, errs.IO(fmt.Errorf("failed to read request: %w", err)))
		return
	}
	req, err := utils.DecodeJSON[ProbeRequest](body)
	if err != nil {
		s.writeError(w, errs.Platform(fmt.Errorf("invalid probe request: %w", err)))
		return
	}

	// The child outlives this request, so it is bound to the server context
	if err := s.commands.Probe(s.ctx, req.FilePath); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, struct{}{})
}

// handleResource streams ?path= as binary frames ending with an empty frame.
// A failure is reported as one JSON text frame before the close.
func (s *Server) handleResource(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorf("Websocket upgrade failed: %v", err)
		return
	}
	ch := transport.NewWebSocketChannel(conn)
	defer ch.Close()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	go func() {
		select {
		case <-ch.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.commands.LoadResource(ctx, path, ch); err != nil {
		if ch.IsClosed() {
			return
		}
		if sendErr := ch.SendJSON(errs.From(err)); sendErr != nil {
			s.logger.Warnf("Failed to report error to client: %v", sendErr)
		}
	}
}

// handleEvents relays every bus event to the client as a JSON text frame
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorf("Websocket upgrade failed: %v", err)
		return
	}
	ch := transport.NewWebSocketChannel(conn)
	defer ch.Close()

	events, unsubscribe := s.bus.Subscribe()
	defer unsubscribe()
	s.logger.Debugf("Event subscriber connected from %s", r.RemoteAddr)

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := ch.SendJSON(ev); err != nil {
				s.logger.Debugf("Event subscriber gone: %v", err)
				return
			}
		case <-ch.Done():
			return
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	e := errs.From(err)
	s.logger.Warnf("Request failed (%s): %v", e.Kind, e)
	writeJSON(w, errs.HTTPStatus(e.Kind), e)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := utils.EncodeJSON(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
