package sidecar

import (
	"onlycut/internal/logging"
	"onlycut/internal/transport"
)

// TopicProbeEvent carries sidecar output to event subscribers
const TopicProbeEvent = "probe-event"

// LogHandler writes sidecar output to a leveled logger
type LogHandler struct {
	logger *logging.Logger
}

func NewLogHandler(l *logging.Logger) *LogHandler {
	if l == nil {
		l = logging.Default()
	}
	return &LogHandler{logger: l}
}

func (h *LogHandler) Info(p *Probe, line string) {
	h.logger.Infof("STDOUT: %s", line)
}

func (h *LogHandler) Error(p *Probe, line string) {
	h.logger.Errorf("STDERR: %s", line)
}

func (h *LogHandler) Failure(p *Probe, msg string) {
	h.logger.Errorf("Error: %s", msg)
}

func (h *LogHandler) Terminated(p *Probe, payload TerminatedPayload) {
	h.logger.Infof("Process terminated: %s", payload)
}

func (h *LogHandler) Unrecognized(p *Probe, ev CommandEvent) {
	h.logger.Warnf("unknown event type: %s", ev.Kind)
}

// ProbeEvent is the payload of TopicProbeEvent
type ProbeEvent struct {
	ProbeID string `json:"probeId"`
	Kind    string `json:"kind"`
	Line    string `json:"line,omitempty"`
	Message string `json:"message,omitempty"`
	Code    *int   `json:"code,omitempty"`
	Signal  *int   `json:"signal,omitempty"`
}

// EmitHandler forwards sidecar output to an Emitter
type EmitHandler struct {
	emitter transport.Emitter
	logger  *logging.Logger
}

func NewEmitHandler(e transport.Emitter, l *logging.Logger) *EmitHandler {
	if l == nil {
		l = logging.Default()
	}
	return &EmitHandler{emitter: e, logger: l}
}

func (h *EmitHandler) Info(p *Probe, line string) {
	h.emit(ProbeEvent{ProbeID: p.ID, Kind: EventStdout.String(), Line: line})
}

func (h *EmitHandler) Error(p *Probe, line string) {
	h.emit(ProbeEvent{ProbeID: p.ID, Kind: EventStderr.String(), Line: line})
}

func (h *EmitHandler) Failure(p *Probe, msg string) {
	h.emit(ProbeEvent{ProbeID: p.ID, Kind: EventError.String(), Message: msg})
}

func (h *EmitHandler) Terminated(p *Probe, payload TerminatedPayload) {
	h.emit(ProbeEvent{
		ProbeID: p.ID,
		Kind:    EventTerminated.String(),
		Code:    payload.Code,
		Signal:  payload.Signal,
	})
}

func (h *EmitHandler) Unrecognized(p *Probe, ev CommandEvent) {
	h.emit(ProbeEvent{ProbeID: p.ID, Kind: ev.Kind.String()})
}

func (h *EmitHandler) emit(ev ProbeEvent) {
	if err := h.emitter.Emit(TopicProbeEvent, ev); err != nil {
		h.logger.Warnf("Failed to emit %s: %v", TopicProbeEvent, err)
	}
}

// MultiHandler fans every call out to each handler in order
type MultiHandler []Handler

func (m MultiHandler) Info(p *Probe, line string) {
	for _, h := range m {
		h.Info(p, line)
	}
}

func (m MultiHandler) Error(p *Probe, line string) {
	for _, h := range m {
		h.Error(p, line)
	}
}

func (m MultiHandler) Failure(p *Probe, msg string) {
	for _, h := range m {
		h.Failure(p, msg)
	}
}

func (m MultiHandler) Terminated(p *Probe, payload TerminatedPayload) {
	for _, h := range m {
		h.Terminated(p, payload)
	}
}

func (m MultiHandler) Unrecognized(p *Probe, ev CommandEvent) {
	for _, h := range m {
		h.Unrecognized(p, ev)
	}
}
