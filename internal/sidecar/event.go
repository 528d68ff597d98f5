package sidecar

import (
	"fmt"
	"strings"
)

// EventKind tags a CommandEvent
type EventKind int

const (
	EventStdout EventKind = iota + 1
	EventStderr
	EventError
	EventTerminated
)

func (k EventKind) String() string {
	switch k {
	case EventStdout:
		return "stdout"
	case EventStderr:
		return "stderr"
	case EventError:
		return "error"
	case EventTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// TerminatedPayload describes how the child exited. Either field may be nil.
type TerminatedPayload struct {
	Code   *int `json:"code"`
	Signal *int `json:"signal"`
}

func (p TerminatedPayload) String() string {
	code, signal := "none", "none"
	if p.Code != nil {
		code = fmt.Sprint(*p.Code)
	}
	if p.Signal != nil {
		signal = fmt.Sprint(*p.Signal)
	}
	return fmt.Sprintf("code: %s, signal: %s", code, signal)
}

// CommandEvent is one observation about a running child process
type CommandEvent struct {
	Kind EventKind
	// Data holds the raw line for stdout and stderr, without the newline
	Data []byte
	// Message is set for EventError
	Message string
	// Terminated is set for EventTerminated
	Terminated TerminatedPayload
}

func StdoutEvent(line []byte) CommandEvent {
	return CommandEvent{Kind: EventStdout, Data: line}
}

func StderrEvent(line []byte) CommandEvent {
	return CommandEvent{Kind: EventStderr, Data: line}
}

func ErrorEvent(msg string) CommandEvent {
	return CommandEvent{Kind: EventError, Message: msg}
}

func TerminatedEvent(p TerminatedPayload) CommandEvent {
	return CommandEvent{Kind: EventTerminated, Terminated: p}
}

// DecodeLine converts raw output to text, replacing invalid UTF-8 with U+FFFD
func DecodeLine(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
