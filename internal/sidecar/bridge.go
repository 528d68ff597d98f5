// Package sidecar runs the external media analysis executable and relays
// its output asynchronously. The caller only learns whether the spawn
// succeeded; everything the child prints goes to a Handler.
package sidecar

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"onlycut/internal/errs"
	"onlycut/internal/logging"
	"onlycut/internal/resource"

	"github.com/google/uuid"
)

const (
	DefaultName       = "ffprobe"
	DefaultBannerFlag = "-hide_banner"
)

// Probe identifies one sidecar run
type Probe struct {
	ID   string `json:"probeId"`
	Path string `json:"path"`
	PID  int    `json:"pid"`
}

// Handler receives decoded sidecar output. Calls for one probe are
// sequential and arrive in event order.
type Handler interface {
	Info(p *Probe, line string)
	Error(p *Probe, line string)
	Failure(p *Probe, msg string)
	Terminated(p *Probe, payload TerminatedPayload)
	Unrecognized(p *Probe, ev CommandEvent)
}

// Bridge spawns the sidecar for a resource and drains its events in the
// background
type Bridge struct {
	resolver   *resource.Resolver
	spawner    Spawner
	handler    Handler
	name       string
	bannerFlag string
	logger     *logging.Logger

	wg sync.WaitGroup
}

// BridgeOption configures a Bridge
type BridgeOption func(*Bridge)

// WithExecutable overrides the sidecar name and the flag passed before the path
func WithExecutable(name, bannerFlag string) BridgeOption {
	return func(b *Bridge) {
		if name != "" {
			b.name = name
		}
		if bannerFlag != "" {
			b.bannerFlag = bannerFlag
		}
	}
}

// WithBridgeLogger sets the logger
func WithBridgeLogger(l *logging.Logger) BridgeOption {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBridge creates a bridge. A nil handler logs through the bridge logger.
func NewBridge(resolver *resource.Resolver, spawner Spawner, handler Handler, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		resolver:   resolver,
		spawner:    spawner,
		handler:    handler,
		name:       DefaultName,
		bannerFlag: DefaultBannerFlag,
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.handler == nil {
		b.handler = NewLogHandler(b.logger)
	}
	return b
}

// Args returns the argument list passed to the sidecar for resolvedPath
func (b *Bridge) Args(resolvedPath string) ([]string, error) {
	if !utf8.ValidString(resolvedPath) {
		return nil, errs.UTF8(fmt.Errorf("resource path %q is not valid UTF-8", resolvedPath))
	}
	return []string{b.bannerFlag, resolvedPath}, nil
}

// Probe resolves filePath and starts the sidecar on it. It returns once the
// child is running; ctx bounds the child's lifetime, not this call.
func (b *Bridge) Probe(ctx context.Context, filePath string) error {
	resolved, err := b.resolver.Resolve(filePath)
	if err != nil {
		return err
	}
	args, err := b.Args(resolved)
	if err != nil {
		return err
	}

	events, child, err := b.spawner.Spawn(ctx, b.name, args)
	if err != nil {
		return errs.IO(fmt.Errorf("failed to spawn %s: %w", b.name, err))
	}

	probe := &Probe{ID: uuid.NewString(), Path: resolved}
	if child != nil {
		probe.PID = child.PID
	}
	b.logger.Infof("Probe %s started: %s %v (pid %d)", probe.ID, b.name, args, probe.PID)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		Monitor(probe, events, b.handler)
		b.logger.Debugf("Probe %s monitor finished", probe.ID)
	}()
	return nil
}

// Wait blocks until every running monitor has finished
func (b *Bridge) Wait() {
	b.wg.Wait()
}

// Monitor dispatches events to h until the child terminates or the channel
// closes. Anything after the termination event is ignored.
func Monitor(p *Probe, events <-chan CommandEvent, h Handler) {
	for ev := range events {
		switch ev.Kind {
		case EventStdout:
			h.Info(p, DecodeLine(ev.Data))
		case EventStderr:
			h.Error(p, DecodeLine(ev.Data))
		case EventError:
			h.Failure(p, ev.Message)
		case EventTerminated:
			h.Terminated(p, ev.Terminated)
			return
		default:
			h.Unrecognized(p, ev)
		}
	}
}
