package app

import (
	"context"
	"fmt"

	"onlycut/internal/config"
	"onlycut/internal/errs"
	"onlycut/internal/logging"
	"onlycut/internal/resource"
	"onlycut/internal/sidecar"
	"onlycut/internal/streamer"
	"onlycut/internal/transport"
)

// Commands is the invocation surface shared by the HTTP server and the CLI.
// Results travel over the transport; the returned error only reports
// whether the operation could start and, for LoadResource, finish.
type Commands struct {
	streamer *streamer.Streamer
	bridge   *sidecar.Bridge
	logger   *logging.Logger
}

// NewCommands wires the streamer and the sidecar bridge from configuration.
// Lifecycle notifications and sidecar output are published on emitter.
func NewCommands(cfg *config.Config, emitter transport.Emitter, logger *logging.Logger) (*Commands, error) {
	if logger == nil {
		logger = logging.Default()
	}

	resolver, err := resource.NewResolver(cfg.Resources.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource resolver: %w", err)
	}

	handler := sidecar.Handler(sidecar.NewLogHandler(logger))
	if emitter != nil {
		handler = sidecar.MultiHandler{handler, sidecar.NewEmitHandler(emitter, logger)}
	}

	opts := []streamer.Option{
		streamer.WithChunkSize(cfg.Streamer.ChunkSize),
		streamer.WithLogger(logger),
	}
	if emitter != nil {
		opts = append(opts, streamer.WithEmitter(emitter))
	}

	return &Commands{
		streamer: streamer.New(resolver, opts...),
		bridge: sidecar.NewBridge(resolver, &sidecar.ExecSpawner{Dir: cfg.Sidecar.Dir}, handler,
			sidecar.WithExecutable(cfg.Sidecar.Name, cfg.Sidecar.BannerFlag),
			sidecar.WithBridgeLogger(logger)),
		logger: logger,
	}, nil
}

// NewCommandsWith builds Commands from already constructed parts
func NewCommandsWith(s *streamer.Streamer, b *sidecar.Bridge, logger *logging.Logger) *Commands {
	if logger == nil {
		logger = logging.Default()
	}
	return &Commands{streamer: s, bridge: b, logger: logger}
}

// LoadResource streams the resource at path through ch.
// A non-nil error is always an *errs.Error.
func (c *Commands) LoadResource(ctx context.Context, path string, ch transport.Channel) error {
	if err := c.streamer.Stream(ctx, path, ch); err != nil {
		c.logger.Errorf("load_resource %q failed: %v", path, err)
		return errs.From(err)
	}
	return nil
}

// Probe starts the sidecar on path and returns once it is running.
// ctx bounds the lifetime of the child process. A non-nil error is always
// an *errs.Error.
func (c *Commands) Probe(ctx context.Context, path string) error {
	if err := c.bridge.Probe(ctx, path); err != nil {
		c.logger.Errorf("probe %q failed: %v", path, err)
		return errs.From(err)
	}
	return nil
}

// WaitProbes blocks until every started probe has terminated
func (c *Commands) WaitProbes() {
	c.bridge.Wait()
}

// Streamer returns the underlying streamer
func (c *Commands) Streamer() *streamer.Streamer {
	return c.streamer
}
