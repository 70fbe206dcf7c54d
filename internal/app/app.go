package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/flowir/internal/ctxlog"
	"github.com/vk/flowir/internal/ir"
	"github.com/vk/flowir/internal/names"
	"github.com/vk/flowir/internal/opdef"
	"github.com/vk/flowir/internal/ops"
)

// App encapsulates the demo builder's dependencies and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	defs   *opdef.Registry
	config *Config
}

// NewApp constructs the application with its own isolated logger and a
// freshly loaded operator registry.
func NewApp(ctx context.Context, outW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	defs, err := opdef.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load operator definitions: %w", err)
	}
	logger.Debug("Operator registry loaded.", "operators", defs.Len())

	return &App{outW: outW, logger: logger, defs: defs, config: cfg}, nil
}

// Run builds the configured demo program and writes its dump to the
// application's output writer.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	prog := ir.NewProgram()
	lib := ops.NewLibrary(prog, names.New(), a.defs)

	builder, ok := demos[a.config.Demo]
	if !ok {
		return fmt.Errorf("unknown demo %q", a.config.Demo)
	}
	if err := builder(ctx, lib); err != nil {
		return fmt.Errorf("failed to build demo %q: %w", a.config.Demo, err)
	}
	a.logger.Debug("Demo program built.", "demo", a.config.Demo, "blocks", prog.BlockCount())

	_, err := fmt.Fprint(a.outW, prog.String())
	return err
}
