// Package app wires the pieces together: it loads a flow definition,
// builds the engine and either performs a single run or serves the HTTP
// trigger surface.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/engine"
	"github.com/specialistvlad/flowgridgo/internal/flow"
	"github.com/specialistvlad/flowgridgo/internal/hclflow"
	"github.com/specialistvlad/flowgridgo/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	graph    *flow.Graph
	config   *Config
}

// NewApp constructs the application: configures its isolated logger,
// loads the flow definition and builds the graph.
func NewApp(outW io.Writer, cfg *Config, reg *registry.Registry) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if reg == nil {
		reg = registry.Builtin()
	}
	logger.Debug("Node kinds registered.", "kinds", reg.Kinds())

	g, err := hclflow.Load(ctx, cfg.FlowPath, reg)
	if err != nil {
		return nil, fmt.Errorf("loading flow definition: %w", err)
	}
	logger.Debug("Flow definition loaded.", "nodes", len(g.Nodes()), "connections", len(g.Connections()))

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		graph:    g,
		config:   cfg,
	}, nil
}

// Graph returns the loaded graph. This is primarily for testing.
func (a *App) Graph() *flow.Graph { return a.graph }

// Engine builds a fresh engine over the loaded graph.
func (a *App) Engine() *engine.Engine { return engine.New(a.graph) }
