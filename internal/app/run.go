package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/engine"
	"github.com/specialistvlad/flowgridgo/internal/flow"
	"github.com/specialistvlad/flowgridgo/internal/server"
)

// Run executes the main application logic. Without a listen address it
// performs one run, applies the result back into the graph and prints it
// as JSON. With one, it starts the coordinator and serves the HTTP
// trigger surface until the listener fails or the process ends.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	eng := a.Engine()

	if a.config.ListenAddr != "" {
		eng.Start(ctx)
		defer eng.Stop()
		a.logger.Info("Serving HTTP trigger surface.", "addr", a.config.ListenAddr)
		return server.New(eng).Listen(a.config.ListenAddr)
	}

	if len(a.graph.Nodes()) == 0 {
		a.logger.Warn("No nodes found in flow, nothing to run.")
		return nil
	}

	a.logger.Debug("Engine starting single run.")
	result, err := eng.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	engine.ApplyResult(result, a.graph)
	a.logger.Debug("Run finished.", "nodes", len(result))

	return a.printResult(result)
}

func (a *App) printResult(result flow.Result) error {
	converted, err := flow.ResultToGo(result)
	if err != nil {
		return fmt.Errorf("converting result: %w", err)
	}
	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	return enc.Encode(converted)
}
