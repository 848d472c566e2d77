// Package server exposes a thin HTTP trigger surface over a running
// engine. It is a collaborator in the same sense as any editing surface:
// it mutates port values and reads results, never the scheduler's
// internals.
package server

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/specialistvlad/flowgridgo/internal/dag"
	"github.com/specialistvlad/flowgridgo/internal/engine"
	"github.com/specialistvlad/flowgridgo/internal/flow"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// New builds the HTTP app for an engine and its root graph.
func New(eng *engine.Engine) *fiber.App {
	app := fiber.New()
	g := eng.Graph()

	app.Post("/run", func(c fiber.Ctx) error {
		result, err := eng.RunOnce(c.Context())
		var cycleErr *dag.CycleError
		if errors.As(err, &cycleErr) {
			return c.Status(422).JSON(fiber.Map{"error": cycleErr.Error()})
		}
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		converted, err := flow.ResultToGo(result)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(converted)
	})

	app.Get("/result", func(c fiber.Ctx) error {
		result, err := eng.LastResult()
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		if result == nil {
			return c.Status(404).JSON(fiber.Map{"error": "no run has completed yet"})
		}
		converted, err := flow.ResultToGo(result)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(converted)
	})

	app.Put("/ports/:id/value", func(c fiber.Ctx) error {
		raw := c.Body()
		t, err := ctyjson.ImpliedType(raw)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid value body"})
		}
		v, err := ctyjson.Unmarshal(raw, t)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid value body"})
		}
		if err := g.SetPortValue(c.Params("id"), v); err != nil {
			return c.Status(404).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(204)
	})

	app.Get("/graph", func(c fiber.Ctx) error {
		nodes := make([]fiber.Map, 0)
		for _, n := range g.Nodes() {
			ports := make([]fiber.Map, 0)
			for _, p := range n.Ports() {
				ports = append(ports, fiber.Map{
					"id":          p.ID(),
					"name":        p.Name(),
					"input":       p.IsInput(),
					"multi":       p.AllowsMultiple(),
					"connections": p.ConnectionCount(),
				})
			}
			nodes = append(nodes, fiber.Map{
				"id":    n.ID(),
				"name":  n.Name(),
				"ports": ports,
			})
		}
		conns := make([]fiber.Map, 0)
		for _, conn := range g.Connections() {
			conns = append(conns, fiber.Map{
				"id":   conn.ID,
				"from": conn.From.ID(),
				"to":   conn.To.ID(),
			})
		}
		return c.JSON(fiber.Map{"nodes": nodes, "connections": conns})
	})

	return app
}
