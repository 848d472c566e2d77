package engine

import (
	"context"
	"testing"

	"github.com/specialistvlad/flowgridgo/internal/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestApplyResult(t *testing.T) {
	t.Run("writes values into ports", func(t *testing.T) {
		g := flow.NewGraph()
		n := flow.NewNodeWithID("n", "n")
		in := n.AddInput("x")
		out := n.AddOutput("y")
		require.NoError(t, g.AddNode(n))

		ApplyResult(flow.Result{
			"n": {
				Inputs:  map[string]cty.Value{"x": cty.NumberIntVal(3)},
				Outputs: map[string]cty.Value{"y": cty.NumberIntVal(9)},
			},
		}, g)

		assert.True(t, flow.ValueEqual(in.Value(), cty.NumberIntVal(3)))
		assert.True(t, flow.ValueEqual(out.Value(), cty.NumberIntVal(9)))
	})

	t.Run("unknown node ids are skipped silently", func(t *testing.T) {
		g := flow.NewGraph()
		n := flow.NewNodeWithID("kept", "kept")
		out := n.AddOutput("y")
		require.NoError(t, g.AddNode(n))

		assert.NotPanics(t, func() {
			ApplyResult(flow.Result{
				"kept":    {Outputs: map[string]cty.Value{"y": cty.True}},
				"removed": {Outputs: map[string]cty.Value{"y": cty.False}},
			}, g)
		})
		assert.True(t, flow.ValueEqual(out.Value(), cty.True))
	})

	t.Run("unknown port names are skipped", func(t *testing.T) {
		g := flow.NewGraph()
		n := flow.NewNodeWithID("n", "n")
		require.NoError(t, g.AddNode(n))

		assert.NotPanics(t, func() {
			ApplyResult(flow.Result{
				"n": {Outputs: map[string]cty.Value{"ghost": cty.True}},
			}, g)
		})
	})

	t.Run("does not fire value listeners", func(t *testing.T) {
		g := flow.NewGraph()
		n := flow.NewNodeWithID("n", "n")
		n.AddOutput("y")
		require.NoError(t, g.AddNode(n))

		fired := 0
		g.OnValueChange("test", func(p flow.Port) { fired++ })
		ApplyResult(flow.Result{
			"n": {Outputs: map[string]cty.Value{"y": cty.True}},
		}, g)
		assert.Zero(t, fired)
	})

	t.Run("applied result survives a skipped recomputation", func(t *testing.T) {
		// Round trip: run, apply, hint an upstream node; the downstream
		// node is skipped and its applied outputs feed the result.
		g := flow.NewGraph()
		src := flow.NewNodeWithID("src", "src")
		src.AddOutput("out")
		src.SetCalc(func(ctx context.Context, inputs map[string]cty.Value, aux any) (*flow.CalcOutput, error) {
			return &flow.CalcOutput{Outputs: map[string]cty.Value{"out": cty.NumberIntVal(1)}}, nil
		})
		dst := flow.NewNodeWithID("dst", "dst")
		dst.AddInput("in")
		dst.AddOutput("echo")
		dst.SetCalc(func(ctx context.Context, inputs map[string]cty.Value, aux any) (*flow.CalcOutput, error) {
			return &flow.CalcOutput{Outputs: map[string]cty.Value{"echo": inputs["in"]}}, nil
		})
		require.NoError(t, g.AddNode(src))
		require.NoError(t, g.AddNode(dst))
		from, _ := src.Output("out")
		to, _ := dst.Input("in")
		_, err := g.Connect(from, to)
		require.NoError(t, err)

		eng := New(g)
		ctx := context.Background()
		result, err := eng.RunOnce(ctx)
		require.NoError(t, err)
		ApplyResult(result, g)

		eng.SetUpdatedNode("src")
		result, err = eng.RunOnce(ctx)
		require.NoError(t, err)
		assert.True(t, flow.ValueEqual(result["dst"].Outputs["echo"], cty.NumberIntVal(1)))
	})
}
