package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// counterGraph is a single computable node whose calculation step counts
// invocations under a lock, for exercising the coordinator.
func counterGraph(t *testing.T) (*flow.Graph, *flow.Node, func() int) {
	t.Helper()
	g := flow.NewGraph()
	n := flow.NewNodeWithID("n", "n")
	n.AddInput("in")
	n.AddOutput("out")
	var mu sync.Mutex
	runs := 0
	n.SetCalc(func(ctx context.Context, inputs map[string]cty.Value, aux any) (*flow.CalcOutput, error) {
		mu.Lock()
		runs++
		mu.Unlock()
		return &flow.CalcOutput{Outputs: map[string]cty.Value{"out": inputs["in"]}}, nil
	})
	require.NoError(t, g.AddNode(n))
	return g, n, func() int {
		mu.Lock()
		defer mu.Unlock()
		return runs
	}
}

func TestStartTriggersInitialRun(t *testing.T) {
	g, _, runs := counterGraph(t)
	eng := New(g)

	eng.Start(context.Background())
	defer eng.Stop()

	assert.Eventually(t, func() bool {
		result, err := eng.LastResult()
		return err == nil && result != nil && runs() >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestValueChangeSchedulesRun(t *testing.T) {
	g, n, runs := counterGraph(t)
	in, _ := n.Input("in")
	eng := New(g)
	eng.Start(context.Background())
	defer eng.Stop()

	assert.Eventually(t, func() bool { return runs() >= 1 }, time.Second, 5*time.Millisecond)
	before := runs()

	require.NoError(t, g.SetPortValue(in.ID(), cty.NumberIntVal(42)))
	assert.Eventually(t, func() bool { return runs() > before }, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		result, err := eng.LastResult()
		if err != nil || result == nil {
			return false
		}
		out, ok := result["n"].Outputs["out"]
		return ok && flow.ValueEqual(out, cty.NumberIntVal(42))
	}, time.Second, 5*time.Millisecond)
}

func TestNotificationBurstCoalesces(t *testing.T) {
	g, n, runs := counterGraph(t)
	in, _ := n.Input("in")
	eng := New(g)
	eng.Start(context.Background())
	defer eng.Stop()

	assert.Eventually(t, func() bool { return runs() >= 1 }, time.Second, 5*time.Millisecond)
	before := runs()

	// Hold the run lock so the whole burst lands while a run cannot
	// proceed; it must collapse into at most one in-flight run plus one
	// pending follow-up, and the final value must not be lost.
	const burst = 50
	eng.runMu.Lock()
	for i := 1; i <= burst; i++ {
		require.NoError(t, g.SetPortValue(in.ID(), cty.NumberIntVal(int64(i))))
	}
	eng.runMu.Unlock()

	assert.Eventually(t, func() bool {
		result, err := eng.LastResult()
		if err != nil || result == nil {
			return false
		}
		out, ok := result["n"].Outputs["out"]
		return ok && flow.ValueEqual(out, cty.NumberIntVal(burst)) && eng.State() == StateIdle
	}, time.Second, 5*time.Millisecond)

	assert.LessOrEqual(t, runs(), before+2, "burst must coalesce instead of running once per notification")
}

func TestStopHaltsCoordinator(t *testing.T) {
	g, n, runs := counterGraph(t)
	in, _ := n.Input("in")
	eng := New(g)
	eng.Start(context.Background())

	assert.Eventually(t, func() bool { return runs() >= 1 }, time.Second, 5*time.Millisecond)
	eng.Stop()
	after := runs()

	require.NoError(t, g.SetPortValue(in.ID(), cty.NumberIntVal(7)))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, runs(), "stopped engine must not run on changes")

	// Stopping twice is harmless.
	eng.Stop()
}

func TestStartTwiceIsNoop(t *testing.T) {
	g, _, runs := counterGraph(t)
	eng := New(g)
	eng.Start(context.Background())
	eng.Start(context.Background())
	defer eng.Stop()

	assert.Eventually(t, func() bool { return runs() >= 1 }, time.Second, 5*time.Millisecond)
}

func TestStructuralChangeInvalidatesCache(t *testing.T) {
	g, _, _ := counterGraph(t)
	eng := New(g)
	ctx := context.Background()

	result, err := eng.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, result, 1)

	// Add a second computable node after the first run; the cached
	// calculation order must not survive the topology change.
	extra := flow.NewNodeWithID("extra", "extra")
	extra.AddOutput("out")
	extra.SetCalc(func(ctx context.Context, inputs map[string]cty.Value, aux any) (*flow.CalcOutput, error) {
		return &flow.CalcOutput{Outputs: map[string]cty.Value{"out": cty.True}}, nil
	})
	require.NoError(t, g.AddNode(extra))

	result, err = eng.RunOnce(ctx)
	require.NoError(t, err)
	assert.Len(t, result, 2)
	assert.Contains(t, result, "extra")
}

func TestSubgraphStructuralChangeInvalidatesCache(t *testing.T) {
	eng := New(flow.NewGraph())
	ctx := context.Background()

	sub := flow.NewGraph()
	first := flow.NewNodeWithID("first", "first")
	first.AddOutput("out")
	first.SetCalc(func(ctx context.Context, inputs map[string]cty.Value, aux any) (*flow.CalcOutput, error) {
		return &flow.CalcOutput{Outputs: map[string]cty.Value{"out": cty.True}}, nil
	})
	require.NoError(t, sub.AddNode(first))

	result, err := eng.RunGraph(ctx, sub, nil, nil)
	require.NoError(t, err)
	require.Len(t, result, 1)

	// The subgraph's topology changes after its order was cached; the
	// next run must see the new node, not the stale order.
	second := flow.NewNodeWithID("second", "second")
	second.AddOutput("out")
	second.SetCalc(first.Calc())
	require.NoError(t, sub.AddNode(second))

	result, err = eng.RunGraph(ctx, sub, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, result, "first")
	assert.Contains(t, result, "second")

	// Removal stales the order again.
	sub.RemoveNode("second")
	result, err = eng.RunGraph(ctx, sub, nil, nil)
	require.NoError(t, err)
	assert.NotContains(t, result, "second")
}

func TestConcurrentEditsDuringRuns(t *testing.T) {
	var calls int
	g, n1, _ := twoMathChain(t, &calls, nil)
	aPort, _ := n1.Input("a")
	bPort, _ := n1.Input("b")

	eng := New(g)
	eng.Start(context.Background())
	defer eng.Stop()

	// Hammer port values from two writers while the coordinator keeps
	// running; every write goes through the graph so each one also
	// schedules a run.
	var wg sync.WaitGroup
	for _, p := range []flow.Port{aPort, bPort} {
		wg.Add(1)
		go func(p flow.Port) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				assert.NoError(t, g.SetPortValue(p.ID(), cty.NumberIntVal(int64(i))))
			}
		}(p)
	}
	wg.Wait()

	require.NoError(t, g.SetPortValue(aPort.ID(), cty.NumberIntVal(2)))
	require.NoError(t, g.SetPortValue(bPort.ID(), cty.NumberIntVal(3)))

	assert.Eventually(t, func() bool {
		result, err := eng.LastResult()
		if err != nil || result == nil {
			return false
		}
		out, ok := result["n1"].Outputs["c"]
		return ok && flow.ValueEqual(out, cty.NumberIntVal(5)) && eng.State() == StateIdle
	}, time.Second, 5*time.Millisecond)
}

func TestRunGraphExecutesSubgraph(t *testing.T) {
	root := flow.NewGraph()
	eng := New(root)

	sub := flow.NewGraph()
	inner := flow.NewNodeWithID("inner", "inner")
	p := inner.AddInput("x")
	inner.AddOutput("y")
	inner.SetCalc(func(ctx context.Context, inputs map[string]cty.Value, aux any) (*flow.CalcOutput, error) {
		return &flow.CalcOutput{Outputs: map[string]cty.Value{"y": inputs["x"]}}, nil
	})
	require.NoError(t, sub.AddNode(inner))

	result, err := eng.RunGraph(context.Background(), sub, map[string]cty.Value{
		p.ID(): cty.StringVal("pass-through"),
	}, nil)
	require.NoError(t, err)
	require.Contains(t, result, "inner")
	assert.True(t, flow.ValueEqual(result["inner"].Outputs["y"], cty.StringVal("pass-through")))
}
