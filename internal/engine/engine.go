package engine

import (
	"context"
	"sync"

	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/dag"
	"github.com/specialistvlad/flowgridgo/internal/flow"
	"github.com/zclconf/go-cty/cty"
)

// Listener keys for the engine's subscriptions on the graphs it
// touches. Cache subscriptions live for the engine's lifetime; the run
// subscriptions only between Start and Stop.
const (
	cacheListenerKey = "engine-cache"
	runListenerKey   = "engine-run"
)

// State describes the run coordinator.
type State int

const (
	// StateIdle means no run is executing and none is pending.
	StateIdle State = iota
	// StateRunning means a run is executing.
	StateRunning
	// StateRunningPending means a run is executing and a change arrived
	// meanwhile, so another run follows when the current one completes.
	StateRunningPending
)

// Engine coordinates runs over a root graph. See the package
// documentation for the overall model.
type Engine struct {
	graph *flow.Graph

	mu          sync.Mutex
	aux         any
	updatedNode string
	cache       map[string][]*dag.SortedComponent
	cacheGen    map[string]int
	watched     map[string]bool
	cacheDirty  bool
	state       State
	started     bool
	lastResult  flow.Result
	lastErr     error

	transform TransformFunc
	before    []beforeEntry
	after     []afterEntry

	// runMu serializes runs; the coordinator loop and direct RunOnce
	// callers share it.
	runMu sync.Mutex

	notifyCh chan struct{}
	stopCh   chan struct{}
	loopDone chan struct{}
}

// New creates an engine for the given root graph. The engine is stopped;
// RunOnce works immediately, the change-driven coordinator starts with
// Start.
func New(g *flow.Graph) *Engine {
	return &Engine{
		graph:    g,
		cache:    make(map[string][]*dag.SortedComponent),
		cacheGen: make(map[string]int),
		watched:  make(map[string]bool),
		notifyCh: make(chan struct{}, 1),
	}
}

// Graph returns the engine's root graph.
func (e *Engine) Graph() *flow.Graph { return e.graph }

// SetAux sets the auxiliary value passed unchanged to every calculation
// step of subsequent runs.
func (e *Engine) SetAux(aux any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.aux = aux
}

// SetUpdatedNode sets the update hint: the node whose input is known to
// have just changed. The hint is consumed by the next run only; an empty
// id means full recompute.
func (e *Engine) SetUpdatedNode(nodeID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.updatedNode = nodeID
}

// State reports the coordinator state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastResult returns the most recent run's result and error. Only the
// latest run is retained.
func (e *Engine) LastResult() (flow.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastResult, e.lastErr
}

// Invalidate marks the whole sorted-component cache stale; the next
// RunOnce clears and rebuilds it. Structural changes on a sorted graph
// already drop that graph's entry automatically, so this is only needed
// when topology changed through some path the graph never saw.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cacheDirty = true
}

// Notify requests a run. If a run is in flight the request coalesces
// with any other pending request into exactly one follow-up run. While
// the engine is stopped the request is recorded and honored on Start.
func (e *Engine) Notify() {
	e.mu.Lock()
	if e.state == StateRunning {
		e.state = StateRunningPending
	}
	e.mu.Unlock()

	select {
	case e.notifyCh <- struct{}{}:
	default:
	}
}

// Start launches the run coordinator: the engine subscribes to the
// graph's change notifications and triggers an immediate full run with
// no update hint and a rebuilt cache. Starting a started engine does
// nothing.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.updatedNode = ""
	e.cacheDirty = true
	e.stopCh = make(chan struct{})
	e.loopDone = make(chan struct{})
	e.mu.Unlock()

	e.graph.OnStructureChange(runListenerKey, func() {
		e.Notify()
	})
	e.graph.OnValueChange(runListenerKey, func(p flow.Port) {
		e.Notify()
	})

	go e.loop(ctx)
	e.Notify()
	ctxlog.FromContext(ctx).Debug("Engine started.", "graph", e.graph.ID())
}

// Stop halts the coordinator and unsubscribes from the graph. A run in
// flight completes; notifications arriving afterwards are recorded but
// trigger nothing until the next Start.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.started = false
	stopCh := e.stopCh
	loopDone := e.loopDone
	e.mu.Unlock()

	e.graph.RemoveStructureListener(runListenerKey)
	e.graph.RemoveValueListener(runListenerKey)
	close(stopCh)
	<-loopDone
}

// loop is the coordinator's single-flight state machine: Idle until a
// notification arrives, Running while a run executes, RunningPending
// when another notification lands mid-run. The capacity-1 notify channel
// is the pending flag, so a burst of notifications yields at most one
// queued follow-up run.
func (e *Engine) loop(ctx context.Context) {
	defer close(e.loopDone)
	logger := ctxlog.FromContext(ctx)
	for {
		select {
		case <-e.stopCh:
			return
		case <-e.notifyCh:
			e.setState(StateRunning)
			result, err := e.RunOnce(ctx)
			if err != nil {
				logger.Error("Run failed.", "error", err)
			} else {
				logger.Debug("Run completed.", "nodes", len(result))
			}
			e.setState(StateIdle)
		}
	}
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	// A pending rerun shows through: the queued notification flips the
	// state back to Running on the next loop iteration.
	if !(s == StateIdle && len(e.notifyCh) > 0) {
		e.state = s
	}
	e.mu.Unlock()
}

// RunOnce performs exactly one run of the root graph, using the current
// values of all zero-connection ports as external inputs. It consumes
// the update hint, if one is set. The returned result is empty when the
// graph holds no calculable nodes.
func (e *Engine) RunOnce(ctx context.Context) (flow.Result, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	e.mu.Lock()
	if e.cacheDirty {
		e.cache = make(map[string][]*dag.SortedComponent)
		e.cacheDirty = false
	}
	hint := e.updatedNode
	e.updatedNode = ""
	aux := e.aux
	e.mu.Unlock()

	external := e.gatherExternalInputs()

	result, err := e.runGraph(ctx, e.graph, external, aux, hint)

	e.mu.Lock()
	e.lastResult = result
	e.lastErr = err
	e.mu.Unlock()

	return result, err
}

// RunGraph runs an arbitrary graph once with explicit external inputs
// (port id to value for the graph's zero-connection ports) and auxiliary
// data, with no update hint. Subgraph-executing calculation steps use
// this to run their inner graphs.
func (e *Engine) RunGraph(ctx context.Context, g *flow.Graph, external map[string]cty.Value, aux any) (flow.Result, error) {
	return e.runGraph(ctx, g, external, aux, "")
}

// gatherExternalInputs collects the current values of every port with
// zero connections; these are the graph's true external inputs.
func (e *Engine) gatherExternalInputs() map[string]cty.Value {
	external := make(map[string]cty.Value)
	for _, n := range e.graph.Nodes() {
		for _, p := range n.Ports() {
			if p.ConnectionCount() == 0 {
				external[p.ID()] = p.Value()
			}
		}
	}
	return external
}

// sortedComponents returns the graph's sorted components, from cache
// when topology has not changed since the last run. Every graph the
// engine sorts, subgraphs included, gets an invalidation listener the
// first time through; topology changes stale that graph's cached order
// whether or not the coordinator is running.
func (e *Engine) sortedComponents(g *flow.Graph) ([]*dag.SortedComponent, error) {
	e.mu.Lock()
	if comps, ok := e.cache[g.ID()]; ok {
		e.mu.Unlock()
		return comps, nil
	}
	watch := !e.watched[g.ID()]
	if watch {
		e.watched[g.ID()] = true
	}
	gen := e.cacheGen[g.ID()]
	e.mu.Unlock()

	if watch {
		id := g.ID()
		g.OnStructureChange(cacheListenerKey, func() { e.dropCachedOrder(id) })
	}

	comps, err := dag.GraphSortedComponents(g)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	// A structure change racing the sort bumps the generation; caching
	// the now-stale order would outlive the invalidation.
	if e.cacheGen[g.ID()] == gen {
		e.cache[g.ID()] = comps
	}
	e.mu.Unlock()
	return comps, nil
}

func (e *Engine) dropCachedOrder(graphID string) {
	e.mu.Lock()
	delete(e.cache, graphID)
	e.cacheGen[graphID]++
	e.mu.Unlock()
}
