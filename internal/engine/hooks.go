package engine

import (
	"context"

	"github.com/specialistvlad/flowgridgo/internal/flow"
	"github.com/zclconf/go-cty/cty"
)

// BeforeCalcFunc observes a node just before the run evaluates it,
// together with the resolved input values for this run. It fires whether
// or not the calculation step ends up being invoked.
type BeforeCalcFunc func(node *flow.Node, inputs map[string]cty.Value)

// AfterCalcFunc observes a node just after its outputs for this run are
// known (produced by the step, or reused when the step was skipped).
type AfterCalcFunc func(node *flow.Node, outputs map[string]cty.Value)

// TransformFunc intercepts a value in transit over a connection. It is
// invoked once per traversed connection and its return value is what the
// destination port receives. It may block.
type TransformFunc func(ctx context.Context, v cty.Value, conn *flow.Connection) (cty.Value, error)

type beforeEntry struct {
	key string
	fn  BeforeCalcFunc
}

type afterEntry struct {
	key string
	fn  AfterCalcFunc
}

// OnBeforeCalc registers a keyed before-calculation subscriber.
// Registering an existing key replaces the previous function in place,
// keeping its position in the fan-out order.
func (e *Engine) OnBeforeCalc(key string, fn BeforeCalcFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.before {
		if e.before[i].key == key {
			e.before[i].fn = fn
			return
		}
	}
	e.before = append(e.before, beforeEntry{key: key, fn: fn})
}

// RemoveBeforeCalc removes a before-calculation subscriber. Unknown keys
// are ignored.
func (e *Engine) RemoveBeforeCalc(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.before {
		if e.before[i].key == key {
			e.before = append(e.before[:i], e.before[i+1:]...)
			return
		}
	}
}

// OnAfterCalc registers a keyed after-calculation subscriber.
// Registering an existing key replaces the previous function in place.
func (e *Engine) OnAfterCalc(key string, fn AfterCalcFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.after {
		if e.after[i].key == key {
			e.after[i].fn = fn
			return
		}
	}
	e.after = append(e.after, afterEntry{key: key, fn: fn})
}

// RemoveAfterCalc removes an after-calculation subscriber. Unknown keys
// are ignored.
func (e *Engine) RemoveAfterCalc(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.after {
		if e.after[i].key == key {
			e.after = append(e.after[:i], e.after[i+1:]...)
			return
		}
	}
}

// SetTransform installs the connection transform hook. Passing nil
// removes it.
func (e *Engine) SetTransform(fn TransformFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transform = fn
}

func (e *Engine) fireBefore(n *flow.Node, inputs map[string]cty.Value) {
	e.mu.Lock()
	entries := make([]beforeEntry, len(e.before))
	copy(entries, e.before)
	e.mu.Unlock()
	for _, entry := range entries {
		entry.fn(n, inputs)
	}
}

func (e *Engine) fireAfter(n *flow.Node, outputs map[string]cty.Value) {
	e.mu.Lock()
	entries := make([]afterEntry, len(e.after))
	copy(entries, e.after)
	e.mu.Unlock()
	for _, entry := range entries {
		entry.fn(n, outputs)
	}
}

func (e *Engine) currentTransform() TransformFunc {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transform
}
