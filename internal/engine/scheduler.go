package engine

import (
	"context"
	"fmt"

	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/dag"
	"github.com/specialistvlad/flowgridgo/internal/flow"
	"github.com/zclconf/go-cty/cty"
)

// staging holds the values produced and propagated during one run,
// keyed by destination port id. Single-connection ports hold a scalar;
// multi-connection ports accumulate an ordered sequence, one entry per
// contributing connection in processing order.
type staging struct {
	scalar map[string]cty.Value
	multi  map[string][]cty.Value
}

func newStaging() *staging {
	return &staging{
		scalar: make(map[string]cty.Value),
		multi:  make(map[string][]cty.Value),
	}
}

// runGraph executes one run over the given graph. hint names the single
// node whose input is known to have just changed; empty means recompute
// everything. The run walks each weakly-connected region in calculation
// order, recomputes only the nodes that need it, propagates outputs to
// connected inputs and assembles the result.
func (e *Engine) runGraph(ctx context.Context, g *flow.Graph, external map[string]cty.Value, aux any, hint string) (flow.Result, error) {
	logger := ctxlog.FromContext(ctx)

	comps, err := e.sortedComponents(g)
	if err != nil {
		return nil, err
	}

	if hint != "" && !hintKnown(comps, hint) {
		return nil, fmt.Errorf("update hint references a node outside the graph: %s", hint)
	}

	result := make(flow.Result)
	staged := newStaging()
	transform := e.currentTransform()

	for _, comp := range comps {
		// Value changes cannot cross weakly-connected boundaries, so a
		// hinted run skips every region the hinted node is not part of.
		if hint != "" && !comp.Contains(hint) {
			continue
		}

		// Index-based pruning: with a hint, nodes positioned before the
		// hinted node in the calculation order are assumed unaffected.
		// A heuristic, not a guarantee beyond the order being
		// dependency-respecting.
		start := 0
		if hint != "" {
			start = comp.Position(hint)
		}

		for _, n := range comp.Order[start:] {
			if !n.Computable() {
				continue
			}

			inputs, changed := resolveInputs(n, staged, external)
			e.fireBefore(n, inputs)

			invoke := hint == "" || n.ID() == hint || n.AlwaysCalc() || changed

			var outputs map[string]cty.Value
			if invoke {
				out, err := n.Calc()(ctx, inputs, aux)
				if err != nil {
					return nil, fmt.Errorf("calculating node %s: %w", n.ID(), err)
				}
				if err := validateOutputs(n, out); err != nil {
					return nil, err
				}
				outputs = out.Outputs
				// Surface a nested sub-run transparently: the inner
				// nodes' entries join the top-level result under their
				// own ids.
				for innerID, innerRes := range out.Nested {
					result[innerID] = innerRes
				}
			} else {
				logger.Debug("Skipping unchanged node.", "node", n.ID())
				outputs = storedOutputs(n)
			}

			e.fireAfter(n, outputs)
			result[n.ID()] = flow.NodeResult{Inputs: inputs, Outputs: outputs}

			if err := e.propagate(ctx, comp, n, outputs, staged, transform); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}

// resolveInputs determines each input port's value for this run: a
// just-propagated value when an upstream node already produced one,
// otherwise the externally supplied or previously stored value. The
// second return reports whether any resolved value differs structurally
// from the port's stored value.
func resolveInputs(n *flow.Node, staged *staging, external map[string]cty.Value) (map[string]cty.Value, bool) {
	inputs := make(map[string]cty.Value, len(n.Inputs()))
	changed := false
	for _, p := range n.Inputs() {
		var resolved cty.Value
		switch {
		case p.AllowsMultiple():
			if seq, ok := staged.multi[p.ID()]; ok {
				resolved = cty.TupleVal(seq)
			} else {
				resolved = fallbackValue(p, external)
			}
		default:
			if v, ok := staged.scalar[p.ID()]; ok {
				resolved = v
			} else {
				resolved = fallbackValue(p, external)
			}
		}
		inputs[p.Name()] = resolved
		if !n.ValueEqual(resolved, p.Value()) {
			changed = true
		}
	}
	return inputs, changed
}

func fallbackValue(p flow.Port, external map[string]cty.Value) cty.Value {
	if v, ok := external[p.ID()]; ok {
		return v
	}
	return p.Value()
}

// storedOutputs snapshots a node's currently stored output values, used
// verbatim when the calculation step is skipped.
func storedOutputs(n *flow.Node) map[string]cty.Value {
	outputs := make(map[string]cty.Value, len(n.Outputs()))
	for _, p := range n.Outputs() {
		outputs[p.Name()] = p.Value()
	}
	return outputs
}

// validateOutputs checks that a calculation step produced a value for
// every output port its node declares. A missing output is a hard error,
// not a silent default.
func validateOutputs(n *flow.Node, out *flow.CalcOutput) error {
	if out == nil {
		return fmt.Errorf("node %s: calculation returned no output", n.ID())
	}
	for _, p := range n.Outputs() {
		if _, ok := out.Outputs[p.Name()]; !ok {
			return fmt.Errorf("node %s: calculation missing declared output %q", n.ID(), p.Name())
		}
	}
	return nil
}

// propagate stages this node's produced values onto the input ports its
// outgoing connections target, applying the transform hook per
// connection. Multi-connection ports accumulate; single-connection ports
// overwrite (only one connection can target such a port, so there is
// nothing to race with in a well-formed graph).
func (e *Engine) propagate(ctx context.Context, comp *dag.SortedComponent, n *flow.Node, outputs map[string]cty.Value, staged *staging, transform TransformFunc) error {
	for _, c := range comp.Outgoing[n.ID()] {
		if owner, ok := comp.NodeOfPort[c.From.ID()]; !ok || owner != n.ID() {
			return fmt.Errorf("connection %s: source port %s is not owned by node %s", c.ID, c.From.ID(), n.ID())
		}
		v, ok := outputs[c.From.Name()]
		if !ok {
			return fmt.Errorf("node %s: no value produced for connected output %q", n.ID(), c.From.Name())
		}
		if transform != nil {
			transformed, err := transform(ctx, v, c)
			if err != nil {
				return fmt.Errorf("transforming value over connection %s: %w", c.ID, err)
			}
			v = transformed
		}
		if c.To.AllowsMultiple() {
			staged.multi[c.To.ID()] = append(staged.multi[c.To.ID()], v)
		} else {
			staged.scalar[c.To.ID()] = v
		}
	}
	return nil
}

func hintKnown(comps []*dag.SortedComponent, hint string) bool {
	for _, comp := range comps {
		if comp.Contains(hint) {
			return true
		}
	}
	return false
}
