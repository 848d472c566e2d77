package flow

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// CalcFunc is a node's calculation step. It receives the node's resolved
// input values keyed by port name and an opaque auxiliary value supplied
// by the caller of the run. It must return a value for every output port
// the node declares. The step may block; the scheduler awaits it before
// moving on to dependents.
type CalcFunc func(ctx context.Context, inputs map[string]cty.Value, aux any) (*CalcOutput, error)

// CalcOutput is what a calculation step hands back to the scheduler.
type CalcOutput struct {
	// Outputs maps output port name to produced value. A missing entry
	// for a declared output port fails the run.
	Outputs map[string]cty.Value

	// Nested optionally carries the result of an inner sub-run, for
	// nodes that internally execute a subgraph. The scheduler merges
	// each entry into the top-level result under the inner node's own
	// id.
	Nested Result
}

// NodeResult records one node's resolved inputs and produced outputs for
// a single run, keyed by port name.
type NodeResult struct {
	Inputs  map[string]cty.Value
	Outputs map[string]cty.Value
}

// Result is the record of one run: node id to that node's inputs and
// outputs. It is a snapshot owned by the caller; later runs never mutate
// a returned Result. Nodes without a calculation step never appear.
type Result map[string]NodeResult

// ValueEqual is the default structural equality used for input-change
// detection. It compares by value, not by reference, so wrappers the
// editing surface may introduce around port values do not defeat change
// detection.
func ValueEqual(a, b cty.Value) bool {
	if a == cty.NilVal || b == cty.NilVal {
		return a == cty.NilVal && b == cty.NilVal
	}
	return a.RawEquals(b)
}
