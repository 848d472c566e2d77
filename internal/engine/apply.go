package engine

import (
	"github.com/specialistvlad/flowgridgo/internal/flow"
)

// ApplyResult commits a run's values back into the graph's ports: each
// entry's resolved inputs and produced outputs are written to the
// owning node's ports. The written inputs become the baseline the next
// run's change detection compares against. Entries whose node id is no
// longer present are skipped silently: a result may lag behind
// concurrent structural edits, and a stale entry is not an error. The
// write goes straight to the ports without firing value-change
// notifications, so applying a result never schedules another run by
// itself.
func ApplyResult(result flow.Result, g *flow.Graph) {
	for nodeID, nr := range result {
		n, ok := g.Node(nodeID)
		if !ok {
			continue
		}
		for name, v := range nr.Inputs {
			if p, ok := n.Input(name); ok {
				p.SetValue(v)
			}
		}
		for name, v := range nr.Outputs {
			if p, ok := n.Output(name); ok {
				p.SetValue(v)
			}
		}
	}
}
