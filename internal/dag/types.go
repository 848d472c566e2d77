package dag

import (
	"fmt"

	"github.com/specialistvlad/flowgridgo/internal/flow"
)

// Component is one maximal weakly-connected region of a graph: the nodes
// reachable from one another when connections are followed in either
// direction, plus exactly the connections with an endpoint in the region.
type Component struct {
	Nodes       []*flow.Node
	Connections []*flow.Connection
}

// SortedComponent is a Component linearized into a calculation order. It
// also carries the per-node outgoing connection lists and the port to
// node lookup the scheduler needs while propagating values.
type SortedComponent struct {
	// Order is a valid topological order of the region's nodes: every
	// connection's source node appears before its destination node.
	Order []*flow.Node

	// Outgoing maps a node id to the connections originating at that
	// node, in the order the connections were supplied.
	Outgoing map[string][]*flow.Connection

	// NodeOfPort maps every port id in the region to its owning node id.
	NodeOfPort map[string]string

	// position maps node id to its index in Order.
	position map[string]int
}

// Contains reports whether the node id belongs to this component.
func (sc *SortedComponent) Contains(nodeID string) bool {
	_, ok := sc.position[nodeID]
	return ok
}

// Position returns the node's index in the calculation order, or -1 if
// the node is not part of this component.
func (sc *SortedComponent) Position(nodeID string) int {
	if i, ok := sc.position[nodeID]; ok {
		return i
	}
	return -1
}

// CycleError reports that a node set could not be fully linearized
// because its connections form a directed cycle. Nodes lists the ids
// left unordered when the sort got stuck.
type CycleError struct {
	Nodes []string
}

func (e *CycleError) Error() string {
	if len(e.Nodes) == 0 {
		return "cycle detected"
	}
	return fmt.Sprintf("cycle detected involving node '%s'", e.Nodes[0])
}
