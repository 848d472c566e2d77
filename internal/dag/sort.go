package dag

import (
	"github.com/specialistvlad/flowgridgo/internal/flow"
)

// SortTopologically linearizes a node set into a calculation order using
// Kahn's algorithm. Connections whose endpoints are not both inside the
// node set are ignored; within the set, every connection's source node
// precedes its destination node in the returned order. Ordering among
// nodes with no dependency relationship is arbitrary. If the set
// contains a directed cycle, the error is a *CycleError.
func SortTopologically(nodes []*flow.Node, conns []*flow.Connection) (*SortedComponent, error) {
	nodeOfPort := portIndex(nodes)
	byID := make(map[string]*flow.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID()] = n
	}

	// Outgoing connection lists and in-degree per node, considering
	// only edges whose both endpoints are inside the given set.
	outgoing := make(map[string][]*flow.Connection, len(nodes))
	indegree := make(map[string]int, len(nodes))
	for _, c := range conns {
		srcID, srcOK := nodeOfPort[c.From.ID()]
		dstID, dstOK := nodeOfPort[c.To.ID()]
		if !srcOK || !dstOK {
			continue
		}
		outgoing[srcID] = append(outgoing[srcID], c)
		indegree[dstID]++
	}

	ready := make([]*flow.Node, 0, len(nodes))
	for _, n := range nodes {
		if indegree[n.ID()] == 0 {
			ready = append(ready, n)
		}
	}

	order := make([]*flow.Node, 0, len(nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		for _, c := range outgoing[n.ID()] {
			dstID := nodeOfPort[c.To.ID()]
			indegree[dstID]--
			if indegree[dstID] == 0 {
				ready = append(ready, byID[dstID])
			}
		}
	}

	if len(order) != len(nodes) {
		placed := make(map[string]bool, len(order))
		for _, n := range order {
			placed[n.ID()] = true
		}
		var remaining []string
		for _, n := range nodes {
			if !placed[n.ID()] {
				remaining = append(remaining, n.ID())
			}
		}
		return nil, &CycleError{Nodes: remaining}
	}

	position := make(map[string]int, len(order))
	for i, n := range order {
		position[n.ID()] = i
	}

	return &SortedComponent{
		Order:      order,
		Outgoing:   outgoing,
		NodeOfPort: nodeOfPort,
		position:   position,
	}, nil
}

// SortGraph runs SortTopologically over a whole graph. The graph must be
// a single region or the result is still valid but mixes regions; use
// GraphSortedComponents when regions should stay separate.
func SortGraph(g *flow.Graph) (*SortedComponent, error) {
	return SortTopologically(g.Nodes(), g.Connections())
}

// ContainsCycle reports whether the node/connection set holds a directed
// cycle. It runs the same algorithm as SortTopologically and converts
// the error into a boolean.
func ContainsCycle(nodes []*flow.Node, conns []*flow.Connection) bool {
	_, err := SortTopologically(nodes, conns)
	return err != nil
}

// GraphContainsCycle reports whether any region of the graph holds a
// directed cycle.
func GraphContainsCycle(g *flow.Graph) bool {
	return ContainsCycle(g.Nodes(), g.Connections())
}

// SortedComponents partitions the node set into weakly-connected regions
// and topologically sorts each one independently. The union of the
// returned calculation orders is a permutation of the input nodes.
func SortedComponents(nodes []*flow.Node, conns []*flow.Connection) ([]*SortedComponent, error) {
	components := ConnectedComponents(nodes, conns)
	sorted := make([]*SortedComponent, 0, len(components))
	for _, comp := range components {
		sc, err := SortTopologically(comp.Nodes, comp.Connections)
		if err != nil {
			return nil, err
		}
		sorted = append(sorted, sc)
	}
	return sorted, nil
}

// GraphSortedComponents is SortedComponents over a whole graph.
func GraphSortedComponents(g *flow.Graph) ([]*SortedComponent, error) {
	return SortedComponents(g.Nodes(), g.Connections())
}

// portIndex builds the port id to node id lookup for a node set.
func portIndex(nodes []*flow.Node) map[string]string {
	idx := make(map[string]string)
	for _, n := range nodes {
		for _, p := range n.Ports() {
			idx[p.ID()] = n.ID()
		}
	}
	return idx
}
