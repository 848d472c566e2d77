package dag

import (
	"github.com/specialistvlad/flowgridgo/internal/flow"
)

// ConnectedComponents partitions a node/connection set into maximal
// weakly-connected regions: two nodes land in the same region exactly
// when a path of connections links them, following edges in either
// direction. Each region's connection list is the connections with at
// least one endpoint in the region. Connections referencing ports
// outside the node set are ignored.
func ConnectedComponents(nodes []*flow.Node, conns []*flow.Connection) []*Component {
	nodeOfPort := portIndex(nodes)
	byID := make(map[string]*flow.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID()] = n
	}

	// Per-node successor and predecessor connection lists.
	succ := make(map[string][]*flow.Connection)
	pred := make(map[string][]*flow.Connection)
	for _, c := range conns {
		srcID, srcOK := nodeOfPort[c.From.ID()]
		dstID, dstOK := nodeOfPort[c.To.ID()]
		if !srcOK || !dstOK {
			continue
		}
		succ[srcID] = append(succ[srcID], c)
		pred[dstID] = append(pred[dstID], c)
	}

	visited := make(map[string]bool, len(nodes))
	var components []*Component

	for _, start := range nodes {
		if visited[start.ID()] {
			continue
		}

		comp := &Component{}
		seenConn := make(map[string]bool)

		// Depth-first walk treating connections as undirected.
		stack := []*flow.Node{start}
		visited[start.ID()] = true
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp.Nodes = append(comp.Nodes, n)

			for _, c := range succ[n.ID()] {
				if !seenConn[c.ID] {
					seenConn[c.ID] = true
					comp.Connections = append(comp.Connections, c)
				}
				dstID := nodeOfPort[c.To.ID()]
				if !visited[dstID] {
					visited[dstID] = true
					stack = append(stack, byID[dstID])
				}
			}
			for _, c := range pred[n.ID()] {
				if !seenConn[c.ID] {
					seenConn[c.ID] = true
					comp.Connections = append(comp.Connections, c)
				}
				srcID := nodeOfPort[c.From.ID()]
				if !visited[srcID] {
					visited[srcID] = true
					stack = append(stack, byID[srcID])
				}
			}
		}

		components = append(components, comp)
	}

	return components
}

// GraphComponents is ConnectedComponents over a whole graph.
func GraphComponents(g *flow.Graph) []*Component {
	return ConnectedComponents(g.Nodes(), g.Connections())
}
