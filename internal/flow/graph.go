package flow

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"
)

// Graph owns a set of nodes and the connections among them. It may hold
// any number of disjoint weakly-connected regions. The graph fires keyed
// listeners on structural changes (node or connection added or removed)
// and on port value changes, which is how the engine learns that a run
// is due.
type Graph struct {
	mu sync.RWMutex

	id string

	nodes     map[string]*Node
	nodeOrder []*Node

	conns     map[string]*Connection
	connOrder []*Connection

	structureListeners map[string]func()
	valueListeners     map[string]func(p Port)
}

// NewGraph creates an empty graph with a fresh id.
func NewGraph() *Graph {
	return &Graph{
		id:                 uuid.NewString(),
		nodes:              make(map[string]*Node),
		conns:              make(map[string]*Connection),
		structureListeners: make(map[string]func()),
		valueListeners:     make(map[string]func(p Port)),
	}
}

// ID is the graph's stable identity, used as the sorted-component cache
// key.
func (g *Graph) ID() string { return g.id }

// AddNode registers a node. Duplicate node ids are an error.
func (g *Graph) AddNode(n *Node) error {
	g.mu.Lock()
	if _, ok := g.nodes[n.ID()]; ok {
		g.mu.Unlock()
		return fmt.Errorf("node id already present: %s", n.ID())
	}
	g.nodes[n.ID()] = n
	g.nodeOrder = append(g.nodeOrder, n)
	g.mu.Unlock()

	g.fireStructureChanged()
	return nil
}

// RemoveNode removes a node and every connection touching it. Removing
// an unknown id does nothing.
func (g *Graph) RemoveNode(id string) {
	g.mu.Lock()
	n, ok := g.nodes[id]
	if !ok {
		g.mu.Unlock()
		return
	}
	var touching []*Connection
	for _, c := range g.connOrder {
		if c.From.NodeID() == id || c.To.NodeID() == id {
			touching = append(touching, c)
		}
	}
	for _, c := range touching {
		g.removeConnLocked(c)
	}
	delete(g.nodes, id)
	for i, cand := range g.nodeOrder {
		if cand == n {
			g.nodeOrder = append(g.nodeOrder[:i], g.nodeOrder[i+1:]...)
			break
		}
	}
	g.mu.Unlock()

	g.fireStructureChanged()
}

// Connect creates a directed connection from an output port to an input
// port. A single-connection input port can be the target of at most one
// connection.
func (g *Graph) Connect(from, to Port) (*Connection, error) {
	g.mu.Lock()
	if from.IsInput() {
		g.mu.Unlock()
		return nil, fmt.Errorf("connection source must be an output port: %s", from.Name())
	}
	if !to.IsInput() {
		g.mu.Unlock()
		return nil, fmt.Errorf("connection destination must be an input port: %s", to.Name())
	}
	if _, ok := g.nodes[from.NodeID()]; !ok {
		g.mu.Unlock()
		return nil, fmt.Errorf("source port's node is not in this graph: %s", from.NodeID())
	}
	if _, ok := g.nodes[to.NodeID()]; !ok {
		g.mu.Unlock()
		return nil, fmt.Errorf("destination port's node is not in this graph: %s", to.NodeID())
	}
	if !to.AllowsMultiple() && to.ConnectionCount() > 0 {
		g.mu.Unlock()
		return nil, fmt.Errorf("input port %q already connected", to.Name())
	}

	c := &Connection{ID: uuid.NewString(), From: from, To: to}
	g.conns[c.ID] = c
	g.connOrder = append(g.connOrder, c)
	from.(*port).addConns(1)
	to.(*port).addConns(1)
	g.mu.Unlock()

	g.fireStructureChanged()
	return c, nil
}

// Disconnect removes a connection by id. Removing an unknown id does
// nothing.
func (g *Graph) Disconnect(id string) {
	g.mu.Lock()
	c, ok := g.conns[id]
	if !ok {
		g.mu.Unlock()
		return
	}
	g.removeConnLocked(c)
	g.mu.Unlock()

	g.fireStructureChanged()
}

func (g *Graph) removeConnLocked(c *Connection) {
	if _, ok := g.conns[c.ID]; !ok {
		return
	}
	delete(g.conns, c.ID)
	for i, cand := range g.connOrder {
		if cand == c {
			g.connOrder = append(g.connOrder[:i], g.connOrder[i+1:]...)
			break
		}
	}
	c.From.(*port).addConns(-1)
	c.To.(*port).addConns(-1)
}

// Node looks up a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Node, len(g.nodeOrder))
	copy(out, g.nodeOrder)
	return out
}

// Connections returns all connections in creation order.
func (g *Graph) Connections() []*Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Connection, len(g.connOrder))
	copy(out, g.connOrder)
	return out
}

// Port looks up a port anywhere in the graph by id.
func (g *Graph) Port(id string) (Port, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, n := range g.nodeOrder {
		for _, p := range n.Ports() {
			if p.ID() == id {
				return p, true
			}
		}
	}
	return nil, false
}

// SetPortValue stores a value into a port and fires value-change
// listeners. This is the mutation path an editing surface uses for
// external inputs; it never touches topology, so the sorted-component
// cache stays valid.
func (g *Graph) SetPortValue(portID string, v cty.Value) error {
	p, ok := g.Port(portID)
	if !ok {
		return fmt.Errorf("unknown port: %s", portID)
	}
	p.SetValue(v)
	g.fireValueChanged(p)
	return nil
}

// OnStructureChange registers a keyed listener for node/connection
// additions and removals. Registering an existing key replaces it.
func (g *Graph) OnStructureChange(key string, fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.structureListeners[key] = fn
}

// RemoveStructureListener removes a structure listener. Unknown keys are
// ignored.
func (g *Graph) RemoveStructureListener(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.structureListeners, key)
}

// OnValueChange registers a keyed listener for port value changes made
// through SetPortValue. Registering an existing key replaces it.
func (g *Graph) OnValueChange(key string, fn func(p Port)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.valueListeners[key] = fn
}

// RemoveValueListener removes a value listener. Unknown keys are
// ignored.
func (g *Graph) RemoveValueListener(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.valueListeners, key)
}

func (g *Graph) fireStructureChanged() {
	g.mu.RLock()
	fns := make([]func(), 0, len(g.structureListeners))
	for _, fn := range g.structureListeners {
		fns = append(fns, fn)
	}
	g.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

func (g *Graph) fireValueChanged(p Port) {
	g.mu.RLock()
	fns := make([]func(Port), 0, len(g.valueListeners))
	for _, fn := range g.valueListeners {
		fns = append(fns, fn)
	}
	g.mu.RUnlock()
	for _, fn := range fns {
		fn(p)
	}
}
