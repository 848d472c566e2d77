package flow

import (
	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"
)

// Node is a unit of computation with ordered, named input and output
// ports. A node without a calculation step is a pass-through: the
// scheduler skips it entirely and it never appears in a result.
type Node struct {
	id   string
	name string

	inputs       []Port
	inputsByName map[string]Port

	outputs       []Port
	outputsByName map[string]Port

	calc       CalcFunc
	alwaysCalc bool
	equals     func(a, b cty.Value) bool
}

// NewNode creates a node with a fresh id and no ports.
func NewNode(name string) *Node {
	return &Node{
		id:            uuid.NewString(),
		name:          name,
		inputsByName:  make(map[string]Port),
		outputsByName: make(map[string]Port),
	}
}

// NewNodeWithID creates a node with a caller-chosen stable id. The
// editing surface owns id uniqueness within a graph.
func NewNodeWithID(id, name string) *Node {
	n := NewNode(name)
	n.id = id
	return n
}

func (n *Node) ID() string   { return n.id }
func (n *Node) Name() string { return n.name }

// AddInput adds a single-connection input port. Adding a duplicate name
// returns the existing port.
func (n *Node) AddInput(name string) Port {
	return n.addInput(name, false)
}

// AddMultiInput adds an input port that accepts multiple incoming
// connections.
func (n *Node) AddMultiInput(name string) Port {
	return n.addInput(name, true)
}

func (n *Node) addInput(name string, multi bool) Port {
	if p, ok := n.inputsByName[name]; ok {
		return p
	}
	p := newPort(name, n.id, true, multi)
	n.inputs = append(n.inputs, p)
	n.inputsByName[name] = p
	return p
}

// AddOutput adds an output port. Adding a duplicate name returns the
// existing port.
func (n *Node) AddOutput(name string) Port {
	if p, ok := n.outputsByName[name]; ok {
		return p
	}
	p := newPort(name, n.id, false, false)
	n.outputs = append(n.outputs, p)
	n.outputsByName[name] = p
	return p
}

// Inputs returns the input ports in declaration order.
func (n *Node) Inputs() []Port { return n.inputs }

// Outputs returns the output ports in declaration order.
func (n *Node) Outputs() []Port { return n.outputs }

// Input looks up an input port by name.
func (n *Node) Input(name string) (Port, bool) {
	p, ok := n.inputsByName[name]
	return p, ok
}

// Output looks up an output port by name.
func (n *Node) Output(name string) (Port, bool) {
	p, ok := n.outputsByName[name]
	return p, ok
}

// Ports returns all ports, inputs first, in declaration order.
func (n *Node) Ports() []Port {
	all := make([]Port, 0, len(n.inputs)+len(n.outputs))
	all = append(all, n.inputs...)
	all = append(all, n.outputs...)
	return all
}

// SetCalc installs the node's calculation step. A nil calc makes the
// node a pass-through.
func (n *Node) SetCalc(calc CalcFunc) { n.calc = calc }

// Calc returns the node's calculation step, nil for pass-through nodes.
func (n *Node) Calc() CalcFunc { return n.calc }

// Computable reports whether the node carries a calculation step. The
// check is resolved once per node per run; the scheduler never invokes
// anything on a non-computable node.
func (n *Node) Computable() bool { return n.calc != nil }

// SetAlwaysCalc forces recomputation on every run regardless of whether
// any input changed.
func (n *Node) SetAlwaysCalc(always bool) { n.alwaysCalc = always }

// AlwaysCalc reports whether the node is flagged to always recalculate.
func (n *Node) AlwaysCalc() bool { return n.alwaysCalc }

// SetEquals overrides the structural equality predicate used for this
// node's input-change detection. Passing nil restores the default.
func (n *Node) SetEquals(eq func(a, b cty.Value) bool) { n.equals = eq }

// ValueEqual compares two port values with the node's equality
// predicate, falling back to the package default.
func (n *Node) ValueEqual(a, b cty.Value) bool {
	if n.equals != nil {
		return n.equals(a, b)
	}
	return ValueEqual(a, b)
}
