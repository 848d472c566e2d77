package flow

import (
	"sync"

	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"
)

// Port is a named value slot on a node. Input ports receive values from
// connections or from the outside world; output ports hold the values a
// node's calculation produced most recently.
type Port interface {
	// ID is the port's unique id within its graph.
	ID() string
	// Name is the port's name, unique among its node's ports of the
	// same direction.
	Name() string
	// NodeID is the id of the node the port belongs to.
	NodeID() string
	// IsInput reports whether the port is an input port.
	IsInput() bool
	// AllowsMultiple reports whether the port accepts more than one
	// incoming connection. During a run such a port resolves to an
	// ordered tuple of contributions rather than a scalar.
	AllowsMultiple() bool
	// ConnectionCount is the number of connections currently attached.
	ConnectionCount() int
	// Value returns the port's stored value, cty.NilVal if never set.
	Value() cty.Value
	// SetValue replaces the port's stored value.
	SetValue(v cty.Value)
}

// port's mutable state carries its own lock: the editing surface writes
// values while the engine's coordinator goroutine reads them mid-run.
type port struct {
	id     string
	name   string
	nodeID string
	input  bool
	multi  bool

	mu    sync.RWMutex
	conns int
	value cty.Value
}

func newPort(name, nodeID string, input, multi bool) *port {
	return &port{
		id:     uuid.NewString(),
		name:   name,
		nodeID: nodeID,
		input:  input,
		multi:  multi,
	}
}

func (p *port) ID() string           { return p.id }
func (p *port) Name() string         { return p.name }
func (p *port) NodeID() string       { return p.nodeID }
func (p *port) IsInput() bool        { return p.input }
func (p *port) AllowsMultiple() bool { return p.multi }

func (p *port) ConnectionCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conns
}

func (p *port) Value() cty.Value {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

func (p *port) SetValue(v cty.Value) {
	p.mu.Lock()
	p.value = v
	p.mu.Unlock()
}

func (p *port) addConns(delta int) {
	p.mu.Lock()
	p.conns += delta
	p.mu.Unlock()
}
