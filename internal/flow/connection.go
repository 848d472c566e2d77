package flow

// Connection is a directed edge from one output port to one input port.
type Connection struct {
	ID   string
	From Port
	To   Port
}
