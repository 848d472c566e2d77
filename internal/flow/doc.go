// Package flow holds the graph model the engine computes over: nodes with
// named input and output ports, directed connections from output ports to
// input ports, and the graph that owns them.
//
// The model is deliberately dumb. Construction and mutation belong to
// whatever editing surface embeds the engine; the engine only reads the
// structure and, through result application, writes computed values back
// into output ports. Port values are cty.Value so arbitrary structured
// data can travel through a graph without the engine knowing its shape.
//
// All relationships are resolved through stable string ids rather than
// direct ownership pointers. Connections legitimately make the underlying
// structure cyclic (a port refers to its node, the node to its graph, the
// graph back to the port), so id-indexed lookups keep the object graph
// simple even though the directed graph used for scheduling must stay
// acyclic.
package flow
