// Package dag implements the pure graph algorithms the engine schedules
// with: Kahn topological sorting with cycle detection, weakly-connected
// component decomposition, and the combination of the two that yields one
// calculation order per independent graph region.
//
// Every entry point exists in two shapes: one taking an explicit node and
// connection set, and a Graph* convenience taking a *flow.Graph. The
// functions only read the structures they are given; they are usable
// standalone, outside the engine.
package dag
