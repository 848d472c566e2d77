// Package engine is the incremental dataflow scheduler.
//
// The Engine wraps a flow.Graph and does three jobs:
//
//   - Lifecycle and coalescing: once started, the engine listens for the
//     graph's structural and value change notifications and collapses
//     bursts of them into single runs. At most one run executes at a
//     time; a notification arriving mid-run schedules exactly one
//     follow-up run, so the most recent change is always followed by a
//     run and nothing overlaps or gets lost.
//
//   - Incremental scheduling: a run walks each weakly-connected region
//     of the graph in topological order and recomputes only the nodes
//     whose outputs can actually have changed, guided by an optional
//     updated-node hint and per-input structural change detection.
//     Produced values propagate along connections, fanning out to every
//     consumer and fanning in as ordered tuples on multi-connection
//     ports.
//
//   - Result handling: every run yields a Result snapshot of each
//     evaluated node's resolved inputs and produced outputs, which
//     ApplyResult can later commit back into the graph's output ports.
//
// Sorted calculation orders are cached per graph identity and rebuilt
// lazily after any structural change; plain value changes leave the
// cache intact.
package engine
