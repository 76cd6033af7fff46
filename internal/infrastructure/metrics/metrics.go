// Package metrics exposes expvar-published counters for the flow graph
// builder and the archive layer, consumable via /debug/vars. It intentionally
// avoids external dependencies.
package metrics

import (
	"expvar"
)

// Builder metrics.
var (
	eventsTotal         = new(expvar.Int)
	nodesTotal          = new(expvar.Int)
	edgesTotal          = new(expvar.Int)
	getattrDroppedTotal = new(expvar.Int)
	resolutionMisses    = new(expvar.Int)
)

// Archive metrics.
var (
	graphsArchivedTotal = new(expvar.Int)
)

func init() {
	expvar.Publish("flowtrace_events_total", eventsTotal)
	expvar.Publish("flowtrace_nodes_total", nodesTotal)
	expvar.Publish("flowtrace_edges_total", edgesTotal)
	expvar.Publish("flowtrace_getattr_dropped_total", getattrDroppedTotal)
	expvar.Publish("flowtrace_resolution_misses_total", resolutionMisses)
	expvar.Publish("flowtrace_graphs_archived_total", graphsArchivedTotal)
}

// Builder helpers
func IncEvents()         { eventsTotal.Add(1) }
func IncNodes()          { nodesTotal.Add(1) }
func IncEdges()          { edgesTotal.Add(1) }
func IncGetattrDropped() { getattrDroppedTotal.Add(1) }
func IncResolutionMiss() { resolutionMisses.Add(1) }

// Archive helpers
func IncGraphsArchived() { graphsArchivedTotal.Add(1) }
