// Package workflow orchestrates complete runs: story selection, graph
// construction per mode, run record persistence, and workspace
// lifecycle. Single runs walk one graph from sync through render.
// Combined runs prepare each story in a bounded-parallel isolated
// sub-run, then assemble and render one digest over the prepared parts
// in selection order.
package workflow
