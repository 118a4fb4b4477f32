// Package pipeline implements the stage graph engine that drives a run.
//
// A Graph wires Stage nodes with predicate edges. The Engine walks the
// graph sequentially: each stage receives a snapshot of the run state and
// returns a replacement, so retries always re-execute against the exact
// pre-stage snapshot. Failure classification (services.Classify) decides
// between retry with backoff, an immediate fallback jump, and terminal
// escalation. Provider-backed stages serialize through an optional Gate.
package pipeline
