// Package assemble turns narrated run state into a render plan.
//
// The stage partitions the narration duration across segments, schedules
// per-frame pan/zoom motion, joins segments with transitions, lays out
// the caption track, and fixes the overlay compositing order. The
// resulting plan is declarative; the encoder executes it without making
// timing decisions of its own.
package assemble
