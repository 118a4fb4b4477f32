// Package renderplan defines the declarative timeline produced by the
// assemble stage and consumed by the encoder.
//
// A Plan is pure data: segment durations, per-frame motion keyframes,
// transition placements, caption windows, and overlay layers. Validate
// enforces the timing contract before anything is rendered, so encoder
// failures can only come from the external tool, never from an
// inconsistent timeline.
package renderplan
