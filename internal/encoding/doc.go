// Package encoding is the render stage: it hands the assembled plan to
// the encoder, then publishes the finished video under its final name.
// The stage is wired with a single retry since an interrupted encode is
// usually worth one more attempt, and it never publishes on failure.
package encoding
