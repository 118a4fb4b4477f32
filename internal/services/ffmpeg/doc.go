// Package ffmpeg compiles render plans into ffmpeg invocations.
//
// The builder translates the declarative timeline into one
// filter_complex graph: per-segment animated crops, xfade joins at the
// plan's precomputed offsets, drawtext caption and title windows, and
// the overlay stack. Silent audio references become anullsrc inputs so
// degraded runs render without any audio file on disk. The encoder
// writes to a temporary file and renames it into place only after
// ffmpeg exits cleanly.
package ffmpeg
