// Package logging builds the slog loggers used across newsreel.
//
// Console output uses a compact key=value handler when stdout is a
// terminal; JSON output is used otherwise or when configured explicitly.
// Attr helpers keep field names consistent and context carriers attach
// run/stage identifiers to every stage log line.
package logging
