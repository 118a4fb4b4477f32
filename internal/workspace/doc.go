// Package workspace manages per-run staging directories and published
// artifact names. Each run works inside an isolated, flock-guarded
// directory; finished videos are moved into the output directory under
// deterministic names derived from the run identifier and mode.
package workspace
