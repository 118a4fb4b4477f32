// Package services defines the shared error taxonomy and context helpers
// used by provider clients and workflow stages.
//
// Errors are tagged with sentinel markers (transient, fatal provider,
// unavailable, validation, external tool, configuration) via Wrap so the
// pipeline engine can classify a failure without inspecting provider
// internals. Classify maps any error to a retry disposition.
package services
