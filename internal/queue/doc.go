// Package queue persists pipeline runs and the story document store in
// SQLite.
//
// Runs record lifecycle status, per-stage attempt counts, the degraded
// flag, and final artifact paths; they back the status CLI view and let
// a failed run be inspected after the process exits. Stories hold synced
// article text and image paths and act as the database-backed content
// source for runs started without a local folder.
package queue
