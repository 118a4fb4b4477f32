package pipeline

import "fmt"

// TerminalError reports a run that cannot proceed: the failing stage, how
// many attempts were consumed, and the last underlying error.
type TerminalError struct {
	Stage    string
	Attempts int
	Err      error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("stage %s failed after %d attempt(s): %v", e.Stage, e.Attempts, e.Err)
}

func (e *TerminalError) Unwrap() error { return e.Err }

// GraphError reports a routing defect: after a stage completed, the
// number of matching outgoing edges was not exactly one.
type GraphError struct {
	Stage   string
	Matches int
}

func (e *GraphError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("no outgoing edge matched after stage %s", e.Stage)
	}
	return fmt.Sprintf("%d outgoing edges matched after stage %s, want exactly one", e.Matches, e.Stage)
}
