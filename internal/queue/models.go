package queue

import (
	"encoding/json"
	"strings"
	"time"
)

// Status represents the lifecycle of a pipeline run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusSyncing    Status = "syncing"
	StatusScripting  Status = "scripting"
	StatusNarrating  Status = "narrating"
	StatusAssembling Status = "assembling"
	StatusRendering  Status = "rendering"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Run modes.
const (
	ModeSingle   = "single"
	ModeCombined = "combined"
)

var allStatuses = []Status{
	StatusPending,
	StatusSyncing,
	StatusScripting,
	StatusNarrating,
	StatusAssembling,
	StatusRendering,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Run represents a pipeline run persisted in SQLite.
type Run struct {
	ID           string
	Mode         string
	Status       Status
	StoryIDs     []string
	Degraded     bool
	AttemptsJSON string
	FinalFile    string
	FailureStage string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Story is a synced article document.
type Story struct {
	ID          string
	Headline    string
	ArticleText string
	ImagePaths  []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the run can no longer change state.
func (r Run) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// Attempts decodes the per-stage attempt counters.
func (r Run) Attempts() map[string]int {
	if strings.TrimSpace(r.AttemptsJSON) == "" {
		return map[string]int{}
	}
	attempts := map[string]int{}
	if err := json.Unmarshal([]byte(r.AttemptsJSON), &attempts); err != nil {
		return map[string]int{}
	}
	return attempts
}

// SetAttempts encodes the per-stage attempt counters.
func (r *Run) SetAttempts(attempts map[string]int) {
	if len(attempts) == 0 {
		r.AttemptsJSON = ""
		return
	}
	data, err := json.Marshal(attempts)
	if err != nil {
		return
	}
	r.AttemptsJSON = string(data)
}

func encodeStrings(values []string) string {
	if len(values) == 0 {
		return ""
	}
	data, err := json.Marshal(values)
	if err != nil {
		return ""
	}
	return string(data)
}

func decodeStrings(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(value), &values); err != nil {
		return nil
	}
	return values
}
