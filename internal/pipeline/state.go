package pipeline

import (
	"newsreel/internal/renderplan"
)

// Part carries the per-story material accumulated by the content stages.
// Single runs hold exactly one part; combined runs hold one per story in
// digest order.
type Part struct {
	StoryID    string
	AssetPaths []string
	RawText    string
	Script     string
	Headline   string
	AudioRef   string
	Seconds    float64
	Degraded   bool
}

// State is the complete run state passed between stages. Stages never
// mutate the state they receive; they return a replacement. The engine
// clones before every attempt so a retried stage sees the identical
// snapshot its first attempt saw.
type State struct {
	RunID   string
	Mode    string
	Local   bool
	Mock    bool
	Overlay bool

	Parts  []Part
	Plan   *renderplan.Plan
	Output string

	Attempts map[string]int
}

// Clone returns a deep copy. The render plan pointer is shared: plans are
// written once by assemble and treated as immutable afterwards.
func (s State) Clone() State {
	out := s
	if len(s.Parts) > 0 {
		out.Parts = make([]Part, len(s.Parts))
		copy(out.Parts, s.Parts)
		for i, part := range s.Parts {
			if len(part.AssetPaths) > 0 {
				paths := make([]string, len(part.AssetPaths))
				copy(paths, part.AssetPaths)
				out.Parts[i].AssetPaths = paths
			}
		}
	}
	if s.Attempts != nil {
		out.Attempts = make(map[string]int, len(s.Attempts))
		for k, v := range s.Attempts {
			out.Attempts[k] = v
		}
	}
	return out
}

// Degraded reports whether any part fell back to silent narration.
func (s State) Degraded() bool {
	for _, part := range s.Parts {
		if part.Degraded {
			return true
		}
	}
	return false
}

// TotalSeconds sums the narration duration across parts.
func (s State) TotalSeconds() float64 {
	total := 0.0
	for _, part := range s.Parts {
		total += part.Seconds
	}
	return total
}

// WithAttempt returns a copy with the stage attempt counter recorded.
func (s State) WithAttempt(stageID string, attempts int) State {
	out := s.Clone()
	if out.Attempts == nil {
		out.Attempts = make(map[string]int, 1)
	}
	out.Attempts[stageID] = attempts
	return out
}
