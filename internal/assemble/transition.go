package assemble

import (
	"fmt"
	"math"

	"newsreel/internal/queue"
	"newsreel/internal/renderplan"
	"newsreel/internal/services"
)

// SelectionPolicy decides which effect joins segment index and index+1.
// It must be deterministic in (index, mode).
type SelectionPolicy func(index int, mode string) string

// singleCycle is the effect rotation for single-story runs.
var singleCycle = []string{
	renderplan.TransitionFadeBlack,
	renderplan.TransitionSlideLeft,
	renderplan.TransitionCircleCrop,
	renderplan.TransitionPixelize,
	renderplan.TransitionZoomIn,
}

// DefaultSelection cycles through the effect set in single mode and
// always fades through black between digest stories.
func DefaultSelection(index int, mode string) string {
	if mode == queue.ModeCombined {
		return renderplan.TransitionFadeBlack
	}
	return singleCycle[index%len(singleCycle)]
}

// TransitionPlanner joins adjacent segments. The configured duration
// applies to every effect except cut, which takes no time.
type TransitionPlanner struct {
	Seconds float64
	Policy  SelectionPolicy
}

// NewTransitionPlanner builds a planner with the given per-transition
// duration. A nil policy falls back to DefaultSelection.
func NewTransitionPlanner(seconds float64, policy SelectionPolicy) *TransitionPlanner {
	if policy == nil {
		policy = DefaultSelection
	}
	return &TransitionPlanner{Seconds: seconds, Policy: policy}
}

// Plan produces one transition per adjacent segment pair. Offsets are
// timeline positions corrected for the overlap consumed by earlier
// transitions. A configured duration longer than half the shorter
// adjacent segment is rejected outright.
func (p *TransitionPlanner) Plan(segments []renderplan.Segment, mode string) ([]renderplan.Transition, error) {
	if len(segments) < 2 {
		return nil, nil
	}

	transitions := make([]renderplan.Transition, 0, len(segments)-1)
	elapsed := 0.0
	overlap := 0.0
	for j := 0; j < len(segments)-1; j++ {
		kind := p.Policy(j, mode)
		seconds := p.Seconds
		if kind == renderplan.TransitionCut {
			seconds = 0
		}
		limit := math.Min(segments[j].Seconds, segments[j+1].Seconds) / 2
		if seconds > limit {
			return nil, services.Wrap(services.ErrValidation, "assemble", "transition",
				fmt.Sprintf("transition %d duration %.3fs exceeds half of the shorter adjacent segment (%.3fs)", j, seconds, limit), nil)
		}

		elapsed += segments[j].Seconds
		overlap += seconds
		transitions = append(transitions, renderplan.Transition{
			Kind:    kind,
			Seconds: seconds,
			Offset:  elapsed - overlap,
		})
	}
	return transitions, nil
}
