package narration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"newsreel/internal/logging"
	"newsreel/internal/pipeline"
	"newsreel/internal/renderplan"
	"newsreel/internal/services"
)

// FallbackStage substitutes silent narration. It performs no I/O and no
// provider calls, so it always succeeds on valid state.
type FallbackStage struct {
	wordsPerSecond float64
	minSeconds     float64
	logger         *slog.Logger
}

// NewFallbackStage builds the silent-substitution stage.
func NewFallbackStage(wordsPerSecond, minSeconds float64, logger *slog.Logger) *FallbackStage {
	if wordsPerSecond <= 0 {
		wordsPerSecond = 2.5
	}
	if minSeconds <= 0 {
		minSeconds = 3.0
	}
	return &FallbackStage{
		wordsPerSecond: wordsPerSecond,
		minSeconds:     minSeconds,
		logger:         logging.WithComponent(logger, "narrate"),
	}
}

func (s *FallbackStage) ID() string { return "narrate-fallback" }

// Execute fills silent audio references for every part without audio and
// marks those parts degraded.
func (s *FallbackStage) Execute(ctx context.Context, state pipeline.State) (pipeline.State, error) {
	for i, part := range state.Parts {
		if part.AudioRef != "" {
			continue
		}
		words := len(strings.Fields(part.Script))
		if words == 0 {
			return pipeline.State{}, services.Wrap(services.ErrValidation, "narrate-fallback", "", fmt.Sprintf("story %s has no script", part.StoryID), nil)
		}

		seconds := SilentSeconds(words, s.wordsPerSecond, s.minSeconds)
		state.Parts[i].AudioRef = renderplan.SilenceRef(seconds)
		state.Parts[i].Seconds = seconds
		state.Parts[i].Degraded = true

		s.logger.Warn("narration unavailable, substituting silence",
			logging.String(logging.FieldStoryID, part.StoryID),
			logging.Int("words", words),
			logging.Float64("seconds", seconds),
		)
	}
	return state, nil
}

// SilentSeconds is the deterministic duration rule for silent narration:
// word count over the speaking rate, floored at the minimum.
func SilentSeconds(words int, wordsPerSecond, minSeconds float64) float64 {
	seconds := float64(words) / wordsPerSecond
	if seconds < minSeconds {
		return minSeconds
	}
	return seconds
}
