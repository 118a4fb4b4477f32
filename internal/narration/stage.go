package narration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"newsreel/internal/logging"
	"newsreel/internal/pipeline"
	"newsreel/internal/services"
)

// Synthesizer converts text to an audio file.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, outPath string) error
}

// DurationProber measures a media file.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// AudioPathFunc decides where a part's audio file lands.
type AudioPathFunc func(runID, storyID string) string

// Stage is the primary narration stage: real synthesis plus duration
// measurement.
type Stage struct {
	tts       Synthesizer
	prober    DurationProber
	audioPath AudioPathFunc
	logger    *slog.Logger
}

// NewStage builds the primary narration stage.
func NewStage(tts Synthesizer, prober DurationProber, audioPath AudioPathFunc, logger *slog.Logger) *Stage {
	return &Stage{
		tts:       tts,
		prober:    prober,
		audioPath: audioPath,
		logger:    logging.WithComponent(logger, "narrate"),
	}
}

func (s *Stage) ID() string { return "narrate" }

// Execute synthesizes audio for every part that does not have it yet.
func (s *Stage) Execute(ctx context.Context, state pipeline.State) (pipeline.State, error) {
	if s.tts == nil {
		return pipeline.State{}, services.Wrap(services.ErrConfiguration, "narrate", "", "tts client not configured", nil)
	}

	for i, part := range state.Parts {
		if part.AudioRef != "" {
			continue
		}
		if strings.TrimSpace(part.Script) == "" {
			return pipeline.State{}, services.Wrap(services.ErrValidation, "narrate", "", fmt.Sprintf("story %s has no script", part.StoryID), nil)
		}

		outPath := s.audioPath(state.RunID, part.StoryID)
		if err := s.tts.Synthesize(services.WithStoryID(ctx, part.StoryID), part.Script, outPath); err != nil {
			return pipeline.State{}, err
		}

		seconds, err := s.prober.Duration(ctx, outPath)
		if err != nil {
			return pipeline.State{}, err
		}

		state.Parts[i].AudioRef = outPath
		state.Parts[i].Seconds = seconds

		s.logger.Info("narration synthesized",
			logging.String(logging.FieldStoryID, part.StoryID),
			logging.Float64("seconds", seconds),
		)
	}
	return state, nil
}
