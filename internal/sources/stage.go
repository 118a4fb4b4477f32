package sources

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"

	_ "image/jpeg"
	_ "image/png"

	"newsreel/internal/logging"
	"newsreel/internal/pipeline"
	"newsreel/internal/services"
)

// Stage pulls story material into the run state and validates it.
type Stage struct {
	source Source
	logger *slog.Logger
}

// NewStage builds the sync stage over a source.
func NewStage(source Source, logger *slog.Logger) *Stage {
	return &Stage{
		source: source,
		logger: logging.WithComponent(logger, "sync"),
	}
}

func (s *Stage) ID() string { return "sync" }

// Execute fetches each part's story and fills in text and asset paths.
func (s *Stage) Execute(ctx context.Context, state pipeline.State) (pipeline.State, error) {
	if len(state.Parts) == 0 {
		return pipeline.State{}, services.Wrap(services.ErrValidation, "sync", "", "run has no stories", nil)
	}

	for i, part := range state.Parts {
		story, err := s.source.Fetch(ctx, part.StoryID)
		if err != nil {
			return pipeline.State{}, err
		}
		if story.Article == "" {
			return pipeline.State{}, services.Wrap(services.ErrValidation, "sync", "", fmt.Sprintf("story %s has no article text", part.StoryID), nil)
		}
		if len(story.Images) == 0 {
			return pipeline.State{}, services.Wrap(services.ErrValidation, "sync", "", fmt.Sprintf("story %s has no images", part.StoryID), nil)
		}
		if err := validateImages(story.Images); err != nil {
			return pipeline.State{}, err
		}

		state.Parts[i].RawText = story.Article
		state.Parts[i].AssetPaths = story.Images

		s.logger.Info("story synced",
			logging.String(logging.FieldStoryID, part.StoryID),
			logging.Int("images", len(story.Images)),
			logging.Int("article_bytes", len(story.Article)),
		)
	}

	return state, nil
}

// validateImages confirms every asset decodes to a usable raster.
func validateImages(paths []string) error {
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return services.Wrap(services.ErrValidation, "sync", "validate", fmt.Sprintf("open image %s", path), err)
		}
		cfg, _, err := image.DecodeConfig(file)
		_ = file.Close()
		if err != nil {
			return services.Wrap(services.ErrValidation, "sync", "validate", fmt.Sprintf("decode image %s", path), err)
		}
		if cfg.Width <= 0 || cfg.Height <= 0 {
			return services.Wrap(services.ErrValidation, "sync", "validate", fmt.Sprintf("image %s has empty dimensions", path), nil)
		}
	}
	return nil
}

// ImageSize returns the pixel dimensions of an image file.
func ImageSize(path string) (int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, services.Wrap(services.ErrValidation, "", "measure", fmt.Sprintf("open image %s", path), err)
	}
	defer file.Close()
	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, services.Wrap(services.ErrValidation, "", "measure", fmt.Sprintf("decode image %s", path), err)
	}
	return cfg.Width, cfg.Height, nil
}
