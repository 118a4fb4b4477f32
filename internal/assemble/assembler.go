package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"newsreel/internal/config"
	"newsreel/internal/logging"
	"newsreel/internal/pipeline"
	"newsreel/internal/queue"
	"newsreel/internal/renderplan"
	"newsreel/internal/scripting"
	"newsreel/internal/services"
	"newsreel/internal/sources"
)

// ImageSizeFunc measures a source image.
type ImageSizeFunc func(path string) (int, int, error)

// OutputPathFunc decides where the finished video lands.
type OutputPathFunc func(state pipeline.State) string

// Stage builds the render plan from narrated run state.
type Stage struct {
	render      config.Render
	motion      *MotionScheduler
	transitions *TransitionPlanner
	imageSize   ImageSizeFunc
	outputPath  OutputPathFunc
	logger      *slog.Logger
}

// Option adjusts stage construction.
type Option func(*Stage)

// WithSelectionPolicy overrides the transition effect policy.
func WithSelectionPolicy(policy SelectionPolicy) Option {
	return func(s *Stage) {
		s.transitions = NewTransitionPlanner(s.render.TransitionSeconds, policy)
	}
}

// WithImageSize overrides the image measurement function.
func WithImageSize(fn ImageSizeFunc) Option {
	return func(s *Stage) { s.imageSize = fn }
}

// NewStage builds the assemble stage for the configured output geometry.
func NewStage(render config.Render, outputPath OutputPathFunc, logger *slog.Logger, opts ...Option) *Stage {
	stage := &Stage{
		render:      render,
		motion:      NewMotionScheduler(render.Width, render.Height, render.FPS, render.ZoomMax),
		transitions: NewTransitionPlanner(render.TransitionSeconds, nil),
		imageSize:   sources.ImageSize,
		outputPath:  outputPath,
		logger:      logging.WithComponent(logger, "assemble"),
	}
	for _, opt := range opts {
		opt(stage)
	}
	return stage
}

func (s *Stage) ID() string { return "assemble" }

// Execute resolves the full timeline: duration partition, motion
// schedules, transitions, captions, titles, and overlay order. The
// returned state carries an immutable, validated plan.
func (s *Stage) Execute(ctx context.Context, state pipeline.State) (pipeline.State, error) {
	if err := validateParts(state.Parts); err != nil {
		return pipeline.State{}, err
	}

	segments := s.partition(state.Parts)

	if err := s.scheduleMotion(ctx, segments); err != nil {
		return pipeline.State{}, err
	}

	transitions, err := s.transitions.Plan(segments, state.Mode)
	if err != nil {
		return pipeline.State{}, err
	}
	applyDisplay(segments, transitions)

	captionMode := renderplan.CaptionTypewriter
	if state.Mode == queue.ModeCombined {
		captionMode = renderplan.CaptionStatic
	}
	layout := &CaptionLayout{Width: s.render.Width, Overlay: state.Overlay}
	captions := layout.Layout(partSpans(state.Parts), captionMode)

	plan := &renderplan.Plan{
		Width:            s.render.Width,
		Height:           s.render.Height,
		FPS:              s.render.FPS,
		NarrationSeconds: state.TotalSeconds(),
		Segments:         segments,
		Transitions:      transitions,
		Captions:         captions,
		Titles:           titleWindows(state.Parts),
		Overlay:          ComposeOverlay(state.Overlay, s.render.OverlayImage, s.render.WatermarkImage),
		Output:           s.outputPath(state),
	}
	if len(state.Parts) == 1 {
		plan.AudioRef = state.Parts[0].AudioRef
	} else {
		plan.AudioParts = make([]renderplan.AudioPart, 0, len(state.Parts))
		for _, part := range state.Parts {
			plan.AudioParts = append(plan.AudioParts, renderplan.AudioPart{Ref: part.AudioRef, Seconds: part.Seconds})
		}
	}

	if err := plan.Validate(); err != nil {
		return pipeline.State{}, services.Wrap(services.ErrValidation, "assemble", "validate", err.Error(), nil)
	}

	state.Plan = plan
	state.Output = plan.Output
	s.logger.Info("render plan assembled",
		logging.String(logging.FieldRunID, state.RunID),
		logging.Int("segments", len(segments)),
		logging.Int("transitions", len(transitions)),
		logging.Float64("render_seconds", plan.RenderSeconds()),
	)
	return state, nil
}

func validateParts(parts []pipeline.Part) error {
	if len(parts) == 0 {
		return services.Wrap(services.ErrValidation, "assemble", "", "no narrated stories to assemble", nil)
	}
	for _, part := range parts {
		switch {
		case part.AudioRef == "" || part.Seconds <= 0:
			return services.Wrap(services.ErrValidation, "assemble", "", fmt.Sprintf("story %s has no narration", part.StoryID), nil)
		case len(part.AssetPaths) == 0:
			return services.Wrap(services.ErrValidation, "assemble", "", fmt.Sprintf("story %s has no images", part.StoryID), nil)
		case scripting.WordCount(part.Script) == 0:
			return services.Wrap(services.ErrValidation, "assemble", "", fmt.Sprintf("story %s has no script", part.StoryID), nil)
		}
	}
	return nil
}

// partition splits each part's narration time across its images
// proportionally to the script text covering each image. The last
// segment of each part absorbs rounding so the plan total matches the
// narration duration exactly.
func (s *Stage) partition(parts []pipeline.Part) []renderplan.Segment {
	var segments []renderplan.Segment
	index := 0
	for _, part := range parts {
		allocs := partitionSeconds(part.Script, len(part.AssetPaths), part.Seconds)
		for i, image := range part.AssetPaths {
			seconds := allocs[i]
			segments = append(segments, renderplan.Segment{
				Index:   index,
				Image:   image,
				Seconds: seconds,
				Display: seconds,
				Frames:  int(math.Round(seconds * float64(s.render.FPS))),
				ZoomIn:  index%2 == 0,
			})
			index++
		}
	}
	return segments
}

// partitionSeconds weights each of n slots by the word count of the
// contiguous sentence group it covers. Fewer sentences than slots falls
// back to an even split.
func partitionSeconds(script string, n int, seconds float64) []float64 {
	allocs := make([]float64, n)
	if n == 1 {
		allocs[0] = seconds
		return allocs
	}

	sentences := scripting.SplitSentences(script)
	weights := make([]float64, n)
	if len(sentences) < n {
		for i := range weights {
			weights[i] = 1
		}
	} else {
		for i, sentence := range sentences {
			group := i * n / len(sentences)
			weights[group] += float64(scripting.WordCount(sentence))
		}
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	used := 0.0
	for i := 0; i < n-1; i++ {
		allocs[i] = seconds * weights[i] / total
		used += allocs[i]
	}
	allocs[n-1] = seconds - used
	return allocs
}

// scheduleMotion fills keyframes for every segment in parallel.
func (s *Stage) scheduleMotion(ctx context.Context, segments []renderplan.Segment) error {
	errs := make([]error, len(segments))
	var wg sync.WaitGroup
	for i := range segments {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				return
			}
			w, h, err := s.imageSize(segments[i].Image)
			if err != nil {
				errs[i] = err
				return
			}
			segments[i].Motion, errs[i] = s.motion.Schedule(w, h, segments[i].Seconds, segments[i].ZoomIn)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// applyDisplay subtracts each transition's overlap from the two
// adjoining segments, half each side.
func applyDisplay(segments []renderplan.Segment, transitions []renderplan.Transition) {
	for j, tr := range transitions {
		segments[j].Display -= tr.Seconds / 2
		segments[j+1].Display -= tr.Seconds / 2
	}
}

func partSpans(parts []pipeline.Part) []PartSpan {
	spans := make([]PartSpan, 0, len(parts))
	start := 0.0
	for _, part := range parts {
		spans = append(spans, PartSpan{Script: part.Script, Start: start, Seconds: part.Seconds})
		start += part.Seconds
	}
	return spans
}

func titleWindows(parts []pipeline.Part) []renderplan.TitleWindow {
	windows := make([]renderplan.TitleWindow, 0, len(parts))
	start := 0.0
	for _, part := range parts {
		if part.Headline != "" {
			windows = append(windows, renderplan.TitleWindow{
				Text:  part.Headline,
				Start: start,
				End:   start + part.Seconds,
			})
		}
		start += part.Seconds
	}
	return windows
}
