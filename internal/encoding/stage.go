package encoding

import (
	"context"
	"log/slog"

	"newsreel/internal/logging"
	"newsreel/internal/pipeline"
	"newsreel/internal/renderplan"
	"newsreel/internal/services"
)

// Renderer executes a render plan.
type Renderer interface {
	Render(ctx context.Context, plan *renderplan.Plan) error
}

// FinalPathFunc decides the published artifact name for a run.
type FinalPathFunc func(state pipeline.State) string

// PublishFunc moves a finished render from staging to its final path.
type PublishFunc func(renderPath, finalPath string) error

// PlanSinkFunc records the resolved plan for inspection. Optional.
type PlanSinkFunc func(plan *renderplan.Plan) error

// Stage drives the encoder and publishes the result.
type Stage struct {
	renderer  Renderer
	finalPath FinalPathFunc
	publish   PublishFunc
	planSink  PlanSinkFunc
	logger    *slog.Logger
}

// NewStage builds the render stage.
func NewStage(renderer Renderer, finalPath FinalPathFunc, publish PublishFunc, logger *slog.Logger) *Stage {
	return &Stage{
		renderer:  renderer,
		finalPath: finalPath,
		publish:   publish,
		logger:    logging.WithComponent(logger, "render"),
	}
}

// WithPlanSink records the plan before encoding starts.
func (s *Stage) WithPlanSink(sink PlanSinkFunc) *Stage {
	s.planSink = sink
	return s
}

func (s *Stage) ID() string { return "render" }

// Execute encodes the plan and moves the video into the output
// directory. The final name appears only after the encoder succeeds, so
// a failed run never leaves a completed-looking artifact.
func (s *Stage) Execute(ctx context.Context, state pipeline.State) (pipeline.State, error) {
	if state.Plan == nil {
		return pipeline.State{}, services.Wrap(services.ErrValidation, "render", "", "no render plan in state", nil)
	}

	if s.planSink != nil {
		if err := s.planSink(state.Plan); err != nil {
			s.logger.Warn("plan artifact not written", logging.Error(err))
		}
	}

	if err := s.renderer.Render(ctx, state.Plan); err != nil {
		return pipeline.State{}, err
	}

	final := s.finalPath(state)
	if err := s.publish(state.Plan.Output, final); err != nil {
		return pipeline.State{}, services.Wrap(services.ErrExternalTool, "render", "publish", "move finished video", err)
	}

	state.Output = final
	s.logger.Info("video published",
		logging.String(logging.FieldRunID, state.RunID),
		logging.String("output", final),
	)
	return state, nil
}
