package encoding_test

import (
	"context"
	"errors"
	"testing"

	"newsreel/internal/encoding"
	"newsreel/internal/logging"
	"newsreel/internal/pipeline"
	"newsreel/internal/renderplan"
	"newsreel/internal/services"
)

type fakeRenderer struct {
	err   error
	calls int
}

func (f *fakeRenderer) Render(context.Context, *renderplan.Plan) error {
	f.calls++
	return f.err
}

func planned() pipeline.State {
	return pipeline.State{
		RunID: "run-1",
		Plan:  &renderplan.Plan{Output: "/staging/run-1/render.mp4"},
	}
}

func TestExecutePublishesAfterRender(t *testing.T) {
	renderer := &fakeRenderer{}
	var published [2]string
	stage := encoding.NewStage(renderer,
		func(pipeline.State) string { return "/out/reel_article_001.mp4" },
		func(renderPath, finalPath string) error {
			published = [2]string{renderPath, finalPath}
			return nil
		},
		logging.NewNop(),
	)

	result, err := stage.Execute(context.Background(), planned())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if renderer.calls != 1 {
		t.Fatalf("renderer called %d times", renderer.calls)
	}
	if published[0] != "/staging/run-1/render.mp4" || published[1] != "/out/reel_article_001.mp4" {
		t.Fatalf("publish saw %v", published)
	}
	if result.Output != "/out/reel_article_001.mp4" {
		t.Fatalf("state output %q", result.Output)
	}
}

func TestExecuteDoesNotPublishOnRenderFailure(t *testing.T) {
	renderer := &fakeRenderer{err: services.Wrap(services.ErrExternalTool, "render", "ffmpeg", "encode failed", nil)}
	publishCalls := 0
	stage := encoding.NewStage(renderer,
		func(pipeline.State) string { return "/out/reel.mp4" },
		func(string, string) error { publishCalls++; return nil },
		logging.NewNop(),
	)

	_, err := stage.Execute(context.Background(), planned())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if publishCalls != 0 {
		t.Fatal("published despite render failure")
	}
}

func TestExecuteRequiresPlan(t *testing.T) {
	stage := encoding.NewStage(&fakeRenderer{},
		func(pipeline.State) string { return "/out/reel.mp4" },
		func(string, string) error { return nil },
		logging.NewNop(),
	)

	_, err := stage.Execute(context.Background(), pipeline.State{RunID: "run-1"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExecuteRecordsPlanArtifact(t *testing.T) {
	var recorded *renderplan.Plan
	stage := encoding.NewStage(&fakeRenderer{},
		func(pipeline.State) string { return "/out/reel.mp4" },
		func(string, string) error { return nil },
		logging.NewNop(),
	).WithPlanSink(func(plan *renderplan.Plan) error {
		recorded = plan
		return nil
	})

	state := planned()
	if _, err := stage.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if recorded != state.Plan {
		t.Fatal("plan artifact not recorded")
	}
}
