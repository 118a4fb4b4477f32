package narration_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"newsreel/internal/logging"
	"newsreel/internal/narration"
	"newsreel/internal/pipeline"
	"newsreel/internal/renderplan"
	"newsreel/internal/services"
)

type fakeTTS struct {
	err   error
	calls int
}

func (f *fakeTTS) Synthesize(_ context.Context, text, outPath string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outPath, []byte(text), 0o644)
}

type fakeProber struct {
	seconds float64
	err     error
}

func (f fakeProber) Duration(context.Context, string) (float64, error) {
	return f.seconds, f.err
}

func audioIn(dir string) narration.AudioPathFunc {
	return func(runID, storyID string) string {
		return filepath.Join(dir, "audio_"+storyID+".mp3")
	}
}

func TestStageSynthesizesAndMeasures(t *testing.T) {
	dir := t.TempDir()
	tts := &fakeTTS{}
	stage := narration.NewStage(tts, fakeProber{seconds: 18.2}, audioIn(dir), logging.NewNop())

	state := pipeline.State{
		RunID: "run-1",
		Parts: []pipeline.Part{{StoryID: "article_001", Script: "Tonight the council voted."}},
	}
	result, err := stage.Execute(context.Background(), state)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	part := result.Parts[0]
	if part.Seconds != 18.2 {
		t.Fatalf("seconds %f", part.Seconds)
	}
	if !strings.HasSuffix(part.AudioRef, "audio_article_001.mp3") {
		t.Fatalf("audio ref %q", part.AudioRef)
	}
	if _, err := os.Stat(part.AudioRef); err != nil {
		t.Fatalf("audio file missing: %v", err)
	}
}

func TestStageSkipsPartsWithAudio(t *testing.T) {
	tts := &fakeTTS{}
	stage := narration.NewStage(tts, fakeProber{seconds: 5}, audioIn(t.TempDir()), logging.NewNop())

	state := pipeline.State{Parts: []pipeline.Part{{
		StoryID:  "article_001",
		Script:   "Already narrated.",
		AudioRef: "existing.mp3",
		Seconds:  9,
	}}}
	result, err := stage.Execute(context.Background(), state)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if tts.calls != 0 {
		t.Fatalf("synthesizer called %d times", tts.calls)
	}
	if result.Parts[0].Seconds != 9 {
		t.Fatalf("existing duration overwritten: %f", result.Parts[0].Seconds)
	}
}

func TestStagePropagatesUnavailability(t *testing.T) {
	tts := &fakeTTS{err: services.Wrap(services.ErrUnavailable, "narrate", "synthesize", "quota exceeded", nil)}
	stage := narration.NewStage(tts, fakeProber{}, audioIn(t.TempDir()), logging.NewNop())

	state := pipeline.State{Parts: []pipeline.Part{{StoryID: "s", Script: "Text."}}}
	_, err := stage.Execute(context.Background(), state)
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestFallbackComputesSilentDuration(t *testing.T) {
	stage := narration.NewFallbackStage(2.5, 3.0, logging.NewNop())

	// 90 words at 2.5 words per second is 36 seconds of narration.
	script := strings.TrimSpace(strings.Repeat("word ", 90))
	state := pipeline.State{Parts: []pipeline.Part{{StoryID: "article_001", Script: script}}}

	result, err := stage.Execute(context.Background(), state)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	part := result.Parts[0]
	if part.Seconds != 36 {
		t.Fatalf("seconds %f, want 36", part.Seconds)
	}
	seconds, ok := renderplan.ParseSilenceRef(part.AudioRef)
	if !ok || seconds != 36 {
		t.Fatalf("audio ref %q", part.AudioRef)
	}
	if !part.Degraded {
		t.Fatal("part not marked degraded")
	}
}

func TestFallbackAppliesFloor(t *testing.T) {
	stage := narration.NewFallbackStage(2.5, 3.0, logging.NewNop())
	state := pipeline.State{Parts: []pipeline.Part{{StoryID: "s", Script: "Two words"}}}

	result, err := stage.Execute(context.Background(), state)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Parts[0].Seconds != 3 {
		t.Fatalf("seconds %f, want floor 3", result.Parts[0].Seconds)
	}
}

func TestFallbackLeavesNarratedPartsAlone(t *testing.T) {
	stage := narration.NewFallbackStage(2.5, 3.0, logging.NewNop())
	state := pipeline.State{Parts: []pipeline.Part{
		{StoryID: "a", Script: "Has audio.", AudioRef: "a.mp3", Seconds: 7},
		{StoryID: "b", Script: "Needs silence here now."},
	}}

	result, err := stage.Execute(context.Background(), state)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Parts[0].Degraded {
		t.Fatal("narrated part marked degraded")
	}
	if !result.Parts[1].Degraded {
		t.Fatal("silent part not marked degraded")
	}
	if !result.Degraded() {
		t.Fatal("state should report degraded")
	}
}
