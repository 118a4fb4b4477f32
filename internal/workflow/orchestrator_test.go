package workflow_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"newsreel/internal/config"
	"newsreel/internal/logging"
	"newsreel/internal/queue"
	"newsreel/internal/renderplan"
	"newsreel/internal/services"
	"newsreel/internal/sources"
	"newsreel/internal/testsupport"
	"newsreel/internal/workflow"
)

const article = "The city council approved the waterfront plan late on Tuesday. " +
	"Supporters called it a turning point for the harbor district. " +
	"Opponents warned about rising rents near the docks. " +
	"Construction is expected to begin in the spring."

type fakeEncoder struct {
	renders atomic.Int32
	fail    bool
}

func (f *fakeEncoder) Render(_ context.Context, plan *renderplan.Plan) error {
	f.renders.Add(1)
	if f.fail {
		return services.Wrap(services.ErrExternalTool, "render", "ffmpeg", "encode failed", nil)
	}
	return os.WriteFile(plan.Output, []byte("video"), 0o644)
}

type countingTTS struct {
	calls atomic.Int32
	err   error
}

func (c *countingTTS) Synthesize(_ context.Context, _, outPath string) error {
	c.calls.Add(1)
	if c.err != nil {
		return c.err
	}
	return os.WriteFile(outPath, []byte("audio"), 0o644)
}

type fixedProber struct{ seconds float64 }

func (f fixedProber) Duration(context.Context, string) (float64, error) {
	return f.seconds, nil
}

type fakeLLM struct{}

func (fakeLLM) CompleteJSON(context.Context, string, string) (string, error) {
	return `{"script": "` + article + `", "headline": "Waterfront plan approved"}`, nil
}

func newOrchestrator(t *testing.T, cfg *config.Config, tts *countingTTS, enc *fakeEncoder) (*workflow.Orchestrator, *queue.Store) {
	t.Helper()
	cfg.Workflow.BackoffBaseSeconds = 0
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	deps := workflow.Deps{
		Source:  sources.LocalDir{Root: cfg.Paths.SourceDir},
		Prober:  fixedProber{seconds: 12},
		Encoder: enc,
	}
	if tts != nil {
		deps.LLM = fakeLLM{}
		deps.TTS = tts
	}
	return workflow.New(cfg, store, deps, logging.NewNop()), store
}

func TestRunSingleMock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteStoryFolder(t, cfg.Paths.SourceDir, "article_001", article, 2)
	enc := &fakeEncoder{}
	orch, store := newOrchestrator(t, cfg, nil, enc)

	results, err := orch.Run(context.Background(), workflow.Request{FolderID: "article_001", Mock: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results %d", len(results))
	}
	res := results[0]
	if res.Failed() {
		t.Fatalf("run failed: %v", res.Err)
	}
	if filepath.Base(res.Output) != "reel_article_001.mp4" {
		t.Fatalf("output %q", res.Output)
	}
	if _, err := os.Stat(res.Output); err != nil {
		t.Fatalf("published video missing: %v", err)
	}
	if !res.Degraded {
		t.Fatal("mock run should be degraded")
	}

	run, err := store.GetRun(context.Background(), res.RunID)
	if err != nil || run == nil {
		t.Fatalf("run record: %v", err)
	}
	if run.Status != queue.StatusCompleted {
		t.Fatalf("run status %s", run.Status)
	}
	if !run.Degraded || run.FinalFile != res.Output {
		t.Fatalf("run record %+v", run)
	}
	if run.Attempts()["render"] != 1 {
		t.Fatalf("attempts %v", run.Attempts())
	}
}

func TestRunMockSkipsConfiguredTTS(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteStoryFolder(t, cfg.Paths.SourceDir, "article_001", article, 1)
	tts := &countingTTS{}
	orch, _ := newOrchestrator(t, cfg, tts, &fakeEncoder{})

	results, err := orch.Run(context.Background(), workflow.Request{FolderID: "article_001", Mock: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Failed() {
		t.Fatalf("run failed: %v", results[0].Err)
	}
	if tts.calls.Load() != 0 {
		t.Fatalf("tts called %d times despite mock flag", tts.calls.Load())
	}
}

func TestRunFallsBackWhenNarrationUnavailable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteStoryFolder(t, cfg.Paths.SourceDir, "article_001", article, 1)
	tts := &countingTTS{err: services.Wrap(services.ErrUnavailable, "narrate", "synthesize", "quota exceeded", nil)}
	orch, store := newOrchestrator(t, cfg, tts, &fakeEncoder{})

	// Real narration path: no mock flag, provider fails with quota.
	results, err := orch.Run(context.Background(), workflow.Request{FolderID: "article_001"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	res := results[0]
	if res.Failed() {
		t.Fatalf("narration unavailability must not fail the run: %v", res.Err)
	}
	if !res.Degraded {
		t.Fatal("silent substitution should mark the run degraded")
	}
	if tts.calls.Load() != 1 {
		t.Fatalf("tts called %d times, quota errors must not retry", tts.calls.Load())
	}

	run, _ := store.GetRun(context.Background(), res.RunID)
	if run.Status != queue.StatusCompleted || !run.Degraded {
		t.Fatalf("run record %+v", run)
	}
}

func TestRunDigest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	for _, id := range []string{"article_001", "article_002", "article_003"} {
		testsupport.WriteStoryFolder(t, cfg.Paths.SourceDir, id, article, 1)
	}
	enc := &fakeEncoder{}
	orch, store := newOrchestrator(t, cfg, nil, enc)

	results, err := orch.Run(context.Background(), workflow.Request{Combined: true, Mock: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("digest should be one run, got %d", len(results))
	}
	res := results[0]
	if res.Failed() {
		t.Fatalf("digest failed: %v", res.Err)
	}
	if !strings.HasPrefix(filepath.Base(res.Output), "digest_") {
		t.Fatalf("digest output %q", res.Output)
	}
	if len(res.Stories) != 3 {
		t.Fatalf("story outcomes %d", len(res.Stories))
	}
	if res.Stories[0].StoryID != "article_001" || res.Stories[2].StoryID != "article_003" {
		t.Fatalf("digest order lost: %+v", res.Stories)
	}
	if enc.renders.Load() != 1 {
		t.Fatalf("encoder invoked %d times for one digest", enc.renders.Load())
	}

	run, _ := store.GetRun(context.Background(), res.RunID)
	if run.Mode != queue.ModeCombined || len(run.StoryIDs) != 3 {
		t.Fatalf("run record %+v", run)
	}
}

func TestRunDigestNeedsTwoStories(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteStoryFolder(t, cfg.Paths.SourceDir, "article_001", article, 1)
	orch, store := newOrchestrator(t, cfg, nil, &fakeEncoder{})

	results, err := orch.Run(context.Background(), workflow.Request{Combined: true, Mock: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	res := results[0]
	if !res.Failed() {
		t.Fatal("one-story digest should fail")
	}

	run, _ := store.GetRun(context.Background(), res.RunID)
	if run.Status != queue.StatusFailed {
		t.Fatalf("run status %s", run.Status)
	}
	if run.ErrorMessage == "" {
		t.Fatal("failure cause not recorded")
	}
}

func TestRunCountSelectsFirstStoriesWithoutRanker(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	for _, id := range []string{"article_001", "article_002", "article_003", "article_004"} {
		testsupport.WriteStoryFolder(t, cfg.Paths.SourceDir, id, article, 1)
	}
	orch, _ := newOrchestrator(t, cfg, nil, &fakeEncoder{})

	results, err := orch.Run(context.Background(), workflow.Request{Combined: true, Mock: true, Count: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	res := results[0]
	if res.Failed() {
		t.Fatalf("digest failed: %v", res.Err)
	}
	if len(res.Stories) != 2 {
		t.Fatalf("selected %d stories, want 2", len(res.Stories))
	}
}

func TestRunRenderFailureMarksRunFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteStoryFolder(t, cfg.Paths.SourceDir, "article_001", article, 1)
	enc := &fakeEncoder{fail: true}
	orch, store := newOrchestrator(t, cfg, nil, enc)

	results, err := orch.Run(context.Background(), workflow.Request{FolderID: "article_001", Mock: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	res := results[0]
	if !res.Failed() {
		t.Fatal("render failure should fail the run")
	}
	if res.FailureStage != "render" {
		t.Fatalf("failure stage %q", res.FailureStage)
	}
	// External tool failures are transient: the render stage gets its
	// one extra attempt before giving up.
	if enc.renders.Load() != 2 {
		t.Fatalf("encoder tried %d times, want 2", enc.renders.Load())
	}

	run, _ := store.GetRun(context.Background(), res.RunID)
	if run.Status != queue.StatusFailed || run.FailureStage != "render" {
		t.Fatalf("run record %+v", run)
	}
	if run.FinalFile != "" {
		t.Fatalf("failed run recorded artifact %q", run.FinalFile)
	}
}
