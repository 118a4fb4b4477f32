package queue_test

import (
	"context"
	"path/filepath"
	"testing"

	"newsreel/internal/queue"
)

func openStore(t *testing.T) *queue.Store {
	t.Helper()
	store, err := queue.OpenPath(filepath.Join(t.TempDir(), "newsreel.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.NewRun(ctx, queue.ModeSingle, []string{"article_001"})
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	if run.Status != queue.StatusPending {
		t.Fatalf("new run status %q", run.Status)
	}
	if len(run.StoryIDs) != 1 || run.StoryIDs[0] != "article_001" {
		t.Fatalf("unexpected story ids: %v", run.StoryIDs)
	}

	run.Status = queue.StatusNarrating
	run.Degraded = true
	run.SetAttempts(map[string]int{"narrate": 3})
	if err := store.UpdateRun(ctx, run); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}

	loaded, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if loaded == nil {
		t.Fatal("run missing after update")
	}
	if loaded.Status != queue.StatusNarrating || !loaded.Degraded {
		t.Fatalf("unexpected run after update: %+v", loaded)
	}
	if got := loaded.Attempts()["narrate"]; got != 3 {
		t.Fatalf("attempt counter %d, want 3", got)
	}

	missing, err := store.GetRun(ctx, "no-such-run")
	if err != nil {
		t.Fatalf("GetRun missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing run, got %+v", missing)
	}
}

func TestListRunsFiltersByStatus(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first, err := store.NewRun(ctx, queue.ModeSingle, []string{"a"})
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	if _, err := store.NewRun(ctx, queue.ModeCombined, []string{"a", "b"}); err != nil {
		t.Fatalf("NewRun: %v", err)
	}

	first.Status = queue.StatusFailed
	first.FailureStage = "render"
	first.ErrorMessage = "ffmpeg exited 1"
	if err := store.UpdateRun(ctx, first); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}

	failed, err := store.ListRuns(ctx, queue.StatusFailed)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != first.ID {
		t.Fatalf("unexpected failed runs: %v", failed)
	}
	if failed[0].FailureStage != "render" {
		t.Fatalf("failure stage %q", failed[0].FailureStage)
	}

	all, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(all))
	}
}

func TestStoryUpsertAndList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	story := &queue.Story{
		ID:          "article_007",
		Headline:    "MARKETS RALLY ON RATE CUT",
		ArticleText: "Stocks climbed sharply after the announcement.",
		ImagePaths:  []string{"img/1.jpg", "img/2.jpg"},
	}
	if err := store.UpsertStory(ctx, story); err != nil {
		t.Fatalf("UpsertStory: %v", err)
	}

	story.Headline = "MARKETS SURGE ON RATE CUT"
	if err := store.UpsertStory(ctx, story); err != nil {
		t.Fatalf("UpsertStory update: %v", err)
	}

	loaded, err := store.GetStory(ctx, "article_007")
	if err != nil {
		t.Fatalf("GetStory: %v", err)
	}
	if loaded == nil || loaded.Headline != "MARKETS SURGE ON RATE CUT" {
		t.Fatalf("unexpected story: %+v", loaded)
	}
	if len(loaded.ImagePaths) != 2 {
		t.Fatalf("image paths lost: %v", loaded.ImagePaths)
	}

	stories, err := store.ListStories(ctx)
	if err != nil {
		t.Fatalf("ListStories: %v", err)
	}
	if len(stories) != 1 {
		t.Fatalf("expected 1 story, got %d", len(stories))
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Rendering "); !ok || status != queue.StatusRendering {
		t.Fatalf("ParseStatus: %q %v", status, ok)
	}
	if _, ok := queue.ParseStatus("bogus"); ok {
		t.Fatal("expected unknown status to fail")
	}
}
