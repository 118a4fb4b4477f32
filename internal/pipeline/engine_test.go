package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"newsreel/internal/pipeline"
	"newsreel/internal/services"
)

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func stage(id string, fn func(ctx context.Context, state pipeline.State) (pipeline.State, error)) pipeline.Stage {
	return pipeline.StageFunc{Name: id, Fn: fn}
}

func passthrough(id string) pipeline.Stage {
	return stage(id, func(_ context.Context, state pipeline.State) (pipeline.State, error) {
		return state, nil
	})
}

func TestEngineRetriesTransientWithSameSnapshot(t *testing.T) {
	var calls int
	var seen []string
	flaky := stage("narrate", func(_ context.Context, state pipeline.State) (pipeline.State, error) {
		calls++
		seen = append(seen, state.Parts[0].Script)
		// Mutating the snapshot must not leak into the next attempt.
		state.Parts[0].Script = "mutated"
		if calls < 3 {
			return pipeline.State{}, services.Wrap(services.ErrTransient, "narrate", "synthesize", "rate limited", nil)
		}
		state.Parts[0].AudioRef = "audio.mp3"
		return state, nil
	})

	graph := pipeline.NewGraph().
		AddNode(pipeline.Node{Stage: flaky, Retry: pipeline.RetryPolicy{MaxAttempts: 3}})
	engine, err := pipeline.New(graph, pipeline.WithSleeper(noSleep))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	initial := pipeline.State{Parts: []pipeline.Part{{StoryID: "s1", Script: "original"}}}
	final, err := engine.Run(context.Background(), initial)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	for i, script := range seen {
		if script != "original" {
			t.Fatalf("attempt %d saw mutated snapshot %q", i+1, script)
		}
	}
	if final.Attempts["narrate"] != 3 {
		t.Fatalf("attempt counter %d, want 3", final.Attempts["narrate"])
	}
	if final.Parts[0].AudioRef != "audio.mp3" {
		t.Fatalf("result state lost: %+v", final.Parts[0])
	}
}

func TestEngineSkipsRetryOnFatal(t *testing.T) {
	var calls int
	fatal := stage("script", func(_ context.Context, state pipeline.State) (pipeline.State, error) {
		calls++
		return pipeline.State{}, services.Wrap(services.ErrFatalProvider, "script", "", "invalid api key", nil)
	})

	graph := pipeline.NewGraph().
		AddNode(pipeline.Node{Stage: fatal, Retry: pipeline.RetryPolicy{MaxAttempts: 5}})
	engine, err := pipeline.New(graph, pipeline.WithSleeper(noSleep))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = engine.Run(context.Background(), pipeline.State{})
	var terminal *pipeline.TerminalError
	if !errors.As(err, &terminal) {
		t.Fatalf("expected terminal error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("fatal error should not retry, got %d calls", calls)
	}
	if terminal.Stage != "script" || terminal.Attempts != 1 {
		t.Fatalf("unexpected terminal detail: %+v", terminal)
	}
}

func TestEngineTakesFallbackOnUnavailable(t *testing.T) {
	var primaryCalls int
	primary := stage("narrate", func(_ context.Context, state pipeline.State) (pipeline.State, error) {
		primaryCalls++
		return pipeline.State{}, services.Wrap(services.ErrUnavailable, "narrate", "", "quota exceeded", nil)
	})
	fallback := stage("narrate-fallback", func(_ context.Context, state pipeline.State) (pipeline.State, error) {
		state.Parts[0].AudioRef = "silence:12"
		state.Parts[0].Degraded = true
		return state, nil
	})

	graph := pipeline.NewGraph().
		AddNode(pipeline.Node{Stage: primary, Retry: pipeline.RetryPolicy{MaxAttempts: 3}, Fallback: "narrate-fallback"}).
		AddNode(pipeline.Node{Stage: fallback, Retry: pipeline.NoRetry()})
	engine, err := pipeline.New(graph, pipeline.WithSleeper(noSleep))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	final, err := engine.Run(context.Background(), pipeline.State{Parts: []pipeline.Part{{StoryID: "s1"}}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if primaryCalls != 1 {
		t.Fatalf("unavailable should not retry, got %d calls", primaryCalls)
	}
	if final.Parts[0].AudioRef != "silence:12" || !final.Degraded() {
		t.Fatalf("fallback result missing: %+v", final.Parts[0])
	}
}

func TestEngineFallbackTakenAtMostOnce(t *testing.T) {
	primary := stage("narrate", func(_ context.Context, state pipeline.State) (pipeline.State, error) {
		return pipeline.State{}, services.Wrap(services.ErrUnavailable, "narrate", "", "quota exceeded", nil)
	})
	var fallbackCalls int
	failingFallback := stage("narrate-fallback", func(_ context.Context, state pipeline.State) (pipeline.State, error) {
		fallbackCalls++
		return pipeline.State{}, services.Wrap(services.ErrFatalProvider, "narrate-fallback", "", "broken", nil)
	})

	graph := pipeline.NewGraph().
		AddNode(pipeline.Node{Stage: primary, Fallback: "narrate-fallback"}).
		AddNode(pipeline.Node{Stage: failingFallback})
	engine, err := pipeline.New(graph, pipeline.WithSleeper(noSleep))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = engine.Run(context.Background(), pipeline.State{})
	var terminal *pipeline.TerminalError
	if !errors.As(err, &terminal) {
		t.Fatalf("expected terminal error, got %v", err)
	}
	if terminal.Stage != "narrate-fallback" {
		t.Fatalf("terminal stage %q", terminal.Stage)
	}
	if fallbackCalls != 1 {
		t.Fatalf("fallback executed %d times", fallbackCalls)
	}
}

func TestEngineRoutesByPredicate(t *testing.T) {
	var order []string
	record := func(id string) pipeline.Stage {
		return stage(id, func(_ context.Context, state pipeline.State) (pipeline.State, error) {
			order = append(order, id)
			return state, nil
		})
	}

	graph := pipeline.NewGraph().
		AddNode(pipeline.Node{Stage: record("script")}).
		AddNode(pipeline.Node{Stage: record("narrate")}).
		AddNode(pipeline.Node{Stage: record("narrate-fallback")}).
		AddNode(pipeline.Node{Stage: record("assemble")}).
		AddEdge(pipeline.Edge{From: "script", To: "narrate", When: func(s pipeline.State) bool { return !s.Mock }}).
		AddEdge(pipeline.Edge{From: "script", To: "narrate-fallback", When: func(s pipeline.State) bool { return s.Mock }}).
		AddEdge(pipeline.Edge{From: "narrate", To: "assemble"}).
		AddEdge(pipeline.Edge{From: "narrate-fallback", To: "assemble"})

	engine, err := pipeline.New(graph, pipeline.WithSleeper(noSleep))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := engine.Run(context.Background(), pipeline.State{Mock: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"script", "narrate-fallback", "assemble"}
	if len(order) != len(want) {
		t.Fatalf("order %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order %v, want %v", order, want)
		}
	}
}

func TestEngineFailsOnAmbiguousEdges(t *testing.T) {
	graph := pipeline.NewGraph().
		AddNode(pipeline.Node{Stage: passthrough("script")}).
		AddNode(pipeline.Node{Stage: passthrough("a")}).
		AddNode(pipeline.Node{Stage: passthrough("b")}).
		AddEdge(pipeline.Edge{From: "script", To: "a"}).
		AddEdge(pipeline.Edge{From: "script", To: "b"})

	engine, err := pipeline.New(graph, pipeline.WithSleeper(noSleep))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = engine.Run(context.Background(), pipeline.State{})
	var graphErr *pipeline.GraphError
	if !errors.As(err, &graphErr) {
		t.Fatalf("expected graph error, got %v", err)
	}
	if graphErr.Matches != 2 {
		t.Fatalf("matches %d, want 2", graphErr.Matches)
	}
}

func TestEngineHonorsCancellationBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := stage("sync", func(_ context.Context, state pipeline.State) (pipeline.State, error) {
		cancel()
		return state, nil
	})
	var secondRan atomic.Bool
	second := stage("script", func(_ context.Context, state pipeline.State) (pipeline.State, error) {
		secondRan.Store(true)
		return state, nil
	})

	graph := pipeline.NewGraph().
		AddNode(pipeline.Node{Stage: first}).
		AddNode(pipeline.Node{Stage: second}).
		AddEdge(pipeline.Edge{From: "sync", To: "script"})

	engine, err := pipeline.New(graph, pipeline.WithSleeper(noSleep))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = engine.Run(ctx, pipeline.State{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if secondRan.Load() {
		t.Fatal("stage ran after cancellation")
	}
}

func TestEngineRejectsInvalidGraph(t *testing.T) {
	graph := pipeline.NewGraph().
		AddNode(pipeline.Node{Stage: passthrough("sync"), Fallback: "missing"})
	if _, err := pipeline.New(graph); err == nil {
		t.Fatal("expected validation error for unknown fallback")
	}
}

func TestEngineObserverSeesLifecycle(t *testing.T) {
	var mu sync.Mutex
	var phases []string
	observer := func(_ context.Context, event pipeline.Event) {
		mu.Lock()
		phases = append(phases, event.Stage+":"+event.Phase)
		mu.Unlock()
	}

	graph := pipeline.NewGraph().
		AddNode(pipeline.Node{Stage: passthrough("sync")})
	engine, err := pipeline.New(graph, pipeline.WithObserver(observer), pipeline.WithSleeper(noSleep))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := engine.Run(context.Background(), pipeline.State{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"sync:started", "sync:completed"}
	if len(phases) != len(want) {
		t.Fatalf("phases %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phases %v, want %v", phases, want)
		}
	}
}
