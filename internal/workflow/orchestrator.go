package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"newsreel/internal/assemble"
	"newsreel/internal/config"
	"newsreel/internal/encoding"
	"newsreel/internal/logging"
	"newsreel/internal/narration"
	"newsreel/internal/pipeline"
	"newsreel/internal/queue"
	"newsreel/internal/scripting"
	"newsreel/internal/services"
	"newsreel/internal/sources"
	"newsreel/internal/workspace"
)

// Deps are the collaborator implementations a run needs. LLM and TTS
// may be nil for mock runs.
type Deps struct {
	Source  sources.Source
	LLM     scripting.Generator
	TTS     narration.Synthesizer
	Prober  narration.DurationProber
	Encoder encoding.Renderer
}

// Request describes what the caller wants rendered.
type Request struct {
	FolderID string
	Count    int
	Combined bool
	Mock     bool
	Overlay  bool
}

// StoryOutcome is one story's fate within a run.
type StoryOutcome struct {
	StoryID  string
	Degraded bool
	Err      error
}

// Result summarizes one completed or failed run.
type Result struct {
	RunID        string
	Mode         string
	Output       string
	Degraded     bool
	Attempts     map[string]int
	Stories      []StoryOutcome
	FailureStage string
	Err          error
}

// Failed reports whether the run ended without a published video.
func (r *Result) Failed() bool { return r.Err != nil }

// Orchestrator builds and drives stage graphs over the configured
// collaborators.
type Orchestrator struct {
	cfg    *config.Config
	store  *queue.Store
	deps   Deps
	ws     *workspace.Workspace
	gate   *pipeline.Gate
	logger *slog.Logger
}

// New constructs an orchestrator. Provider-backed stages across all
// concurrent runs share one gate sized by the worker count.
func New(cfg *config.Config, store *queue.Store, deps Deps, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		store:  store,
		deps:   deps,
		ws:     workspace.New(cfg),
		gate:   pipeline.NewGate(cfg.Workflow.WorkerCount),
		logger: logging.WithComponent(logger, "workflow"),
	}
}

// Run resolves the requested stories and renders them: one digest for a
// combined request, otherwise one reel per story. Per-run failures are
// carried in the results so a bad story never aborts its siblings.
func (o *Orchestrator) Run(ctx context.Context, req Request) ([]*Result, error) {
	ids, err := o.selectStories(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, services.Wrap(services.ErrValidation, "", "", "no stories available", nil)
	}

	if req.Combined {
		return []*Result{o.runDigest(ctx, ids, req)}, nil
	}

	results := make([]*Result, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, o.runSingle(ctx, id, req))
	}
	return results, nil
}

// selectStories resolves the run's story list. An explicit folder wins;
// otherwise the source listing is used, narrowed to the top N by the
// editor model when a count is requested.
func (o *Orchestrator) selectStories(ctx context.Context, req Request) ([]string, error) {
	if req.FolderID != "" {
		return []string{req.FolderID}, nil
	}
	ids, err := o.deps.Source.List(ctx)
	if err != nil {
		return nil, err
	}
	if req.Count <= 0 || req.Count >= len(ids) {
		return ids, nil
	}

	previews := make([]scripting.Preview, 0, len(ids))
	for _, id := range ids {
		story, err := o.deps.Source.Fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		previews = append(previews, scripting.NewPreview(id, story.Article))
	}
	var ranker scripting.Generator
	if !req.Mock {
		ranker = o.deps.LLM
	}
	return scripting.SelectTop(ctx, ranker, previews, req.Count, o.logger), nil
}

func (o *Orchestrator) runSingle(ctx context.Context, storyID string, req Request) *Result {
	result := &Result{Mode: queue.ModeSingle, Stories: []StoryOutcome{{StoryID: storyID}}}

	run, err := o.store.NewRun(ctx, queue.ModeSingle, []string{storyID})
	if err != nil {
		result.Err = err
		return result
	}
	result.RunID = run.ID

	dir, err := o.ws.Acquire(run.ID)
	if err != nil {
		o.finishRun(ctx, run, result, pipeline.State{}, err)
		return result
	}
	defer dir.Cleanup()

	graph := o.fullGraph(dir)
	engine, err := pipeline.New(graph,
		pipeline.WithGate(o.gate),
		pipeline.WithLogger(o.logger),
		pipeline.WithObserver(o.persistStatus(run)),
	)
	if err != nil {
		o.finishRun(ctx, run, result, pipeline.State{}, err)
		return result
	}

	state := pipeline.State{
		RunID:   run.ID,
		Mode:    queue.ModeSingle,
		Mock:    req.Mock,
		Overlay: o.overlayEnabled(req),
		Parts:   []pipeline.Part{{StoryID: storyID}},
	}
	final, err := engine.Run(ctx, state)
	o.finishRun(ctx, run, result, final, err)
	return result
}

func (o *Orchestrator) runDigest(ctx context.Context, ids []string, req Request) *Result {
	result := &Result{Mode: queue.ModeCombined}

	run, err := o.store.NewRun(ctx, queue.ModeCombined, ids)
	if err != nil {
		result.Err = err
		return result
	}
	result.RunID = run.ID

	dir, err := o.ws.Acquire(run.ID)
	if err != nil {
		o.finishRun(ctx, run, result, pipeline.State{}, err)
		return result
	}
	defer dir.Cleanup()

	run.Status = queue.StatusSyncing
	_ = o.store.UpdateRun(ctx, run)

	states, outcomes := o.prepareStories(ctx, run.ID, dir, ids, req)
	result.Stories = outcomes

	var parts []pipeline.Part
	attempts := map[string]int{}
	for _, state := range states {
		if state == nil {
			continue
		}
		parts = append(parts, state.Parts...)
		mergeAttempts(attempts, state.Attempts)
	}
	if len(parts) < 2 {
		err := services.Wrap(services.ErrValidation, "assemble", "",
			fmt.Sprintf("digest needs at least 2 prepared stories, have %d", len(parts)), nil)
		o.finishRun(ctx, run, result, pipeline.State{Attempts: attempts}, err)
		return result
	}

	graph := o.digestGraph(dir)
	engine, err := pipeline.New(graph,
		pipeline.WithLogger(o.logger),
		pipeline.WithObserver(o.persistStatus(run)),
	)
	if err != nil {
		o.finishRun(ctx, run, result, pipeline.State{Attempts: attempts}, err)
		return result
	}

	state := pipeline.State{
		RunID:    run.ID,
		Mode:     queue.ModeCombined,
		Mock:     req.Mock,
		Overlay:  o.overlayEnabled(req),
		Parts:    parts,
		Attempts: attempts,
	}
	final, err := engine.Run(ctx, state)
	o.finishRun(ctx, run, result, final, err)
	return result
}

// prepareStories runs sync, script, and narrate for every story as
// isolated parallel runs. The gate keeps provider pressure bounded no
// matter how many stories the digest covers. Results come back in
// digest order; a failed story yields a nil state and its error.
func (o *Orchestrator) prepareStories(ctx context.Context, runID string, dir *workspace.RunDir, ids []string, req Request) ([]*pipeline.State, []StoryOutcome) {
	states := make([]*pipeline.State, len(ids))
	outcomes := make([]StoryOutcome, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			outcomes[i].StoryID = id

			engine, err := pipeline.New(o.prepGraph(dir),
				pipeline.WithGate(o.gate),
				pipeline.WithLogger(o.logger),
			)
			if err != nil {
				outcomes[i].Err = err
				return
			}
			state, err := engine.Run(services.WithStoryID(ctx, id), pipeline.State{
				RunID:   runID,
				Mode:    queue.ModeCombined,
				Mock:    req.Mock,
				Overlay: o.overlayEnabled(req),
				Parts:   []pipeline.Part{{StoryID: id}},
			})
			if err != nil {
				outcomes[i].Err = err
				o.logger.Warn("story dropped from digest",
					logging.String(logging.FieldStoryID, id),
					logging.Error(err),
				)
				return
			}
			states[i] = &state
			outcomes[i].Degraded = state.Degraded()
		}(i, id)
	}
	wg.Wait()
	return states, outcomes
}

// fullGraph wires the complete single-story pipeline.
func (o *Orchestrator) fullGraph(dir *workspace.RunDir) *pipeline.Graph {
	graph := pipeline.NewGraph()
	o.addPrepNodes(graph, dir)
	o.addRenderNodes(graph, dir)
	graph.
		AddEdge(pipeline.Edge{From: "narrate", To: "assemble"}).
		AddEdge(pipeline.Edge{From: "narrate-fallback", To: "assemble"}).
		AddEdge(pipeline.Edge{From: "assemble", To: "render"})
	return graph
}

// prepGraph wires the per-story portion used by digest sub-runs.
func (o *Orchestrator) prepGraph(dir *workspace.RunDir) *pipeline.Graph {
	graph := pipeline.NewGraph()
	o.addPrepNodes(graph, dir)
	return graph
}

// digestGraph wires assemble and render over already-prepared parts.
func (o *Orchestrator) digestGraph(dir *workspace.RunDir) *pipeline.Graph {
	graph := pipeline.NewGraph()
	o.addRenderNodes(graph, dir)
	graph.SetStart("assemble").
		AddEdge(pipeline.Edge{From: "assemble", To: "render"})
	return graph
}

func (o *Orchestrator) addPrepNodes(graph *pipeline.Graph, dir *workspace.RunDir) {
	retry := o.retryPolicy()
	graph.
		AddNode(pipeline.Node{
			Stage: sources.NewStage(o.deps.Source, o.logger),
			Retry: retry,
		}).
		AddNode(pipeline.Node{
			Stage:        scripting.NewStage(o.deps.LLM, o.cfg.Narration.WordsPerSecond, o.logger),
			Retry:        retry,
			UsesProvider: true,
		}).
		AddNode(pipeline.Node{
			Stage: narration.NewStage(o.deps.TTS, o.deps.Prober, func(_, storyID string) string {
				return dir.AudioPath(storyID)
			}, o.logger),
			Retry:        retry,
			Fallback:     "narrate-fallback",
			UsesProvider: true,
		}).
		AddNode(pipeline.Node{
			Stage: narration.NewFallbackStage(o.cfg.Narration.WordsPerSecond, o.cfg.Narration.MinSilenceSeconds, o.logger),
			Retry: pipeline.NoRetry(),
		}).
		AddEdge(pipeline.Edge{From: "sync", To: "script"}).
		AddEdge(pipeline.Edge{From: "script", To: "narrate", When: func(s pipeline.State) bool { return !s.Mock }}).
		AddEdge(pipeline.Edge{From: "script", To: "narrate-fallback", When: func(s pipeline.State) bool { return s.Mock }})
}

func (o *Orchestrator) addRenderNodes(graph *pipeline.Graph, dir *workspace.RunDir) {
	graph.
		AddNode(pipeline.Node{
			Stage: assemble.NewStage(o.cfg.Render, func(pipeline.State) string {
				return dir.RenderPath()
			}, o.logger),
			Retry: pipeline.RetryPolicy{MaxAttempts: 2, Backoff: o.backoff()},
		}).
		AddNode(pipeline.Node{
			Stage: encoding.NewStage(o.deps.Encoder, func(state pipeline.State) string {
				return o.ws.FinalPath(state.Mode, state.RunID, storyIDs(state))
			}, o.ws.Publish, o.logger).WithPlanSink(dir.WritePlan),
			Retry: pipeline.RetryPolicy{MaxAttempts: 2, Backoff: o.backoff()},
		})
}

func (o *Orchestrator) retryPolicy() pipeline.RetryPolicy {
	return pipeline.RetryPolicy{
		MaxAttempts: o.cfg.Workflow.StageMaxAttempts,
		Backoff:     o.backoff(),
	}
}

func (o *Orchestrator) backoff() func(int) time.Duration {
	return pipeline.ExponentialBackoff(time.Duration(o.cfg.Workflow.BackoffBaseSeconds) * time.Second)
}

func (o *Orchestrator) overlayEnabled(req Request) bool {
	return req.Overlay || o.cfg.Render.OverlayEnabled
}

var stageStatus = map[string]queue.Status{
	"sync":             queue.StatusSyncing,
	"script":           queue.StatusScripting,
	"narrate":          queue.StatusNarrating,
	"narrate-fallback": queue.StatusNarrating,
	"assemble":         queue.StatusAssembling,
	"render":           queue.StatusRendering,
}

// persistStatus records stage starts on the run record so `status`
// reflects live progress.
func (o *Orchestrator) persistStatus(run *queue.Run) pipeline.Observer {
	var mu sync.Mutex
	return func(ctx context.Context, event pipeline.Event) {
		if event.Phase != pipeline.PhaseStarted || event.Attempt > 1 {
			return
		}
		status, ok := stageStatus[event.Stage]
		if !ok {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		run.Status = status
		run.SetAttempts(event.State.Attempts)
		if err := o.store.UpdateRun(ctx, run); err != nil {
			o.logger.Warn("run status not persisted", logging.Error(err))
		}
	}
}

// finishRun closes out the run record and mirrors it into the result.
// Persistence survives run cancellation so a canceled run is still
// recorded as failed.
func (o *Orchestrator) finishRun(ctx context.Context, run *queue.Run, result *Result, state pipeline.State, runErr error) {
	ctx = context.WithoutCancel(ctx)
	result.Attempts = state.Attempts
	result.Degraded = state.Degraded()

	if runErr != nil {
		result.Err = runErr
		var terminal *pipeline.TerminalError
		if errors.As(runErr, &terminal) {
			result.FailureStage = terminal.Stage
		}
		run.Status = queue.StatusFailed
		run.FailureStage = result.FailureStage
		run.ErrorMessage = services.Message(runErr)
	} else {
		result.Output = state.Output
		for i := range result.Stories {
			for _, part := range state.Parts {
				if part.StoryID == result.Stories[i].StoryID {
					result.Stories[i].Degraded = part.Degraded
				}
			}
		}
		run.Status = queue.StatusCompleted
		run.FinalFile = state.Output
		run.Degraded = result.Degraded
	}
	run.SetAttempts(state.Attempts)
	if err := o.store.UpdateRun(ctx, run); err != nil {
		o.logger.Warn("run record not finalized",
			logging.String(logging.FieldRunID, run.ID),
			logging.Error(err),
		)
	}
}

func storyIDs(state pipeline.State) []string {
	ids := make([]string, 0, len(state.Parts))
	for _, part := range state.Parts {
		ids = append(ids, part.StoryID)
	}
	return ids
}

func mergeAttempts(dst map[string]int, src map[string]int) {
	for stage, attempts := range src {
		if attempts > dst[stage] {
			dst[stage] = attempts
		}
	}
}
