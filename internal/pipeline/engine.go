package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"newsreel/internal/logging"
	"newsreel/internal/services"
)

// Event phases reported to the observer.
const (
	PhaseStarted   = "started"
	PhaseCompleted = "completed"
	PhaseFallback  = "fallback"
	PhaseFailed    = "failed"
)

// Event describes one engine transition for observers (status persistence,
// progress reporting).
type Event struct {
	Stage   string
	Phase   string
	Attempt int
	State   State
	Err     error
}

// Observer receives engine events. Observers must not block.
type Observer func(ctx context.Context, event Event)

// Engine walks a validated graph, applying retry, fallback, and gate
// policy around each stage.
type Engine struct {
	graph    *Graph
	gate     *Gate
	logger   *slog.Logger
	observer Observer
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithGate bounds provider-backed stages.
func WithGate(gate *Gate) Option {
	return func(e *Engine) { e.gate = gate }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver registers an event callback.
func WithObserver(observer Observer) Option {
	return func(e *Engine) { e.observer = observer }
}

// WithSleeper overrides the backoff sleep, used by tests.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// New constructs an engine for the given graph.
func New(graph *Graph, opts ...Option) (*Engine, error) {
	if graph == nil {
		return nil, errors.New("graph is nil")
	}
	if err := graph.Validate(); err != nil {
		return nil, fmt.Errorf("validate graph: %w", err)
	}
	engine := &Engine{
		graph:  graph,
		logger: logging.NewNop(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// Run executes the graph from its start node and returns the final state.
// Cancellation is honored between stages; a canceled run never takes a
// fallback edge.
func (e *Engine) Run(ctx context.Context, initial State) (State, error) {
	current := initial.Clone()
	stageID := e.graph.start
	fallbackUsed := make(map[string]bool)

	for {
		if err := ctx.Err(); err != nil {
			return current, fmt.Errorf("run canceled before stage %s: %w", stageID, err)
		}

		node, ok := e.graph.node(stageID)
		if !ok {
			return current, fmt.Errorf("unknown stage %q", stageID)
		}

		result, attempts, err := e.runStage(ctx, stageID, node, current)
		if err != nil {
			if isContextError(err) {
				return current, &TerminalError{Stage: stageID, Attempts: attempts, Err: err}
			}
			if node.Fallback != "" && !fallbackUsed[stageID] {
				fallbackUsed[stageID] = true
				e.logger.Warn("stage failed, taking fallback",
					logging.String(logging.FieldStage, stageID),
					logging.String("fallback", node.Fallback),
					logging.Int(logging.FieldAttempt, attempts),
					logging.Error(err),
				)
				e.notify(ctx, Event{Stage: stageID, Phase: PhaseFallback, Attempt: attempts, State: current, Err: err})
				stageID = node.Fallback
				continue
			}
			e.notify(ctx, Event{Stage: stageID, Phase: PhaseFailed, Attempt: attempts, State: current, Err: err})
			return current, &TerminalError{Stage: stageID, Attempts: attempts, Err: err}
		}

		current = result
		e.notify(ctx, Event{Stage: stageID, Phase: PhaseCompleted, Attempt: attempts, State: current})

		next, more, err := e.graph.next(stageID, current)
		if err != nil {
			e.notify(ctx, Event{Stage: stageID, Phase: PhaseFailed, State: current, Err: err})
			return current, err
		}
		if !more {
			return current, nil
		}
		stageID = next
	}
}

func (e *Engine) runStage(ctx context.Context, stageID string, node Node, current State) (State, int, error) {
	stageCtx := services.WithStage(ctx, stageID)
	maxAttempts := node.Retry.maxAttempts()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		e.notify(stageCtx, Event{Stage: stageID, Phase: PhaseStarted, Attempt: attempt, State: current})

		result, err := e.executeOnce(stageCtx, node, current.Clone())
		if err == nil {
			return result.WithAttempt(stageID, attempt), attempt, nil
		}
		lastErr = err

		kind := services.Classify(err)
		if kind != services.KindTransient {
			e.logger.Error("stage failed without retry",
				logging.String(logging.FieldStage, stageID),
				logging.String("kind", string(kind)),
				logging.Error(err),
			)
			return State{}, attempt, err
		}
		if attempt == maxAttempts {
			break
		}

		delay := node.Retry.delay(attempt)
		e.logger.Warn("stage attempt failed, retrying",
			logging.String(logging.FieldStage, stageID),
			logging.Int(logging.FieldAttempt, attempt),
			logging.Duration("backoff", delay),
			logging.Error(err),
		)
		if err := e.sleep(stageCtx, delay); err != nil {
			return State{}, attempt, err
		}
	}
	return State{}, maxAttempts, lastErr
}

func (e *Engine) executeOnce(ctx context.Context, node Node, snapshot State) (State, error) {
	if node.UsesProvider {
		if err := e.gate.Acquire(ctx); err != nil {
			return State{}, err
		}
		defer e.gate.Release()
	}
	return node.Stage.Execute(ctx, snapshot)
}

func (e *Engine) notify(ctx context.Context, event Event) {
	if e.observer != nil {
		e.observer(ctx, event)
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
