package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"newsreel/internal/logging"
	"newsreel/internal/renderplan"
	"newsreel/internal/services"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// Encoder executes compiled render plans with ffmpeg.
type Encoder struct {
	binary string
	run    commandRunner
	logger *slog.Logger
}

// Option configures the encoder.
type Option func(*Encoder)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(e *Encoder) {
		if binary != "" {
			e.binary = binary
		}
	}
}

// WithCommandRunner injects a custom command runner for tests.
func WithCommandRunner(run commandRunner) Option {
	return func(e *Encoder) {
		if run != nil {
			e.run = run
		}
	}
}

// NewEncoder constructs an encoder using defaults.
func NewEncoder(logger *slog.Logger, opts ...Option) *Encoder {
	enc := &Encoder{
		binary: "ffmpeg",
		run:    defaultCommandRunner,
		logger: logging.WithComponent(logger, "render"),
	}
	for _, opt := range opts {
		opt(enc)
	}
	return enc
}

// Render executes the plan. The video is encoded to a temporary file in
// the output directory and renamed into place only after ffmpeg exits
// cleanly, so a failed render never leaves a plausible-looking artifact.
func (e *Encoder) Render(ctx context.Context, plan *renderplan.Plan) error {
	if plan == nil || plan.Output == "" {
		return services.Wrap(services.ErrValidation, "render", "", "no render plan output", nil)
	}

	dir := filepath.Dir(plan.Output)
	base := filepath.Base(plan.Output)
	tmpPath := filepath.Join(dir, ".render-"+base+".tmp")

	args, err := BuildArgs(plan, tmpPath)
	if err != nil {
		return err
	}

	e.logger.Debug("executing ffmpeg",
		logging.Int("segments", len(plan.Segments)),
		logging.Float64("render_seconds", plan.RenderSeconds()),
		logging.String("output", plan.Output),
	)

	if err := e.run(ctx, e.binary, args...); err != nil {
		_ = os.Remove(tmpPath)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrExternalTool, "render", "ffmpeg", "encode failed", err)
	}

	if _, err := os.Stat(tmpPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "render", "ffmpeg", "no output produced", err)
	}
	if err := os.Rename(tmpPath, plan.Output); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("finalize render output: %w", err)
	}

	e.logger.Info("video rendered",
		logging.String("output", plan.Output),
		logging.Float64("seconds", plan.RenderSeconds()),
	)
	return nil
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
