package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. Provider credentials are
// intentionally not required here: mock mode runs without them and the
// stages report missing keys as configuration errors at execution time.
func (c *Config) Validate() error {
	if err := c.validateNarration(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNarration() error {
	if c.Narration.WordsPerSecond <= 0 {
		return errors.New("narration.words_per_second must be positive")
	}
	if c.Narration.MinSilenceSeconds < 0 {
		return errors.New("narration.min_silence_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return errors.New("render.width and render.height must be positive")
	}
	if c.Render.Width*16 != c.Render.Height*9 {
		return fmt.Errorf("render geometry %dx%d must have a 9:16 aspect ratio", c.Render.Width, c.Render.Height)
	}
	if c.Render.FPS <= 0 {
		return errors.New("render.fps must be positive")
	}
	if c.Render.TransitionSeconds < 0 {
		return errors.New("render.transition_seconds must not be negative")
	}
	if c.Render.ZoomMax < 1 {
		return errors.New("render.zoom_max must be at least 1.0")
	}
	if c.Render.OverlayEnabled && c.Render.OverlayImage == "" {
		return errors.New("render.overlay_image must be set when render.overlay_enabled is true")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.worker_count":         c.Workflow.WorkerCount,
		"workflow.stage_max_attempts":   c.Workflow.StageMaxAttempts,
		"workflow.backoff_base_seconds": c.Workflow.BackoffBaseSeconds,
		"llm.timeout_seconds":           c.LLM.TimeoutSeconds,
		"tts.timeout_seconds":           c.TTS.TimeoutSeconds,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console, or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
