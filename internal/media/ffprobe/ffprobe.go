// Package ffprobe shells out to ffprobe for media inspection.
package ffprobe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"newsreel/internal/services"
)

// Prober measures media files with an ffprobe binary.
type Prober struct {
	binary string
}

// New returns a prober using the given executable name.
func New(binary string) Prober {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	return Prober{binary: binary}
}

// Duration returns the container duration of a media file in seconds.
func (p Prober) Duration(ctx context.Context, path string) (float64, error) {
	if strings.TrimSpace(path) == "" {
		return 0, services.Wrap(services.ErrValidation, "", "probe", "empty media path", nil)
	}

	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return 0, services.Wrap(services.ErrExternalTool, "", "probe", fmt.Sprintf("ffprobe %s: %s", path, detail), err)
	}

	raw := strings.TrimSpace(stdout.String())
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "", "probe", fmt.Sprintf("parse duration %q", raw), err)
	}
	if seconds <= 0 {
		return 0, services.Wrap(services.ErrExternalTool, "", "probe", fmt.Sprintf("non-positive duration %f for %s", seconds, path), nil)
	}
	return seconds, nil
}
