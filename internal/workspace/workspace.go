package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"newsreel/internal/config"
	"newsreel/internal/queue"
	"newsreel/internal/renderplan"
	"newsreel/internal/services"
)

// Workspace hands out per-run staging directories and decides final
// artifact names.
type Workspace struct {
	stagingRoot string
	outputDir   string
}

// New builds a workspace over the configured directories.
func New(cfg *config.Config) *Workspace {
	return &Workspace{
		stagingRoot: cfg.Paths.StagingDir,
		outputDir:   cfg.Paths.OutputDir,
	}
}

// RunDir is one run's isolated staging directory, held under an
// advisory lock until released.
type RunDir struct {
	Path string
	lock *flock.Flock
}

// Acquire creates and locks the staging directory for a run. A second
// acquisition of the same run fails rather than sharing the directory.
func (w *Workspace) Acquire(runID string) (*RunDir, error) {
	dir := filepath.Join(w.stagingRoot, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, ".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock run directory: %w", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrValidation, "", "workspace", fmt.Sprintf("run %s already in progress", runID), nil)
	}
	return &RunDir{Path: dir, lock: lock}, nil
}

// AudioPath is where a story's narration audio lands.
func (d *RunDir) AudioPath(storyID string) string {
	return filepath.Join(d.Path, "audio_"+storyID+".mp3")
}

// RenderPath is the staging location the encoder writes to before the
// video is published.
func (d *RunDir) RenderPath() string {
	return filepath.Join(d.Path, "render.mp4")
}

// WritePlan drops the resolved timeline next to the run's artifacts for
// inspection.
func (d *RunDir) WritePlan(plan *renderplan.Plan) error {
	data, err := plan.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(d.Path, "plan.json"), data, 0o644); err != nil {
		return fmt.Errorf("write plan artifact: %w", err)
	}
	return nil
}

// Release drops the run lock. The directory itself is kept.
func (d *RunDir) Release() error {
	if d.lock == nil {
		return nil
	}
	return d.lock.Unlock()
}

// Cleanup removes the staging directory after releasing the lock. Used
// after a successful publish or to discard a failed run's partial
// artifacts.
func (d *RunDir) Cleanup() error {
	if err := d.Release(); err != nil {
		return err
	}
	return os.RemoveAll(d.Path)
}

// FinalPath is the deterministic published name: one reel per story, or
// one digest per combined run.
func (w *Workspace) FinalPath(mode, runID string, storyIDs []string) string {
	if mode == queue.ModeCombined || len(storyIDs) != 1 {
		return filepath.Join(w.outputDir, fmt.Sprintf("digest_%s.mp4", runID))
	}
	return filepath.Join(w.outputDir, fmt.Sprintf("reel_%s.mp4", storyIDs[0]))
}

// Publish moves a finished render into the output directory. Rename is
// attempted first; a copy covers staging and output living on different
// filesystems.
func (w *Workspace) Publish(renderPath, finalPath string) error {
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.Rename(renderPath, finalPath); err == nil {
		return nil
	}
	if err := copyFile(renderPath, finalPath); err != nil {
		return err
	}
	return os.Remove(renderPath)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open render: %w", err)
	}
	defer in.Close()

	tmp := dst + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("copy render: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close output: %w", err)
	}
	return os.Rename(tmp, dst)
}
