package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"newsreel/internal/media/ffprobe"
	"newsreel/internal/narration"
	"newsreel/internal/scripting"
	"newsreel/internal/services/ffmpeg"
	"newsreel/internal/services/llm"
	"newsreel/internal/services/tts"
	"newsreel/internal/sources"
	"newsreel/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		folderID string
		local    bool
		count    int
		combined bool
		mock     bool
		overlay  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Render videos from available stories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var source sources.Source
			if local || folderID != "" {
				source = sources.LocalDir{Root: cfg.Paths.SourceDir}
			} else {
				source = sources.StoreSource{Store: store}
			}

			deps := workflow.Deps{
				Source:  source,
				Prober:  ffprobe.New(cfg.FFprobeBinary()),
				Encoder: ffmpeg.NewEncoder(logger, ffmpeg.WithBinary(cfg.FFmpegBinary())),
			}
			if !mock {
				var generator scripting.Generator
				var synthesizer narration.Synthesizer
				generator = llm.NewClient(llm.Config{
					APIKey:         cfg.LLM.APIKey,
					BaseURL:        cfg.LLM.BaseURL,
					Model:          cfg.LLM.Model,
					Referer:        cfg.LLM.Referer,
					Title:          cfg.LLM.Title,
					TimeoutSeconds: cfg.LLM.TimeoutSeconds,
				})
				synthesizer = tts.NewClient(tts.Config{
					APIKey:         cfg.TTS.APIKey,
					BaseURL:        cfg.TTS.BaseURL,
					VoiceID:        cfg.TTS.VoiceID,
					ModelID:        cfg.TTS.ModelID,
					TimeoutSeconds: cfg.TTS.TimeoutSeconds,
				})
				deps.LLM = generator
				deps.TTS = synthesizer
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			orch := workflow.New(cfg, store, deps, logger)
			results, err := orch.Run(runCtx, workflow.Request{
				FolderID: folderID,
				Count:    count,
				Combined: combined,
				Mock:     mock,
				Overlay:  overlay,
			})
			if err != nil {
				return err
			}

			printRunSummary(cmd, results)

			for _, result := range results {
				if result.Failed() {
					return fmt.Errorf("run %s failed at stage %s after %d attempt(s): %v",
						shortID(result.RunID), result.FailureStage,
						result.Attempts[result.FailureStage], result.Err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&folderID, "folder", "", "Render one specific story folder")
	cmd.Flags().BoolVar(&local, "local", false, "Read stories from the local source directory")
	cmd.Flags().IntVar(&count, "count", 0, "Limit the run to the top N stories")
	cmd.Flags().BoolVar(&combined, "combined", false, "Render one digest video over all selected stories")
	cmd.Flags().BoolVar(&mock, "mock", false, "Run offline: deterministic scripts and silent narration")
	cmd.Flags().BoolVar(&overlay, "overlay", false, "Composite the branding overlay frame")
	return cmd
}

func printRunSummary(cmd *cobra.Command, results []*workflow.Result) {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		for _, story := range result.Stories {
			status := "completed"
			detail := result.Output
			switch {
			case story.Err != nil:
				status = "failed"
				detail = story.Err.Error()
			case result.Failed():
				status = "failed"
				detail = result.Err.Error()
			}
			degraded := ""
			if story.Degraded {
				degraded = "silent"
			}
			rows = append(rows, []string{shortID(result.RunID), result.Mode, story.StoryID, status, degraded, detail})
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"RUN", "MODE", "STORY", "STATUS", "DEGRADED", "RESULT"},
		rows,
	))
}
