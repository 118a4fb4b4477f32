package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"newsreel/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var statuses []queue.Status
			if failedOnly {
				statuses = []queue.Status{queue.StatusFailed}
			}
			runs, err := store.ListRuns(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				detail := run.FinalFile
				if run.Status == queue.StatusFailed {
					detail = fmt.Sprintf("%s: %s", run.FailureStage, run.ErrorMessage)
				}
				degraded := ""
				if run.Degraded {
					degraded = "silent"
				}
				rows = append(rows, []string{
					shortID(run.ID),
					run.Mode,
					string(run.Status),
					strconv.Itoa(len(run.StoryIDs)),
					degraded,
					run.UpdatedAt.Local().Format("2006-01-02 15:04"),
					detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"RUN", "MODE", "STATUS", "STORIES", "DEGRADED", "UPDATED", "RESULT"},
				rows,
				3,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Show only failed runs")
	return cmd
}
