package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"newsreel/internal/queue"
	"newsreel/internal/sources"
)

func newStoriesCommand(ctx *commandContext) *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "stories",
		Short: "List available stories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var source sources.Source
			if local {
				source = sources.LocalDir{Root: cfg.Paths.SourceDir}
			} else {
				source = sources.StoreSource{Store: store}
			}

			ids, err := source.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No stories available")
				return nil
			}

			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				story, err := source.Fetch(cmd.Context(), id)
				if err != nil {
					rows = append(rows, []string{id, "", err.Error()})
					continue
				}
				preview := scriptPreview(story.Article)
				rows = append(rows, []string{id, strconv.Itoa(len(story.Images)), preview})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"STORY", "IMAGES", "PREVIEW"},
				rows,
				1,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "List stories from the local source directory")
	cmd.AddCommand(newStoriesSyncCommand(ctx))
	return cmd
}

// newStoriesSyncCommand loads the local source folders into the store so
// store-backed runs have something to draw from.
func newStoriesSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Load stories from the source directory into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			source := sources.LocalDir{Root: cfg.Paths.SourceDir}
			ids, err := source.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No story folders under %s\n", cfg.Paths.SourceDir)
				return nil
			}

			synced := 0
			for _, id := range ids {
				story, err := source.Fetch(cmd.Context(), id)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Skipping %s: %v\n", id, err)
					continue
				}
				if err := store.UpsertStory(cmd.Context(), &queue.Story{
					ID:          story.ID,
					ArticleText: story.Article,
					ImagePaths:  story.Images,
				}); err != nil {
					return fmt.Errorf("store story %s: %w", id, err)
				}
				synced++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d of %d stories into the store\n", synced, len(ids))
			return nil
		},
	}
}

func scriptPreview(article string) string {
	const limit = 72
	runes := []rune(article)
	if len(runes) <= limit {
		return article
	}
	return string(runes[:limit]) + "..."
}
