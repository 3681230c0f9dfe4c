package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"nightshift/internal/config"
	"nightshift/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the work queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueuePostsCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearFailedCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				var statuses []queue.Status
				if statusFilter != "" {
					statuses = append(statuses, queue.Status(statusFilter))
				}
				items, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}

				compact := isTerminal(out)
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.CustomerID,
						string(item.SourceType),
						string(item.Status),
						seriesLabel(item),
						displayPath(itemArtifact(item), compact),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Customer", "Source", "Status", "Series", "Artifact"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show items with this status")
	return cmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize queue state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				summary, err := store.Summarize(cmd.Context())
				if err != nil {
					return err
				}
				series, err := store.ListSeries(cmd.Context())
				if err != nil {
					return err
				}

				pendingSplit, failedSeries := 0, 0
				for _, s := range series {
					switch s.Status {
					case queue.SeriesPendingSplit:
						pendingSplit++
					case queue.SeriesFailed:
						failedSeries++
					}
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(
					[]string{"Stage", "Items"},
					[][]string{
						{"pending audio", strconv.Itoa(summary.PendingAudio)},
						{"pending render", strconv.Itoa(summary.PendingRender)},
						{"pending thumbnail", strconv.Itoa(summary.PendingThumbnail)},
						{"ready", strconv.Itoa(summary.Ready)},
						{"scheduled", strconv.Itoa(summary.Scheduled)},
						{"total", strconv.Itoa(summary.Total)},
					},
					[]columnAlignment{alignLeft, alignRight},
				))
				fmt.Fprintf(out, "Series: %d total, %d awaiting split, %d failed\n",
					len(series), pendingSplit, failedSeries)
				return nil
			})
		},
	}
}

func newQueuePostsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "posts",
		Short: "List reserved publication slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				posts, err := store.ListPosts(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(posts) == 0 {
					fmt.Fprintln(out, "No posts scheduled")
					return nil
				}

				rows := make([][]string, 0, len(posts))
				for _, post := range posts {
					rows = append(rows, []string{
						strconv.FormatInt(post.ID, 10),
						post.ScheduledAt.UTC().Format(time.RFC3339),
						post.Platform,
						post.CustomerID,
						strconv.FormatInt(post.ItemID, 10),
						post.ProviderPostID,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Slot (UTC)", "Platform", "Customer", "Item", "Provider Post"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <item-id>",
		Short: "Remove a work item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				removed, err := store.Remove(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("item %d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed item %d\n", id)
				return nil
			})
		},
	}
}

func newQueueClearFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-failed",
		Short: "Delete failed premade series",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				cleared, err := store.ClearFailedSeries(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d failed series\n", cleared)
				return nil
			})
		},
	}
}

func seriesLabel(item *queue.Item) string {
	if item.SeriesID == "" {
		return "-"
	}
	return fmt.Sprintf("%s %d/%d", shortID(item.SeriesID), item.SeriesIndex, item.SeriesCount)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// itemArtifact picks the most advanced artifact the item has produced.
func itemArtifact(item *queue.Item) string {
	switch {
	case item.OutputPath != "":
		return item.OutputPath
	case item.WavPath != "":
		return item.WavPath
	default:
		return item.ScriptPath
	}
}

func displayPath(path string, compact bool) string {
	if path == "" {
		return "-"
	}
	if compact {
		return filepath.Base(path)
	}
	return path
}
