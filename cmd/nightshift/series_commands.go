package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"nightshift/internal/config"
	"nightshift/internal/queue"
)

func newSeriesCommand(ctx *commandContext) *cobra.Command {
	seriesCmd := &cobra.Command{
		Use:   "series",
		Short: "Manage premade video series",
	}

	seriesCmd.AddCommand(newSeriesAddCommand(ctx))
	seriesCmd.AddCommand(newSeriesListCommand(ctx))
	return seriesCmd
}

func newSeriesAddCommand(ctx *commandContext) *cobra.Command {
	var customerID string
	var segmentSeconds float64
	var integrationID string

	cmd := &cobra.Command{
		Use:   "add <video-file>",
		Short: "Queue a premade video for splitting and scheduling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourcePath, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(sourcePath); err != nil {
				return fmt.Errorf("source video: %w", err)
			}
			if segmentSeconds <= 0 {
				return fmt.Errorf("segment seconds must be positive")
			}

			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				series, err := store.NewSeries(cmd.Context(), uuid.NewString(), customerID, sourcePath, segmentSeconds, integrationID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued series %s (%s)\n", series.ID, series.Status)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&customerID, "customer", "", "Customer the video belongs to")
	cmd.Flags().Float64Var(&segmentSeconds, "segment-seconds", 60, "Target length of each segment")
	cmd.Flags().StringVar(&integrationID, "integration", "", "Explicit posting integration for every segment")
	_ = cmd.MarkFlagRequired("customer")
	return cmd
}

func newSeriesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List premade series",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				series, err := store.ListSeries(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(series) == 0 {
					fmt.Fprintln(out, "No series queued")
					return nil
				}

				compact := isTerminal(out)
				rows := make([][]string, 0, len(series))
				for _, s := range series {
					splitAt := "-"
					if s.SplitAt != nil {
						splitAt = s.SplitAt.UTC().Format(time.RFC3339)
					}
					detail := displayPath(s.SourcePath, compact)
					if s.ErrorMessage != "" {
						detail = s.ErrorMessage
					}
					rows = append(rows, []string{
						shortID(s.ID),
						s.CustomerID,
						strconv.FormatFloat(s.SegmentSeconds, 'f', -1, 64),
						string(s.Status),
						splitAt,
						detail,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Series", "Customer", "Segment (s)", "Status", "Split At", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}
