package main

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"nightshift/internal/config"
	"nightshift/internal/queue"
)

func newScriptCommand(ctx *commandContext) *cobra.Command {
	scriptCmd := &cobra.Command{
		Use:   "script",
		Short: "Manage generated-content scripts",
	}

	scriptCmd.AddCommand(newScriptAddCommand(ctx))
	return scriptCmd
}

func newScriptAddCommand(ctx *commandContext) *cobra.Command {
	var customerID string
	var title string

	cmd := &cobra.Command{
		Use:   "add <script-file>",
		Short: "Queue a script for synthesis and rendering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scriptPath, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(scriptPath)
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}
			if strings.TrimSpace(string(data)) == "" {
				return fmt.Errorf("script %s is empty", scriptPath)
			}

			sum := sha1.Sum(data)
			checksum := hex.EncodeToString(sum[:])

			itemTitle := strings.TrimSpace(title)
			if itemTitle == "" {
				base := filepath.Base(scriptPath)
				itemTitle = strings.TrimSuffix(base, filepath.Ext(base))
			}

			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				item, err := store.NewScriptItem(cmd.Context(), customerID, itemTitle, scriptPath, checksum)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued script as item %d (%s)\n", item.ID, item.Status)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&customerID, "customer", "", "Customer the script belongs to")
	cmd.Flags().StringVar(&title, "title", "", "Published title (defaults to the script file name)")
	_ = cmd.MarkFlagRequired("customer")
	return cmd
}
