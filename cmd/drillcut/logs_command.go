package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"drillcut/internal/config"
	"drillcut/internal/ledger"
	"drillcut/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var runPrefix string
	var unit string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the latest drillcut log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := logs.Latest(cfg.Paths.LogDir)
			if err != nil {
				return err
			}
			filter := logs.Filter{Unit: unit}
			if runPrefix != "" {
				runID, err := resolveRun(cmd.Context(), ctx, runPrefix)
				if err != nil {
					return err
				}
				// Console lines carry the short form; JSON lines contain it.
				filter.RunID = shortID(runID)
			}

			out := cmd.OutOrStdout()
			recent, offset, err := logs.Last(path, lines, filter)
			if err != nil {
				return err
			}
			for _, line := range recent {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			err = logs.Follow(cmd.Context(), path, offset, 250*time.Millisecond, filter, func(line string) {
				fmt.Fprintln(out, line)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&runPrefix, "run", "", "Only lines from this run (ID or prefix)")
	cmd.Flags().StringVar(&unit, "unit", "", "Only lines for this recording or clip")
	return cmd
}

func resolveRun(ctx context.Context, c *commandContext, prefix string) (string, error) {
	var id string
	err := c.withLedger(func(_ *config.Config, store *ledger.Store) error {
		var err error
		id, err = store.ResolveRunID(ctx, prefix)
		return err
	})
	return id, err
}
