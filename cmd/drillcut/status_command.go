package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"drillcut/internal/config"
	"drillcut/internal/ledger"
	"drillcut/internal/preflight"
	"drillcut/internal/segment"
)

const failureWindow = 24 * time.Hour

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show dependency checks, pending recordings, and the last run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(cfg *config.Config, store *ledger.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				var lines []string

				lines = append(lines, renderSectionHeader("Environment", colorize)...)
				for _, result := range preflight.RunAll(cfg) {
					kind := statusOK
					if !result.Passed {
						kind = statusError
					}
					lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
				}

				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Recordings", colorize)...)
				lines = append(lines, recordingLines(cfg, colorize)...)

				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Ledger", colorize)...)
				runLines, err := ledgerLines(cmd, store, colorize)
				if err != nil {
					return err
				}
				lines = append(lines, runLines...)

				fmt.Fprintln(out, strings.Join(lines, "\n"))
				return nil
			})
		},
	}
}

func recordingLines(cfg *config.Config, colorize bool) []string {
	recordings, rejected, err := segment.Discover(cfg.Paths.SourceDir, cfg.Segmenter.SourceExtensions)
	if err != nil {
		return []string{renderStatusLine("Source", statusError, err.Error(), colorize)}
	}
	lines := []string{renderStatusLine("Source", statusInfo, cfg.Paths.SourceDir, colorize)}
	kind := statusOK
	if len(recordings) == 0 {
		kind = statusWarn
	}
	lines = append(lines, renderStatusLine("Numbered", kind, fmt.Sprintf("%d recordings", len(recordings)), colorize))
	if len(rejected) > 0 {
		names := make([]string, 0, len(rejected))
		for _, r := range rejected {
			names = append(names, r.Name)
		}
		lines = append(lines, renderStatusLine("Unnumbered", statusWarn, strings.Join(names, ", "), colorize))
	}
	return lines
}

func ledgerLines(cmd *cobra.Command, store *ledger.Store, colorize bool) ([]string, error) {
	runs, err := store.RecentRuns(cmd.Context(), 1)
	if err != nil {
		return nil, fmt.Errorf("load runs: %w", err)
	}
	lines := []string{renderStatusLine("Database", statusInfo, store.Path(), colorize)}
	if len(runs) == 0 {
		return append(lines, renderStatusLine("Last run", statusInfo, "none recorded", colorize)), nil
	}
	last := runs[0]
	kind := statusOK
	switch {
	case !last.Finished():
		kind = statusWarn
	case last.Failed > 0:
		kind = statusError
	}
	message := fmt.Sprintf("%s %s at %s: %d ok, %d failed, %d clips",
		shortID(last.ID), last.Stage, last.StartedAt.Local().Format("2006-01-02 15:04"), last.OK, last.Failed, last.Clips)
	if !last.Finished() {
		message += " (unfinished)"
	}
	lines = append(lines, renderStatusLine("Last run", kind, message, colorize))

	failed, err := store.FailedSince(cmd.Context(), time.Now().Add(-failureWindow))
	if err != nil {
		return nil, fmt.Errorf("count failures: %w", err)
	}
	failKind := statusOK
	if failed > 0 {
		failKind = statusWarn
	}
	lines = append(lines, renderStatusLine("Failures (24h)", failKind, fmt.Sprintf("%d units", failed), colorize))
	return lines, nil
}
