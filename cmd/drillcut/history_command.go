package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"drillcut/internal/config"
	"drillcut/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recent runs, or the units of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(_ *config.Config, store *ledger.Store) error {
				if len(args) == 1 {
					return showRunUnits(cmd, store, args[0], jsonOutput)
				}
				if limit < 1 {
					return errors.New("--limit must be at least 1")
				}
				runs, err := store.RecentRuns(cmd.Context(), limit)
				if err != nil {
					return fmt.Errorf("load runs: %w", err)
				}
				if jsonOutput {
					return writeJSON(cmd, runsJSON(runs))
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Run", "Started", "Duration", "OK", "Failed", "Skipped", "Clips", "Dry run"},
					runRows(runs),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "Number of runs to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	return cmd
}

func showRunUnits(cmd *cobra.Command, store *ledger.Store, prefix string, jsonOutput bool) error {
	id, err := store.ResolveRunID(cmd.Context(), strings.TrimSpace(prefix))
	if err != nil {
		return err
	}
	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	units, err := store.UnitsForRun(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("load units: %w", err)
	}
	if jsonOutput {
		return writeJSON(cmd, struct {
			Run   runJSON    `json:"run"`
			Units []unitJSON `json:"units"`
		}{Run: toRunJSON(*run), Units: unitsJSON(units)})
	}

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	fmt.Fprintf(out, "Run %s (%s) started %s, source %s\n", run.ID, run.Stage, run.StartedAt.Local().Format(time.DateTime), run.SourceDir)
	rows := make([][]string, 0, len(units))
	for _, u := range units {
		rows = append(rows, []string{
			u.Stage,
			u.Name,
			colorStatus(string(u.Status), colorize),
			u.ErrorKind,
			strconv.Itoa(u.Clips),
			strconv.Itoa(u.Retries),
			formatDuration(u.Duration),
			u.Message,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Stage", "Unit", "Status", "Kind", "Clips", "Retries", "Elapsed", "Message"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
	return nil
}

func runRows(runs []ledger.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		duration := "running"
		if r.Finished() {
			duration = formatDuration(r.Duration())
		}
		rows = append(rows, []string{
			shortID(r.ID),
			r.Stage,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			duration,
			strconv.Itoa(r.OK),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Clips),
			yesNo(r.DryRun),
		})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type runJSON struct {
	ID         string     `json:"id"`
	Run        string     `json:"run"`
	DryRun     bool       `json:"dry_run"`
	SourceDir  string     `json:"source_dir"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	OK         int        `json:"ok"`
	Failed     int        `json:"failed"`
	Skipped    int        `json:"skipped"`
	Clips      int        `json:"clips"`
}

type unitJSON struct {
	Stage      string `json:"stage"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Message    string `json:"message,omitempty"`
	Clips      int    `json:"clips"`
	Retries    int    `json:"retries"`
	DurationMs int64  `json:"duration_ms"`
}

func toRunJSON(r ledger.Run) runJSON {
	return runJSON{
		ID:         r.ID,
		Run:        r.Stage,
		DryRun:     r.DryRun,
		SourceDir:  r.SourceDir,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		OK:         r.OK,
		Failed:     r.Failed,
		Skipped:    r.Skipped,
		Clips:      r.Clips,
	}
}

func runsJSON(runs []ledger.Run) []runJSON {
	out := make([]runJSON, 0, len(runs))
	for _, r := range runs {
		out = append(out, toRunJSON(r))
	}
	return out
}

func unitsJSON(units []ledger.Unit) []unitJSON {
	out := make([]unitJSON, 0, len(units))
	for _, u := range units {
		out = append(out, unitJSON{
			Stage:      u.Stage,
			Name:       u.Name,
			Status:     string(u.Status),
			ErrorKind:  u.ErrorKind,
			Message:    u.Message,
			Clips:      u.Clips,
			Retries:    u.Retries,
			DurationMs: u.Duration.Milliseconds(),
		})
	}
	return out
}
