package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"drillcut/internal/config"
	"drillcut/internal/ledger"
	"drillcut/internal/metrics"
	"drillcut/internal/pipeline"
	"drillcut/internal/stage"
)

type stageFlags struct {
	dryRun        bool
	source        string
	clips         string
	trimmed       string
	concurrency   int
	jsonOutput    bool
	skipPreflight bool
}

func newStageCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newStageCommand(ctx, stage.Split, "Split numbered recordings into word and phrase clips"),
		newStageCommand(ctx, stage.Trim, "Trim trailing silence from split clips"),
		newStageCommand(ctx, pipeline.FullRun, "Split recordings, then trim the resulting clips"),
	}
}

func newStageCommand(ctx *commandContext, name, short string) *cobra.Command {
	var flags stageFlags

	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyStageFlags(cmd, cfg, flags); err != nil {
				return err
			}
			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			stages := pipeline.BuildStages(cfg, logger, flags.dryRun)
			runner := pipeline.NewRunner(cfg, logger, store, metrics.New())
			summary, err := runner.Run(cmd.Context(), name, stages.For(name), pipeline.Options{
				DryRun:        flags.dryRun,
				SkipPreflight: flags.skipPreflight,
			})
			if err != nil && summary == nil {
				return err
			}
			if flags.jsonOutput {
				if jerr := writeJSON(cmd, summaryJSON(summary)); jerr != nil {
					return jerr
				}
			} else {
				printSummary(cmd.OutOrStdout(), summary)
			}
			if err == nil && cmd.Context().Err() != nil {
				err = cmd.Context().Err()
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "n", false, "Plan clips without writing files")
	cmd.Flags().StringVar(&flags.source, "source", "", "Directory holding the numbered recordings")
	cmd.Flags().StringVar(&flags.clips, "clips", "", "Directory for split clips (relative to --source)")
	cmd.Flags().StringVar(&flags.trimmed, "trimmed", "", "Directory for trimmed clips (relative to --source)")
	cmd.Flags().IntVarP(&flags.concurrency, "concurrency", "j", 0, "Units processed in parallel (default from config)")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Emit the run summary as JSON")
	cmd.Flags().BoolVar(&flags.skipPreflight, "skip-preflight", false, "Skip dependency and directory checks")
	return cmd
}

// applyStageFlags layers command-line overrides onto the loaded config.
// Output directories left unset follow --source to its default pools.
func applyStageFlags(cmd *cobra.Command, cfg *config.Config, flags stageFlags) error {
	changed := cmd.Flags().Changed
	if changed("source") || changed("clips") || changed("trimmed") {
		source := cfg.Paths.SourceDir
		clips, trimmed := flags.clips, flags.trimmed
		if changed("source") {
			source = flags.source
		} else {
			if clips == "" {
				clips = cfg.Paths.ClipsDir
			}
			if trimmed == "" {
				trimmed = cfg.Paths.TrimmedDir
			}
		}
		if err := cfg.SetSourceDir(source, clips, trimmed); err != nil {
			return err
		}
	}
	if changed("concurrency") {
		if flags.concurrency < 1 {
			return errors.New("--concurrency must be at least 1")
		}
		cfg.Workers.Concurrency = flags.concurrency
	}
	return nil
}

func printSummary(out io.Writer, summary *pipeline.Summary) {
	if summary == nil {
		return
	}
	colorize := shouldColorize(out)
	rows := make([][]string, 0, len(summary.Outcomes))
	for _, o := range summary.Outcomes {
		clips := len(o.Outputs)
		if summary.DryRun {
			clips = len(o.Planned)
		}
		rows = append(rows, []string{
			o.Stage,
			o.Unit,
			colorStatus(string(o.Status), colorize),
			strconv.Itoa(clips),
			strconv.Itoa(o.Retries),
			formatDuration(o.Elapsed),
			outcomeDetail(o),
		})
	}
	produced := summary.Clips
	if summary.DryRun {
		produced = summary.Planned
	}
	spec := tableSpec{
		headers: []string{"Stage", "Unit", "Status", "Clips", "Retries", "Elapsed", "Detail"},
		aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
		rows:    rows,
		footer:  []string{"", "total", "", strconv.Itoa(produced), "", formatDuration(summary.Elapsed), ""},
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, spec.render())
	}

	mode := ""
	if summary.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(out, "%s%s: %d ok, %d failed, %d skipped, %d clips\n", summary.Name, mode, summary.OK, summary.Failed, summary.Skipped, produced)
	if summary.RunID != "" {
		fmt.Fprintf(out, "Run ID: %s\n", summary.RunID)
	}
}

func outcomeDetail(o pipeline.Outcome) string {
	if o.Err == nil {
		names := make([]string, 0, len(o.Planned))
		for _, p := range o.Planned {
			names = append(names, filepath.Base(p))
		}
		return strings.Join(names, ", ")
	}
	if o.Kind != "" {
		return o.Kind + ": " + o.Err.Error()
	}
	return o.Err.Error()
}

type outcomeJSON struct {
	Stage     string   `json:"stage"`
	Unit      string   `json:"unit"`
	Status    string   `json:"status"`
	ErrorKind string   `json:"error_kind,omitempty"`
	Error     string   `json:"error,omitempty"`
	Outputs   []string `json:"outputs,omitempty"`
	Planned   []string `json:"planned,omitempty"`
	Retries   int      `json:"retries"`
	ElapsedMs int64    `json:"elapsed_ms"`
}

type runSummaryJSON struct {
	RunID     string        `json:"run_id,omitempty"`
	Run       string        `json:"run"`
	DryRun    bool          `json:"dry_run"`
	OK        int           `json:"ok"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Clips     int           `json:"clips"`
	Planned   int           `json:"planned"`
	ElapsedMs int64         `json:"elapsed_ms"`
	Units     []outcomeJSON `json:"units"`
}

func summaryJSON(summary *pipeline.Summary) runSummaryJSON {
	out := runSummaryJSON{
		RunID:     summary.RunID,
		Run:       summary.Name,
		DryRun:    summary.DryRun,
		OK:        summary.OK,
		Failed:    summary.Failed,
		Skipped:   summary.Skipped,
		Clips:     summary.Clips,
		Planned:   summary.Planned,
		ElapsedMs: summary.Elapsed.Milliseconds(),
		Units:     make([]outcomeJSON, 0, len(summary.Outcomes)),
	}
	for _, o := range summary.Outcomes {
		item := outcomeJSON{
			Stage:     o.Stage,
			Unit:      o.Unit,
			Status:    string(o.Status),
			ErrorKind: o.Kind,
			Outputs:   o.Outputs,
			Planned:   o.Planned,
			Retries:   o.Retries,
			ElapsedMs: o.Elapsed.Milliseconds(),
		}
		if o.Err != nil {
			item.Error = o.Err.Error()
		}
		out.Units = append(out.Units, item)
	}
	return out
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
