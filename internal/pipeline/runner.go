package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"drillcut/internal/config"
	"drillcut/internal/ledger"
	"drillcut/internal/logging"
	"drillcut/internal/metrics"
	"drillcut/internal/preflight"
	"drillcut/internal/services"
	"drillcut/internal/stage"
)

// FullRun names a run of split followed by trim.
const FullRun = "run"

// ErrRunInProgress reports that another drillcut run holds the lock.
var ErrRunInProgress = errors.New("another drillcut run is in progress")

// Options controls a single run.
type Options struct {
	DryRun        bool
	SkipPreflight bool
}

// Outcome is the result of one unit.
type Outcome struct {
	Stage   string
	Unit    string
	Status  ledger.Status
	Kind    string
	Err     error
	Outputs []string
	Planned []string
	Retries int
	Elapsed time.Duration
}

// Summary aggregates a finished run.
type Summary struct {
	RunID    string
	Name     string
	DryRun   bool
	Outcomes []Outcome
	OK       int
	Failed   int
	Skipped  int
	Clips    int
	Planned  int
	Elapsed  time.Duration
}

// Runner executes stages over their units.
type Runner struct {
	cfg     *config.Config
	base    *slog.Logger
	logger  *slog.Logger
	store   *ledger.Store
	metrics *metrics.Metrics
	timeout time.Duration
	now     func() time.Time
}

// NewRunner builds a runner. store and m may be nil.
func NewRunner(cfg *config.Config, logger *slog.Logger, store *ledger.Store, m *metrics.Metrics) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		cfg:     cfg,
		base:    logger,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
		store:   store,
		metrics: m,
		timeout: cfg.UnitTimeout(),
		now:     time.Now,
	}
}

// Run executes handlers in order under one run ID. Unit failures are
// reported in the summary, never as the returned error.
func (r *Runner) Run(ctx context.Context, name string, handlers []stage.Handler, opts Options) (*Summary, error) {
	if len(handlers) == 0 {
		return nil, errors.New("no stages to run")
	}
	names := make([]string, 0, len(handlers))
	for _, h := range handlers {
		names = append(names, h.Name())
	}
	if !opts.SkipPreflight {
		if err := preflight.Err(preflight.RunAll(r.cfg, names...)); err != nil {
			return nil, err
		}
	}

	unlock, err := r.acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	started := r.now()
	summary := &Summary{Name: name, DryRun: opts.DryRun}
	if r.store != nil {
		run, err := r.store.BeginRun(ctx, name, r.cfg.Paths.SourceDir, opts.DryRun)
		if err != nil {
			return nil, fmt.Errorf("begin ledger run: %w", err)
		}
		summary.RunID = run.ID
		ctx = services.WithRunID(ctx, run.ID)
	}
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("run", name),
		logging.Bool("dry_run", opts.DryRun),
		logging.Int("concurrency", r.concurrency()),
	)

	var runErr error
	for _, h := range handlers {
		outcomes, err := r.runStage(ctx, h)
		summary.Outcomes = append(summary.Outcomes, outcomes...)
		if err != nil {
			runErr = err
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	summary.tally()
	summary.Elapsed = r.now().Sub(started)

	if r.store != nil {
		if _, err := r.store.FinishRun(context.WithoutCancel(ctx), summary.RunID); err != nil && runErr == nil {
			runErr = fmt.Errorf("finish ledger run: %w", err)
		}
	}
	r.metrics.MarkRunFinished(r.now())
	if err := r.metrics.WriteTextfile(r.cfg.Metrics.Textfile); err != nil {
		logging.WarnWithContext(logger, "metrics export failed", "metrics_export_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check metrics.textfile is writable"),
		)
	}

	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("ok", summary.OK),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("clips", summary.Clips),
		logging.Duration("elapsed", summary.Elapsed),
	)
	return summary, runErr
}

func (r *Runner) runStage(ctx context.Context, h stage.Handler) ([]Outcome, error) {
	ctx = services.WithStage(ctx, h.Name())
	logger := logging.WithContext(ctx, r.logger)
	if aware, ok := h.(stage.LoggerAware); ok {
		aware.SetLogger(r.base)
	}

	if health := h.HealthCheck(ctx); !health.Ready {
		logging.ErrorWithContext(logger, "stage not ready", "stage_not_ready",
			logging.String("detail", health.Detail),
			logging.String(logging.FieldErrorHint, "run `drillcut status` to see failing checks"),
		)
		return nil, fmt.Errorf("%s stage not ready: %s", health.Name, health.Detail)
	}
	units, err := h.Discover(ctx)
	if err != nil {
		logging.ErrorWithContext(logger, "stage discovery failed", "discovery_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the input directory exists and is readable"),
		)
		return nil, fmt.Errorf("%s discovery: %w", h.Name(), err)
	}
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Int("units", len(units)),
	)

	outcomes := make([]Outcome, len(units))
	var g errgroup.Group
	g.SetLimit(r.concurrency())
	for i, unit := range units {
		g.Go(func() error {
			outcomes[i] = r.processUnit(ctx, h, unit)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		r.record(ctx, o)
	}
	return outcomes, nil
}

func (r *Runner) processUnit(ctx context.Context, h stage.Handler, unit stage.Unit) Outcome {
	outcome := Outcome{Stage: h.Name(), Unit: unit.Name}
	if ctx.Err() != nil {
		outcome.Status = ledger.StatusSkipped
		outcome.Err = ctx.Err()
		return outcome
	}

	unitCtx, cancel := context.WithTimeout(services.WithUnit(ctx, unit.Name), r.timeout)
	defer cancel()
	logger := logging.WithContext(unitCtx, r.logger)
	logger.Debug("unit started", logging.String(logging.FieldEventType, "unit_start"))

	start := r.now()
	report, err := h.Process(unitCtx, unit)
	outcome.Elapsed = r.now().Sub(start)
	outcome.Outputs = report.Outputs
	outcome.Planned = report.Planned
	outcome.Retries = report.Retries

	if err != nil && errors.Is(unitCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, services.ErrTimeout) {
		err = services.Wrap(services.ErrTimeout, h.Name(), "process", fmt.Sprintf("exceeded %s", r.timeout), err)
	}
	if err != nil {
		outcome.Status = ledger.StatusFailed
		outcome.Kind = services.Kind(err)
		outcome.Err = err
		logging.WarnWithContext(logger, "unit failed", "unit_failed",
			logging.String(logging.FieldErrorKind, outcome.Kind),
			logging.Int("clips", len(outcome.Outputs)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hintFor(outcome.Kind)),
		)
		return outcome
	}
	outcome.Status = ledger.StatusOK
	logger.Info("unit completed",
		logging.String(logging.FieldEventType, "unit_complete"),
		logging.Int("clips", len(outcome.Outputs)),
		logging.Int("planned", len(outcome.Planned)),
		logging.Duration("elapsed", outcome.Elapsed),
	)
	return outcome
}

func (r *Runner) record(ctx context.Context, o Outcome) {
	r.metrics.ObserveUnit(o.Stage, string(o.Status), o.Kind, len(o.Outputs), o.Retries, o.Elapsed)
	if r.store == nil {
		return
	}
	runID, _ := services.RunIDFromContext(ctx)
	unit := ledger.Unit{
		RunID:     runID,
		Stage:     o.Stage,
		Name:      o.Unit,
		Status:    o.Status,
		ErrorKind: o.Kind,
		Clips:     len(o.Outputs),
		Retries:   o.Retries,
		Duration:  o.Elapsed,
	}
	if o.Err != nil {
		unit.Message = o.Err.Error()
	}
	if err := r.store.RecordUnit(context.WithoutCancel(ctx), unit); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "ledger write failed", "ledger_write_failed",
			logging.String(logging.FieldUnit, o.Unit),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the state directory"),
		)
	}
}

func (r *Runner) acquireLock() (func(), error) {
	path := r.cfg.LockPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrRunInProgress, path)
	}
	return func() { _ = lock.Unlock() }, nil
}

func (r *Runner) concurrency() int {
	return max(1, r.cfg.Workers.Concurrency)
}

func (s *Summary) tally() {
	for _, o := range s.Outcomes {
		switch o.Status {
		case ledger.StatusOK:
			s.OK++
		case ledger.StatusFailed:
			s.Failed++
		case ledger.StatusSkipped:
			s.Skipped++
		}
		s.Clips += len(o.Outputs)
		s.Planned += len(o.Planned)
	}
}

func hintFor(kind string) string {
	switch kind {
	case services.KindFormat:
		return "rename the recording to its number, e.g. 003.mp3"
	case services.KindDecode:
		return "check the file plays; re-export it if it is truncated"
	case services.KindExtraction:
		return "check ffmpeg output above and rerun; existing clips are overwritten"
	case services.KindTimeout:
		return "raise workers.unit_timeout_seconds for long recordings"
	default:
		return "see error for details"
	}
}
