package trim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"drillcut/internal/audio"
	"drillcut/internal/config"
	"drillcut/internal/fileutil"
	"drillcut/internal/logging"
	"drillcut/internal/services"
	"drillcut/internal/stage"
)

// Truncator keeps the first durationSec seconds of src in dst without
// re-encoding.
type Truncator interface {
	Truncate(ctx context.Context, src, dst string, durationSec float64) error
}

// Decoder loads a clip into a mono buffer.
type Decoder interface {
	Decode(ctx context.Context, path string) (*audio.Buffer, error)
}

// Stage trims every clip in the input pool into the output pool.
type Stage struct {
	InputDir  string
	OutputDir string
	// Extension selects clips by file extension only, regardless of name.
	Extension  string
	Options    Options
	Attempts   int
	RetryDelay time.Duration
	DryRun     bool

	decoder   Decoder
	truncator Truncator
	logger    *slog.Logger
}

// NewStage builds a trimmer from configuration.
func NewStage(cfg *config.Config, decoder Decoder, truncator Truncator, logger *slog.Logger) *Stage {
	s := &Stage{
		InputDir:  cfg.Paths.ClipsDir,
		OutputDir: cfg.Paths.TrimmedDir,
		Extension: cfg.Trimmer.Extension,
		Options: Options{
			ThresholdPaddingDB: cfg.Trimmer.ThresholdPaddingDB,
			MinSilenceMs:       cfg.Trimmer.MinSilenceMs,
			BufferMs:           cfg.Trimmer.BufferMs,
		},
		Attempts:   cfg.Workers.ExtractionAttempts,
		RetryDelay: 250 * time.Millisecond,
		decoder:    decoder,
		truncator:  truncator,
	}
	s.SetLogger(logger)
	return s
}

// SetLogger replaces the stage logger.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s.logger = logging.NewComponentLogger(logger, "trimmer")
}

// Name implements stage.Handler.
func (s *Stage) Name() string {
	return stage.Trim
}

// Discover implements stage.Handler. A missing input pool yields no units.
func (s *Stage) Discover(ctx context.Context) ([]stage.Unit, error) {
	logger := logging.WithContext(ctx, s.logger)
	files, err := fileutil.ListFiles(s.InputDir, []string{s.Extension})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(logger, "clips directory missing", "clips_dir_missing",
				logging.String("clips_dir", s.InputDir),
				logging.String(logging.FieldErrorHint, "run split first or set paths.clips_dir"),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("list clips: %w", err)
	}
	units := make([]stage.Unit, 0, len(files))
	for _, path := range files {
		units = append(units, stage.Unit{Name: filepath.Base(path), Path: path})
	}
	logger.Info(
		"clips discovered",
		logging.String(logging.FieldEventType, "discovery_complete"),
		logging.String("clips_dir", s.InputDir),
		logging.Int("clips", len(units)),
	)
	return units, nil
}

// Process implements stage.Handler.
func (s *Stage) Process(ctx context.Context, unit stage.Unit) (stage.Report, error) {
	var report stage.Report
	if unit.Err != nil {
		return report, unit.Err
	}
	if s.decoder == nil {
		return report, services.Wrap(services.ErrDecode, stage.Trim, "decode", "no decoder configured", nil)
	}
	buf, err := s.decoder.Decode(ctx, unit.Path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, services.Wrap(services.ErrTimeout, stage.Trim, "decode", unit.Name, ctxErr)
		}
		return report, services.Wrap(services.ErrDecode, stage.Trim, "decode", unit.Name, err)
	}
	if buf.DurationMs() == 0 {
		return report, services.Wrap(services.ErrDecode, stage.Trim, "decode", unit.Name, audio.ErrEmpty)
	}

	res := Analyze(buf, s.Options)
	logger := logging.WithContext(ctx, s.logger)
	attrs := []logging.Attr{
		logging.Int("duration_ms", res.DurationMs),
		logging.Float64("silence_threshold_db", res.ThresholdDB),
		logging.Bool("trimmed", res.Trimmed),
		logging.Int("trim_ms", res.TrimMs),
	}
	if res.Tail != nil {
		attrs = append(attrs, logging.Int("tail_start_ms", res.Tail.StartMs), logging.Int("tail_end_ms", res.Tail.EndMs))
	}
	if res.Trimmed {
		attrs = append(attrs, logging.DecisionAttrs("tail_trim", "truncate", fmt.Sprintf("silence ends the clip; keeping %dms", res.TrimMs))...)
	} else {
		attrs = append(attrs, logging.DecisionAttrs("tail_trim", "copy", "no trailing silence past the buffer")...)
	}
	logger.Debug("clip analyzed", logging.Args(attrs...)...)

	dst := filepath.Join(s.OutputDir, unit.Name)
	if s.DryRun {
		report.Planned = append(report.Planned, dst)
		return report, nil
	}
	if err := os.MkdirAll(s.OutputDir, 0o755); err != nil {
		return report, services.Wrap(services.ErrExtraction, stage.Trim, "create output dir", s.OutputDir, err)
	}

	if !res.Trimmed {
		if err := fileutil.CopyFile(unit.Path, dst); err != nil {
			return report, services.Wrap(services.ErrExtraction, stage.Trim, "copy", unit.Name, err)
		}
		report.Outputs = append(report.Outputs, dst)
		return report, nil
	}

	if s.truncator == nil {
		return report, services.Wrap(services.ErrExtraction, stage.Trim, "truncate", "no truncator configured", nil)
	}
	retries, err := stage.Retry(ctx, s.Attempts, s.RetryDelay, func() error {
		if err := s.truncator.Truncate(ctx, unit.Path, dst, float64(res.TrimMs)/1000); err != nil {
			return services.Wrap(services.ErrExtraction, stage.Trim, "truncate", unit.Name, err)
		}
		return nil
	})
	report.Retries = retries
	if err != nil {
		return report, err
	}
	report.Outputs = append(report.Outputs, dst)
	return report, nil
}

// HealthCheck implements stage.Handler.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.decoder == nil || s.truncator == nil {
		return stage.Unhealthy(stage.Trim, "decoder or truncator not configured")
	}
	if info, err := os.Stat(s.InputDir); err == nil && !info.IsDir() {
		return stage.Unhealthy(stage.Trim, "clips path is not a directory")
	}
	return stage.Healthy(stage.Trim)
}
