package segment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"drillcut/internal/audio"
	"drillcut/internal/config"
	"drillcut/internal/logging"
	"drillcut/internal/services"
	"drillcut/internal/stage"
)

// Extractor copies a time range of src into dst without re-encoding,
// overwriting dst.
type Extractor interface {
	Extract(ctx context.Context, src, dst string, startSec, durationSec float64) error
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, src, dst string, startSec, durationSec float64) error

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, src, dst string, startSec, durationSec float64) error {
	return f(ctx, src, dst, startSec, durationSec)
}

// Decoder loads a recording into a mono buffer.
type Decoder interface {
	Decode(ctx context.Context, path string) (*audio.Buffer, error)
}

// Stage splits every recording in the source directory into clips.
type Stage struct {
	SourceDir          string
	OutputDir          string
	Extensions         []string
	ThresholdPaddingDB float64
	MinSilenceMs       int
	Options            Options
	// Attempts bounds extraction tries per clip; values below one mean one.
	Attempts int
	// RetryDelay is multiplied by the attempt number between tries.
	RetryDelay time.Duration
	DryRun     bool

	decoder   Decoder
	extractor Extractor
	logger    *slog.Logger
}

// NewStage builds a splitter from configuration.
func NewStage(cfg *config.Config, decoder Decoder, extractor Extractor, logger *slog.Logger) *Stage {
	s := &Stage{
		SourceDir:          cfg.Paths.SourceDir,
		OutputDir:          cfg.Paths.ClipsDir,
		Extensions:         cfg.Segmenter.SourceExtensions,
		ThresholdPaddingDB: cfg.Segmenter.ThresholdPaddingDB,
		MinSilenceMs:       cfg.Segmenter.MinSilenceMs,
		Options: Options{
			StartShiftMs:      cfg.Segmenter.StartShiftMs,
			SegmentsPerItem:   cfg.Segmenter.SegmentsPerItem,
			WordPosition:      cfg.Segmenter.WordPosition,
			PhrasePosition:    cfg.Segmenter.PhrasePosition,
			ItemsPerRecording: cfg.Segmenter.ItemsPerRecording,
		},
		Attempts:   cfg.Workers.ExtractionAttempts,
		RetryDelay: 250 * time.Millisecond,
		decoder:    decoder,
		extractor:  extractor,
	}
	s.SetLogger(logger)
	return s
}

// SetLogger replaces the stage logger.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s.logger = logging.NewComponentLogger(logger, "splitter")
}

// Name implements stage.Handler.
func (s *Stage) Name() string {
	return stage.Split
}

// Discover implements stage.Handler. Numbered recordings come first in index
// order, followed by files whose names could not be parsed.
func (s *Stage) Discover(ctx context.Context) ([]stage.Unit, error) {
	recordings, rejected, err := Discover(s.SourceDir, s.Extensions)
	if err != nil {
		return nil, err
	}
	units := make([]stage.Unit, 0, len(recordings)+len(rejected))
	for _, rec := range recordings {
		units = append(units, stage.Unit{Name: rec.Name, Path: rec.Path})
	}
	for _, rej := range rejected {
		units = append(units, stage.Unit{Name: rej.Name, Path: rej.Path, Err: rej.Err})
	}
	logging.WithContext(ctx, s.logger).Info(
		"recordings discovered",
		logging.String(logging.FieldEventType, "discovery_complete"),
		logging.String("source_dir", s.SourceDir),
		logging.Int("recordings", len(recordings)),
		logging.Int("rejected", len(rejected)),
	)
	return units, nil
}

// Plan decodes a recording and returns its labeled clips without writing
// anything.
func (s *Stage) Plan(ctx context.Context, rec Recording) ([]Clip, error) {
	if s.decoder == nil {
		return nil, services.Wrap(services.ErrDecode, stage.Split, "decode", "no decoder configured", nil)
	}
	buf, err := s.decoder.Decode(ctx, rec.Path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, services.Wrap(services.ErrTimeout, stage.Split, "decode", rec.Name, ctxErr)
		}
		return nil, services.Wrap(services.ErrDecode, stage.Split, "decode", rec.Name, err)
	}
	loudness := buf.DBFS()
	threshold := loudness - s.ThresholdPaddingDB
	intervals := audio.DetectSilence(buf, s.MinSilenceMs, threshold)
	segments := Plan(intervals, buf.DurationMs(), s.Options)
	kept := Keep(segments, s.Options)
	clips := Clips(rec, kept, s.Options)

	logging.WithContext(ctx, s.logger).Debug(
		"recording analyzed",
		logging.Int("duration_ms", buf.DurationMs()),
		logging.Float64("dbfs", loudness),
		logging.Float64("silence_threshold_db", threshold),
		logging.Int("silence_intervals", len(intervals)),
		logging.Int("segments", len(segments)),
		logging.Int("clips", len(clips)),
	)
	if len(segments) < s.Options.SegmentsPerItem {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "recording has no complete item", "no_complete_item",
			logging.Int("segments", len(segments)),
			logging.Int("segments_per_item", s.Options.SegmentsPerItem),
			logging.String(logging.FieldErrorHint, "check for long pauses inside words or a recording that ended early"),
		)
	} else if dropped := len(segments) % s.Options.SegmentsPerItem; dropped > 0 {
		logging.WithContext(ctx, s.logger).Info(
			"trailing partial item dropped",
			logging.String(logging.FieldEventType, "partial_item_dropped"),
			logging.Int("dropped_segments", dropped),
		)
	}
	return clips, nil
}

// Process implements stage.Handler. A failed clip does not stop the
// remaining clips of the recording; all clip failures are returned joined.
func (s *Stage) Process(ctx context.Context, unit stage.Unit) (stage.Report, error) {
	var report stage.Report
	if unit.Err != nil {
		return report, unit.Err
	}
	n, err := ParseIndex(unit.Name)
	if err != nil {
		return report, err
	}
	rec := Recording{Index: n, Name: unit.Name, Path: unit.Path}

	clips, err := s.Plan(ctx, rec)
	if err != nil {
		return report, err
	}
	if s.DryRun {
		for _, clip := range clips {
			report.Planned = append(report.Planned, clip.OutputPath(s.OutputDir, extensionOf(rec.Path)))
		}
		return report, nil
	}
	if len(clips) == 0 {
		return report, nil
	}
	if err := os.MkdirAll(s.OutputDir, 0o755); err != nil {
		return report, services.Wrap(services.ErrExtraction, stage.Split, "create output dir", s.OutputDir, err)
	}

	logger := logging.WithContext(ctx, s.logger)
	var failures []error
	for _, clip := range clips {
		dst := clip.OutputPath(s.OutputDir, extensionOf(rec.Path))
		retries, err := s.extract(ctx, clip, dst)
		report.Retries += retries
		if err != nil {
			failures = append(failures, err)
			logging.WarnWithContext(logger, "clip extraction failed", "clip_failed",
				logging.String("label", clip.Label),
				logging.Int("start_ms", clip.StartMs),
				logging.Int("end_ms", clip.EndMs),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "re-run split; existing clips are overwritten"),
			)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		report.Outputs = append(report.Outputs, dst)
		logger.Debug("clip extracted",
			logging.String("label", clip.Label),
			logging.Int("start_ms", clip.StartMs),
			logging.Int("end_ms", clip.EndMs),
			logging.String("output", dst),
		)
	}
	return report, errors.Join(failures...)
}

func (s *Stage) extract(ctx context.Context, clip Clip, dst string) (int, error) {
	if s.extractor == nil {
		return 0, services.Wrap(services.ErrExtraction, stage.Split, "extract", "no extractor configured", nil)
	}
	return stage.Retry(ctx, s.Attempts, s.RetryDelay, func() error {
		if err := s.extractor.Extract(ctx, clip.Source, dst, clip.StartSec(), clip.DurationSec()); err != nil {
			return services.Wrap(services.ErrExtraction, stage.Split, "extract", clip.Label, err)
		}
		return nil
	})
}

// HealthCheck implements stage.Handler.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.decoder == nil || s.extractor == nil {
		return stage.Unhealthy(stage.Split, "decoder or extractor not configured")
	}
	info, err := os.Stat(s.SourceDir)
	if err != nil {
		return stage.Unhealthy(stage.Split, fmt.Sprintf("source dir: %v", err))
	}
	if !info.IsDir() {
		return stage.Unhealthy(stage.Split, "source path is not a directory")
	}
	return stage.Healthy(stage.Split)
}

func extensionOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
