package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSegmenter(); err != nil {
		return err
	}
	if err := c.validateTrimmer(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// validatePaths keeps the three pools apart. The trimmer never writes into
// its input, and split clips never land where recordings are discovered.
func (c *Config) validatePaths() error {
	source := filepath.Clean(c.Paths.SourceDir)
	clips := filepath.Clean(c.Paths.ClipsDir)
	trimmed := filepath.Clean(c.Paths.TrimmedDir)
	switch {
	case clips == trimmed:
		return fmt.Errorf("paths.clips_dir and paths.trimmed_dir must differ, both are %q", clips)
	case clips == source:
		return fmt.Errorf("paths.clips_dir must differ from paths.source_dir %q", source)
	case trimmed == source:
		return fmt.Errorf("paths.trimmed_dir must differ from paths.source_dir %q", source)
	}
	return nil
}

func (c *Config) validateSegmenter() error {
	s := c.Segmenter
	if s.ThresholdPaddingDB < 0 {
		return errors.New("segmenter.threshold_padding_db must be >= 0")
	}
	if err := ensurePositiveMap(map[string]int{
		"segmenter.min_silence_ms":      s.MinSilenceMs,
		"segmenter.segments_per_item":   s.SegmentsPerItem,
		"segmenter.items_per_recording": s.ItemsPerRecording,
	}); err != nil {
		return err
	}
	if s.StartShiftMs < 0 {
		return errors.New("segmenter.start_shift_ms must be >= 0")
	}
	if s.WordPosition < 0 || s.WordPosition >= s.SegmentsPerItem {
		return fmt.Errorf("segmenter.word_position must be between 0 and %d", s.SegmentsPerItem-1)
	}
	if s.PhrasePosition < 0 || s.PhrasePosition >= s.SegmentsPerItem {
		return fmt.Errorf("segmenter.phrase_position must be between 0 and %d", s.SegmentsPerItem-1)
	}
	if s.WordPosition >= s.PhrasePosition {
		return errors.New("segmenter.word_position must come before segmenter.phrase_position")
	}
	return nil
}

func (c *Config) validateTrimmer() error {
	t := c.Trimmer
	if t.ThresholdPaddingDB < 0 {
		return errors.New("trimmer.threshold_padding_db must be >= 0")
	}
	if t.MinSilenceMs <= 0 {
		return errors.New("trimmer.min_silence_ms must be positive")
	}
	if t.BufferMs <= 0 {
		return errors.New("trimmer.buffer_ms must be positive")
	}
	return nil
}

func (c *Config) validateWorkers() error {
	return ensurePositiveMap(map[string]int{
		"workers.concurrency":          c.Workers.Concurrency,
		"workers.unit_timeout_seconds": c.Workers.UnitTimeoutSeconds,
		"workers.extraction_attempts":  c.Workers.ExtractionAttempts,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
