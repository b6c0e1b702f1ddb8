package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directory layout for one project.
type Paths struct {
	// SourceDir holds the numbered recordings (001.mp3, 002.mp3, ...).
	SourceDir string `toml:"source_dir"`
	// ClipsDir receives split clips. Relative values resolve against SourceDir.
	ClipsDir string `toml:"clips_dir"`
	// TrimmedDir receives trimmed clips. Relative values resolve against SourceDir.
	TrimmedDir string `toml:"trimmed_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
}

// Segmenter contains the silence and structure settings used to split recordings.
type Segmenter struct {
	// ThresholdPaddingDB is subtracted from the recording's average dBFS to get the silence threshold.
	ThresholdPaddingDB float64 `toml:"threshold_padding_db"`
	MinSilenceMs       int     `toml:"min_silence_ms"`
	// StartShiftMs moves every segment start earlier to compensate for detection lag.
	StartShiftMs    int `toml:"start_shift_ms"`
	SegmentsPerItem int `toml:"segments_per_item"`
	WordPosition    int `toml:"word_position"`
	PhrasePosition  int `toml:"phrase_position"`
	// ItemsPerRecording drives global numbering: item = (n-1)*ItemsPerRecording + k.
	ItemsPerRecording int      `toml:"items_per_recording"`
	SourceExtensions  []string `toml:"source_extensions"`
}

// Trimmer contains the trailing-silence settings applied to split clips.
type Trimmer struct {
	ThresholdPaddingDB float64 `toml:"threshold_padding_db"`
	MinSilenceMs       int     `toml:"min_silence_ms"`
	// BufferMs of detected trailing silence is kept after the voice ends.
	BufferMs  int    `toml:"buffer_ms"`
	Extension string `toml:"extension"`
}

// Workers controls per-unit execution.
type Workers struct {
	Concurrency        int `toml:"concurrency"`
	UnitTimeoutSeconds int `toml:"unit_timeout_seconds"`
	ExtractionAttempts int `toml:"extraction_attempts"`
}

// FFmpeg names the external binaries used for decoding and lossless copies.
type FFmpeg struct {
	Binary        string `toml:"binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Metrics configures the optional Prometheus textfile export.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Config encapsulates all configuration values for drillcut.
//
// Configuration sections by subsystem:
//   - Paths: source, clip, trimmed, state, and log directories
//   - Segmenter: silence detection and item structure for splitting
//   - Trimmer: trailing silence detection for clips
//   - Workers: concurrency, per-unit timeout, extraction retries
//   - FFmpeg: external binaries
//   - Logging: log format, level, and retention
//   - Metrics: Prometheus textfile output
type Config struct {
	Paths     Paths     `toml:"paths"`
	Segmenter Segmenter `toml:"segmenter"`
	Trimmer   Trimmer   `toml:"trimmer"`
	Workers   Workers   `toml:"workers"`
	FFmpeg    FFmpeg    `toml:"ffmpeg"`
	Logging   Logging   `toml:"logging"`
	Metrics   Metrics   `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPathRelative)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(defaultProjectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories. Output pools are
// created by the stages that write them.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// UnitTimeout returns the per-unit time budget.
func (c *Config) UnitTimeout() time.Duration {
	return time.Duration(c.Workers.UnitTimeoutSeconds) * time.Second
}

// LedgerPath returns the SQLite run ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// LockPath returns the advisory lock file guarding a run.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "drillcut.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
