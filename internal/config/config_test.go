package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"drillcut/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	workDir := t.TempDir()
	t.Chdir(workDir)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "drillcut", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if cfg.Paths.SourceDir != wd {
		t.Fatalf("expected source dir %q, got %q", wd, cfg.Paths.SourceDir)
	}
	if cfg.Paths.ClipsDir != filepath.Join(wd, "output") {
		t.Fatalf("unexpected clips dir: %q", cfg.Paths.ClipsDir)
	}
	if cfg.Paths.TrimmedDir != filepath.Join(wd, "output_trimmed") {
		t.Fatalf("unexpected trimmed dir: %q", cfg.Paths.TrimmedDir)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, ".local", "share", "drillcut") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.LedgerPath() != filepath.Join(cfg.Paths.StateDir, "ledger.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.LedgerPath())
	}
}

func TestDefaultsMatchReferenceConstants(t *testing.T) {
	cfg := config.Default()
	if cfg.Segmenter.ThresholdPaddingDB != 15 || cfg.Segmenter.MinSilenceMs != 1200 || cfg.Segmenter.StartShiftMs != 200 {
		t.Fatalf("unexpected segmenter silence defaults: %+v", cfg.Segmenter)
	}
	if cfg.Segmenter.SegmentsPerItem != 4 || cfg.Segmenter.WordPosition != 0 || cfg.Segmenter.PhrasePosition != 3 {
		t.Fatalf("unexpected segmenter structure defaults: %+v", cfg.Segmenter)
	}
	if cfg.Segmenter.ItemsPerRecording != 9 {
		t.Fatalf("expected 9 items per recording, got %d", cfg.Segmenter.ItemsPerRecording)
	}
	if cfg.Trimmer.ThresholdPaddingDB != 20 || cfg.Trimmer.MinSilenceMs != 300 || cfg.Trimmer.BufferMs != 200 {
		t.Fatalf("unexpected trimmer defaults: %+v", cfg.Trimmer)
	}
	if cfg.Workers.Concurrency != 1 {
		t.Fatalf("expected sequential processing by default, got %d", cfg.Workers.Concurrency)
	}
	if cfg.UnitTimeout() != 300*time.Second {
		t.Fatalf("unexpected unit timeout %s", cfg.UnitTimeout())
	}
}

func TestLoadCustomConfigFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	sourceDir := filepath.Join(dir, "recordings")
	configPath := filepath.Join(dir, "config.toml")

	payload := map[string]any{
		"paths": map[string]any{
			"source_dir":  sourceDir,
			"clips_dir":   "cut",
			"trimmed_dir": filepath.Join(dir, "final"),
		},
		"segmenter": map[string]any{
			"source_extensions": []string{"MP3", ".wav", "mp3"},
		},
		"trimmer": map[string]any{
			"extension": "wav",
		},
		"logging": map[string]any{
			"format": " JSON ",
			"level":  "Debug",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.ClipsDir != filepath.Join(sourceDir, "cut") {
		t.Fatalf("expected relative clips dir under source dir, got %q", cfg.Paths.ClipsDir)
	}
	if cfg.Paths.TrimmedDir != filepath.Join(dir, "final") {
		t.Fatalf("expected absolute trimmed dir preserved, got %q", cfg.Paths.TrimmedDir)
	}
	if got := strings.Join(cfg.Segmenter.SourceExtensions, ","); got != ".mp3,.wav" {
		t.Fatalf("unexpected normalized extensions %q", got)
	}
	if cfg.Trimmer.Extension != ".wav" {
		t.Fatalf("unexpected trimmer extension %q", cfg.Trimmer.Extension)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[segmenter]\nmin_silence = 10\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"segments per item", func(c *config.Config) { c.Segmenter.SegmentsPerItem = 0 }, "segmenter.segments_per_item"},
		{"phrase position out of range", func(c *config.Config) { c.Segmenter.PhrasePosition = 4 }, "segmenter.phrase_position"},
		{"word after phrase", func(c *config.Config) { c.Segmenter.WordPosition = 3; c.Segmenter.PhrasePosition = 1 }, "must come before"},
		{"negative shift", func(c *config.Config) { c.Segmenter.StartShiftMs = -1 }, "segmenter.start_shift_ms"},
		{"trim min silence", func(c *config.Config) { c.Trimmer.MinSilenceMs = 0 }, "trimmer.min_silence_ms"},
		{"trim buffer", func(c *config.Config) { c.Trimmer.BufferMs = -5 }, "trimmer.buffer_ms"},
		{"zero trim buffer", func(c *config.Config) { c.Trimmer.BufferMs = 0 }, "trimmer.buffer_ms"},
		{"shared output pool", func(c *config.Config) {
			c.Paths.ClipsDir = "/tmp/x/output"
			c.Paths.TrimmedDir = "/tmp/x/output/"
		}, "paths.clips_dir and paths.trimmed_dir must differ"},
		{"clips in source", func(c *config.Config) {
			c.Paths.SourceDir = "/tmp/x"
			c.Paths.ClipsDir = "/tmp/x/."
		}, "paths.clips_dir must differ"},
		{"trimmed in source", func(c *config.Config) {
			c.Paths.SourceDir = "/tmp/x"
			c.Paths.TrimmedDir = "/tmp/x"
		}, "paths.trimmed_dir must differ"},
		{"concurrency", func(c *config.Config) { c.Workers.Concurrency = 0 }, "workers.concurrency"},
		{"attempts", func(c *config.Config) { c.Workers.ExtractionAttempts = 0 }, "workers.extraction_attempts"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestCreateSampleLoadsCleanly(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Segmenter.ItemsPerRecording != 9 {
		t.Fatalf("sample should keep default items per recording, got %d", cfg.Segmenter.ItemsPerRecording)
	}
}

func TestSetSourceDirReresolvesOutputs(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()
	if err := cfg.SetSourceDir(dir, "", "trimmed"); err != nil {
		t.Fatalf("SetSourceDir: %v", err)
	}
	if cfg.Paths.ClipsDir != filepath.Join(dir, "output") {
		t.Fatalf("unexpected clips dir %q", cfg.Paths.ClipsDir)
	}
	if cfg.Paths.TrimmedDir != filepath.Join(dir, "trimmed") {
		t.Fatalf("unexpected trimmed dir %q", cfg.Paths.TrimmedDir)
	}
}
