package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSegmenter()
	c.normalizeTrimmer()
	c.normalizeFFmpeg()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.SourceDir) == "" {
		c.Paths.SourceDir = defaultSourceDir
	}
	if c.Paths.SourceDir, err = expandPath(c.Paths.SourceDir); err != nil {
		return fmt.Errorf("paths.source_dir: %w", err)
	}
	if c.Paths.ClipsDir, err = c.resolveOutputDir(c.Paths.ClipsDir, defaultClipsDir); err != nil {
		return fmt.Errorf("paths.clips_dir: %w", err)
	}
	if c.Paths.TrimmedDir, err = c.resolveOutputDir(c.Paths.TrimmedDir, defaultTrimmedDir); err != nil {
		return fmt.Errorf("paths.trimmed_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Metrics.Textfile) != "" {
		if c.Metrics.Textfile, err = expandPath(c.Metrics.Textfile); err != nil {
			return fmt.Errorf("metrics.textfile: %w", err)
		}
	}
	return nil
}

// resolveOutputDir keeps output pools next to the recordings unless an
// absolute or home-relative path is configured.
func (c *Config) resolveOutputDir(value, fallback string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = fallback
	}
	if strings.HasPrefix(value, "~") || filepath.IsAbs(value) {
		return expandPath(value)
	}
	return expandPath(filepath.Join(c.Paths.SourceDir, value))
}

// SetSourceDir points the config at a different recordings directory and
// re-resolves relative output pools against it.
func (c *Config) SetSourceDir(dir string, clipsDir, trimmedDir string) error {
	expanded, err := expandPath(dir)
	if err != nil {
		return fmt.Errorf("source dir: %w", err)
	}
	c.Paths.SourceDir = expanded
	if c.Paths.ClipsDir, err = c.resolveOutputDir(clipsDir, defaultClipsDir); err != nil {
		return fmt.Errorf("clips dir: %w", err)
	}
	if c.Paths.TrimmedDir, err = c.resolveOutputDir(trimmedDir, defaultTrimmedDir); err != nil {
		return fmt.Errorf("trimmed dir: %w", err)
	}
	return c.validatePaths()
}

func (c *Config) normalizeSegmenter() {
	c.Segmenter.SourceExtensions = normalizeExtensions(c.Segmenter.SourceExtensions)
	if len(c.Segmenter.SourceExtensions) == 0 {
		c.Segmenter.SourceExtensions = []string{defaultClipExtension}
	}
}

func (c *Config) normalizeTrimmer() {
	ext := normalizeExtensions([]string{c.Trimmer.Extension})
	if len(ext) == 0 {
		c.Trimmer.Extension = defaultClipExtension
		return
	}
	c.Trimmer.Extension = ext[0]
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = defaultFFmpegBinary
	}
	c.FFmpeg.FFprobeBinary = strings.TrimSpace(c.FFmpeg.FFprobeBinary)
	if c.FFmpeg.FFprobeBinary == "" {
		c.FFmpeg.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func normalizeExtensions(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}
