// Package ffmpeg wraps the ffmpeg invocations drillcut depends on: decoding a
// recording to mono PCM WAV for analysis, and lossless stream-copy extraction
// of a time range.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Client runs a configured ffmpeg binary.
type Client struct {
	Binary string
}

// New returns a client for binary, defaulting to "ffmpeg" from PATH.
func New(binary string) *Client {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Client{Binary: binary}
}

// DecodeWAV converts src into a mono 16-bit PCM WAV file at dst, keeping the
// source sample rate.
func (c *Client) DecodeWAV(ctx context.Context, src, dst string) error {
	if strings.TrimSpace(src) == "" || strings.TrimSpace(dst) == "" {
		return errors.New("ffmpeg decode: empty path")
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-i", src,
		"-vn",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		dst,
	}
	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("ffmpeg decode: %w", err)
	}
	return nil
}

// CopyRange writes durationSec seconds of src starting at startSec to dst
// without re-encoding, overwriting dst if present. Cuts land on the nearest
// codec frame boundary.
func (c *Client) CopyRange(ctx context.Context, src, dst string, startSec, durationSec float64) error {
	if strings.TrimSpace(src) == "" || strings.TrimSpace(dst) == "" {
		return errors.New("ffmpeg copy: empty path")
	}
	if durationSec <= 0 {
		return fmt.Errorf("ffmpeg copy: non-positive duration %.3f", durationSec)
	}
	if startSec < 0 {
		startSec = 0
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-i", src,
		"-ss", formatSeconds(startSec),
		"-t", formatSeconds(durationSec),
		"-c", "copy",
		dst,
	}
	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("ffmpeg copy: %w", err)
	}
	return nil
}

// Truncate keeps the first durationSec seconds of src in dst without re-encoding.
func (c *Client) Truncate(ctx context.Context, src, dst string, durationSec float64) error {
	if strings.TrimSpace(src) == "" || strings.TrimSpace(dst) == "" {
		return errors.New("ffmpeg truncate: empty path")
	}
	if durationSec <= 0 {
		return fmt.Errorf("ffmpeg truncate: non-positive duration %.3f", durationSec)
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-i", src,
		"-t", formatSeconds(durationSec),
		"-c", "copy",
		dst,
	}
	if err := c.run(ctx, args); err != nil {
		return fmt.Errorf("ffmpeg truncate: %w", err)
	}
	return nil
}

func (c *Client) run(ctx context.Context, args []string) error {
	binary := c.Binary
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", err, ctxErr)
		}
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func formatSeconds(value float64) string {
	return fmt.Sprintf("%.3f", value)
}
