package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"drillcut/internal/media/ffprobe"
)

// Transcoder converts an arbitrary audio asset to a mono 16-bit WAV file.
type Transcoder interface {
	DecodeWAV(ctx context.Context, src, dst string) error
}

// Decoder loads audio assets into buffers, probing and transcoding through
// ffmpeg when the asset is not already a PCM WAV file.
type Decoder struct {
	Transcoder    Transcoder
	FFprobeBinary string
	// TempDir holds intermediate WAV files; empty uses the OS default.
	TempDir string
	// SkipProbe disables the ffprobe audio stream check.
	SkipProbe bool
}

// Decode returns the mono PCM contents of path.
func (d *Decoder) Decode(ctx context.Context, path string) (*Buffer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if info.Size() == 0 {
		return nil, ErrEmpty
	}

	if strings.EqualFold(filepath.Ext(path), ".wav") {
		if buf, err := LoadWAV(path); err == nil {
			return buf, nil
		} else if errors.Is(err, ErrEmpty) {
			return nil, err
		}
	}

	if !d.SkipProbe {
		probe, err := ffprobe.Inspect(ctx, d.FFprobeBinary, path)
		if err != nil {
			return nil, fmt.Errorf("probe source: %w", err)
		}
		if _, ok := probe.PrimaryAudio(); !ok {
			return nil, errors.New("source has no audio stream")
		}
	}

	if d.Transcoder == nil {
		return nil, errors.New("decoder has no transcoder configured")
	}
	workDir, err := os.MkdirTemp(d.TempDir, "drillcut-decode-")
	if err != nil {
		return nil, fmt.Errorf("create decode dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	wavPath := filepath.Join(workDir, "decoded.wav")
	if err := d.Transcoder.DecodeWAV(ctx, path, wavPath); err != nil {
		return nil, err
	}
	return LoadWAV(wavPath)
}
