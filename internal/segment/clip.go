package segment

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Clip is a labeled time range of a source recording ready for extraction.
type Clip struct {
	Label   string
	Item    int
	Kind    Kind
	Source  string
	StartMs int
	EndMs   int
}

// StartSec returns the clip offset in seconds.
func (c Clip) StartSec() float64 {
	return float64(c.StartMs) / 1000
}

// DurationSec returns the clip length in seconds.
func (c Clip) DurationSec() float64 {
	return float64(c.EndMs-c.StartMs) / 1000
}

// FileName returns the clip's output name using ext (with or without a dot).
func (c Clip) FileName(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return c.Label + ext
}

// OutputPath joins the clip's file name onto dir.
func (c Clip) OutputPath(dir, ext string) string {
	return filepath.Join(dir, c.FileName(ext))
}

// Label formats a global item number and kind as a clip label.
func Label(item int, kind Kind) string {
	return fmt.Sprintf("%d_%s", item, kind)
}

// Clips labels the kept segments of recording n.
func Clips(rec Recording, kept []Segment, opts Options) []Clip {
	clips := make([]Clip, 0, len(kept))
	for i, seg := range kept {
		item, kind := LabelFor(rec.Index, i+1, opts.ItemsPerRecording)
		clips = append(clips, Clip{
			Label:   Label(item, kind),
			Item:    item,
			Kind:    kind,
			Source:  rec.Path,
			StartMs: seg.StartMs,
			EndMs:   seg.EndMs,
		})
	}
	return clips
}
