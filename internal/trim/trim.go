// Package trim removes trailing silence from split clips.
//
// A clip is analyzed backwards: silence is detected on the time-reversed
// signal, so the first interval found is the tail of the clip. Everything
// after that silence begins, less a short buffer, is dropped. The onset of
// the clip is never touched.
package trim

import (
	"drillcut/internal/audio"
)

// Result describes the trim decision for one clip.
type Result struct {
	DurationMs int
	TrimMs     int
	Trimmed    bool
	// Tail is the first silence interval on the reversed signal, when found.
	Tail *audio.Interval
	// ThresholdDB is the silence threshold used for detection.
	ThresholdDB float64
}

// Options holds trimmer thresholds.
type Options struct {
	ThresholdPaddingDB float64
	MinSilenceMs       int
	BufferMs           int
}

// DefaultOptions matches the reference trimmer: 20 dB below average loudness,
// 300 ms minimum silence, 200 ms kept after the voice ends.
func DefaultOptions() Options {
	return Options{ThresholdPaddingDB: 20, MinSilenceMs: 300, BufferMs: 200}
}

// TrimPoint returns where a clip of durationMs should end given the silence
// intervals found on its reversed signal. trimmed is false when there is no
// trailing silence or the trim point would not shorten the clip.
func TrimPoint(durationMs int, reversed []audio.Interval, bufferMs int) (int, bool) {
	if len(reversed) == 0 {
		return durationMs, false
	}
	trimMs := durationMs - max(0, reversed[0].EndMs-bufferMs)
	trimMs = max(0, trimMs)
	return trimMs, trimMs < durationMs
}

// Analyze computes the trim decision for a decoded clip.
func Analyze(buf *audio.Buffer, opts Options) Result {
	duration := buf.DurationMs()
	threshold := buf.DBFS() - opts.ThresholdPaddingDB
	intervals := audio.DetectSilence(buf.Reverse(), opts.MinSilenceMs, threshold)
	trimMs, trimmed := TrimPoint(duration, intervals, opts.BufferMs)
	res := Result{DurationMs: duration, TrimMs: trimMs, Trimmed: trimmed, ThresholdDB: threshold}
	if len(intervals) > 0 {
		tail := intervals[0]
		res.Tail = &tail
	}
	return res
}
