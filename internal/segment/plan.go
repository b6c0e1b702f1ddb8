package segment

import (
	"drillcut/internal/audio"
)

// Kind distinguishes the two clip forms each vocabulary item produces.
type Kind string

const (
	KindWord   Kind = "word"
	KindPhrase Kind = "phrase"
)

// Options holds the structural constants of a drill recording.
type Options struct {
	StartShiftMs      int
	SegmentsPerItem   int
	WordPosition      int
	PhrasePosition    int
	ItemsPerRecording int
}

// DefaultOptions matches the reference recording layout: four utterances per
// item with the word first and the phrase last, nine items per recording.
func DefaultOptions() Options {
	return Options{
		StartShiftMs:      200,
		SegmentsPerItem:   4,
		WordPosition:      0,
		PhrasePosition:    3,
		ItemsPerRecording: 9,
	}
}

// Segment is a candidate utterance within a recording.
type Segment struct {
	Index   int
	StartMs int
	EndMs   int
}

// DurationMs returns the segment length.
func (s Segment) DurationMs() int {
	return s.EndMs - s.StartMs
}

// Plan derives utterance boundaries from ordered silence intervals.
//
// Speech starts where leading silence ends (or at zero) and again at the end
// of every later interval. Each start moves StartShiftMs earlier, clamped at
// zero, and each segment runs to the next start or to the end of the
// recording.
func Plan(intervals []audio.Interval, durationMs int, opts Options) []Segment {
	firstVoice := 0
	if len(intervals) > 0 && intervals[0].StartMs == 0 {
		firstVoice = intervals[0].EndMs
	}

	starts := make([]int, 0, len(intervals)+1)
	starts = append(starts, firstVoice)
	for _, iv := range intervals {
		if iv.EndMs > firstVoice {
			starts = append(starts, iv.EndMs)
		}
	}
	for i, s := range starts {
		starts[i] = max(0, s-opts.StartShiftMs)
	}

	segments := make([]Segment, len(starts))
	for i, start := range starts {
		end := durationMs
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		segments[i] = Segment{Index: i, StartMs: start, EndMs: end}
	}
	return segments
}

// Keep returns the word and phrase segments of every complete item group in
// time order. A trailing partial group is dropped.
func Keep(segments []Segment, opts Options) []Segment {
	per := opts.SegmentsPerItem
	if per <= 0 {
		return nil
	}
	limit := (len(segments) / per) * per
	kept := make([]Segment, 0, 2*(limit/per))
	for i := range limit {
		pos := i % per
		if pos == opts.WordPosition || pos == opts.PhrasePosition {
			kept = append(kept, segments[i])
		}
	}
	return kept
}

// LabelFor maps the 1-based position of a kept segment within recording n to
// its global item number and clip kind. Odd positions are words, even
// positions the phrase of the same item.
func LabelFor(n, newIndex, itemsPerRecording int) (int, Kind) {
	k := (newIndex + 1) / 2
	kind := KindPhrase
	if newIndex%2 == 1 {
		kind = KindWord
	}
	return (n-1)*itemsPerRecording + k, kind
}
