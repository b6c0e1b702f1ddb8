package audio

import (
	"math"
)

// DetectSilence returns the spans of buf at least minSilenceMs long whose
// RMS stays at or below threshDB relative to full scale, ordered by start.
//
// Every window start is tested at 1 ms resolution. A new interval opens only
// when the next qualifying start is neither adjacent to the previous one nor
// inside the previous window, so overlapping windows coalesce and each
// interval ends minSilenceMs after its last qualifying start.
func DetectSilence(buf *Buffer, minSilenceMs int, threshDB float64) []Interval {
	if buf == nil || minSilenceMs <= 0 {
		return nil
	}
	segLen := buf.DurationMs()
	if segLen < minSilenceMs {
		return nil
	}
	thresh := DBToRatio(threshDB) * buf.MaxAmplitude()
	prefix := squarePrefix(buf.Samples)

	lastStart := segLen - minSilenceMs
	starts := make([]int, 0, 64)
	for i := 0; i <= lastStart; i++ {
		lo := buf.frameIndex(i)
		hi := buf.frameIndex(i + minSilenceMs)
		if windowRMS(prefix, lo, hi) <= thresh {
			starts = append(starts, i)
		}
	}
	return mergeStarts(starts, minSilenceMs)
}

// mergeStarts folds ascending qualifying window starts into intervals.
func mergeStarts(starts []int, minSilenceMs int) []Interval {
	if len(starts) == 0 {
		return nil
	}
	ranges := make([]Interval, 0, 8)
	current := starts[0]
	prev := starts[0]
	for _, start := range starts[1:] {
		continuous := start == prev+1
		gap := start > prev+minSilenceMs
		if !continuous && gap {
			ranges = append(ranges, Interval{StartMs: current, EndMs: prev + minSilenceMs})
			current = start
		}
		prev = start
	}
	ranges = append(ranges, Interval{StartMs: current, EndMs: prev + minSilenceMs})
	return ranges
}

// squarePrefix returns p where p[i] is the sum of squares of samples[:i].
// Samples are at most 16-bit, so int64 holds hours of audio.
func squarePrefix(samples []int) []int64 {
	prefix := make([]int64, len(samples)+1)
	for i, s := range samples {
		v := int64(s)
		prefix[i+1] = prefix[i] + v*v
	}
	return prefix
}

func windowRMS(prefix []int64, lo, hi int) float64 {
	n := hi - lo
	if n <= 0 {
		return 0
	}
	sum := prefix[hi] - prefix[lo]
	return math.Floor(math.Sqrt(float64(sum) / float64(n)))
}
