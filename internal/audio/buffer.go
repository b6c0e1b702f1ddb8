package audio

import (
	"math"
)

// Buffer is a mono run of signed PCM samples.
type Buffer struct {
	Samples    []int
	SampleRate int
	BitDepth   int
}

// Interval is a half-open [StartMs, EndMs) span in milliseconds.
type Interval struct {
	StartMs int
	EndMs   int
}

// DurationMs returns the interval length.
func (i Interval) DurationMs() int {
	return i.EndMs - i.StartMs
}

// Frames returns the number of samples.
func (b *Buffer) Frames() int {
	if b == nil {
		return 0
	}
	return len(b.Samples)
}

// DurationMs returns the buffer length rounded to the nearest millisecond.
func (b *Buffer) DurationMs() int {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return int(math.Round(1000 * float64(len(b.Samples)) / float64(b.SampleRate)))
}

// MaxAmplitude is the full-scale magnitude for the buffer's bit depth.
func (b *Buffer) MaxAmplitude() float64 {
	depth := 16
	if b != nil && b.BitDepth > 0 {
		depth = b.BitDepth
	}
	return math.Pow(2, float64(depth-1))
}

// RMS returns the root mean square of all samples, truncated to an integer
// amplitude.
func (b *Buffer) RMS() float64 {
	if b == nil || len(b.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range b.Samples {
		v := float64(s)
		sum += v * v
	}
	return math.Floor(math.Sqrt(sum / float64(len(b.Samples))))
}

// DBFS returns the average loudness relative to full scale. A silent or
// empty buffer is negative infinity.
func (b *Buffer) DBFS() float64 {
	rms := b.RMS()
	if rms == 0 {
		return math.Inf(-1)
	}
	return RatioToDB(rms / b.MaxAmplitude())
}

// Reverse returns a time-reversed copy.
func (b *Buffer) Reverse() *Buffer {
	if b == nil {
		return nil
	}
	out := &Buffer{SampleRate: b.SampleRate, BitDepth: b.BitDepth, Samples: make([]int, len(b.Samples))}
	last := len(b.Samples) - 1
	for i, s := range b.Samples {
		out.Samples[last-i] = s
	}
	return out
}

// Slice returns the samples between startMs and endMs, clamped to the buffer.
// The result shares storage with b.
func (b *Buffer) Slice(startMs, endMs int) *Buffer {
	if b == nil {
		return nil
	}
	start := b.frameIndex(startMs)
	end := b.frameIndex(endMs)
	if end < start {
		end = start
	}
	return &Buffer{SampleRate: b.SampleRate, BitDepth: b.BitDepth, Samples: b.Samples[start:end]}
}

// frameIndex converts a millisecond offset to a sample index clamped to the buffer.
func (b *Buffer) frameIndex(ms int) int {
	if ms <= 0 || b.SampleRate <= 0 {
		return 0
	}
	idx := int(int64(ms) * int64(b.SampleRate) / 1000)
	if idx > len(b.Samples) {
		return len(b.Samples)
	}
	return idx
}

// RatioToDB converts an amplitude ratio to decibels.
func RatioToDB(ratio float64) float64 {
	if ratio <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(ratio)
}

// DBToRatio converts decibels to an amplitude ratio.
func DBToRatio(db float64) float64 {
	return math.Pow(10, db/20)
}
