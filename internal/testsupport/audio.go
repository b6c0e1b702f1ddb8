package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"drillcut/internal/audio"
)

// Span is a stretch of synthetic signal: a square wave when Loud, zeros
// otherwise.
type Span struct {
	Loud bool
	Ms   int
}

// Loud returns a voiced span of ms milliseconds.
func Loud(ms int) Span { return Span{Loud: true, Ms: ms} }

// Quiet returns a silent span of ms milliseconds.
func Quiet(ms int) Span { return Span{Ms: ms} }

// DrillBuffer renders spans at a 1 kHz sample rate, one sample per
// millisecond, with loud spans at ±amplitude.
func DrillBuffer(amplitude int, spans ...Span) *audio.Buffer {
	return RenderBuffer(1000, amplitude, spans...)
}

// RenderBuffer renders spans at the given sample rate.
func RenderBuffer(rate, amplitude int, spans ...Span) *audio.Buffer {
	var samples []int
	for _, s := range spans {
		frames := s.Ms * rate / 1000
		for i := range frames {
			switch {
			case !s.Loud:
				samples = append(samples, 0)
			case i%2 == 0:
				samples = append(samples, amplitude)
			default:
				samples = append(samples, -amplitude)
			}
		}
	}
	return &audio.Buffer{Samples: samples, SampleRate: rate, BitDepth: 16}
}

// WriteWAV writes buf to path as 16-bit mono PCM.
func WriteWAV(t testing.TB, path string, buf *audio.Buffer) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := audio.WriteWAV(path, buf); err != nil {
		t.Fatalf("write wav %s: %v", path, err)
	}
}

// DrillRecording returns a 12 s recording with leading silence followed by
// five utterances, each trailed by a 1.5 s pause. It splits into six
// segments: one complete item and a partial trailing group.
func DrillRecording() *audio.Buffer {
	spans := []Span{Quiet(1500)}
	for range 5 {
		spans = append(spans, Loud(600), Quiet(1500))
	}
	return DrillBuffer(10000, spans...)
}
