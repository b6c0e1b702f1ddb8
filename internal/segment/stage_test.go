package segment_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"

	"drillcut/internal/audio"
	"drillcut/internal/segment"
	"drillcut/internal/services"
	"drillcut/internal/stage"
	"drillcut/internal/testsupport"
)

type fakeDecoder struct {
	buf *audio.Buffer
	err error
}

func (f fakeDecoder) Decode(context.Context, string) (*audio.Buffer, error) {
	return f.buf, f.err
}

type call struct {
	src, dst        string
	start, duration float64
}

type recordingExtractor struct {
	mu       sync.Mutex
	calls    []call
	failures map[string]int
}

func (r *recordingExtractor) Extract(_ context.Context, src, dst string, start, duration float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{src: src, dst: dst, start: start, duration: duration})
	name := filepath.Base(dst)
	if r.failures[name] > 0 {
		r.failures[name]--
		return errors.New("ffmpeg exited 1")
	}
	return os.WriteFile(dst, []byte(name), 0o644)
}

func newStage(t *testing.T, buf *audio.Buffer, ex segment.Extractor) (*segment.Stage, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	s := segment.NewStage(cfg, fakeDecoder{buf: buf}, ex, nil)
	s.RetryDelay = 0
	return s, cfg.Paths.SourceDir
}

func TestDiscoverOrdersByIndexAndRejectsUnnumbered(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"010.mp3", "2.mp3", "002.mp3", "intro.mp3", "000.mp3", "003.wav"} {
		testsupport.WriteFile(t, filepath.Join(dir, name), 4)
	}

	recs, rejected, err := segment.Discover(dir, []string{".mp3"})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	var got []string
	for _, r := range recs {
		got = append(got, r.Name)
	}
	if want := []string{"002.mp3", "2.mp3", "010.mp3"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected order: %v", got)
	}
	if len(rejected) != 2 {
		t.Fatalf("expected 2 rejected, got %+v", rejected)
	}
	for _, r := range rejected {
		if !errors.Is(r.Err, services.ErrFormat) {
			t.Fatalf("expected format error for %s, got %v", r.Name, r.Err)
		}
	}
}

func TestProcessExtractsKeptClips(t *testing.T) {
	ex := &recordingExtractor{}
	s, src := newStage(t, testsupport.DrillRecording(), ex)
	testsupport.WriteFile(t, filepath.Join(src, "002.mp3"), 8)

	units, err := s.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	report, err := s.Process(context.Background(), units[0])
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(report.Outputs) != 2 {
		t.Fatalf("expected 2 outputs, got %v", report.Outputs)
	}
	if got := testsupport.ListNames(t, s.OutputDir); !reflect.DeepEqual(got, []string{"10_phrase.mp3", "10_word.mp3"}) {
		t.Fatalf("unexpected clips: %v", got)
	}
	if len(ex.calls) != 2 {
		t.Fatalf("expected 2 extractions, got %d", len(ex.calls))
	}
	word, phrase := ex.calls[0], ex.calls[1]
	if !strings.HasSuffix(word.dst, "10_word.mp3") || !strings.HasSuffix(phrase.dst, "10_phrase.mp3") {
		t.Fatalf("clips not extracted in time order: %+v", ex.calls)
	}
	if word.start >= phrase.start || word.duration <= 0 || phrase.duration <= 0 {
		t.Fatalf("unexpected ranges: %+v", ex.calls)
	}
	if word.src != filepath.Join(src, "002.mp3") {
		t.Fatalf("unexpected source %q", word.src)
	}
}

func TestProcessContinuesAfterClipFailure(t *testing.T) {
	ex := &recordingExtractor{failures: map[string]int{"1_word.mp3": 5}}
	s, src := newStage(t, testsupport.DrillRecording(), ex)
	s.Attempts = 2
	testsupport.WriteFile(t, filepath.Join(src, "001.mp3"), 8)

	report, err := s.Process(context.Background(), stage.Unit{Name: "001.mp3", Path: filepath.Join(src, "001.mp3")})
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected extraction failure, got %v", err)
	}
	if len(report.Outputs) != 1 || !strings.HasSuffix(report.Outputs[0], "1_phrase.mp3") {
		t.Fatalf("expected phrase clip to be written, got %v", report.Outputs)
	}
	if report.Retries != 1 {
		t.Fatalf("expected 1 retry, got %d", report.Retries)
	}
	if len(ex.calls) != 3 {
		t.Fatalf("expected 3 extraction calls, got %d", len(ex.calls))
	}
}

func TestProcessRetriesTransientFailure(t *testing.T) {
	ex := &recordingExtractor{failures: map[string]int{"1_phrase.mp3": 1}}
	s, src := newStage(t, testsupport.DrillRecording(), ex)
	s.Attempts = 2
	testsupport.WriteFile(t, filepath.Join(src, "001.mp3"), 8)

	report, err := s.Process(context.Background(), stage.Unit{Name: "001.mp3", Path: filepath.Join(src, "001.mp3")})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(report.Outputs) != 2 || report.Retries != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestProcessDryRunWritesNothing(t *testing.T) {
	ex := &recordingExtractor{}
	s, src := newStage(t, testsupport.DrillRecording(), ex)
	s.DryRun = true
	testsupport.WriteFile(t, filepath.Join(src, "003.mp3"), 8)

	report, err := s.Process(context.Background(), stage.Unit{Name: "003.mp3", Path: filepath.Join(src, "003.mp3")})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(ex.calls) != 0 {
		t.Fatalf("dry run must not extract, got %d calls", len(ex.calls))
	}
	var names []string
	for _, p := range report.Planned {
		names = append(names, filepath.Base(p))
	}
	if !reflect.DeepEqual(names, []string{"19_word.mp3", "19_phrase.mp3"}) {
		t.Fatalf("unexpected plan: %v", names)
	}
	if _, err := os.Stat(s.OutputDir); !os.IsNotExist(err) {
		t.Fatalf("dry run must not create the output dir, stat err=%v", err)
	}
}

func TestProcessFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	s := segment.NewStage(cfg, fakeDecoder{err: errors.New("invalid data found")}, &recordingExtractor{}, nil)
	_, err := s.Process(context.Background(), stage.Unit{Name: "001.mp3", Path: "001.mp3"})
	if !errors.Is(err, services.ErrDecode) || services.Kind(err) != services.KindDecode {
		t.Fatalf("expected decode failure, got %v", err)
	}

	_, err = s.Process(context.Background(), stage.Unit{Name: "lesson.mp3", Path: "lesson.mp3"})
	if services.Kind(err) != services.KindFormat {
		t.Fatalf("expected format failure, got %v", err)
	}
}

func TestProcessSilentRecordingYieldsNoClips(t *testing.T) {
	ex := &recordingExtractor{}
	s, src := newStage(t, testsupport.DrillBuffer(0, testsupport.Quiet(5000)), ex)
	report, err := s.Process(context.Background(), stage.Unit{Name: "004.mp3", Path: filepath.Join(src, "004.mp3")})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(report.Outputs) != 0 || len(ex.calls) != 0 {
		t.Fatalf("expected no clips for a silent recording, got %+v", report)
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	ex := &recordingExtractor{}
	s, src := newStage(t, testsupport.DrillRecording(), ex)
	for _, name := range []string{"001.mp3", "002.mp3"} {
		testsupport.WriteFile(t, filepath.Join(src, name), 8)
	}

	runOnce := func() []string {
		units, err := s.Discover(context.Background())
		if err != nil {
			t.Fatalf("Discover: %v", err)
		}
		var outputs []string
		for _, unit := range units {
			report, err := s.Process(context.Background(), unit)
			if err != nil {
				t.Fatalf("Process %s: %v", unit.Name, err)
			}
			outputs = append(outputs, report.Outputs...)
		}
		sort.Strings(outputs)
		return outputs
	}
	first := runOnce()
	second := runOnce()
	if len(first) != 4 || !reflect.DeepEqual(first, second) {
		t.Fatalf("outputs differ across runs:\n%v\n%v", first, second)
	}
	if got := testsupport.ListNames(t, s.OutputDir); len(got) != 4 {
		t.Fatalf("expected overwritten clips, got %v", got)
	}
}

func TestHealthCheck(t *testing.T) {
	s, src := newStage(t, nil, &recordingExtractor{})
	if h := s.HealthCheck(context.Background()); h.Ready {
		t.Fatal("expected unhealthy before the source dir exists")
	}
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if h := s.HealthCheck(context.Background()); !h.Ready {
		t.Fatalf("expected healthy, got %+v", h)
	}
}
