package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"drillcut/internal/metrics"
	"drillcut/internal/services"
	"drillcut/internal/stage"
	"drillcut/internal/testsupport"
)

type fakeHandler struct {
	name    string
	units   []stage.Unit
	process func(ctx context.Context, unit stage.Unit) (stage.Report, error)
	ready   bool
	active  atomic.Int32
	peak    atomic.Int32
}

func (f *fakeHandler) Name() string { return f.name }

func (f *fakeHandler) Discover(context.Context) ([]stage.Unit, error) { return f.units, nil }

func (f *fakeHandler) Process(ctx context.Context, unit stage.Unit) (stage.Report, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if unit.Err != nil {
		return stage.Report{}, unit.Err
	}
	return f.process(ctx, unit)
}

func (f *fakeHandler) HealthCheck(context.Context) stage.Health {
	if !f.ready {
		return stage.Unhealthy(f.name, "not ready")
	}
	return stage.Healthy(f.name)
}

func units(names ...string) []stage.Unit {
	out := make([]stage.Unit, len(names))
	for i, n := range names {
		out[i] = stage.Unit{Name: n, Path: n}
	}
	return out
}

func TestRunPreservesInputOrderAndBoundsConcurrency(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithConcurrency(3))
	h := &fakeHandler{
		name:  stage.Split,
		ready: true,
		units: units("001.mp3", "002.mp3", "003.mp3", "004.mp3", "005.mp3", "006.mp3"),
		process: func(_ context.Context, unit stage.Unit) (stage.Report, error) {
			// Earlier units sleep longer so completion order differs from input order.
			idx := int(unit.Name[2] - '0')
			time.Sleep(time.Duration(7-idx) * 5 * time.Millisecond)
			return stage.Report{Outputs: []string{unit.Name + ".clip"}}, nil
		},
	}
	r := NewRunner(cfg, nil, nil, nil)

	summary, err := r.Run(context.Background(), stage.Split, []stage.Handler{h}, Options{SkipPreflight: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, o := range summary.Outcomes {
		if want := fmt.Sprintf("00%d.mp3", i+1); o.Unit != want {
			t.Fatalf("outcome %d is %s, want %s", i, o.Unit, want)
		}
	}
	if summary.OK != 6 || summary.Clips != 6 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if peak := h.peak.Load(); peak > 3 {
		t.Fatalf("concurrency exceeded limit: %d", peak)
	}
}

func TestRunContinuesPastFailuresAndTimeouts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	h := &fakeHandler{
		name:  stage.Split,
		ready: true,
		units: append(units("001.mp3", "002.mp3", "003.mp3"),
			stage.Unit{Name: "intro.mp3", Err: services.Wrap(services.ErrFormat, "split", "parse", "intro.mp3", nil)}),
		process: func(ctx context.Context, unit stage.Unit) (stage.Report, error) {
			switch unit.Name {
			case "001.mp3":
				return stage.Report{}, services.Wrap(services.ErrDecode, "split", "decode", unit.Name, errors.New("invalid data"))
			case "002.mp3":
				<-ctx.Done()
				return stage.Report{}, services.Wrap(services.ErrExtraction, "split", "extract", "1_word", ctx.Err())
			default:
				return stage.Report{Outputs: []string{"a", "b"}, Retries: 1}, nil
			}
		},
	}
	r := NewRunner(cfg, nil, store, nil)
	r.timeout = 50 * time.Millisecond

	summary, err := r.Run(context.Background(), stage.Split, []stage.Handler{h}, Options{SkipPreflight: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	kinds := []string{}
	for _, o := range summary.Outcomes {
		kinds = append(kinds, o.Kind)
	}
	if want := []string{"decode", "timeout", "", "format"}; strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected kinds %v", kinds)
	}
	if summary.OK != 1 || summary.Failed != 3 || summary.Clips != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	recorded, err := store.UnitsForRun(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("UnitsForRun: %v", err)
	}
	if len(recorded) != 4 || recorded[1].ErrorKind != "timeout" || recorded[2].Retries != 1 {
		t.Fatalf("unexpected ledger units: %+v", recorded)
	}
	run, err := store.GetRun(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !run.Finished() || run.OK != 1 || run.Failed != 3 || run.Clips != 2 {
		t.Fatalf("unexpected ledger run: %+v", run)
	}
}

func TestRunFailsFastWhenLocked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.StateDir, 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	h := &fakeHandler{name: stage.Trim, ready: true}
	_, err = NewRunner(cfg, nil, nil, nil).Run(context.Background(), stage.Trim, []stage.Handler{h}, Options{SkipPreflight: true})
	if !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
}

func TestRunStopsOnUnhealthyStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := &fakeHandler{name: stage.Split}
	_, err := NewRunner(cfg, nil, nil, nil).Run(context.Background(), stage.Split, []stage.Handler{h}, Options{SkipPreflight: true})
	if err == nil || !strings.Contains(err.Error(), "not ready") {
		t.Fatalf("expected readiness failure, got %v", err)
	}
}

func TestRunSkipsUnitsAfterCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithConcurrency(1))
	ctx, cancel := context.WithCancel(context.Background())
	h := &fakeHandler{
		name:  stage.Trim,
		ready: true,
		units: units("1_word.mp3", "1_phrase.mp3", "2_word.mp3"),
		process: func(context.Context, stage.Unit) (stage.Report, error) {
			cancel()
			return stage.Report{Outputs: []string{"x"}}, nil
		},
	}
	summary, err := NewRunner(cfg, nil, nil, nil).Run(ctx, stage.Trim, []stage.Handler{h}, Options{SkipPreflight: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.OK != 1 || summary.Skipped != 2 {
		t.Fatalf("expected 1 ok and 2 skipped, got %+v", summary)
	}
}

func TestRunWritesMetricsTextfile(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMetricsTextfile())
	h := &fakeHandler{
		name:  stage.Trim,
		ready: true,
		units: units("1_word.mp3"),
		process: func(context.Context, stage.Unit) (stage.Report, error) {
			return stage.Report{Outputs: []string{"1_word.mp3"}}, nil
		},
	}
	_, err := NewRunner(cfg, nil, nil, metrics.New()).Run(context.Background(), stage.Trim, []stage.Handler{h}, Options{SkipPreflight: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := os.ReadFile(cfg.Metrics.Textfile)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(data), `drillcut_units_total{stage="trim",status="ok"} 1`) {
		t.Fatalf("unexpected metrics:\n%s", data)
	}
}

// stubFFmpeg copies the -i input to the final argument, so sources written
// as WAV data decode and "extract" without a real ffmpeg.
const stubFFmpeg = `src=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "-i" ]; then src="$arg"; fi
  prev="$arg"
  last="$arg"
done
cp "$src" "$last"
`

const stubFFprobe = `cat <<'JSON'
{"streams":[{"index":0,"codec_type":"audio","codec_name":"mp3","sample_rate":"1000","channels":1}],"format":{"duration":"12.0"}}
JSON
`

func TestFullRunWithStubbedFFmpeg(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	binDir := filepath.Join(testsupport.BaseDir(cfg), "bin")
	cfg.FFmpeg.Binary = testsupport.WriteScript(t, binDir, "ffmpeg", stubFFmpeg)
	cfg.FFmpeg.FFprobeBinary = testsupport.WriteScript(t, binDir, "ffprobe", stubFFprobe)
	testsupport.WriteWAV(t, filepath.Join(cfg.Paths.SourceDir, "001.mp3"), testsupport.DrillRecording())

	store := testsupport.MustOpenLedger(t, cfg)
	stages := BuildStages(cfg, nil, false)
	stages.Split.RetryDelay = 0
	stages.Trim.RetryDelay = 0

	summary, err := NewRunner(cfg, nil, store, nil).Run(context.Background(), FullRun, stages.For(FullRun), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 0 || summary.OK != 3 || summary.Clips != 4 {
		for _, o := range summary.Outcomes {
			t.Logf("%s %s %s %v", o.Stage, o.Unit, o.Status, o.Err)
		}
		t.Fatalf("unexpected summary: %+v", summary)
	}
	clips := testsupport.ListNames(t, cfg.Paths.ClipsDir)
	trimmed := testsupport.ListNames(t, cfg.Paths.TrimmedDir)
	want := []string{"1_phrase.mp3", "1_word.mp3"}
	if strings.Join(clips, ",") != strings.Join(want, ",") || strings.Join(trimmed, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected pools: clips=%v trimmed=%v", clips, trimmed)
	}
	runs, err := store.RecentRuns(context.Background(), 1)
	if err != nil || len(runs) != 1 || runs[0].Stage != FullRun || runs[0].OK != 3 {
		t.Fatalf("unexpected ledger runs: %+v err=%v", runs, err)
	}
}

func TestStagesFor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stages := BuildStages(cfg, nil, true)
	if !stages.Split.DryRun || !stages.Trim.DryRun {
		t.Fatal("expected dry run to propagate")
	}
	if got := stages.For(stage.Split); len(got) != 1 || got[0].Name() != stage.Split {
		t.Fatalf("unexpected split handlers: %v", got)
	}
	if got := stages.For(FullRun); len(got) != 2 || got[1].Name() != stage.Trim {
		t.Fatalf("unexpected full handlers: %v", got)
	}
}
