package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"drillcut/internal/stage"
	"drillcut/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCreatableDirectory(t *testing.T) {
	base := t.TempDir()
	if r := CheckCreatableDirectory("clips", filepath.Join(base, "a", "b")); !r.Passed {
		t.Fatalf("expected creatable nested dir, got %s", r.Detail)
	}
	file := filepath.Join(base, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckCreatableDirectory("clips", filepath.Join(file, "child")); r.Passed {
		t.Fatal("expected failure under a regular file")
	}
}

func TestRunAllWithStubbedBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := os.MkdirAll(cfg.Paths.SourceDir, 0o755); err != nil {
		t.Fatal(err)
	}

	results := RunAll(cfg, stage.Split, stage.Trim)
	if err := Err(results); err != nil {
		t.Fatalf("expected all checks to pass: %v", err)
	}
	names := map[string]bool{}
	for _, r := range results {
		names[r.Name] = true
	}
	for _, want := range []string{"FFmpeg", "FFprobe", "Source directory", "Clips directory", "Trimmed directory", "State directory"} {
		if !names[want] {
			t.Fatalf("missing check %q in %+v", want, results)
		}
	}
}

func TestRunAllReportsMissingBinaryAndSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.FFmpeg.Binary = filepath.Join(t.TempDir(), "no-ffmpeg")

	err := Err(RunAll(cfg, stage.Split))
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	for _, want := range []string{"FFmpeg", "Source directory"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestRunAllTrimOnlyRequiresClipsDir(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	results := RunAll(cfg, stage.Trim)
	var clips *Result
	for i := range results {
		if results[i].Name == "Clips directory" {
			clips = &results[i]
		}
		if results[i].Name == "Source directory" {
			t.Fatal("trim-only preflight must not check the source dir")
		}
	}
	if clips == nil || clips.Passed {
		t.Fatalf("expected failing clips check, got %+v", clips)
	}
}
