package preflight

import (
	"errors"
	"fmt"
	"strings"

	"drillcut/internal/config"
	"drillcut/internal/deps"
	"drillcut/internal/stage"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks needed by the named stages. An empty list
// checks everything.
func RunAll(cfg *config.Config, stages ...string) []Result {
	if cfg == nil {
		return nil
	}
	wants := func(name string) bool {
		if len(stages) == 0 {
			return true
		}
		for _, s := range stages {
			if s == name {
				return true
			}
		}
		return false
	}

	var results []Result
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, fromDependency(status))
	}
	if wants(stage.Split) {
		results = append(results, CheckReadableDirectory("Source directory", cfg.Paths.SourceDir))
		results = append(results, CheckCreatableDirectory("Clips directory", cfg.Paths.ClipsDir))
	}
	if wants(stage.Trim) {
		if !wants(stage.Split) {
			results = append(results, CheckReadableDirectory("Clips directory", cfg.Paths.ClipsDir))
		}
		results = append(results, CheckCreatableDirectory("Trimmed directory", cfg.Paths.TrimmedDir))
	}
	results = append(results, CheckCreatableDirectory("State directory", cfg.Paths.StateDir))
	return results
}

// Err joins the failed results into one error, or returns nil.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return errors.New("preflight failed: " + strings.Join(failed, "; "))
}

func fromDependency(status deps.Status) Result {
	if status.Available {
		return Result{Name: status.Name, Passed: true, Detail: status.Command}
	}
	return Result{Name: status.Name, Passed: status.Optional, Detail: status.Detail}
}
