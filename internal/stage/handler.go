package stage

import (
	"context"
	"log/slog"
)

// Names of the two pipeline stages.
const (
	Split = "split"
	Trim  = "trim"
)

// Unit is one independently processed input of a stage: a recording for the
// splitter, a clip for the trimmer.
type Unit struct {
	Name string
	Path string
	// Err carries a discovery failure; such units are recorded without
	// being processed.
	Err error
}

// Report describes what processing a unit produced.
type Report struct {
	Outputs []string
	// Retries counts extra extraction attempts spent on the unit.
	Retries int
	// Planned lists outputs that a dry run would have written.
	Planned []string
}

// Handler describes the contract the pipeline runner needs from each stage.
type Handler interface {
	Name() string
	Discover(context.Context) ([]Unit, error)
	Process(context.Context, Unit) (Report, error)
	HealthCheck(context.Context) Health
}

// LoggerAware is implemented by handlers that accept a run-scoped logger.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
