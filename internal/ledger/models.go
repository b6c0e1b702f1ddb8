package ledger

import "time"

// Status is the outcome of one unit.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Run is one invocation of split, trim, or both.
type Run struct {
	ID         string
	Stage      string
	DryRun     bool
	SourceDir  string
	StartedAt  time.Time
	FinishedAt *time.Time
	OK         int
	Failed     int
	Skipped    int
	Clips      int
}

// Finished reports whether FinishRun has been called for the run.
func (r Run) Finished() bool {
	return r.FinishedAt != nil
}

// Duration returns the wall time of a finished run, or zero.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Unit is the recorded outcome of one recording or clip.
type Unit struct {
	ID         int64
	RunID      string
	Stage      string
	Name       string
	Status     Status
	ErrorKind  string
	Message    string
	Clips      int
	Retries    int
	Duration   time.Duration
	RecordedAt time.Time
}
