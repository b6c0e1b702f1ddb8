package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"drillcut/internal/config"
)

var (
	// ErrRunNotFound indicates no run matches the requested identifier.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousRun indicates a run ID prefix matches more than one run.
	ErrAmbiguousRun = errors.New("run id prefix is ambiguous")
)

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the ledger under the configured state dir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.LedgerPath())
}

// OpenPath initializes or connects to the ledger database at path.
func OpenPath(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun opens a new run with a random UUID.
func (s *Store) BeginRun(ctx context.Context, stage, sourceDir string, dryRun bool) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Stage:     stage,
		DryRun:    dryRun,
		SourceDir: sourceDir,
		StartedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, stage, dry_run, source_dir, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Stage, boolToInt(dryRun), nullableString(sourceDir), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// RecordUnit appends one unit outcome to its run.
func (s *Store) RecordUnit(ctx context.Context, unit Unit) error {
	if strings.TrimSpace(unit.RunID) == "" {
		return errors.New("record unit: run id required")
	}
	if unit.Status == "" {
		return errors.New("record unit: status required")
	}
	if unit.RecordedAt.IsZero() {
		unit.RecordedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO units (
            run_id, stage, name, status, error_kind, message, clips, retries, duration_ms, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		unit.RunID,
		unit.Stage,
		unit.Name,
		string(unit.Status),
		nullableString(unit.ErrorKind),
		nullableString(unit.Message),
		unit.Clips,
		unit.Retries,
		unit.Duration.Milliseconds(),
		formatTime(unit.RecordedAt.UTC()),
	)
	if err != nil {
		return fmt.Errorf("insert unit: %w", err)
	}
	return nil
}

// FinishRun stamps the run's finish time and folds its unit outcomes into
// the run counters.
func (s *Store) FinishRun(ctx context.Context, runID string) (*Run, error) {
	finished := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET
            finished_at = ?,
            ok_count = (SELECT COUNT(1) FROM units WHERE run_id = runs.id AND status = ?),
            failed_count = (SELECT COUNT(1) FROM units WHERE run_id = runs.id AND status = ?),
            skipped_count = (SELECT COUNT(1) FROM units WHERE run_id = runs.id AND status = ?),
            clip_count = (SELECT COALESCE(SUM(clips), 0) FROM units WHERE run_id = runs.id)
        WHERE id = ?`,
		formatTime(finished), string(StatusOK), string(StatusFailed), string(StatusSkipped), runID,
	)
	if err != nil {
		return nil, fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return s.GetRun(ctx, runID)
}

const runColumns = `id, stage, dry_run, source_dir, started_at, finished_at, ok_count, failed_count, skipped_count, clip_count`

// GetRun fetches a run by its full ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// ResolveRunID expands a unique ID prefix to the full run ID.
func (s *Store) ResolveRunID(ctx context.Context, prefix string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", errors.New("run id required")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escapeLike(prefix)+"%")
	if err != nil {
		return "", fmt.Errorf("resolve run id: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousRun, prefix)
	}
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// UnitsForRun returns the unit outcomes of a run in recording order.
func (s *Store) UnitsForRun(ctx context.Context, runID string) ([]Unit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, stage, name, status, error_kind, message, clips, retries, duration_ms, recorded_at
         FROM units WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var units []Unit
	for rows.Next() {
		var (
			u          Unit
			status     string
			errorKind  sql.NullString
			message    sql.NullString
			durationMs int64
			recordedAt string
		)
		if err := rows.Scan(&u.ID, &u.RunID, &u.Stage, &u.Name, &status, &errorKind, &message,
			&u.Clips, &u.Retries, &durationMs, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		u.Status = Status(status)
		u.ErrorKind = errorKind.String
		u.Message = message.String
		u.Duration = time.Duration(durationMs) * time.Millisecond
		u.RecordedAt = parseTime(recordedAt)
		units = append(units, u)
	}
	return units, rows.Err()
}

// FailedSince returns the number of failed units recorded after t.
func (s *Store) FailedSince(ctx context.Context, t time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM units WHERE status = ? AND recorded_at >= ?`,
		string(StatusFailed), formatTime(t.UTC()),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count failures: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run       Run
		dryRun    int
		sourceDir sql.NullString
		started   string
		finished  sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Stage, &dryRun, &sourceDir, &started, &finished,
		&run.OK, &run.Failed, &run.Skipped, &run.Clips); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.DryRun = dryRun != 0
	run.SourceDir = sourceDir.String
	run.StartedAt = parseTime(started)
	if finished.Valid && finished.String != "" {
		t := parseTime(finished.String)
		run.FinishedAt = &t
	}
	return &run, nil
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func escapeLike(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(value)
}
