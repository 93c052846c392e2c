// Package runs records crawl history in SQLite: when each crawl started and
// finished, what it covered, and the snapshot it produced.
package runs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/progcat/traverse"
)

var (
	ErrRunNotFound   = errors.New("run not found")
	ErrRunFinished   = errors.New("run already finished")
	ErrInvalidStatus = errors.New("status must be completed, cancelled, or failed")
)

// Status is the state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Run is one crawl.
type Run struct {
	RunID      uuid.UUID  `json:"run_id"`
	Status     Status     `json:"status"`
	Categories []string   `json:"categories"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Pages      int        `json:"pages"`
	Programmes int        `json:"programmes"`
	Failures   int        `json:"failures"`
	Skipped    int        `json:"skipped"`
	Truncated  int        `json:"truncated"`
	CatalogID  *uuid.UUID `json:"catalog_id,omitempty"`
	Error      *string    `json:"error,omitempty"`
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Outcome is what a finished crawl reports.
type Outcome struct {
	Status    Status
	Stats     traverse.Stats
	CatalogID *uuid.UUID
	Err       error
}

// RunFilter restricts List.
type RunFilter struct {
	Status *Status
	// Since keeps runs started at or after this time.
	Since  *time.Time
	Limit  int
	Offset int
}

// RunStore manages crawl history using SQLite.
type RunStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewRunStore opens (creating if needed) the history database at dbPath.
func NewRunStore(dbPath string) (*RunStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &RunStore{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *RunStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		categories TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		pages INTEGER DEFAULT 0,
		programmes INTEGER DEFAULT 0,
		failures INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		truncated INTEGER DEFAULT 0,
		catalog_id TEXT,
		error TEXT
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// Start records a new running crawl over categories.
func (s *RunStore) Start(categories []string) (*Run, error) {
	if categories == nil {
		categories = []string{}
	}

	run := &Run{
		RunID:      uuid.New(),
		Status:     StatusRunning,
		Categories: categories,
		StartedAt:  s.now().Truncate(0),
	}

	data, err := json.Marshal(run.Categories)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal categories: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO runs (run_id, status, categories, started_at) VALUES (?, ?, ?, ?)`,
		run.RunID.String(),
		string(run.Status),
		string(data),
		formatTime(&run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	return run, nil
}

// Finish records the outcome of a running crawl.
func (s *RunStore) Finish(runID uuid.UUID, out Outcome) error {
	switch out.Status {
	case StatusCompleted, StatusCancelled, StatusFailed:
	default:
		return ErrInvalidStatus
	}

	run, err := s.Get(runID)
	if err != nil {
		return err
	}
	if run.Status != StatusRunning {
		return ErrRunFinished
	}

	now := s.now()
	var catalogID, errText any
	if out.CatalogID != nil {
		catalogID = out.CatalogID.String()
	}
	if out.Err != nil {
		errText = out.Err.Error()
	}

	result, err := s.db.Exec(`
		UPDATE runs SET
			status = ?, finished_at = ?, pages = ?, programmes = ?,
			failures = ?, skipped = ?, truncated = ?, catalog_id = ?, error = ?
		WHERE run_id = ? AND status = ?`,
		string(out.Status),
		formatTime(&now),
		out.Stats.Pages,
		out.Stats.Programmes,
		out.Stats.Failures,
		out.Stats.Skipped,
		out.Stats.Truncated,
		catalogID,
		errText,
		runID.String(),
		string(StatusRunning),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Finished by another writer since the Get above.
		return ErrRunFinished
	}

	return nil
}

const selectRun = `
	SELECT run_id, status, categories, started_at, finished_at,
	       pages, programmes, failures, skipped, truncated, catalog_id, error
	FROM runs
`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Get retrieves a run by ID.
func (s *RunStore) Get(runID uuid.UUID) (*Run, error) {
	run, err := scanRun(s.db.QueryRow(selectRun+" WHERE run_id = ?", runID.String()))
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return run, nil
}

// List returns runs, most recently started first.
func (s *RunStore) List(filter RunFilter) ([]Run, error) {
	query := selectRun
	var whereClauses []string
	var args []any

	if filter.Status != nil {
		whereClauses = append(whereClauses, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Since != nil {
		whereClauses = append(whereClauses, "started_at >= ?")
		args = append(args, formatTime(filter.Since))
	}

	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}

	query += " ORDER BY started_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	} else if filter.Offset > 0 {
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}

	return runs, nil
}

// Delete removes a run.
func (s *RunStore) Delete(runID uuid.UUID) error {
	result, err := s.db.Exec("DELETE FROM runs WHERE run_id = ?", runID.String())
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRunNotFound
	}

	return nil
}

func scanRun(row rowScanner) (*Run, error) {
	var runIDStr, status, categoriesJSON, startedAtStr string
	var finishedAtStr, catalogIDStr, errText sql.NullString
	var run Run

	err := row.Scan(
		&runIDStr, &status, &categoriesJSON, &startedAtStr, &finishedAtStr,
		&run.Pages, &run.Programmes, &run.Failures, &run.Skipped, &run.Truncated,
		&catalogIDStr, &errText,
	)
	if err != nil {
		return nil, err
	}

	run.RunID, err = uuid.Parse(runIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run ID: %w", err)
	}
	run.Status = Status(status)
	run.StartedAt = parseTime(startedAtStr)

	if err := json.Unmarshal([]byte(categoriesJSON), &run.Categories); err != nil {
		return nil, fmt.Errorf("failed to unmarshal categories: %w", err)
	}

	if finishedAtStr.Valid {
		t := parseTime(finishedAtStr.String)
		run.FinishedAt = &t
	}
	if catalogIDStr.Valid {
		id, err := uuid.Parse(catalogIDStr.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse catalog ID: %w", err)
		}
		run.CatalogID = &id
	}
	if errText.Valid && strings.TrimSpace(errText.String) != "" {
		run.Error = &errText.String
	}

	return &run, nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// UTC with fixed-width nanoseconds so text ordering matches time order
	return t.Truncate(0).UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}
