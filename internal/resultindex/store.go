// Package resultindex keeps a SQLite history of processed images and their
// per-peak statistics so results can be listed across many images without
// reopening every cache file.
package resultindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"projtrace/internal/projection"
	"projtrace/internal/services"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// Fixed width so created_at sorts lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store is the results index database.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// PeakRow is one peak of one box in a run. Non-finite statistics are
// stored as NULL and read back as NaN.
type PeakRow struct {
	Box       string  `json:"box"`
	PeakIndex int     `json:"peak_index"`
	Offset    float64 `json:"offset"`
	MovedPeak int     `json:"moved_peak"`
	Baseline  float64 `json:"baseline"`
	Centroid  float64 `json:"centroid"`
	Width     float64 `json:"width"`
	FitError  float64 `json:"fit_error"`
}

// Run is one recorded processing of an image.
type Run struct {
	ID             string    `json:"id"`
	ImagePath      string    `json:"image_path"`
	ProgramVersion string    `json:"program_version"`
	CreatedAt      time.Time `json:"created_at"`
	Peaks          []PeakRow `json:"peaks"`
}

// Open creates or opens the index at path.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "resultindex", "open", "index path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
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
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// RowsFromResults flattens box results into index rows.
func RowsFromResults(results []projection.BoxResult) []PeakRow {
	var rows []PeakRow
	for _, r := range results {
		for _, pk := range r.Peaks {
			rows = append(rows, PeakRow{
				Box:       r.Name,
				PeakIndex: pk.Index,
				Offset:    pk.Offset,
				MovedPeak: pk.Position,
				Baseline:  pk.Baseline,
				Centroid:  pk.Centroid,
				Width:     pk.Width,
				FitError:  r.Error,
			})
		}
	}
	return rows
}

// Add records a run of imagePath with a fresh run ID.
func (s *Store) Add(ctx context.Context, imagePath, programVersion string, peaks []PeakRow) (Run, error) {
	run := Run{
		ID:             uuid.NewString(),
		ImagePath:      imagePath,
		ProgramVersion: programVersion,
		CreatedAt:      s.now().UTC(),
		Peaks:          peaks,
	}

	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO runs (id, image_path, program_version, created_at) VALUES (?, ?, ?, ?)",
			run.ID, run.ImagePath, run.ProgramVersion, run.CreatedAt.Format(timeLayout),
		); err != nil {
			return err
		}
		for _, pk := range peaks {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO peaks (run_id, box, peak_index, peak_offset, moved_peak, baseline, centroid, width, fit_error)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				run.ID, pk.Box, pk.PeakIndex, nullable(pk.Offset), pk.MovedPeak,
				nullable(pk.Baseline), nullable(pk.Centroid), nullable(pk.Width), nullable(pk.FitError),
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return Run{}, services.Wrap(services.ErrPersistence, "resultindex", "add run", imagePath, err)
	}
	return run, nil
}

// Runs lists recorded runs, oldest first. An empty imagePath lists every
// image.
func (s *Store) Runs(ctx context.Context, imagePath string) ([]Run, error) {
	query := "SELECT id, image_path, program_version, created_at FROM runs"
	var args []any
	if imagePath != "" {
		query += " WHERE image_path = ?"
		args = append(args, imagePath)
	}
	query += " ORDER BY created_at, rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run     Run
			created string
		)
		if err := rows.Scan(&run.ID, &run.ImagePath, &run.ProgramVersion, &created); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.CreatedAt = parseTime(created)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	rows.Close()

	for i := range runs {
		peaks, err := s.peaks(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Peaks = peaks
	}
	return runs, nil
}

// Latest returns the most recent run of imagePath.
func (s *Store) Latest(ctx context.Context, imagePath string) (Run, error) {
	runs, err := s.Runs(ctx, imagePath)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, services.Wrap(services.ErrNotFound, "resultindex", "latest", fmt.Sprintf("no runs for %s", imagePath), nil)
	}
	return runs[len(runs)-1], nil
}

// Forget deletes every run of imagePath and reports how many were removed.
func (s *Store) Forget(ctx context.Context, imagePath string) (int64, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE image_path = ?", imagePath)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, services.Wrap(services.ErrPersistence, "resultindex", "forget", imagePath, err)
	}
	return removed, nil
}

func (s *Store) peaks(ctx context.Context, runID string) ([]PeakRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT box, peak_index, peak_offset, moved_peak, baseline, centroid, width, fit_error
         FROM peaks WHERE run_id = ? ORDER BY box, peak_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("list peaks: %w", err)
	}
	defer rows.Close()

	var out []PeakRow
	for rows.Next() {
		var pk PeakRow
		var offset, baseline, centroid, width, fitErr sql.NullFloat64
		if err := rows.Scan(&pk.Box, &pk.PeakIndex, &offset, &pk.MovedPeak, &baseline, &centroid, &width, &fitErr); err != nil {
			return nil, fmt.Errorf("scan peak: %w", err)
		}
		pk.Offset = fromNullable(offset)
		pk.Baseline = fromNullable(baseline)
		pk.Centroid = fromNullable(centroid)
		pk.Width = fromNullable(width)
		pk.FitError = fromNullable(fitErr)
		out = append(out, pk)
	}
	return out, rows.Err()
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := range busyRetryAttempts {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
	return lastErr
}
