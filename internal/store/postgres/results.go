package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"scrapedesk/internal/store"
)

const resultColumns = "id, job_id, scraped_data, timestamp, success, error_message"

func scanResult(row rowScanner) (store.Result, error) {
	var r store.Result
	err := row.Scan(&r.ID, &r.JobID, &r.ScrapedData, &r.Timestamp, &r.Success, &r.ErrorMessage)
	return r, err
}

func (s *Store) SaveResult(ctx context.Context, result *store.Result) (int64, error) {
	query := `
		INSERT INTO results (job_id, scraped_data, timestamp, success, error_message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		result.JobID,
		result.ScrapedData,
		result.Timestamp,
		result.Success,
		result.ErrorMessage,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) GetResult(ctx context.Context, id int64) (*store.Result, error) {
	query := "SELECT " + resultColumns + " FROM results WHERE id = $1"

	r, err := scanResult(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ListResults(ctx context.Context, jobID int64, limit int) ([]store.Result, error) {
	query := "SELECT " + resultColumns + " FROM results WHERE job_id = $1 ORDER BY timestamp DESC"
	args := []any{jobID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	return s.listResults(ctx, query, args...)
}

func (s *Store) ListResultsBetween(ctx context.Context, jobID int64, from, to *time.Time) ([]store.Result, error) {
	conds := []string{"job_id = $1"}
	args := []any{jobID}
	if from != nil {
		args = append(args, *from)
		conds = append(conds, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		conds = append(conds, fmt.Sprintf("timestamp <= $%d", len(args)))
	}

	query := "SELECT " + resultColumns + " FROM results WHERE " +
		strings.Join(conds, " AND ") + " ORDER BY timestamp DESC"
	return s.listResults(ctx, query, args...)
}

func (s *Store) listResults(ctx context.Context, query string, args ...any) ([]store.Result, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []store.Result{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetJobStats counts jobs and results in a single round trip.
func (s *Store) GetJobStats(ctx context.Context) (*store.JobStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM jobs),
			(SELECT COUNT(*) FROM jobs WHERE is_active = TRUE),
			(SELECT COUNT(*) FROM results),
			(SELECT MAX(timestamp) FROM results)
	`

	var stats store.JobStats
	var lastRun sql.NullTime
	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalJobs, &stats.ActiveJobs, &stats.TotalResults, &lastRun,
	)
	if err != nil {
		return nil, err
	}
	if lastRun.Valid {
		t := lastRun.Time
		stats.LastRun = &t
	}
	return &stats, nil
}
