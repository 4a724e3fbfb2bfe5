package postgres

import (
	"context"
	"database/sql"
	"errors"

	"scrapedesk/internal/store"
)

const jobColumns = `id, name, url, selector_type, selector, data_type, schedule,
	user_agent, proxy_url, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (store.Job, error) {
	var j store.Job
	err := row.Scan(
		&j.ID, &j.Name, &j.URL, &j.SelectorType, &j.Selector, &j.DataType, &j.Schedule,
		&j.UserAgent, &j.ProxyURL, &j.IsActive, &j.CreatedAt, &j.UpdatedAt,
	)
	return j, err
}

// CreateJob inserts a new job row and returns its id.
func (s *Store) CreateJob(ctx context.Context, job *store.Job) (int64, error) {
	query := `
		INSERT INTO jobs (name, url, selector_type, selector, data_type, schedule,
			user_agent, proxy_url, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id
	`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		job.Name,
		job.URL,
		job.SelectorType,
		job.Selector,
		job.DataType,
		job.Schedule,
		job.UserAgent,
		job.ProxyURL,
		job.IsActive,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) GetJob(ctx context.Context, id int64) (*store.Job, error) {
	query := "SELECT " + jobColumns + " FROM jobs WHERE id = $1"

	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *Store) ListJobs(ctx context.Context) ([]store.Job, error) {
	return s.listJobs(ctx, "SELECT "+jobColumns+" FROM jobs ORDER BY created_at DESC")
}

func (s *Store) ListActiveJobs(ctx context.Context) ([]store.Job, error) {
	return s.listJobs(ctx, "SELECT "+jobColumns+" FROM jobs WHERE is_active = TRUE ORDER BY id")
}

func (s *Store) listJobs(ctx context.Context, query string) ([]store.Job, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []store.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateJob replaces every editable column and bumps updated_at.
func (s *Store) UpdateJob(ctx context.Context, job *store.Job) error {
	query := `
		UPDATE jobs SET name = $1, url = $2, selector_type = $3, selector = $4,
			data_type = $5, schedule = $6, user_agent = $7, proxy_url = $8,
			is_active = $9, updated_at = NOW()
		WHERE id = $10
	`

	res, err := s.db.ExecContext(ctx, query,
		job.Name,
		job.URL,
		job.SelectorType,
		job.Selector,
		job.DataType,
		job.Schedule,
		job.UserAgent,
		job.ProxyURL,
		job.IsActive,
		job.ID,
	)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func (s *Store) DeleteJob(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = $1", id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}
