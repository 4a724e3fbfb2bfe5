package store

import (
	"context"
	"time"
)

// JobStore handles the persistence of job definitions.
type JobStore interface {
	// CreateJob inserts a job and returns its id. Names are unique.
	CreateJob(ctx context.Context, job *Job) (int64, error)

	// GetJob returns a job by id, or ErrNotFound.
	GetJob(ctx context.Context, id int64) (*Job, error)

	// ListJobs returns every job, newest first.
	ListJobs(ctx context.Context) ([]Job, error)

	// ListActiveJobs returns the jobs the scheduler should run.
	ListActiveJobs(ctx context.Context) ([]Job, error)

	// UpdateJob replaces a job's fields, or returns ErrNotFound.
	UpdateJob(ctx context.Context, job *Job) error

	// DeleteJob removes a job and, by cascade, its results.
	DeleteJob(ctx context.Context, id int64) error
}

// ResultStore handles scrape results.
type ResultStore interface {
	// SaveResult inserts a result and returns its id.
	SaveResult(ctx context.Context, result *Result) (int64, error)

	// GetResult returns a result by id, or ErrNotFound.
	GetResult(ctx context.Context, id int64) (*Result, error)

	// ListResults returns up to limit results of a job, newest first.
	// A limit <= 0 returns all of them.
	ListResults(ctx context.Context, jobID int64, limit int) ([]Result, error)

	// ListResultsBetween returns the results of a job within [from, to],
	// newest first. Nil bounds are open.
	ListResultsBetween(ctx context.Context, jobID int64, from, to *time.Time) ([]Result, error)

	// GetJobStats aggregates jobs and results.
	GetJobStats(ctx context.Context) (*JobStats, error)
}

// EmailStore persists the SMTP configuration.
type EmailStore interface {
	// SaveEmailConfig inserts or replaces the configuration.
	SaveEmailConfig(ctx context.Context, cfg *EmailConfig) error

	// GetEmailConfig returns the configuration, or nil when none is saved.
	GetEmailConfig(ctx context.Context) (*EmailConfig, error)
}

// Store is everything scraperd persists.
type Store interface {
	JobStore
	ResultStore
	EmailStore

	// Ping checks the database connection.
	Ping(ctx context.Context) error
}
