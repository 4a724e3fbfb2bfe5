package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"scrapedesk/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return &Store{db: db}, mock
}

var jobRowColumns = []string{
	"id", "name", "url", "selector_type", "selector", "data_type", "schedule",
	"user_agent", "proxy_url", "is_active", "created_at", "updated_at",
}

func TestCreateJob_Success(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ua := "scrapedesk-test"
	job := &store.Job{
		Name:         "Links",
		URL:          "https://example.com",
		SelectorType: "CSS",
		Selector:     "a",
		DataType:     "Attribute(href)",
		Schedule:     "daily",
		UserAgent:    &ua,
		IsActive:     true,
	}

	mock.ExpectQuery(`INSERT INTO jobs .* RETURNING id`).
		WithArgs("Links", "https://example.com", "CSS", "a", "Attribute(href)", "daily", "scrapedesk-test", nil, true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))

	id, err := store_.CreateJob(context.Background(), job)
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if id != 12 {
		t.Errorf("got id %d, want 12", id)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetJob_Success(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .* FROM jobs WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(jobRowColumns).AddRow(
			int64(3), "Titles", "https://example.com", "CSS", "h1", "Text", "hourly",
			nil, nil, true, now, now,
		))

	job, err := store_.GetJob(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.ID != 3 || job.Name != "Titles" || job.DataType != "Text" {
		t.Errorf("unexpected job: %+v", job)
	}
	if job.UserAgent != nil {
		t.Errorf("expected nil user agent, got %v", *job.UserAgent)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	mock.ExpectQuery(`SELECT .* FROM jobs WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := store_.GetJob(context.Background(), 99)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected store.ErrNotFound, got %v", err)
	}
}

func TestListJobs_NewestFirst(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .* FROM jobs ORDER BY created_at DESC`).
		WillReturnRows(sqlmock.NewRows(jobRowColumns).
			AddRow(int64(2), "b", "https://b.example", "Regex", `(\d+)`, "Text", "daily", nil, nil, true, now, now).
			AddRow(int64(1), "a", "https://a.example", "CSS", "p", "Text", "weekly", nil, nil, false, now, now))

	jobs, err := store_.ListJobs(context.Background())
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != 2 || jobs[1].IsActive {
		t.Errorf("unexpected jobs: %+v", jobs)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestListJobs_EmptyIsNotNil(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	mock.ExpectQuery(`SELECT .* FROM jobs WHERE is_active = TRUE`).
		WillReturnRows(sqlmock.NewRows(jobRowColumns))

	jobs, err := store_.ListActiveJobs(context.Background())
	if err != nil {
		t.Fatalf("ListActiveJobs failed: %v", err)
	}
	if jobs == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestUpdateJob(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"updated", 1, nil},
		{"missing", 0, store.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store_, mock := newMockStore(t)
			defer store_.db.Close()

			job := &store.Job{ID: 5, Name: "n", URL: "https://x", SelectorType: "CSS", Selector: "p", DataType: "Text", Schedule: "daily"}
			mock.ExpectExec(`UPDATE jobs SET .* WHERE id = \$10`).
				WithArgs("n", "https://x", "CSS", "p", "Text", "daily", nil, nil, false, int64(5)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := store_.UpdateJob(context.Background(), job)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestDeleteJob_NotFound(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	mock.ExpectExec(`DELETE FROM jobs WHERE id = \$1`).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store_.DeleteJob(context.Background(), 8); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected store.ErrNotFound, got %v", err)
	}
}
