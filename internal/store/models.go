// Package store contains the database layer for scraperd.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")

// Job is a stored scraping job. DataType holds the wire token
// ("Text" or "Attribute(<name>)").
type Job struct {
	ID           int64
	Name         string
	URL          string
	SelectorType string
	Selector     string
	DataType     string
	Schedule     string
	UserAgent    *string
	ProxyURL     *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Result is one scrape outcome. ScrapedData is a JSON array of strings.
type Result struct {
	ID           int64
	JobID        int64
	ScrapedData  string
	Timestamp    time.Time
	Success      bool
	ErrorMessage *string
}

// JobStats aggregates the jobs and results tables.
type JobStats struct {
	TotalJobs    int64
	ActiveJobs   int64
	TotalResults int64
	LastRun      *time.Time
}

// EmailConfig is the single SMTP configuration row.
type EmailConfig struct {
	SMTPServer string
	SMTPPort   int
	Username   string
	Password   string
	FromEmail  string
	ToEmail    string
	UseTLS     bool
}
