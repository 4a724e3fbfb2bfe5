package gateway

import (
	"context"

	"scrapedesk/pkg/api"
)

// Client exposes every command as a typed method. It performs no retries.
type Client struct {
	inv Invoker
}

// New wraps an Invoker.
func New(inv Invoker) *Client {
	return &Client{inv: inv}
}

// InitializeApp prepares the backend (database, export directory).
func (c *Client) InitializeApp(ctx context.Context) error {
	return c.inv.Invoke(ctx, api.CmdInitializeApp, nil, nil)
}

// GetAllJobs lists every job.
func (c *Client) GetAllJobs(ctx context.Context) ([]api.Job, error) {
	var jobs []api.Job
	if err := c.inv.Invoke(ctx, api.CmdGetAllJobs, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetJob returns one job; nil when it does not exist.
func (c *Client) GetJob(ctx context.Context, id int64) (*api.Job, error) {
	var job *api.Job
	if err := c.inv.Invoke(ctx, api.CmdGetJob, api.IDArgs{ID: id}, &job); err != nil {
		return nil, err
	}
	return job, nil
}

// GetJobStats returns aggregate counters.
func (c *Client) GetJobStats(ctx context.Context) (api.JobStats, error) {
	var stats api.JobStats
	err := c.inv.Invoke(ctx, api.CmdGetJobStats, nil, &stats)
	return stats, err
}

// GetEmailConfig returns the saved SMTP settings, or nil when none are saved.
func (c *Client) GetEmailConfig(ctx context.Context) (*api.EmailConfig, error) {
	var cfg *api.EmailConfig
	if err := c.inv.Invoke(ctx, api.CmdGetEmailConfig, nil, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetJobResults returns up to limit results of a job, newest first.
// A limit of zero leaves the backend default in place.
func (c *Client) GetJobResults(ctx context.Context, jobID int64, limit int) ([]api.Result, error) {
	args := api.JobResultsArgs{JobID: jobID}
	if limit > 0 {
		args.Limit = &limit
	}
	var results []api.Result
	if err := c.inv.Invoke(ctx, api.CmdGetJobResults, args, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// CreateJob stores a new job. The job list must be reloaded afterwards.
func (c *Client) CreateJob(ctx context.Context, job api.Job) error {
	job.ID = nil
	return c.inv.Invoke(ctx, api.CmdCreateJob, api.JobArgs{Job: job}, nil)
}

// UpdateJob replaces an existing job.
func (c *Client) UpdateJob(ctx context.Context, job api.Job) error {
	return c.inv.Invoke(ctx, api.CmdUpdateJob, api.JobArgs{Job: job}, nil)
}

// DeleteJob removes a job.
func (c *Client) DeleteJob(ctx context.Context, id int64) error {
	return c.inv.Invoke(ctx, api.CmdDeleteJob, api.IDArgs{ID: id}, nil)
}

// RunJobNow scrapes a job immediately and returns the extracted items.
func (c *Client) RunJobNow(ctx context.Context, id int64) ([]string, error) {
	var items []string
	if err := c.inv.Invoke(ctx, api.CmdRunJobNow, api.IDArgs{ID: id}, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// TestScrapeJob performs a dry run without storing anything.
func (c *Client) TestScrapeJob(ctx context.Context, job api.Job) ([]string, error) {
	var items []string
	if err := c.inv.Invoke(ctx, api.CmdTestScrapeJob, api.JobArgs{Job: job}, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ExportJobResults writes a job's results to a file and returns its path.
func (c *Client) ExportJobResults(ctx context.Context, req api.ExportRequest) (string, error) {
	var path string
	err := c.inv.Invoke(ctx, api.CmdExportJobResults, api.ExportArgs{Request: req}, &path)
	return path, err
}

// ExportIndividualResult writes one result to a file and returns its path.
func (c *Client) ExportIndividualResult(ctx context.Context, req api.IndividualExportRequest) (string, error) {
	var path string
	err := c.inv.Invoke(ctx, api.CmdExportIndividualResult, api.IndividualExportArgs{Request: req}, &path)
	return path, err
}

// SaveEmailConfig stores the SMTP settings.
func (c *Client) SaveEmailConfig(ctx context.Context, cfg api.EmailConfig) error {
	return c.inv.Invoke(ctx, api.CmdSaveEmailConfig, api.EmailConfigArgs{Config: cfg}, nil)
}

// TestEmailConnection checks the saved SMTP settings against the server.
func (c *Client) TestEmailConnection(ctx context.Context) error {
	return c.inv.Invoke(ctx, api.CmdTestEmailConnection, nil, nil)
}

// SendExportEmail mails an export file as an attachment.
func (c *Client) SendExportEmail(ctx context.Context, args api.SendExportEmailArgs) error {
	return c.inv.Invoke(ctx, api.CmdSendExportEmail, args, nil)
}

// ListExportFiles lists the export directory, newest first.
func (c *Client) ListExportFiles(ctx context.Context) ([]api.ExportFileInfo, error) {
	var files []api.ExportFileInfo
	if err := c.inv.Invoke(ctx, api.CmdListExportFiles, nil, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// ReadExportFile returns the raw content of an export file.
func (c *Client) ReadExportFile(ctx context.Context, path string) (string, error) {
	var content string
	err := c.inv.Invoke(ctx, api.CmdReadExportFile, api.PathArgs{FilePath: path}, &content)
	return content, err
}

// OpenExportDirectory asks the backend to reveal the export directory.
func (c *Client) OpenExportDirectory(ctx context.Context) error {
	return c.inv.Invoke(ctx, api.CmdOpenExportDirectory, nil, nil)
}

// DeleteExportFile removes an export file.
func (c *Client) DeleteExportFile(ctx context.Context, path string) error {
	return c.inv.Invoke(ctx, api.CmdDeleteExportFile, api.PathArgs{FilePath: path}, nil)
}

// ValidateURL reports whether the URL answers a HEAD request successfully.
func (c *Client) ValidateURL(ctx context.Context, url string) (bool, error) {
	return c.validate(ctx, api.CmdValidateURL, url)
}

// ValidateCSSSelector reports whether selector compiles.
func (c *Client) ValidateCSSSelector(ctx context.Context, selector string) (bool, error) {
	return c.validate(ctx, api.CmdValidateCSSSelector, selector)
}

// ValidateRegexPattern reports whether pattern compiles.
func (c *Client) ValidateRegexPattern(ctx context.Context, pattern string) (bool, error) {
	return c.validate(ctx, api.CmdValidateRegexPattern, pattern)
}

// ValidateCronExpression reports whether expr is a preset or a valid cron expression.
func (c *Client) ValidateCronExpression(ctx context.Context, expr string) (bool, error) {
	return c.validate(ctx, api.CmdValidateCronExpression, expr)
}

func (c *Client) validate(ctx context.Context, command, value string) (bool, error) {
	var ok bool
	err := c.inv.Invoke(ctx, command, api.ValueArgs{Value: value}, &ok)
	return ok, err
}
