// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and the scraperd command gateway.
package api

import "time"

// Selector types.
const (
	SelectorCSS   = "CSS"
	SelectorRegex = "Regex"
)

// Export formats.
const (
	FormatCSV  = "CSV"
	FormatJSON = "JSON"
	FormatHTML = "HTML"
)

// Schedule presets. Any other value is treated as a cron expression.
const (
	ScheduleHourly  = "hourly"
	ScheduleDaily   = "daily"
	ScheduleWeekly  = "weekly"
	ScheduleMonthly = "monthly"
)

// Command names accepted by the gateway at POST /commands/{name}.
const (
	CmdInitializeApp          = "initialize_app"
	CmdGetAllJobs             = "get_all_jobs"
	CmdGetJob                 = "get_job"
	CmdGetJobStats            = "get_job_stats"
	CmdGetEmailConfig         = "get_email_config"
	CmdGetJobResults          = "get_job_results"
	CmdCreateJob              = "create_job"
	CmdUpdateJob              = "update_job"
	CmdDeleteJob              = "delete_job"
	CmdRunJobNow              = "run_job_now"
	CmdTestScrapeJob          = "test_scrape_job"
	CmdExportJobResults       = "export_job_results"
	CmdExportIndividualResult = "export_individual_result"
	CmdSaveEmailConfig        = "save_email_config"
	CmdTestEmailConnection    = "test_email_connection"
	CmdSendExportEmail        = "send_export_email"
	CmdListExportFiles        = "list_export_files"
	CmdReadExportFile         = "read_export_file"
	CmdOpenExportDirectory    = "open_export_directory"
	CmdDeleteExportFile       = "delete_export_file"
	CmdValidateURL            = "validate_url"
	CmdValidateCSSSelector    = "validate_css_selector"
	CmdValidateRegexPattern   = "validate_regex_pattern"
	CmdValidateCronExpression = "validate_cron_expression"
)

// Job is a persisted extraction task definition.
// DataType carries the single wire token ("Text" or "Attribute(<name>)").
type Job struct {
	ID           *int64     `json:"id,omitempty"`
	Name         string     `json:"name"`
	URL          string     `json:"url"`
	SelectorType string     `json:"selector_type"`
	Selector     string     `json:"selector"`
	DataType     string     `json:"data_type"`
	Schedule     string     `json:"schedule"`
	IsActive     bool       `json:"is_active"`
	UserAgent    *string    `json:"user_agent,omitempty"`
	ProxyURL     *string    `json:"proxy_url,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// Result is one stored scrape outcome.
type Result struct {
	ID           int64     `json:"id"`
	JobID        int64     `json:"job_id"`
	ScrapedData  string    `json:"scraped_data"`
	Timestamp    time.Time `json:"timestamp"`
	Success      bool      `json:"success"`
	ErrorMessage *string   `json:"error_message,omitempty"`
}

// JobStats is an aggregate snapshot computed by the backend.
type JobStats struct {
	TotalJobs    int64      `json:"total_jobs"`
	ActiveJobs   int64      `json:"active_jobs"`
	TotalResults int64      `json:"total_results"`
	LastRun      *time.Time `json:"last_run,omitempty"`
}

// EmailConfig is the singleton SMTP configuration.
type EmailConfig struct {
	SMTPServer string `json:"smtp_server" validate:"required,hostname_rfc1123"`
	SMTPPort   int    `json:"smtp_port" validate:"required,min=1,max=65535"`
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required"`
	FromEmail  string `json:"from_email" validate:"required,email"`
	ToEmail    string `json:"to_email" validate:"required,email"`
	UseTLS     bool   `json:"use_tls"`
}

// ExportRequest asks for all results of a job, optionally bounded by date.
type ExportRequest struct {
	JobID     int64      `json:"job_id"`
	Format    string     `json:"format"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// IndividualExportRequest asks for a single result.
type IndividualExportRequest struct {
	ResultID int64  `json:"result_id"`
	Format   string `json:"format"`
}

// ExportFileInfo describes one file in the export directory. Path is its identity.
type ExportFileInfo struct {
	Name              string `json:"name"`
	Path              string `json:"path"`
	Size              int64  `json:"size"`
	ModifiedTimestamp int64  `json:"modified"`
	FileType          string `json:"file_type"`
}

// IDArgs carries a job id.
type IDArgs struct {
	ID int64 `json:"id"`
}

// JobResultsArgs is the body of get_job_results.
type JobResultsArgs struct {
	JobID int64 `json:"job_id"`
	Limit *int  `json:"limit,omitempty"`
}

// JobArgs wraps a job for create/update/test commands.
type JobArgs struct {
	Job Job `json:"job"`
}

// ExportArgs wraps an export request.
type ExportArgs struct {
	Request ExportRequest `json:"request"`
}

// IndividualExportArgs wraps an individual export request.
type IndividualExportArgs struct {
	Request IndividualExportRequest `json:"request"`
}

// EmailConfigArgs wraps an email configuration.
type EmailConfigArgs struct {
	Config EmailConfig `json:"config"`
}

// SendExportEmailArgs is the body of send_export_email.
type SendExportEmailArgs struct {
	FilePath string `json:"file_path"`
	JobName  string `json:"job_name"`
	Format   string `json:"format"`
}

// PathArgs carries an export file path.
type PathArgs struct {
	FilePath string `json:"file_path"`
}

// ValueArgs carries the value checked by the validate_* commands.
type ValueArgs struct {
	Value string `json:"value"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
