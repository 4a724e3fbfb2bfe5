// Package handlers contains HTTP handlers for the scraperd command gateway.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"scrapedesk/internal/export"
	"scrapedesk/internal/logger"
	"scrapedesk/internal/observability"
	"scrapedesk/internal/scraper"
	"scrapedesk/internal/store"
	"scrapedesk/pkg/api"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Scraper runs test scrapes and URL checks.
type Scraper interface {
	TestScrape(ctx context.Context, t scraper.Target) ([]string, error)
	ValidateURL(ctx context.Context, rawURL string) (bool, error)
}

// Scheduler keeps cron entries in step with stored jobs.
type Scheduler interface {
	Schedule(job store.Job) error
	Unschedule(jobID int64)
	Reschedule(job store.Job) error
	RunNow(ctx context.Context, job store.Job) ([]string, error)
}

// Exporter writes and manages export files.
type Exporter interface {
	Dir() string
	ExportJob(job api.Job, results []api.Result, format string) (string, error)
	ExportResult(job api.Job, result api.Result, format string) (string, error)
	List() ([]api.ExportFileInfo, error)
	Read(path string) (string, error)
	Delete(path string) error
	Resolve(path string) (string, error)
}

// Mailer sends export files over SMTP.
type Mailer interface {
	Validate(cfg *api.EmailConfig) error
	TestConnection(cfg *api.EmailConfig) error
	SendExport(cfg *api.EmailConfig, path, jobName, format string) error
}

// Deps are the collaborators of the command handlers.
type Deps struct {
	Store     store.Store
	Scraper   Scraper
	Scheduler Scheduler
	Exporter  Exporter
	Mailer    Mailer
	// OpenDir reveals the export directory. Defaults to export.OpenDir.
	OpenDir func(dir string) error
	Metrics *observability.Instruments
	Logger  *slog.Logger
}

const maxBodyBytes = 1 << 20

type command func(ctx context.Context, body json.RawMessage) (any, error)

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store     store.Store
	scraper   Scraper
	scheduler Scheduler
	exporter  Exporter
	mailer    Mailer
	openDir   func(string) error
	metrics   *observability.Instruments
	logger    *slog.Logger
	commands  map[string]command
}

// New creates a new Handlers instance.
func New(d Deps) *Handlers {
	h := &Handlers{
		store:     d.Store,
		scraper:   d.Scraper,
		scheduler: d.Scheduler,
		exporter:  d.Exporter,
		mailer:    d.Mailer,
		openDir:   d.OpenDir,
		metrics:   d.Metrics,
		logger:    d.Logger,
	}
	if h.openDir == nil {
		h.openDir = export.OpenDir
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}

	h.commands = map[string]command{
		api.CmdInitializeApp:          h.initializeApp,
		api.CmdGetAllJobs:             h.getAllJobs,
		api.CmdGetJob:                 h.getJob,
		api.CmdGetJobStats:            h.getJobStats,
		api.CmdGetEmailConfig:         h.getEmailConfig,
		api.CmdGetJobResults:          h.getJobResults,
		api.CmdCreateJob:              h.createJob,
		api.CmdUpdateJob:              h.updateJob,
		api.CmdDeleteJob:              h.deleteJob,
		api.CmdRunJobNow:              h.runJobNow,
		api.CmdTestScrapeJob:          h.testScrapeJob,
		api.CmdExportJobResults:       h.exportJobResults,
		api.CmdExportIndividualResult: h.exportIndividualResult,
		api.CmdSaveEmailConfig:        h.saveEmailConfig,
		api.CmdTestEmailConnection:    h.testEmailConnection,
		api.CmdSendExportEmail:        h.sendExportEmail,
		api.CmdListExportFiles:        h.listExportFiles,
		api.CmdReadExportFile:         h.readExportFile,
		api.CmdOpenExportDirectory:    h.openExportDirectory,
		api.CmdDeleteExportFile:       h.deleteExportFile,
		api.CmdValidateURL:            h.validateURL,
		api.CmdValidateCSSSelector:    h.validateCSSSelector,
		api.CmdValidateRegexPattern:   h.validateRegexPattern,
		api.CmdValidateCronExpression: h.validateCronExpression,
	}
	return h
}

// Command handles POST /commands/{name}. The body is the command's JSON
// arguments; the response is its JSON result.
func (h *Handlers) Command(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	cmd, ok := h.commands[name]
	if !ok {
		h.httpError(w, "Unknown command: "+name, http.StatusNotFound)
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	body := json.RawMessage(bytes.TrimSpace(raw))
	if len(body) > 0 && !json.Valid(body) {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ctx, span := observability.Tracer().Start(r.Context(), "command "+name,
		trace.WithAttributes(
			attribute.String("command", name),
			attribute.String("request.id", logger.RequestIDFromContext(r.Context())),
		),
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	start := time.Now()
	out, err := cmd(ctx, body)
	h.metrics.RecordCommand(ctx, name, err == nil, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		status := statusOf(err)
		log := logger.FromContext(ctx, h.logger)
		if status >= http.StatusInternalServerError {
			log.Error("command failed", "command", name, "error", err)
		} else {
			log.Info("command rejected", "command", name, "status", status, "error", err)
		}
		h.httpError(w, err.Error(), status)
		return
	}
	h.respondJson(w, http.StatusOK, out)
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}

// badRequest marks an error caused by the command's arguments.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func invalid(err error) error { return badRequest{err} }

func statusOf(err error) int {
	var br badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, export.ErrOutsideExportDir):
		return http.StatusForbidden
	case errors.Is(err, export.ErrNoResults), errors.Is(err, export.ErrUnknownFormat):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func decode[T any](body json.RawMessage) (T, error) {
	var v T
	if len(body) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return v, invalid(errors.New("invalid arguments: " + err.Error()))
	}
	return v, nil
}
