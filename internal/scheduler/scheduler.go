// Package scheduler runs active scraping jobs on their cron schedules and
// stores every outcome as a result.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"scrapedesk/internal/codec"
	"scrapedesk/internal/observability"
	"scrapedesk/internal/scraper"
	"scrapedesk/internal/store"
	"scrapedesk/pkg/api"

	"github.com/lthibault/jitterbug/v2"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/utils/clock"
)

// DefaultResyncInterval is how often the active job list is reloaded.
const DefaultResyncInterval = 5 * time.Minute

var presets = map[string]string{
	api.ScheduleDaily:   "0 0 0 * * *",
	api.ScheduleHourly:  "0 0 * * * *",
	api.ScheduleWeekly:  "0 0 0 * * 0",
	api.ScheduleMonthly: "0 0 0 1 * *",
}

var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule turns a preset name or a six-field cron expression into a
// cron expression.
func ParseSchedule(schedule string) (string, error) {
	if spec, ok := presets[strings.ToLower(strings.TrimSpace(schedule))]; ok {
		return spec, nil
	}
	if _, err := parser.Parse(schedule); err != nil {
		return "", fmt.Errorf("Invalid schedule format: %w", err)
	}
	return schedule, nil
}

// ValidateCron reports whether schedule is a preset or a valid cron expression.
func ValidateCron(schedule string) error {
	_, err := ParseSchedule(schedule)
	return err
}

// Scraper is the part of scraper.Scraper the scheduler uses.
type Scraper interface {
	Scrape(ctx context.Context, t scraper.Target) ([]string, error)
}

// Store is the persistence the scheduler needs.
type Store interface {
	ListActiveJobs(ctx context.Context) ([]store.Job, error)
	SaveResult(ctx context.Context, result *store.Result) (int64, error)
}

// Config holds scheduler settings.
type Config struct {
	ResyncInterval time.Duration
}

type entry struct {
	id      cron.EntryID
	spec    string
	updated time.Time
}

// Scheduler keeps one cron entry per active job.
type Scheduler struct {
	cron    *cron.Cron
	store   Store
	scraper Scraper
	metrics *observability.Instruments
	clock   clock.PassiveClock
	logger  *slog.Logger
	config  Config

	mu      sync.Mutex
	entries map[int64]entry
	base    context.Context
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInstruments records scrape metrics.
func WithInstruments(m *observability.Instruments) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithClock sets the clock used for result timestamps.
func WithClock(c clock.PassiveClock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// New creates a Scheduler. Nothing runs until Run is called.
func New(st Store, sc Scraper, config Config, opts ...Option) *Scheduler {
	if config.ResyncInterval <= 0 {
		config.ResyncInterval = DefaultResyncInterval
	}

	s := &Scheduler{
		store:   st,
		scraper: sc,
		clock:   clock.RealClock{},
		logger:  slog.Default(),
		config:  config,
		entries: make(map[int64]entry),
		base:    context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger{s.logger}),
		cron.WithChain(cron.Recover(cronLogger{s.logger}), cron.SkipIfStillRunning(cronLogger{s.logger})),
	)
	return s
}

// Run loads the active jobs, starts the cron loop and reloads the job list
// every ResyncInterval. It blocks until ctx is cancelled, then waits for
// running scrapes to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	s.logger.Info("starting job scheduler", "resync_interval", s.config.ResyncInterval)
	if err := s.Sync(ctx); err != nil {
		s.logger.Error("failed to load active jobs", "error", err)
	}
	s.cron.Start()

	resync := jitterbug.New(s.config.ResyncInterval, &jitterbug.Norm{Stdev: s.config.ResyncInterval / 20})
	defer resync.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping job scheduler, waiting for running jobs")
			<-s.cron.Stop().Done()
			return ctx.Err()
		case <-resync.C:
			if err := s.Sync(ctx); err != nil {
				s.logger.Error("resync failed", "error", err)
			}
		}
	}
}

// Sync schedules every active job and drops entries of jobs that are no
// longer active. Jobs whose schedule or definition changed are rescheduled.
func (s *Scheduler) Sync(ctx context.Context) error {
	jobs, err := s.store.ListActiveJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active jobs: %w", err)
	}

	active := make(map[int64]bool, len(jobs))
	for _, job := range jobs {
		active[job.ID] = true

		s.mu.Lock()
		e, ok := s.entries[job.ID]
		s.mu.Unlock()
		if ok && e.updated.Equal(job.UpdatedAt) {
			continue
		}
		if err := s.Schedule(job); err != nil {
			s.logger.Error("failed to schedule job", "job_id", job.ID, "error", err)
		}
	}

	for _, id := range s.Scheduled() {
		if !active[id] {
			s.Unschedule(id)
		}
	}
	return nil
}

// Schedule adds or replaces the cron entry of job. Inactive jobs are skipped.
func (s *Scheduler) Schedule(job store.Job) error {
	if !job.IsActive {
		s.logger.Warn("not scheduling inactive job", "job", job.Name)
		return nil
	}
	spec, err := ParseSchedule(job.Schedule)
	if err != nil {
		return fmt.Errorf("failed to parse schedule %q: %w", job.Schedule, err)
	}

	s.Unschedule(job.ID)

	id, err := s.cron.AddFunc(spec, func() { s.execute(s.context(), job) })
	if err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}

	s.mu.Lock()
	s.entries[job.ID] = entry{id: id, spec: spec, updated: job.UpdatedAt}
	s.mu.Unlock()

	s.logger.Info("scheduled job", "job", job.Name, "job_id", job.ID, "cron", spec)
	return nil
}

// Unschedule removes the cron entry of a job, if any.
func (s *Scheduler) Unschedule(jobID int64) {
	s.mu.Lock()
	e, ok := s.entries[jobID]
	delete(s.entries, jobID)
	s.mu.Unlock()

	if ok {
		s.cron.Remove(e.id)
		s.logger.Info("unscheduled job", "job_id", jobID)
	}
}

// Reschedule drops the job's entry and schedules it again when it is active.
func (s *Scheduler) Reschedule(job store.Job) error {
	s.Unschedule(job.ID)
	if !job.IsActive {
		return nil
	}
	return s.Schedule(job)
}

// Scheduled returns the ids of scheduled jobs in ascending order.
func (s *Scheduler) Scheduled() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Next returns the next planned run of a scheduled job.
func (s *Scheduler) Next(jobID int64) (time.Time, bool) {
	s.mu.Lock()
	e, ok := s.entries[jobID]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	next := s.cron.Entry(e.id).Next
	return next, !next.IsZero()
}

// RunNow scrapes job immediately. A successful run is stored as a result;
// a failed one is returned without being stored.
func (s *Scheduler) RunNow(ctx context.Context, job store.Job) ([]string, error) {
	s.logger.Info("running job now", "job", job.Name, "job_id", job.ID)

	ctx, span := s.startSpan(ctx, "run_job_now", job)
	defer span.End()

	items, err := s.scraper.Scrape(ctx, Target(job))
	s.metrics.RecordScrape(ctx, job.ID, len(items), err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if _, err := s.save(ctx, job.ID, items, nil); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("items", len(items)))
	return items, nil
}

// execute is a scheduled run. Failures are stored as unsuccessful results.
func (s *Scheduler) execute(ctx context.Context, job store.Job) {
	if ctx.Err() != nil {
		return
	}
	ctx, span := s.startSpan(ctx, "scheduled_scrape", job)
	defer span.End()

	s.logger.Info("executing scheduled job", "job", job.Name, "job_id", job.ID)

	items, scrapeErr := s.scraper.Scrape(ctx, Target(job))
	s.metrics.RecordScrape(ctx, job.ID, len(items), scrapeErr == nil)
	if scrapeErr != nil {
		if errors.Is(scrapeErr, context.Canceled) {
			return
		}
		span.RecordError(scrapeErr)
		span.SetStatus(codes.Error, scrapeErr.Error())
		s.logger.Error("scheduled job failed", "job", job.Name, "error", scrapeErr)
		items = nil
	}

	if _, err := s.save(ctx, job.ID, items, scrapeErr); err != nil {
		span.RecordError(err)
		s.logger.Error("failed to save result", "job_id", job.ID, "error", err)
	}
}

func (s *Scheduler) save(ctx context.Context, jobID int64, items []string, scrapeErr error) (int64, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return 0, fmt.Errorf("failed to encode scraped data: %w", err)
	}

	result := &store.Result{
		JobID:       jobID,
		ScrapedData: string(data),
		Timestamp:   s.clock.Now().UTC(),
		Success:     scrapeErr == nil,
	}
	if scrapeErr != nil {
		msg := scrapeErr.Error()
		result.ErrorMessage = &msg
	}

	id, err := s.store.SaveResult(ctx, result)
	if err != nil {
		return 0, fmt.Errorf("failed to save result: %w", err)
	}
	return id, nil
}

func (s *Scheduler) startSpan(ctx context.Context, name string, job store.Job) (context.Context, trace.Span) {
	return observability.Tracer().Start(ctx, name,
		trace.WithAttributes(
			attribute.Int64("job.id", job.ID),
			attribute.String("job.name", job.Name),
			attribute.String("job.url", job.URL),
			attribute.String("job.selector_type", job.SelectorType),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

// Target converts a stored job into what the scraper needs.
func Target(job store.Job) scraper.Target {
	t := scraper.Target{
		Name:         job.Name,
		URL:          job.URL,
		SelectorType: job.SelectorType,
		Selector:     job.Selector,
		DataType:     codec.ParseDataType(job.DataType),
	}
	if job.UserAgent != nil {
		t.UserAgent = *job.UserAgent
	}
	if job.ProxyURL != nil {
		t.ProxyURL = *job.ProxyURL
	}
	return t
}

// cronLogger routes cron's logging through slog.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
