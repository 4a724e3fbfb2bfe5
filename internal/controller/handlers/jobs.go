package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"scrapedesk/internal/codec"
	"scrapedesk/internal/scheduler"
	"scrapedesk/internal/scraper"
	"scrapedesk/internal/store"
	"scrapedesk/pkg/api"
)

// initializeApp confirms the backend is ready: the database answers and the
// export directory exists.
func (h *Handlers) initializeApp(ctx context.Context, _ json.RawMessage) (any, error) {
	if err := h.store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("Failed to initialize database: %w", err)
	}
	return "Application initialized successfully", nil
}

func (h *Handlers) getAllJobs(ctx context.Context, _ json.RawMessage) (any, error) {
	jobs, err := h.store.ListJobs(ctx)
	if err != nil {
		return nil, err
	}
	return jobsToAPI(jobs), nil
}

// getJob answers null for an unknown id.
func (h *Handlers) getJob(ctx context.Context, body json.RawMessage) (any, error) {
	args, err := decode[api.IDArgs](body)
	if err != nil {
		return nil, err
	}
	job, err := h.store.GetJob(ctx, args.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return jobToAPI(*job), nil
}

func (h *Handlers) getJobStats(ctx context.Context, _ json.RawMessage) (any, error) {
	stats, err := h.store.GetJobStats(ctx)
	if err != nil {
		return nil, err
	}
	return statsToAPI(*stats), nil
}

func (h *Handlers) createJob(ctx context.Context, body json.RawMessage) (any, error) {
	args, err := decode[api.JobArgs](body)
	if err != nil {
		return nil, err
	}
	if err := validateJob(args.Job); err != nil {
		return nil, err
	}

	job := jobFromAPI(args.Job)
	id, err := h.store.CreateJob(ctx, &job)
	if err != nil {
		return nil, err
	}
	job.ID = id

	if job.IsActive {
		if err := h.scheduler.Schedule(job); err != nil {
			return nil, fmt.Errorf("Failed to schedule job: %w", err)
		}
	}
	return id, nil
}

func (h *Handlers) updateJob(ctx context.Context, body json.RawMessage) (any, error) {
	args, err := decode[api.JobArgs](body)
	if err != nil {
		return nil, err
	}
	if args.Job.ID == nil {
		return nil, invalid(errors.New("job id is required"))
	}
	if err := validateJob(args.Job); err != nil {
		return nil, err
	}

	job := jobFromAPI(args.Job)
	if err := h.store.UpdateJob(ctx, &job); err != nil {
		return nil, err
	}

	stored, err := h.store.GetJob(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if err := h.scheduler.Reschedule(*stored); err != nil {
		return nil, fmt.Errorf("Failed to reschedule job: %w", err)
	}
	return nil, nil
}

// deleteJob unschedules the job first; its results go with it by cascade.
func (h *Handlers) deleteJob(ctx context.Context, body json.RawMessage) (any, error) {
	args, err := decode[api.IDArgs](body)
	if err != nil {
		return nil, err
	}
	h.scheduler.Unschedule(args.ID)
	if err := h.store.DeleteJob(ctx, args.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (h *Handlers) runJobNow(ctx context.Context, body json.RawMessage) (any, error) {
	args, err := decode[api.IDArgs](body)
	if err != nil {
		return nil, err
	}
	job, err := h.store.GetJob(ctx, args.ID)
	if err != nil {
		return nil, fmt.Errorf("job %d: %w", args.ID, err)
	}
	items, err := h.scheduler.RunNow(ctx, *job)
	if err != nil {
		return nil, err
	}
	return nonNil(items), nil
}

func (h *Handlers) testScrapeJob(ctx context.Context, body json.RawMessage) (any, error) {
	args, err := decode[api.JobArgs](body)
	if err != nil {
		return nil, err
	}
	if err := validateJob(args.Job); err != nil {
		return nil, err
	}
	items, err := h.scraper.TestScrape(ctx, scheduler.Target(jobFromAPI(args.Job)))
	if err != nil {
		return nil, err
	}
	return nonNil(items), nil
}

// validateJob rejects jobs the scheduler or the scraper could not run.
func validateJob(j api.Job) error {
	var problems []string
	if strings.TrimSpace(j.Name) == "" {
		problems = append(problems, "name is required")
	}
	if u, err := url.Parse(j.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, "url must be an absolute http(s) URL")
	}
	switch j.SelectorType {
	case api.SelectorCSS:
		if err := scraper.ValidateCSSSelector(j.Selector); err != nil {
			problems = append(problems, err.Error())
		}
	case api.SelectorRegex:
		if err := scraper.ValidateRegexPattern(j.Selector); err != nil {
			problems = append(problems, err.Error())
		}
	default:
		problems = append(problems, fmt.Sprintf("selector type must be %s or %s", api.SelectorCSS, api.SelectorRegex))
	}
	if name, ok := codec.ParseDataType(j.DataType).AttributeName(); ok && !codec.ValidAttributeName(name) {
		problems = append(problems, "attribute name must not contain parentheses")
	}
	if err := scheduler.ValidateCron(j.Schedule); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return invalid(errors.New(strings.Join(problems, "; ")))
	}
	return nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
