package handlers

import (
	"scrapedesk/internal/codec"
	"scrapedesk/internal/store"
	"scrapedesk/pkg/api"
)

// jobFromAPI converts a wire job. The data-type token goes through the codec
// so anything unrecognized is stored as Text.
func jobFromAPI(j api.Job) store.Job {
	job := store.Job{
		Name:         j.Name,
		URL:          j.URL,
		SelectorType: j.SelectorType,
		Selector:     j.Selector,
		DataType:     codec.ParseDataType(j.DataType).Token(),
		Schedule:     j.Schedule,
		UserAgent:    nonEmpty(j.UserAgent),
		ProxyURL:     nonEmpty(j.ProxyURL),
		IsActive:     j.IsActive,
	}
	if j.ID != nil {
		job.ID = *j.ID
	}
	return job
}

func jobToAPI(j store.Job) api.Job {
	id := j.ID
	created, updated := j.CreatedAt, j.UpdatedAt
	return api.Job{
		ID:           &id,
		Name:         j.Name,
		URL:          j.URL,
		SelectorType: j.SelectorType,
		Selector:     j.Selector,
		DataType:     j.DataType,
		Schedule:     j.Schedule,
		IsActive:     j.IsActive,
		UserAgent:    j.UserAgent,
		ProxyURL:     j.ProxyURL,
		CreatedAt:    &created,
		UpdatedAt:    &updated,
	}
}

func jobsToAPI(jobs []store.Job) []api.Job {
	out := make([]api.Job, len(jobs))
	for i, j := range jobs {
		out[i] = jobToAPI(j)
	}
	return out
}

func resultToAPI(r store.Result) api.Result {
	return api.Result{
		ID:           r.ID,
		JobID:        r.JobID,
		ScrapedData:  r.ScrapedData,
		Timestamp:    r.Timestamp,
		Success:      r.Success,
		ErrorMessage: r.ErrorMessage,
	}
}

func resultsToAPI(results []store.Result) []api.Result {
	out := make([]api.Result, len(results))
	for i, r := range results {
		out[i] = resultToAPI(r)
	}
	return out
}

func statsToAPI(s store.JobStats) api.JobStats {
	return api.JobStats{
		TotalJobs:    s.TotalJobs,
		ActiveJobs:   s.ActiveJobs,
		TotalResults: s.TotalResults,
		LastRun:      s.LastRun,
	}
}

func emailConfigFromAPI(c api.EmailConfig) store.EmailConfig {
	return store.EmailConfig(c)
}

func emailConfigToAPI(c *store.EmailConfig) *api.EmailConfig {
	if c == nil {
		return nil
	}
	out := api.EmailConfig(*c)
	return &out
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
