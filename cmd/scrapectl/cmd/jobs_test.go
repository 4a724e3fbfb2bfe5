package cmd

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"scrapedesk/pkg/api"

	"github.com/spf13/viper"
)

func ptr[T any](v T) *T { return &v }

func sampleJobs() []api.Job {
	updated := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return []api.Job{
		{ID: ptr(int64(2)), Name: "links", URL: "https://example.com", SelectorType: "CSS", Selector: "a", DataType: "Attribute(href)", Schedule: "hourly", IsActive: true, UpdatedAt: &updated},
		{ID: ptr(int64(1)), Name: "titles", URL: "https://example.org", SelectorType: "CSS", Selector: "h1", DataType: "Text", Schedule: "daily"},
	}
}

func TestJobsCommand(t *testing.T) {
	b := newBackend(t)
	b.replies[api.CmdGetAllJobs] = sampleJobs()

	out, err := run(t, "", "jobs")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	for _, want := range []string{"links", "titles", "https://example.org", "paused", "active"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.calls {
		if c.Auth != "Bearer test-token" {
			t.Errorf("expected Bearer token on %s, got: %s", c.Name, c.Auth)
		}
	}
}

func TestJobsCommand_Empty(t *testing.T) {
	newBackend(t)

	out, err := run(t, "", "jobs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No jobs yet") {
		t.Errorf("expected empty hint, got: %s", out)
	}
}

func TestJobShowCommand(t *testing.T) {
	b := newBackend(t)
	b.replies[api.CmdGetAllJobs] = sampleJobs()

	out, err := run(t, "", "job", "show", "2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Attribute(href)") || !strings.Contains(out, "hourly") {
		t.Errorf("expected job details, got: %s", out)
	}

	if _, err := run(t, "", "job", "show", "9"); err == nil || !strings.Contains(err.Error(), "job 9 not found") {
		t.Errorf("expected not found error, got: %v", err)
	}
	if _, err := run(t, "", "job", "show", "abc"); err == nil {
		t.Error("expected error for a non-numeric id")
	}
}

func TestJobCreateCommand(t *testing.T) {
	b := newBackend(t)

	// Rejected locally: no selector.
	out, err := run(t, "", "job", "create", "--name", "links", "--target", "https://example.com")
	if err == nil {
		t.Fatalf("expected validation error, got: %s", out)
	}
	if !strings.Contains(out, "Failed to create job:") {
		t.Errorf("expected failure message, got: %s", out)
	}
	if len(b.called(api.CmdCreateJob)) != 0 {
		t.Fatal("invalid job must not reach the backend")
	}

	out, err = run(t, "", "job", "create",
		"--name", "links", "--target", "https://example.com", "--selector", "a.item",
		"--attribute", "href", "--schedule", "hourly", "--proxy", "http://proxy:3128")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Job created successfully") {
		t.Errorf("expected success message, got: %s", out)
	}
	if !strings.Contains(out, "Creating new job...") {
		t.Errorf("expected progress stages, got: %s", out)
	}

	bodies := b.called(api.CmdCreateJob)
	if len(bodies) != 1 {
		t.Fatalf("expected one create_job call, got %d", len(bodies))
	}
	var args api.JobArgs
	if err := json.Unmarshal(bodies[0], &args); err != nil {
		t.Fatal(err)
	}
	job := args.Job
	if job.DataType != "Attribute(href)" || job.Schedule != "hourly" || !job.IsActive || job.ID != nil {
		t.Errorf("unexpected job sent: %+v", job)
	}
	if job.ProxyURL == nil || *job.ProxyURL != "http://proxy:3128" || job.UserAgent != nil {
		t.Errorf("unexpected optional fields: %+v", job)
	}
	if len(b.called(api.CmdGetAllJobs)) == 0 {
		t.Error("expected the job list to be reloaded")
	}
}

func TestJobUpdateCommand(t *testing.T) {
	b := newBackend(t)
	b.replies[api.CmdGetAllJobs] = sampleJobs()

	out, err := run(t, "", "job", "update", "2", "--active=false", "--data-type", "text")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}

	var args api.JobArgs
	json.Unmarshal(b.called(api.CmdUpdateJob)[0], &args)
	job := args.Job
	if job.ID == nil || *job.ID != 2 {
		t.Fatalf("expected id 2, got %+v", job.ID)
	}
	if job.IsActive || job.DataType != "Text" {
		t.Errorf("flags not applied: %+v", job)
	}
	if job.Name != "links" || job.Selector != "a" || job.Schedule != "hourly" {
		t.Errorf("unchanged fields were lost: %+v", job)
	}
}

func TestJobDeleteCommand(t *testing.T) {
	b := newBackend(t)

	out, err := run(t, "n\n", "job", "delete", "2")
	if err == nil || !strings.Contains(err.Error(), "cancelled") {
		t.Errorf("expected cancellation, got: %v", err)
	}
	if !strings.Contains(out, "Are you sure you want to delete this job?") {
		t.Errorf("expected prompt, got: %s", out)
	}
	if len(b.called(api.CmdDeleteJob)) != 0 {
		t.Fatal("declined delete reached the backend")
	}

	if _, err := run(t, "y\n", "job", "delete", "2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	viper.Set("yes", true)
	if _, err := run(t, "", "job", "delete", "2"); err != nil {
		t.Fatalf("unexpected error with --yes: %v", err)
	}
	if n := len(b.called(api.CmdDeleteJob)); n != 2 {
		t.Errorf("expected 2 delete_job calls, got %d", n)
	}
}

func TestJobRunCommand(t *testing.T) {
	b := newBackend(t)
	b.replies[api.CmdRunJobNow] = []string{"/a", "/b"}

	out, err := run(t, "", "job", "run", "2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Found 2 results") || !strings.Contains(out, "2. /b") {
		t.Errorf("unexpected output: %s", out)
	}

	b.failures[api.CmdRunJobNow] = "HTTP error: 404 Not Found"
	out, err = run(t, "", "job", "run", "2")
	var shown shownError
	if !errors.As(err, &shown) {
		t.Fatalf("expected a shown error, got: %v", err)
	}
	if !strings.Contains(out, "Failed to run job: HTTP error: 404 Not Found") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestJobTestCommand(t *testing.T) {
	b := newBackend(t)
	b.replies[api.CmdTestScrapeJob] = []string{"one", "two", "three", "four"}

	out, err := run(t, "", "job", "test", "--name", "probe", "--target", "https://example.com", "--selector", "li")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Test successful! Found 4 results: one, two, three...") {
		t.Errorf("unexpected summary: %s", out)
	}
	if len(b.called(api.CmdCreateJob)) != 0 {
		t.Error("test must not create a job")
	}
}

func TestResultsCommand(t *testing.T) {
	b := newBackend(t)
	b.replies[api.CmdGetJobResults] = []api.Result{
		{ID: 7, JobID: 2, ScrapedData: `["/a","/b"]`, Timestamp: time.Now(), Success: true},
		{ID: 6, JobID: 2, ScrapedData: "[]", Timestamp: time.Now(), ErrorMessage: ptr("HTTP error: 500")},
	}
	viper.Set("results_limit", 10)

	out, err := run(t, "", "results", "2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"/a, /b", "HTTP error: 500", "failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}

	var args api.JobResultsArgs
	json.Unmarshal(b.called(api.CmdGetJobResults)[0], &args)
	if args.JobID != 2 || args.Limit == nil || *args.Limit != 10 {
		t.Errorf("unexpected args %+v", args)
	}
}

func TestStatsCommand(t *testing.T) {
	b := newBackend(t)
	b.replies[api.CmdGetJobStats] = api.JobStats{TotalJobs: 3, ActiveJobs: 2, TotalResults: 40}

	out, err := run(t, "", "stats")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "40") || !strings.Contains(out, "never") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestInitCommand(t *testing.T) {
	b := newBackend(t)
	b.replies[api.CmdGetJobStats] = api.JobStats{TotalJobs: 1}

	out, err := run(t, "", "init")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Application initialized successfully") || !strings.Contains(out, "Email is not configured") {
		t.Errorf("unexpected output: %s", out)
	}
	if len(b.called(api.CmdInitializeApp)) != 1 {
		t.Error("expected initialize_app")
	}

	b.failures[api.CmdInitializeApp] = "permission denied"
	out, _ = run(t, "", "init")
	if !strings.Contains(out, "Failed to initialize app: permission denied") {
		t.Errorf("unexpected output: %s", out)
	}
}
