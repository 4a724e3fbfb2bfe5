package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"scrapedesk/internal/codec"
	"scrapedesk/internal/progress"
	"scrapedesk/pkg/api"
)

// Initialize prepares the backend and loads jobs, stats and email settings
// behind the startup splash.
func (a *App) Initialize(ctx context.Context) error {
	a.splash.RequestShow()
	defer a.splash.RequestHide()

	done, err := a.begin(true)
	if err != nil {
		return err
	}
	defer done()

	if err := a.gw.InitializeApp(ctx); err != nil {
		a.fail(api.CmdInitializeApp, "Failed to initialize app: ", err)
		return err
	}

	a.reloadJobs(ctx)
	a.reloadStats(ctx)
	a.reloadEmailConfig(ctx)

	a.notifier.Success("Application initialized successfully")
	return nil
}

// SelectTab activates a tab and loads what it shows: the export listing for
// the files tab and the selected job's results for the results tab.
func (a *App) SelectTab(ctx context.Context, tab Tab) error {
	a.mu.Lock()
	a.tab = tab
	selected := a.selectedJob
	a.mu.Unlock()

	a.emit(Event{Kind: TabChanged, Tab: tab})

	switch tab {
	case TabFiles:
		return a.LoadExportFiles(ctx)
	case TabResults:
		if selected != nil {
			return a.LoadResults(ctx)
		}
	}
	return nil
}

// SelectJob focuses a job and loads its results. A nil id clears the focus.
func (a *App) SelectJob(ctx context.Context, id *int64) error {
	a.mu.Lock()
	if id == nil {
		a.selectedJob = nil
	} else {
		v := *id
		a.selectedJob = &v
	}
	a.mu.Unlock()

	a.emit(Event{Kind: SelectionChanged})

	if id == nil {
		a.store.ClearResults()
		a.emit(Event{Kind: ResultsChanged})
		return nil
	}
	return a.LoadResults(ctx)
}

// LoadJobs refreshes the job list.
func (a *App) LoadJobs(ctx context.Context) error {
	done, err := a.begin(false)
	if err != nil {
		return err
	}
	defer done()
	return a.reloadJobs(ctx)
}

// RefreshStats refreshes the aggregate counters.
func (a *App) RefreshStats(ctx context.Context) error {
	done, err := a.begin(false)
	if err != nil {
		return err
	}
	defer done()
	return a.reloadStats(ctx)
}

// LoadResults refreshes the results of the selected job.
func (a *App) LoadResults(ctx context.Context) error {
	id, ok := a.SelectedJob()
	if !ok {
		return errors.New("no job selected")
	}

	done, err := a.begin(false)
	if err != nil {
		return err
	}
	defer done()
	return a.reloadResults(ctx, id)
}

// CreateJob validates the form and stores it as a new job.
func (a *App) CreateJob(ctx context.Context, form codec.Form) error {
	if err := a.validateForm(form); err != nil {
		a.fail(api.CmdCreateJob, "Failed to create job: ", err)
		return err
	}

	done, err := a.begin(true)
	if err != nil {
		return err
	}
	defer done()

	job := codec.ToWireForm(form)
	_, err = staged(a, ctx, progress.CreateJob, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.gw.CreateJob(ctx, job)
	})
	if err != nil {
		a.fail(api.CmdCreateJob, "Failed to create job: ", err)
		return err
	}

	a.reloadJobs(ctx)
	a.reloadStats(ctx)
	a.notifier.Success("Job created successfully")
	a.setProgress(0, "")
	return nil
}

// UpdateJob validates the form and replaces the stored job.
func (a *App) UpdateJob(ctx context.Context, form codec.Form) error {
	err := a.validateForm(form)
	if err == nil && form.ID == nil {
		err = errors.New("job has no id")
	}
	if err != nil {
		a.fail(api.CmdUpdateJob, "Failed to update job: ", err)
		return err
	}

	done, err := a.begin(true)
	if err != nil {
		return err
	}
	defer done()

	job := codec.ToWireForm(form)
	_, err = staged(a, ctx, progress.UpdateJob, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.gw.UpdateJob(ctx, job)
	})
	if err != nil {
		a.fail(api.CmdUpdateJob, "Failed to update job: ", err)
		return err
	}

	a.reloadJobs(ctx)
	a.reloadStats(ctx)
	a.notifier.Success("Job updated successfully")
	a.setProgress(0, "")
	return nil
}

// DeleteJob removes a job after confirmation. If it was selected, the
// selection and its results are cleared. Results of the job are not touched
// on the client side.
func (a *App) DeleteJob(ctx context.Context, id int64) error {
	if !a.confirmer.Confirm("Are you sure you want to delete this job?") {
		return ErrCancelled
	}

	done, err := a.begin(true)
	if err != nil {
		return err
	}
	defer done()

	_, err = staged(a, ctx, progress.DeleteJob, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.gw.DeleteJob(ctx, id)
	})
	if err != nil {
		a.fail(api.CmdDeleteJob, "Failed to delete job: ", err)
		return err
	}

	a.reloadJobs(ctx)
	a.reloadStats(ctx)

	a.mu.Lock()
	wasSelected := a.selectedJob != nil && *a.selectedJob == id
	if wasSelected {
		a.selectedJob = nil
	}
	a.mu.Unlock()
	if wasSelected {
		a.store.ClearResults()
		a.emit(Event{Kind: SelectionChanged})
		a.emit(Event{Kind: ResultsChanged})
	}

	a.notifier.Success("Job deleted successfully")
	a.setProgress(0, "")
	return nil
}

// RunJobNow scrapes a job immediately and returns the extracted items.
func (a *App) RunJobNow(ctx context.Context, id int64) ([]string, error) {
	done, err := a.begin(true)
	if err != nil {
		return nil, err
	}
	defer done()

	items, err := staged(a, ctx, progress.RunJob, func(ctx context.Context) ([]string, error) {
		return a.gw.RunJobNow(ctx, id)
	})
	if err != nil {
		a.fail(api.CmdRunJobNow, "Failed to run job: ", err)
		return nil, err
	}

	a.reloadStats(ctx)
	if selected, ok := a.SelectedJob(); ok && selected == id {
		a.reloadResults(ctx, id)
	}

	a.notifier.Success(fmt.Sprintf("Job executed successfully. Found %d results.", len(items)))
	a.setProgress(0, "")
	return items, nil
}

// TestJob dry-runs the form's job without storing anything.
func (a *App) TestJob(ctx context.Context, form codec.Form) ([]string, error) {
	if err := a.validateForm(form); err != nil {
		a.fail(api.CmdTestScrapeJob, "Test failed: ", err)
		return nil, err
	}

	done, err := a.begin(true)
	if err != nil {
		return nil, err
	}
	defer done()

	job := codec.ToWireForm(form)
	items, err := staged(a, ctx, progress.TestJob, func(ctx context.Context) ([]string, error) {
		return a.gw.TestScrapeJob(ctx, job)
	})
	if err != nil {
		a.fail(api.CmdTestScrapeJob, "Test failed: ", err)
		return nil, err
	}

	a.notifier.Success(testSummary(items))
	a.setProgress(0, "")
	return items, nil
}

func testSummary(items []string) string {
	preview := items
	if len(preview) > 3 {
		preview = preview[:3]
	}
	s := fmt.Sprintf("Test successful! Found %d results: %s", len(items), strings.Join(preview, ", "))
	if len(items) > 3 {
		s += "..."
	}
	return s
}

func (a *App) validateForm(form codec.Form) error {
	if err := a.validate.Struct(form); err != nil {
		return describeValidation(err)
	}
	return nil
}

// staged plays plan while running op, bound to the app's lifetime.
func staged[R any](a *App, ctx context.Context, plan progress.Plan, op func(context.Context) (R, error)) (R, error) {
	ctx, cancel := a.bind(ctx)
	defer cancel()

	opts := []progress.Option{progress.WithClock(a.clock)}
	if !a.stageDelays {
		opts = append(opts, progress.WithoutDelay())
	}
	return progress.Run(ctx, plan, op, a.setProgress, opts...)
}

func (a *App) reloadJobs(ctx context.Context) error {
	if err := a.store.ReloadJobs(ctx); err != nil {
		a.fail(api.CmdGetAllJobs, "Failed to load jobs: ", err)
		return err
	}
	a.emit(Event{Kind: JobsChanged})
	return nil
}

func (a *App) reloadStats(ctx context.Context) error {
	if err := a.store.ReloadStats(ctx); err != nil {
		a.logger.Warn("failed to load stats", "error", err)
		return err
	}
	a.emit(Event{Kind: StatsChanged})
	return nil
}

func (a *App) reloadEmailConfig(ctx context.Context) error {
	if err := a.store.ReloadEmailConfig(ctx); err != nil {
		a.logger.Warn("failed to load email config", "error", err)
		return err
	}
	a.emit(Event{Kind: EmailConfigChanged})
	return nil
}

func (a *App) reloadResults(ctx context.Context, jobID int64) error {
	if err := a.store.ReloadResults(ctx, jobID, a.resultsLimit); err != nil {
		a.fail(api.CmdGetJobResults, "Failed to load results: ", err)
		return err
	}
	a.emit(Event{Kind: ResultsChanged})
	return nil
}
