package progress

import "time"

// Stage intervals per command class.
const (
	MutationInterval = 200 * time.Millisecond
	RunInterval      = 400 * time.Millisecond
	TestInterval     = 300 * time.Millisecond
)

// CreateJob is played while a new job is saved.
var CreateJob = Plan{
	Start: "Creating new job...",
	Stages: []Stage{
		{25, "Validating job configuration..."},
		{50, "Saving job to database..."},
		{75, "Updating job statistics..."},
		{90, "Refreshing job list..."},
	},
	Interval: MutationInterval,
	Final:    "Finalizing...",
}

// UpdateJob is played while an existing job is saved.
var UpdateJob = Plan{
	Start: "Updating job...",
	Stages: []Stage{
		{30, "Validating changes..."},
		{60, "Updating job in database..."},
		{80, "Refreshing job data..."},
		{95, "Updating statistics..."},
	},
	Interval: MutationInterval,
	Final:    "Completing update...",
}

// DeleteJob is played while a job is removed.
var DeleteJob = Plan{
	Start: "Deleting job...",
	Stages: []Stage{
		{25, "Removing job from database..."},
		{50, "Cleaning up job data..."},
		{75, "Updating statistics..."},
		{90, "Refreshing job list..."},
	},
	Interval: MutationInterval,
	Final:    "Finalizing deletion...",
}

// RunJob is played before an immediate run.
var RunJob = Plan{
	Start: "Starting job execution...",
	Stages: []Stage{
		{15, "Preparing scraping environment..."},
		{30, "Loading job configuration..."},
		{45, "Connecting to target website..."},
		{65, "Scraping data from website..."},
		{85, "Saving results to database..."},
		{95, "Finalizing job execution..."},
	},
	Interval: RunInterval,
	Final:    "Completing job...",
}

// TestJob is played before a dry-run scrape.
var TestJob = Plan{
	Start: "Initializing test scrape...",
	Stages: []Stage{
		{10, "Validating URL and selectors..."},
		{25, "Establishing connection..."},
		{40, "Fetching webpage content..."},
		{60, "Parsing HTML structure..."},
		{80, "Extracting data with selectors..."},
		{95, "Processing results..."},
	},
	Interval: TestInterval,
	Final:    "Completing test...",
}
