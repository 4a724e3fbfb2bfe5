package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"scrapedesk/internal/codec"
	"scrapedesk/pkg/api"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List all jobs",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		if err := s.app.LoadJobs(cmd.Context()); err != nil {
			return err
		}
		jobs := s.app.Store().Jobs()
		if len(jobs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No jobs yet. Create one with: scrapectl job create")
			return nil
		}

		rows := make([][]string, 0, len(jobs))
		for _, j := range jobs {
			rows = append(rows, []string{idOf(j), j.Name, j.URL, j.SelectorType, j.Schedule, activeLabel(j.IsActive)})
		}
		fmt.Fprintln(cmd.OutOrStdout(), s.ui.table([]string{"ID", "Name", "URL", "Selector", "Schedule", "Status"}, rows))
		return nil
	}),
}

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Create, change, run and inspect a single job",
}

var jobShowCmd = &cobra.Command{
	Use:   "show [job_id]",
	Short: "Show a job's definition",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		job, err := loadJob(cmd, s, args[0])
		if err != nil {
			return err
		}

		s.ui.title(job.Name)
		s.ui.field("ID", idOf(job))
		s.ui.field("URL", job.URL)
		s.ui.field("Selector", fmt.Sprintf("%s %s", job.SelectorType, job.Selector))
		s.ui.field("Data", job.DataType)
		s.ui.field("Schedule", job.Schedule)
		s.ui.field("Status", activeLabel(job.IsActive))
		if job.UserAgent != nil {
			s.ui.field("User-Agent", *job.UserAgent)
		}
		if job.ProxyURL != nil {
			s.ui.field("Proxy", *job.ProxyURL)
		}
		if job.UpdatedAt != nil {
			s.ui.field("Updated", job.UpdatedAt.Local().Format(time.DateTime))
		}
		return nil
	}),
}

var jobCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new job",
	Long: `Create a new scraping job.

Example:
  scrapectl job create --name headlines --target https://example.com --selector "h2 a"
  scrapectl job create --name links --target https://example.com --selector a \
    --data-type attribute --attribute href --schedule "0 30 * * * *"
  scrapectl job create --name orders --target https://example.com/orders \
    --selector-type Regex --selector "order #(\d+)" --schedule hourly`,
	Args: cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		form := codec.NewForm()
		applyJobFlags(cmd, &form)
		return s.app.CreateJob(cmd.Context(), form)
	}),
}

var jobUpdateCmd = &cobra.Command{
	Use:   "update [job_id]",
	Short: "Change an existing job; only the given flags are changed",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		job, err := loadJob(cmd, s, args[0])
		if err != nil {
			return err
		}
		form := codec.ToFormFields(job)
		applyJobFlags(cmd, &form)
		return s.app.UpdateJob(cmd.Context(), form)
	}),
}

var jobDeleteCmd = &cobra.Command{
	Use:   "delete [job_id]",
	Short: "Delete a job",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return s.app.DeleteJob(cmd.Context(), id)
	}),
}

var jobRunCmd = &cobra.Command{
	Use:   "run [job_id]",
	Short: "Scrape a job now and store the result",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		items, err := s.app.RunJobNow(cmd.Context(), id)
		if err != nil {
			return err
		}
		printItems(cmd, items)
		return nil
	}),
}

var jobTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Dry-run a job definition without saving it",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		form := codec.NewForm()
		applyJobFlags(cmd, &form)
		items, err := s.app.TestJob(cmd.Context(), form)
		if err != nil {
			return err
		}
		printItems(cmd, items)
		return nil
	}),
}

var resultsCmd = &cobra.Command{
	Use:   "results [job_id]",
	Short: "List the latest results of a job",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := s.app.SelectJob(cmd.Context(), &id); err != nil {
			return err
		}

		results, _ := s.app.Store().Results()
		if len(results) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No results for this job yet.")
			return nil
		}
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			rows = append(rows, []string{
				strconv.FormatInt(r.ID, 10),
				r.Timestamp.Local().Format(time.DateTime),
				resultLabel(r),
				truncate(resultSummary(r), 60),
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), s.ui.table([]string{"ID", "Time", "Status", "Data"}, rows))
		return nil
	}),
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show job and result counters",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		if err := s.app.RefreshStats(cmd.Context()); err != nil {
			return err
		}
		printStats(s, s.app.Store().Stats())
		return nil
	}),
}

func printStats(s *session, stats api.JobStats) {
	s.ui.title("Statistics")
	s.ui.field("Jobs", stats.TotalJobs)
	s.ui.field("Active", stats.ActiveJobs)
	s.ui.field("Results", stats.TotalResults)
	if stats.LastRun != nil {
		s.ui.field("Last run", stats.LastRun.Local().Format(time.DateTime))
	} else {
		s.ui.field("Last run", "never")
	}
}

func loadJob(cmd *cobra.Command, s *session, arg string) (api.Job, error) {
	id, err := parseID(arg)
	if err != nil {
		return api.Job{}, err
	}
	if err := s.app.LoadJobs(cmd.Context()); err != nil {
		return api.Job{}, err
	}
	job, ok := s.app.Store().Job(id)
	if !ok {
		return api.Job{}, fmt.Errorf("job %d not found", id)
	}
	return job, nil
}

func addJobFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("name", "", "Job name")
	f.String("target", "", "URL of the page to scrape")
	f.String("selector-type", api.SelectorCSS, "CSS or Regex")
	f.String("selector", "", "CSS selector or regular expression")
	f.String("data-type", "text", "what to extract from CSS matches: text or attribute")
	f.String("attribute", "", "attribute to extract (implies --data-type attribute)")
	f.String("schedule", api.ScheduleDaily, "daily, hourly, weekly, monthly or a 6-field cron expression")
	f.Bool("active", true, "run the job on its schedule")
	f.String("user-agent", "", "User-Agent header override")
	f.String("proxy", "", "proxy URL")
}

// applyJobFlags copies every flag the user set onto form.
func applyJobFlags(cmd *cobra.Command, form *codec.Form) {
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	str("name", &form.Name)
	str("target", &form.URL)
	str("selector-type", &form.SelectorType)
	str("selector", &form.Selector)
	str("schedule", &form.Schedule)
	str("user-agent", &form.UserAgent)
	str("proxy", &form.ProxyURL)

	if f.Changed("data-type") {
		dt, _ := f.GetString("data-type")
		if strings.EqualFold(dt, "attribute") {
			form.Kind = codec.KindAttribute
		} else {
			form.Kind = codec.KindText
			form.AttributeName = ""
		}
	}
	if f.Changed("attribute") {
		form.Kind = codec.KindAttribute
		form.AttributeName, _ = f.GetString("attribute")
	}
	if f.Changed("active") {
		form.IsActive, _ = f.GetBool("active")
	}
}

func printItems(cmd *cobra.Command, items []string) {
	for i, item := range items {
		fmt.Fprintf(cmd.OutOrStdout(), "%3d. %s\n", i+1, item)
	}
}

func idOf(j api.Job) string {
	if j.ID == nil {
		return "-"
	}
	return strconv.FormatInt(*j.ID, 10)
}

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "paused"
}

func resultLabel(r api.Result) string {
	if r.Success {
		return "✓ success"
	}
	return "✗ failed"
}

func resultSummary(r api.Result) string {
	if !r.Success && r.ErrorMessage != nil {
		return *r.ErrorMessage
	}
	var items []string
	if err := json.Unmarshal([]byte(r.ScrapedData), &items); err == nil {
		return strings.Join(items, ", ")
	}
	return strings.Join(strings.Fields(r.ScrapedData), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func init() {
	for _, c := range []*cobra.Command{jobCreateCmd, jobUpdateCmd, jobTestCmd} {
		addJobFlags(c)
	}
	jobCmd.AddCommand(jobShowCmd, jobCreateCmd, jobUpdateCmd, jobDeleteCmd, jobRunCmd, jobTestCmd)
	rootCmd.AddCommand(jobsCmd, jobCmd, resultsCmd, statsCmd)
}
