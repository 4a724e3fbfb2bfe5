package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"scrapedesk/internal/app"
	"scrapedesk/pkg/api"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write results to a CSV, JSON or HTML file",
}

var exportJobCmd = &cobra.Command{
	Use:   "job [job_id]",
	Short: "Export the results of a job",
	Long: `Export the results of a job, optionally limited to a date range.

Example:
  scrapectl export job 3 --format CSV
  scrapectl export job 3 --format HTML --from 2024-01-01 --to 2024-01-31`,
	Args: cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}
		req := api.ExportRequest{JobID: id, Format: format}
		if req.StartDate, err = dateFlag(cmd, "from", false); err != nil {
			return err
		}
		if req.EndDate, err = dateFlag(cmd, "to", true); err != nil {
			return err
		}
		_, err = s.app.ExportResults(cmd.Context(), req)
		return err
	}),
}

var exportResultCmd = &cobra.Command{
	Use:   "result [result_id]",
	Short: "Export a single result",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}
		_, err = s.app.ExportIndividualResult(cmd.Context(), api.IndividualExportRequest{ResultID: id, Format: format})
		return err
	}),
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Browse the export directory",
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List export files, newest first",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		if err := s.app.SelectTab(cmd.Context(), app.TabFiles); err != nil {
			return err
		}
		files, _ := s.app.Store().Files()
		if len(files) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No export files yet.")
			return nil
		}
		rows := make([][]string, 0, len(files))
		for _, f := range files {
			rows = append(rows, []string{
				f.Name,
				f.FileType,
				humanSize(f.Size),
				time.Unix(f.ModifiedTimestamp, 0).Local().Format(time.DateTime),
				f.Path,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), s.ui.table([]string{"Name", "Type", "Size", "Modified", "Path"}, rows))
		return nil
	}),
}

var filesShowCmd = &cobra.Command{
	Use:   "show [path]",
	Short: "Preview an export file",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		if err := s.app.SelectTab(cmd.Context(), app.TabFiles); err != nil {
			return err
		}
		if err := s.app.SelectFile(cmd.Context(), args[0]); err != nil {
			return err
		}
		view, ok := s.app.Preview()
		if !ok {
			return nil
		}
		if f, ok := s.app.SelectedFile(); ok && f.Name != "" {
			s.ui.title(f.Name)
		}
		fmt.Fprintln(cmd.OutOrStdout(), s.text.Format(view))
		return nil
	}),
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete [path]",
	Short: "Delete an export file",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		// Loaded first so the prompt can name the file.
		if err := s.app.LoadExportFiles(cmd.Context()); err != nil {
			return err
		}
		return s.app.DeleteFile(cmd.Context(), args[0])
	}),
}

var filesOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Open the export directory on the backend host",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		return s.app.OpenExportDirectory(cmd.Context())
	}),
}

func formatFlag(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("format")
	return normalizeFormat(format)
}

func normalizeFormat(format string) (string, error) {
	switch f := strings.ToUpper(strings.TrimSpace(format)); f {
	case api.FormatCSV, api.FormatJSON, api.FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format %q (want CSV, JSON or HTML)", format)
}

// dateFlag parses a YYYY-MM-DD or RFC 3339 flag. A bare end date covers the
// whole day.
func dateFlag(cmd *cobra.Command, name string, endOfDay bool) (*time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s date %q (want YYYY-MM-DD or RFC 3339)", name, raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t, nil
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return api.FormatCSV
	case ".json":
		return api.FormatJSON
	case ".html", ".htm":
		return api.FormatHTML
	}
	return "Unknown"
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return strconv.FormatFloat(float64(n)/(1<<20), 'f', 1, 64) + " MB"
	case n >= 1<<10:
		return strconv.FormatFloat(float64(n)/(1<<10), 'f', 1, 64) + " KB"
	}
	return strconv.FormatInt(n, 10) + " B"
}

func init() {
	for _, c := range []*cobra.Command{exportJobCmd, exportResultCmd} {
		c.Flags().String("format", api.FormatCSV, "CSV, JSON or HTML")
	}
	exportJobCmd.Flags().String("from", "", "only results at or after this date")
	exportJobCmd.Flags().String("to", "", "only results at or before this date")

	exportCmd.AddCommand(exportJobCmd, exportResultCmd)
	filesCmd.AddCommand(filesListCmd, filesShowCmd, filesDeleteCmd, filesOpenCmd)
	rootCmd.AddCommand(exportCmd, filesCmd)
}
