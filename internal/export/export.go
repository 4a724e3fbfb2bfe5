// Package export writes job results to CSV, JSON or HTML files and manages
// the export directory.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"scrapedesk/pkg/api"

	"k8s.io/utils/clock"
)

var (
	// ErrNoResults is returned when a job export has nothing to write.
	ErrNoResults = errors.New("No results found for the specified criteria")
	// ErrOutsideExportDir guards reads and deletes.
	ErrOutsideExportDir = errors.New("File is not within the export directory")
	// ErrUnknownFormat is returned for formats other than CSV, JSON and HTML.
	ErrUnknownFormat = errors.New("unknown export format")
)

const stampLayout = "20060102_150405"

// Exporter owns one export directory.
type Exporter struct {
	dir    string
	clock  clock.PassiveClock
	logger *slog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithClock sets the clock used for file names and export timestamps.
func WithClock(c clock.PassiveClock) Option {
	return func(e *Exporter) { e.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) { e.logger = l }
}

// New creates dir if needed and returns an Exporter rooted there.
func New(dir string, opts ...Option) (*Exporter, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve export directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	e := &Exporter{dir: abs, clock: clock.RealClock{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Dir returns the absolute export directory.
func (e *Exporter) Dir() string { return e.dir }

// ExportJob writes all given results of job and returns the file path.
func (e *Exporter) ExportJob(job api.Job, results []api.Result, format string) (string, error) {
	if len(results) == 0 {
		return "", ErrNoResults
	}
	ext, err := extension(format)
	if err != nil {
		return "", err
	}

	now := e.clock.Now().UTC()
	path := filepath.Join(e.dir, fmt.Sprintf("%s_%s.%s", SanitizeFilename(job.Name), now.Format(stampLayout), ext))

	switch ext {
	case "csv":
		err = writeCSV(path, job, results)
	case "json":
		err = writeJSON(path, jobDocument{
			Job:     job,
			Results: results,
			ExportInfo: jobExportInfo{
				ExportedAt:        now,
				TotalResults:      len(results),
				SuccessfulResults: countSuccessful(results),
				FailedResults:     len(results) - countSuccessful(results),
			},
		})
	case "html":
		err = writeHTML(path, reportTemplate, newReport(job, results, now))
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("export completed", "job", job.Name, "format", format, "path", path)
	return path, nil
}

// ExportResult writes a single result of job and returns the file path.
func (e *Exporter) ExportResult(job api.Job, result api.Result, format string) (string, error) {
	ext, err := extension(format)
	if err != nil {
		return "", err
	}

	now := e.clock.Now().UTC()
	name := fmt.Sprintf("%s_%s_result_%d.%s", SanitizeFilename(job.Name), now.Format(stampLayout), result.ID, ext)
	path := filepath.Join(e.dir, name)

	switch ext {
	case "csv":
		err = writeCSV(path, job, []api.Result{result})
	case "json":
		err = writeJSON(path, resultDocument{
			Job:        job,
			Result:     result,
			ExportInfo: resultExportInfo{ExportedAt: now, ResultID: result.ID},
		})
	case "html":
		err = writeHTML(path, resultTemplate, newReport(job, []api.Result{result}, now))
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("individual export completed", "result_id", result.ID, "format", format, "path", path)
	return path, nil
}

// List returns the files of the export directory, newest first.
func (e *Exporter) List() ([]api.ExportFileInfo, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []api.ExportFileInfo{}, nil
		}
		return nil, fmt.Errorf("failed to list export files: %w", err)
	}

	files := make([]api.ExportFileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to get file metadata: %w", err)
		}
		files = append(files, api.ExportFileInfo{
			Name:              entry.Name(),
			Path:              filepath.Join(e.dir, entry.Name()),
			Size:              info.Size(),
			ModifiedTimestamp: info.ModTime().Unix(),
			FileType:          fileType(entry.Name()),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].ModifiedTimestamp > files[j].ModifiedTimestamp
	})
	return files, nil
}

// Read returns the content of an export file.
func (e *Exporter) Read(path string) (string, error) {
	p, err := e.Resolve(path)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("failed to read export file: %w", err)
	}
	return string(b), nil
}

// Delete removes an export file.
func (e *Exporter) Delete(path string) error {
	p, err := e.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("failed to delete export file: %w", err)
	}
	return nil
}

// CleanupOld removes files last modified more than days ago and returns how
// many were deleted.
func (e *Exporter) CleanupOld(days int) (int, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list export files: %w", err)
	}
	cutoff := e.clock.Now().Add(-time.Duration(days) * 24 * time.Hour)

	deleted := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(e.dir, entry.Name())) == nil {
			deleted++
		}
	}
	e.logger.Info("cleaned up old export files", "count", deleted)
	return deleted, nil
}

// Resolve returns the absolute form of path, or ErrOutsideExportDir when it
// does not name a file inside the export directory.
func (e *Exporter) Resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ErrOutsideExportDir
	}
	rel, err := filepath.Rel(e.dir, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideExportDir
	}
	return abs, nil
}

// SanitizeFilename replaces path separators, reserved characters and control
// characters with underscores and trims surrounding space.
func SanitizeFilename(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 || r == 0x7f {
			return '_'
		}
		return r
	}, name)
	return strings.TrimSpace(mapped)
}

func extension(format string) (string, error) {
	switch strings.ToUpper(format) {
	case api.FormatCSV:
		return "csv", nil
	case api.FormatJSON:
		return "json", nil
	case api.FormatHTML:
		return "html", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func fileType(name string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "csv":
		return api.FormatCSV
	case "json":
		return api.FormatJSON
	case "html":
		return api.FormatHTML
	}
	return "Unknown"
}

func countSuccessful(results []api.Result) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}

type jobExportInfo struct {
	ExportedAt        time.Time `json:"exported_at"`
	TotalResults      int       `json:"total_results"`
	SuccessfulResults int       `json:"successful_results"`
	FailedResults     int       `json:"failed_results"`
}

type jobDocument struct {
	Job        api.Job       `json:"job"`
	Results    []api.Result  `json:"results"`
	ExportInfo jobExportInfo `json:"export_info"`
}

type resultExportInfo struct {
	ExportedAt time.Time `json:"exported_at"`
	ResultID   int64     `json:"result_id"`
}

type resultDocument struct {
	Job        api.Job          `json:"job"`
	Result     api.Result       `json:"result"`
	ExportInfo resultExportInfo `json:"export_info"`
}

func writeCSV(path string, job api.Job, results []api.Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"ID", "Job Name", "Scraped Data", "Timestamp", "Success", "Error Message"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range results {
		msg := ""
		if r.ErrorMessage != nil {
			msg = *r.ErrorMessage
		}
		row := []string{
			strconv.FormatInt(r.ID, 10),
			job.Name,
			r.ScrapedData,
			r.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatBool(r.Success),
			msg,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV file: %w", err)
	}
	return nil
}

func writeJSON(path string, doc any) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize to JSON: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	return nil
}
