package cmd

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"scrapedesk/pkg/api"
)

func sampleFiles() []api.ExportFileInfo {
	return []api.ExportFileInfo{
		{Name: "links_20240301_100000.html", Path: "/exports/links_20240301_100000.html", Size: 2048, ModifiedTimestamp: 1709287200, FileType: "HTML"},
		{Name: "links_20240229_100000.csv", Path: "/exports/links_20240229_100000.csv", Size: 120, ModifiedTimestamp: 1709200800, FileType: "CSV"},
	}
}

func TestExportJobCommand(t *testing.T) {
	b := newBackend(t)
	b.replies[api.CmdExportJobResults] = "/exports/links_20240301_100000.json"

	out, err := run(t, "", "export", "job", "2", "--format", "json", "--from", "2024-01-01", "--to", "2024-01-31")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Results exported to: /exports/links_20240301_100000.json") {
		t.Errorf("unexpected output: %s", out)
	}

	var args api.ExportArgs
	json.Unmarshal(b.called(api.CmdExportJobResults)[0], &args)
	req := args.Request
	if req.JobID != 2 || req.Format != api.FormatJSON {
		t.Errorf("unexpected request %+v", req)
	}
	if req.StartDate == nil || !req.StartDate.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)) {
		t.Errorf("start = %v", req.StartDate)
	}
	if req.EndDate == nil || !req.EndDate.Equal(time.Date(2024, 1, 31, 23, 59, 59, 0, time.Local)) {
		t.Errorf("end = %v", req.EndDate)
	}
}

func TestExportCommand_Errors(t *testing.T) {
	b := newBackend(t)

	if _, err := run(t, "", "export", "result", "4", "--format", "xml"); err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("expected format error, got: %v", err)
	}
	if len(b.called(api.CmdExportIndividualResult)) != 0 {
		t.Error("bad format must not reach the backend")
	}

	b.failures[api.CmdExportIndividualResult] = "No results found for the specified criteria"
	out, err := run(t, "", "export", "result", "4", "--format", "csv")
	var shown shownError
	if !errors.As(err, &shown) {
		t.Fatalf("expected a shown error, got: %v", err)
	}
	if !strings.Contains(out, "Individual export failed: No results found") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestFilesListCommand(t *testing.T) {
	b := newBackend(t)
	b.replies[api.CmdListExportFiles] = sampleFiles()

	out, err := run(t, "", "files", "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"links_20240301_100000.html", "2.0 KB", "120 B", "CSV"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}
}

func TestFilesShowCommand(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content string
		want    []string
		unwant  []string
	}{
		{
			name:    "html is sanitized and converted",
			path:    "/exports/links_20240301_100000.html",
			content: `<h1>Report</h1><script>alert(1)</script><p>Total: 2</p>`,
			want:    []string{"# Report", "Total: 2"},
			unwant:  []string{"alert", "<script>"},
		},
		{
			name:    "csv as a table",
			path:    "/exports/links_20240229_100000.csv",
			content: "ID,Scraped Data\n1,/a\n",
			want:    []string{"ID", "Scraped Data", "/a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend(t)
			b.replies[api.CmdListExportFiles] = sampleFiles()
			b.replies[api.CmdReadExportFile] = tt.content

			out, err := run(t, "", "files", "show", tt.path)
			if err != nil {
				t.Fatalf("unexpected error: %v\n%s", err, out)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("expected %q in output, got: %s", w, out)
				}
			}
			for _, w := range tt.unwant {
				if strings.Contains(out, w) {
					t.Errorf("unexpected %q in output: %s", w, out)
				}
			}
		})
	}
}

func TestFilesShowCommand_ReadFailure(t *testing.T) {
	b := newBackend(t)
	b.replies[api.CmdListExportFiles] = sampleFiles()
	b.failures[api.CmdReadExportFile] = "File is not within the export directory"

	out, err := run(t, "", "files", "show", "/etc/passwd")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(out, "Failed to read file: File is not within the export directory") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestFilesDeleteCommand(t *testing.T) {
	b := newBackend(t)
	b.replies[api.CmdListExportFiles] = sampleFiles()

	out, err := run(t, "yes\n", "files", "delete", "/exports/links_20240229_100000.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "delete links_20240229_100000.csv?") || !strings.Contains(out, "File deleted successfully") {
		t.Errorf("unexpected output: %s", out)
	}

	var args api.PathArgs
	json.Unmarshal(b.called(api.CmdDeleteExportFile)[0], &args)
	if args.FilePath != "/exports/links_20240229_100000.csv" {
		t.Errorf("deleted %q", args.FilePath)
	}
}

func TestFilesOpenCommand(t *testing.T) {
	b := newBackend(t)

	out, err := run(t, "", "files", "open")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Export directory opened") || len(b.called(api.CmdOpenExportDirectory)) != 1 {
		t.Errorf("unexpected output: %s", out)
	}
}
