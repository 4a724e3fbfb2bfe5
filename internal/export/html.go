package export

import (
	"fmt"
	"html/template"
	"os"
	"time"

	"scrapedesk/pkg/api"
)

const reportStyle = `
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 20px; background: #f5f5f5; color: #333; }
    .container { max-width: 1200px; margin: 0 auto; background: #fff; border-radius: 8px; padding: 30px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
    h1 { margin-top: 0; }
    .job-info { background: #f8f9fa; padding: 15px; border-radius: 6px; margin-bottom: 20px; }
    .stats { display: flex; gap: 20px; margin-bottom: 20px; }
    .stat-box { flex: 1; text-align: center; padding: 15px; background: #eef2ff; border-radius: 6px; }
    .stat-number { font-size: 24px; font-weight: bold; }
    table { width: 100%; border-collapse: collapse; }
    th, td { padding: 10px; border-bottom: 1px solid #ddd; text-align: left; vertical-align: top; }
    .success { color: #28a745; }
    .error { color: #dc3545; }
    .data-cell { font-family: monospace; white-space: pre-wrap; word-break: break-all; }
    .timestamp { white-space: nowrap; }
`

var funcs = template.FuncMap{
	"stamp": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04:05 UTC") },
	"deref": func(s *string) string {
		if s == nil || *s == "" {
			return "-"
		}
		return *s
	},
}

var reportTemplate = template.Must(template.New("report").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Scraping Results - {{.Job.Name}}</title>
<style>{{.Style}}</style>
</head>
<body>
<div class="container">
<h1>Web Scraping Results Report</h1>
<div class="job-info">
<p><strong>Job Name:</strong> {{.Job.Name}}</p>
<p><strong>URL:</strong> {{.Job.URL}}</p>
<p><strong>Selector:</strong> {{.Job.SelectorType}} - {{.Job.Selector}}</p>
<p><strong>Data Type:</strong> {{.Job.DataType}}</p>
<p><strong>Generated:</strong> {{stamp .GeneratedAt}}</p>
</div>
<div class="stats">
<div class="stat-box"><div class="stat-number">{{.Total}}</div><div class="stat-label">Total Results</div></div>
<div class="stat-box"><div class="stat-number">{{.Successful}}</div><div class="stat-label">Successful</div></div>
<div class="stat-box"><div class="stat-number">{{.Failed}}</div><div class="stat-label">Failed</div></div>
</div>
<table>
<thead><tr><th>Timestamp</th><th>Status</th><th>Scraped Data</th><th>Error Message</th></tr></thead>
<tbody>
{{range .Results}}<tr>
<td class="timestamp">{{stamp .Timestamp}}</td>
{{if .Success}}<td class="success"><strong>✓ Success</strong></td>{{else}}<td class="error"><strong>✗ Failed</strong></td>{{end}}
<td class="data-cell">{{.ScrapedData}}</td>
<td class="data-cell">{{deref .ErrorMessage}}</td>
</tr>
{{end}}</tbody>
</table>
</div>
</body>
</html>
`))

var resultTemplate = template.Must(template.New("result").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Individual Scraping Result - {{.Job.Name}}</title>
<style>{{.Style}}</style>
</head>
<body>
<div class="container">
<h1>Individual Scraping Result</h1>
<div class="job-info">
<p><strong>Job Name:</strong> {{.Job.Name}}</p>
<p><strong>URL:</strong> {{.Job.URL}}</p>
<p><strong>Selector:</strong> {{.Job.SelectorType}} - {{.Job.Selector}}</p>
<p><strong>Generated:</strong> {{stamp .GeneratedAt}}</p>
</div>
{{range .Results}}<div class="job-info">
<p><strong>Result ID:</strong> {{.ID}}</p>
<p><strong>Timestamp:</strong> {{stamp .Timestamp}}</p>
<p><strong>Status:</strong> {{if .Success}}<span class="success">✓ Success</span>{{else}}<span class="error">✗ Failed</span>{{end}}</p>
<p><strong>Error Message:</strong> {{deref .ErrorMessage}}</p>
</div>
<h2>Scraped Data</h2>
<pre class="data-cell">{{.ScrapedData}}</pre>
{{end}}</div>
</body>
</html>
`))

type report struct {
	Job         api.Job
	Results     []api.Result
	GeneratedAt time.Time
	Total       int
	Successful  int
	Failed      int
	Style       template.CSS
}

func newReport(job api.Job, results []api.Result, now time.Time) report {
	ok := countSuccessful(results)
	return report{
		Job:         job,
		Results:     results,
		GeneratedAt: now,
		Total:       len(results),
		Successful:  ok,
		Failed:      len(results) - ok,
		Style:       template.CSS(reportStyle),
	}
}

func writeHTML(path string, tmpl *template.Template, data report) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create HTML file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to write HTML file: %w", err)
	}
	return nil
}
