// Package preview renders the content of an export file according to its
// declared type. Rendering never fails: anything that cannot be interpreted
// falls back to a raw text view.
package preview

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// FileType is the declared format of an export file.
type FileType string

const (
	CSV   FileType = "csv"
	JSON  FileType = "json"
	HTML  FileType = "html"
	Other FileType = "other"
)

// ParseFileType maps a listing's file type ("CSV", "json", "Unknown", ...) to a FileType.
func ParseFileType(s string) FileType {
	switch FileType(strings.ToLower(strings.TrimSpace(s))) {
	case CSV:
		return CSV
	case JSON:
		return JSON
	case HTML:
		return HTML
	default:
		return Other
	}
}

// ViewKind says which fields of a View are populated.
type ViewKind int

const (
	RawView ViewKind = iota
	JSONView
	TableView
	HTMLView
)

// View is a rendered file.
type View struct {
	Kind ViewKind

	// Text holds the raw content (RawView) or the indented document (JSONView).
	Text string

	// Header and Rows hold a TableView.
	Header []string
	Rows   [][]string

	// HTML holds the markup of an HTMLView. Trusted is set when the markup
	// was passed through without sanitizing.
	HTML    string
	Trusted bool
}

// Renderer turns raw file content into a View.
type Renderer struct {
	policy  *bluemonday.Policy
	trusted bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTrustedHTML renders HTML exports verbatim. Scripts and event handlers
// in the file are kept.
func WithTrustedHTML() Option {
	return func(r *Renderer) { r.trusted = true }
}

// WithPolicy replaces the sanitizing policy applied to HTML exports.
func WithPolicy(p *bluemonday.Policy) Option {
	return func(r *Renderer) { r.policy = p }
}

// NewRenderer returns a Renderer that sanitizes HTML with the UGC policy unless
// WithTrustedHTML is given.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	if r.policy == nil {
		r.policy = reportPolicy()
	}
	return r
}

// reportPolicy extends the UGC policy with the document skeleton and class
// attributes used by the export report.
func reportPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("html", "head", "body", "title")
	p.AllowStyling()
	return p
}

// Render produces the view for raw content of the given type.
func (r *Renderer) Render(ft FileType, raw string) View {
	switch ft {
	case JSON:
		return renderJSON(raw)
	case CSV:
		return renderCSV(raw)
	case HTML:
		if r.trusted {
			return View{Kind: HTMLView, HTML: raw, Trusted: true}
		}
		return View{Kind: HTMLView, HTML: r.policy.Sanitize(raw)}
	default:
		return View{Kind: RawView, Text: raw}
	}
}

func renderJSON(raw string) View {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
		return View{Kind: RawView, Text: raw}
	}
	return View{Kind: JSONView, Text: buf.String()}
}

// renderCSV splits on newlines and commas only. Quoted fields containing
// commas or newlines are not understood and split like any other text.
func renderCSV(raw string) View {
	v := View{Kind: TableView}

	headerSeen := false
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := splitCells(line)
		if !headerSeen {
			v.Header = cells
			headerSeen = true
			continue
		}
		v.Rows = append(v.Rows, cells)
	}
	return v
}

func splitCells(line string) []string {
	cells := strings.Split(line, ",")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}
