package preview

import (
	"strings"
	"text/tabwriter"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// TextFormatter lays a View out for a terminal.
type TextFormatter struct {
	md *converter.Converter
}

// NewTextFormatter returns a formatter that converts HTML views to Markdown.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Format returns v as plain text.
func (f *TextFormatter) Format(v View) string {
	switch v.Kind {
	case TableView:
		return formatTable(v.Header, v.Rows)
	case HTMLView:
		md, err := f.md.ConvertString(v.HTML)
		if err != nil {
			return v.HTML
		}
		return md
	default:
		return v.Text
	}
}

func formatTable(header []string, rows [][]string) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)

	if len(header) > 0 {
		w.Write([]byte(strings.Join(header, "\t") + "\n"))
		dashes := make([]string, len(header))
		for i, h := range header {
			dashes[i] = strings.Repeat("-", max(len(h), 3))
		}
		w.Write([]byte(strings.Join(dashes, "\t") + "\n"))
	}
	for _, row := range rows {
		w.Write([]byte(strings.Join(row, "\t") + "\n"))
	}
	w.Flush()
	return b.String()
}
