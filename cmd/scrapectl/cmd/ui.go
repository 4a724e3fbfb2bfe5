package cmd

import (
	"fmt"
	"io"

	"scrapedesk/internal/app"
	"scrapedesk/internal/notify"

	bar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// palette is the set of styles for one theme.
type palette struct {
	accent  lipgloss.Color
	success lipgloss.Style
	failure lipgloss.Style
	info    lipgloss.Style
	dim     lipgloss.Style
	header  lipgloss.Style
}

func paletteFor(t app.Theme) palette {
	if t == app.ThemeDark {
		return palette{
			accent:  lipgloss.Color("#7AA2F7"),
			success: lipgloss.NewStyle().Foreground(lipgloss.Color("#9ECE6A")),
			failure: lipgloss.NewStyle().Foreground(lipgloss.Color("#F7768E")),
			info:    lipgloss.NewStyle().Foreground(lipgloss.Color("#7DCFFF")),
			dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("#565F89")),
			header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C0CAF5")),
		}
	}
	return palette{
		accent:  lipgloss.Color("#2E59D9"),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("#1E7E34")),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("#C82333")),
		info:    lipgloss.NewStyle().Foreground(lipgloss.Color("#117A8B")),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("#6C757D")),
		header:  lipgloss.NewStyle().Bold(true),
	}
}

// ui prints app events to the terminal.
type ui struct {
	out    io.Writer
	errOut io.Writer
	look   *app.Appearance
	bar    bar.Model

	// failed is set once an error message has been shown.
	failed bool
}

func newUI(out, errOut io.Writer, look *app.Appearance) *ui {
	u := &ui{out: out, errOut: errOut, look: look}
	u.restyle(look.Theme())
	look.Subscribe(u.restyle)
	return u
}

func (u *ui) restyle(t app.Theme) {
	u.bar = bar.New(bar.WithWidth(30), bar.WithSolidFill(string(paletteFor(t).accent)))
}

func (u *ui) palette() palette {
	return paletteFor(u.look.Theme())
}

func (u *ui) handle(e app.Event) {
	switch e.Kind {
	case app.ProgressChanged:
		if e.Text == "" {
			return
		}
		fmt.Fprintf(u.errOut, "%s %s\n", u.bar.ViewAs(float64(e.Percent)/100), u.palette().dim.Render(e.Text))
	case app.SplashChanged:
		if e.Visible {
			fmt.Fprintln(u.errOut, u.palette().dim.Render("Starting scrapedesk..."))
		}
	case app.MessageChanged:
		if e.Message != nil {
			u.message(*e.Message)
		}
	}
}

func (u *ui) message(m notify.Message) {
	p := u.palette()
	switch m.Kind {
	case notify.Success:
		fmt.Fprintln(u.out, p.success.Render("✓ "+m.Text))
	case notify.Error:
		u.failed = true
		fmt.Fprintln(u.out, p.failure.Render("✗ "+m.Text))
	default:
		fmt.Fprintln(u.out, p.info.Render("• "+m.Text))
	}
}

// table renders rows under headers in the current theme.
func (u *ui) table(headers []string, rows [][]string) string {
	p := u.palette()
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.dim).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.header.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

// field prints one "label: value" line.
func (u *ui) field(label string, value any) {
	fmt.Fprintf(u.out, "%s %v\n", u.palette().dim.Render(fmt.Sprintf("%-12s", label+":")), value)
}

func (u *ui) title(s string) {
	fmt.Fprintln(u.out, u.palette().header.Render(s))
	fmt.Fprintln(u.out, u.palette().dim.Render("──────────────────────────────"))
}
