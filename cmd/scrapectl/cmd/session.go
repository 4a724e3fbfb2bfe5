package cmd

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"scrapedesk/internal/app"
	"scrapedesk/internal/gateway"
	"scrapedesk/internal/logger"
	"scrapedesk/internal/preview"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// session is one command invocation's app plus its terminal view.
type session struct {
	app    *app.App
	client *gateway.Client
	ui     *ui
	text   *preview.TextFormatter
}

// shownError marks a failure the user has already seen as a message.
type shownError struct{ error }

func (e shownError) Unwrap() error { return e.error }

func newSession(cmd *cobra.Command) (*session, error) {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	look := app.NewAppearance(app.ParseTheme(viper.GetString("theme")))
	u := newUI(out, errOut, look)

	client := gateway.New(gateway.NewHTTPInvoker(viper.GetString("url"), viper.GetString("token")))

	var renderOpts []preview.Option
	if viper.GetBool("trust_html") {
		renderOpts = append(renderOpts, preview.WithTrustedHTML())
	}

	opts := []app.Option{
		app.WithAppearance(look),
		app.WithRenderer(preview.NewRenderer(renderOpts...)),
		app.WithResultsLimit(viper.GetInt("results_limit")),
		app.WithLogger(logger.NewWithWriter(errOut, logger.ParseLevel(viper.GetString("log_level")))),
		app.WithConfirmer(app.ConfirmFunc(func(prompt string) bool {
			return confirm(cmd, prompt)
		})),
	}
	if !viper.GetBool("animate") {
		opts = append(opts, app.WithoutStageDelays())
	}

	a, err := app.New(client, opts...)
	if err != nil {
		return nil, err
	}
	a.Subscribe(u.handle)

	return &session{app: a, client: client, ui: u, text: preview.NewTextFormatter()}, nil
}

// Close stops the app's timers.
func (s *session) Close() {
	s.app.Close()
}

// result wraps err as shown when the app already reported it.
func (s *session) result(err error) error {
	if err != nil && s.ui.failed {
		return shownError{err}
	}
	return err
}

// withSession runs fn against a fresh session.
func withSession(fn func(cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		return s.result(fn(cmd, s, args))
	}
}

func confirm(cmd *cobra.Command, prompt string) bool {
	if viper.GetBool("yes") {
		return true
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
