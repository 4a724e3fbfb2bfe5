package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a URL, selector, pattern or schedule on the backend",
}

func validator(use, short, what string, check func(*session) func(context.Context, string) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [value]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
			ok, err := check(s)(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			p := s.ui.palette()
			if ok {
				fmt.Fprintln(cmd.OutOrStdout(), p.success.Render(fmt.Sprintf("✓ %s is valid", what)))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.failure.Render(fmt.Sprintf("✗ %s did not respond successfully", what)))
			return shownError{fmt.Errorf("%s is not valid", what)}
		}),
	}
}

func init() {
	validateCmd.AddCommand(
		validator("url", "Check that a URL answers a HEAD request", "URL",
			func(s *session) func(context.Context, string) (bool, error) { return s.client.ValidateURL }),
		validator("css", "Check that a CSS selector compiles", "CSS selector",
			func(s *session) func(context.Context, string) (bool, error) { return s.client.ValidateCSSSelector }),
		validator("regex", "Check that a regular expression compiles", "Regex pattern",
			func(s *session) func(context.Context, string) (bool, error) { return s.client.ValidateRegexPattern }),
		validator("cron", "Check a schedule preset or cron expression", "Schedule",
			func(s *session) func(context.Context, string) (bool, error) { return s.client.ValidateCronExpression }),
	)
	rootCmd.AddCommand(validateCmd)
}
