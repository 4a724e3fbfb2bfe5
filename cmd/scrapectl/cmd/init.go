package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Prepare the backend and show a summary",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		if err := s.app.Initialize(cmd.Context()); err != nil {
			return err
		}
		printStats(s, s.app.Store().Stats())
		if s.app.Store().EmailConfig() == nil {
			fmt.Fprintln(cmd.OutOrStdout(), s.ui.palette().dim.Render("Email is not configured."))
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(initCmd)
}
