package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"scrapedesk/pkg/api"

	"github.com/spf13/cobra"
)

var emailCmd = &cobra.Command{
	Use:   "email",
	Short: "Manage SMTP settings and mail export files",
}

var emailShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved SMTP settings",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		if err := s.app.Store().ReloadEmailConfig(cmd.Context()); err != nil {
			return err
		}
		cfg := s.app.Store().EmailConfig()
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No email configuration saved. Set one with: scrapectl email save")
			return nil
		}
		s.ui.title("Email")
		s.ui.field("Server", cfg.SMTPServer)
		s.ui.field("Port", cfg.SMTPPort)
		s.ui.field("Username", cfg.Username)
		s.ui.field("Password", strings.Repeat("*", 8))
		s.ui.field("From", cfg.FromEmail)
		s.ui.field("To", cfg.ToEmail)
		s.ui.field("TLS", cfg.UseTLS)
		return nil
	}),
}

var emailSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save SMTP settings; unset flags keep their saved values",
	Long: `Save SMTP settings.

Example:
  scrapectl email save --server smtp.example.com --port 587 --username bot \
    --password secret --from bot@example.com --to me@example.com`,
	Args: cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		ctx := cmd.Context()
		cfg := api.EmailConfig{SMTPPort: 587, UseTLS: true}
		if err := s.app.Store().ReloadEmailConfig(ctx); err == nil {
			if saved := s.app.Store().EmailConfig(); saved != nil {
				cfg = *saved
			}
		}

		f := cmd.Flags()
		str := func(name string, dst *string) {
			if f.Changed(name) {
				*dst, _ = f.GetString(name)
			}
		}
		str("server", &cfg.SMTPServer)
		str("username", &cfg.Username)
		str("password", &cfg.Password)
		str("from", &cfg.FromEmail)
		str("to", &cfg.ToEmail)
		if f.Changed("port") {
			cfg.SMTPPort, _ = f.GetInt("port")
		}
		if f.Changed("tls") {
			cfg.UseTLS, _ = f.GetBool("tls")
		}
		return s.app.SaveEmailConfig(ctx, cfg)
	}),
}

var emailTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Check the saved SMTP settings against the server",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		return s.app.TestEmailConnection(cmd.Context())
	}),
}

var emailSendCmd = &cobra.Command{
	Use:   "send [path]",
	Short: "Mail an export file to the configured recipient",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, s *session, args []string) error {
		path := args[0]
		jobName, _ := cmd.Flags().GetString("job-name")
		if jobName == "" {
			jobName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		format := formatFromPath(path)
		if cmd.Flags().Changed("format") {
			raw, _ := cmd.Flags().GetString("format")
			var err error
			if format, err = normalizeFormat(raw); err != nil {
				return err
			}
		}

		// The recipient is named in the success message.
		s.app.Store().ReloadEmailConfig(cmd.Context())
		return s.app.SendExportEmail(cmd.Context(), api.SendExportEmailArgs{
			FilePath: path,
			JobName:  jobName,
			Format:   format,
		})
	}),
}

func init() {
	f := emailSaveCmd.Flags()
	f.String("server", "", "SMTP server host")
	f.Int("port", 587, "SMTP server port")
	f.String("username", "", "SMTP username")
	f.String("password", "", "SMTP password")
	f.String("from", "", "sender address")
	f.String("to", "", "recipient address")
	f.Bool("tls", true, "use TLS")

	emailSendCmd.Flags().String("job-name", "", "job name used in the subject (default: file name)")
	emailSendCmd.Flags().String("format", "", "CSV, JSON or HTML (default: from the file extension)")

	emailCmd.AddCommand(emailShowCmd, emailSaveCmd, emailTestCmd, emailSendCmd)
	rootCmd.AddCommand(emailCmd)
}
