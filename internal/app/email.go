package app

import (
	"context"

	"scrapedesk/pkg/api"
)

// SaveEmailConfig validates and stores the SMTP settings.
func (a *App) SaveEmailConfig(ctx context.Context, cfg api.EmailConfig) error {
	if err := a.validate.Struct(cfg); err != nil {
		err = describeValidation(err)
		a.fail(api.CmdSaveEmailConfig, "Failed to save email config: ", err)
		return err
	}

	done, err := a.begin(true)
	if err != nil {
		return err
	}
	defer done()

	if err := a.gw.SaveEmailConfig(ctx, cfg); err != nil {
		a.fail(api.CmdSaveEmailConfig, "Failed to save email config: ", err)
		return err
	}

	a.store.SetEmailConfig(&cfg)
	a.emit(Event{Kind: EmailConfigChanged})
	a.notifier.Success("Email configuration saved successfully")
	return nil
}

// TestEmailConnection checks the stored SMTP settings against the server.
func (a *App) TestEmailConnection(ctx context.Context) error {
	done, err := a.begin(true)
	if err != nil {
		return err
	}
	defer done()

	if err := a.gw.TestEmailConnection(ctx); err != nil {
		a.fail(api.CmdTestEmailConnection, "Email connection test failed: ", err)
		return err
	}
	a.notifier.Success("Email connection test successful")
	return nil
}

// SendExportEmail mails an export file to the configured recipient.
func (a *App) SendExportEmail(ctx context.Context, args api.SendExportEmailArgs) error {
	done, err := a.begin(true)
	if err != nil {
		return err
	}
	defer done()

	if err := a.gw.SendExportEmail(ctx, args); err != nil {
		a.fail(api.CmdSendExportEmail, "Failed to send email: ", err)
		return err
	}
	a.notifier.Success("Export emailed to " + a.recipient())
	return nil
}

// SetTheme switches the color scheme.
func (a *App) SetTheme(t Theme) {
	a.look.Set(t)
}

func (a *App) recipient() string {
	if cfg := a.store.EmailConfig(); cfg != nil && cfg.ToEmail != "" {
		return cfg.ToEmail
	}
	return "the configured recipient"
}
