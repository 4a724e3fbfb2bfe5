// Package email sends export files over SMTP.
package email

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scrapedesk/pkg/api"

	"github.com/go-playground/validator/v10"
	"gopkg.in/gomail.v2"
	"k8s.io/utils/clock"
)

// ErrNotConfigured is returned when no SMTP configuration is stored.
var ErrNotConfigured = errors.New("Email configuration not set")

// Dialer is the part of gomail.Dialer the mailer needs.
type Dialer interface {
	Dial() (gomail.SendCloser, error)
	DialAndSend(m ...*gomail.Message) error
}

// DialerFunc builds a Dialer for a configuration.
type DialerFunc func(cfg api.EmailConfig) Dialer

// Mailer validates SMTP settings and sends mail with them.
type Mailer struct {
	dial     DialerFunc
	validate *validator.Validate
	clock    clock.PassiveClock
	logger   *slog.Logger
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithDialer replaces the SMTP dialer.
func WithDialer(d DialerFunc) Option {
	return func(m *Mailer) { m.dial = d }
}

// WithClock sets the clock used for the "Generated" line.
func WithClock(c clock.PassiveClock) Option {
	return func(m *Mailer) { m.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mailer) { m.logger = l }
}

// New returns a Mailer dialing real SMTP servers.
func New(opts ...Option) *Mailer {
	m := &Mailer{
		dial:     SMTPDialer,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		clock:    clock.RealClock{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SMTPDialer returns a gomail dialer for cfg. Without UseTLS the connection
// stays plain text.
func SMTPDialer(cfg api.EmailConfig) Dialer {
	d := gomail.NewDialer(cfg.SMTPServer, cfg.SMTPPort, cfg.Username, cfg.Password)
	if cfg.UseTLS {
		d.TLSConfig = &tls.Config{ServerName: cfg.SMTPServer, MinVersion: tls.VersionTLS12}
		d.SSL = cfg.SMTPPort == 465
	} else {
		d.TLSConfig = nil
	}
	return d
}

// Validate checks that cfg is complete and well formed.
func (m *Mailer) Validate(cfg *api.EmailConfig) error {
	if cfg == nil {
		return ErrNotConfigured
	}
	if err := m.validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		return fmt.Errorf("invalid email configuration: %s", strings.Join(fields, ", "))
	}
	return nil
}

// TestConnection dials and authenticates against the SMTP server.
func (m *Mailer) TestConnection(cfg *api.EmailConfig) error {
	if err := m.Validate(cfg); err != nil {
		return err
	}
	m.logger.Info("testing email connection", "server", cfg.SMTPServer, "port", cfg.SMTPPort)

	s, err := m.dial(*cfg).Dial()
	if err != nil {
		return fmt.Errorf("SMTP connection error: %w", err)
	}
	return s.Close()
}

// SendExport mails the file at path to the configured recipient.
func (m *Mailer) SendExport(cfg *api.EmailConfig, path, jobName, format string) error {
	if err := m.Validate(cfg); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to read export file: %w", err)
	}

	msg := m.exportMessage(*cfg, path, jobName, format)
	if err := m.dial(*cfg).DialAndSend(msg); err != nil {
		m.logger.Error("failed to send email", "error", err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	m.logger.Info("email sent", "to", cfg.ToEmail, "file", filepath.Base(path))
	return nil
}

func (m *Mailer) exportMessage(cfg api.EmailConfig, path, jobName, format string) *gomail.Message {
	fileName := filepath.Base(path)
	upper := strings.ToUpper(format)

	msg := gomail.NewMessage()
	msg.SetHeader("From", cfg.FromEmail)
	msg.SetHeader("To", cfg.ToEmail)
	msg.SetHeader("Subject", fmt.Sprintf("Web Scraping Export: %s (%s)", jobName, upper))
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hello,\n\nPlease find attached the export file for the web scraping job '%s'.\n\n"+
			"Export Details:\n- Job Name: %s\n- Format: %s\n- File: %s\n- Generated: %s\n\n"+
			"Best regards,\nAutomated Web Scraper",
		jobName, jobName, upper, fileName, m.clock.Now().UTC().Format(time.DateTime+" UTC"),
	))
	msg.Attach(path, gomail.SetHeader(map[string][]string{
		"Content-Type": {contentType(format) + `; name="` + fileName + `"`},
	}))
	return msg
}

func contentType(format string) string {
	switch strings.ToLower(format) {
	case "csv":
		return "text/csv"
	case "json":
		return "application/json"
	case "html":
		return "text/html"
	}
	return "application/octet-stream"
}
