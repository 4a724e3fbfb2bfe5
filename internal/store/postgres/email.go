package postgres

import (
	"context"
	"database/sql"
	"errors"

	"scrapedesk/internal/store"
)

// SaveEmailConfig upserts the single configuration row.
func (s *Store) SaveEmailConfig(ctx context.Context, cfg *store.EmailConfig) error {
	query := `
		INSERT INTO email_config (id, smtp_server, smtp_port, username, password,
			sender_email, receiver_email, use_tls)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			smtp_server = EXCLUDED.smtp_server,
			smtp_port = EXCLUDED.smtp_port,
			username = EXCLUDED.username,
			password = EXCLUDED.password,
			sender_email = EXCLUDED.sender_email,
			receiver_email = EXCLUDED.receiver_email,
			use_tls = EXCLUDED.use_tls
	`

	_, err := s.db.ExecContext(ctx, query,
		cfg.SMTPServer,
		cfg.SMTPPort,
		cfg.Username,
		cfg.Password,
		cfg.FromEmail,
		cfg.ToEmail,
		cfg.UseTLS,
	)
	return err
}

func (s *Store) GetEmailConfig(ctx context.Context) (*store.EmailConfig, error) {
	query := `
		SELECT smtp_server, smtp_port, username, password, sender_email, receiver_email, use_tls
		FROM email_config WHERE id = 1
	`

	var cfg store.EmailConfig
	err := s.db.QueryRowContext(ctx, query).Scan(
		&cfg.SMTPServer, &cfg.SMTPPort, &cfg.Username, &cfg.Password,
		&cfg.FromEmail, &cfg.ToEmail, &cfg.UseTLS,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
