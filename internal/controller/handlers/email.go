package handlers

import (
	"context"
	"encoding/json"

	"scrapedesk/internal/email"
	"scrapedesk/pkg/api"
)

func (h *Handlers) getEmailConfig(ctx context.Context, _ json.RawMessage) (any, error) {
	cfg, err := h.store.GetEmailConfig(ctx)
	if err != nil {
		return nil, err
	}
	return emailConfigToAPI(cfg), nil
}

func (h *Handlers) saveEmailConfig(ctx context.Context, body json.RawMessage) (any, error) {
	args, err := decode[api.EmailConfigArgs](body)
	if err != nil {
		return nil, err
	}
	if err := h.mailer.Validate(&args.Config); err != nil {
		return nil, invalid(err)
	}
	cfg := emailConfigFromAPI(args.Config)
	return nil, h.store.SaveEmailConfig(ctx, &cfg)
}

func (h *Handlers) testEmailConnection(ctx context.Context, _ json.RawMessage) (any, error) {
	cfg, err := h.emailConfig(ctx)
	if err != nil {
		return nil, err
	}
	return nil, h.mailer.TestConnection(cfg)
}

func (h *Handlers) sendExportEmail(ctx context.Context, body json.RawMessage) (any, error) {
	args, err := decode[api.SendExportEmailArgs](body)
	if err != nil {
		return nil, err
	}
	path, err := h.exporter.Resolve(args.FilePath)
	if err != nil {
		return nil, err
	}
	cfg, err := h.emailConfig(ctx)
	if err != nil {
		return nil, err
	}
	return nil, h.mailer.SendExport(cfg, path, args.JobName, args.Format)
}

func (h *Handlers) emailConfig(ctx context.Context) (*api.EmailConfig, error) {
	stored, err := h.store.GetEmailConfig(ctx)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, invalid(email.ErrNotConfigured)
	}
	return emailConfigToAPI(stored), nil
}
