package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"scrapedesk/internal/scheduler"
	"scrapedesk/internal/scraper"
	"scrapedesk/pkg/api"
)

// validateURL answers false for a non-2xx response and fails only when the
// URL cannot be fetched at all.
func (h *Handlers) validateURL(ctx context.Context, body json.RawMessage) (any, error) {
	args, err := decode[api.ValueArgs](body)
	if err != nil {
		return nil, err
	}
	ok, err := h.scraper.ValidateURL(ctx, args.Value)
	if err != nil {
		return nil, fmt.Errorf("URL validation failed: %w", err)
	}
	return ok, nil
}

func (h *Handlers) validateCSSSelector(ctx context.Context, body json.RawMessage) (any, error) {
	return check(body, "CSS selector validation failed", scraper.ValidateCSSSelector)
}

func (h *Handlers) validateRegexPattern(ctx context.Context, body json.RawMessage) (any, error) {
	return check(body, "Regex pattern validation failed", scraper.ValidateRegexPattern)
}

func (h *Handlers) validateCronExpression(ctx context.Context, body json.RawMessage) (any, error) {
	return check(body, "Cron expression validation failed", scheduler.ValidateCron)
}

func check(body json.RawMessage, prefix string, fn func(string) error) (any, error) {
	args, err := decode[api.ValueArgs](body)
	if err != nil {
		return nil, err
	}
	if err := fn(args.Value); err != nil {
		return nil, invalid(fmt.Errorf("%s: %w", prefix, err))
	}
	return true, nil
}
