// Package gateway is the client side of the command boundary: one
// request/response primitive plus a typed client built on it.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"scrapedesk/pkg/api"
)

// Invoker sends one command and decodes its result into out (which may be nil).
type Invoker interface {
	Invoke(ctx context.Context, command string, args, out any) error
}

// CommandError is a failure reported by the backend. Error returns the
// backend's message unchanged.
type CommandError struct {
	Command    string
	StatusCode int
	Message    string
}

func (e *CommandError) Error() string {
	return e.Message
}

// HTTPInvoker invokes commands as POST {BaseURL}/commands/{name}.
type HTTPInvoker struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewHTTPInvoker creates an invoker for the given base URL and token.
func NewHTTPInvoker(baseURL, token string) *HTTPInvoker {
	return &HTTPInvoker{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Invoke implements Invoker.
func (c *HTTPInvoker) Invoke(ctx context.Context, command string, args, out any) error {
	if args == nil {
		args = struct{}{}
	}
	bodyBytes, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to marshal %s args: %w", command, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/commands/%s", c.BaseURL, command), bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.Token != "" {
		httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	}
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &CommandError{Command: command, StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", command, err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var e api.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
