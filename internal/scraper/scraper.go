// Package scraper fetches a job's page and extracts items with a CSS
// selector or a regular expression.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"scrapedesk/internal/codec"
	"scrapedesk/pkg/api"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/gocolly/colly/v2"
)

const (
	// DefaultTimeout bounds a single fetch.
	DefaultTimeout = 5 * time.Minute
	// DefaultUserAgent is sent when a job does not set its own.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	// TestLimit caps the items a test scrape returns.
	TestLimit = 5
)

// Target is what a scrape needs to know about a job.
type Target struct {
	Name         string
	URL          string
	SelectorType string
	Selector     string
	DataType     codec.DataType
	UserAgent    string
	ProxyURL     string
}

// Scraper runs scrapes. It is safe for concurrent use; each scrape gets its
// own collector.
type Scraper struct {
	timeout   time.Duration
	userAgent string
	transport http.RoundTripper
	logger    *slog.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(s *Scraper) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithTransport replaces the HTTP transport. Per-job proxies are ignored
// when a transport is set.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *Scraper) { s.transport = rt }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scraper) { s.logger = l }
}

// New returns a Scraper.
func New(opts ...Option) *Scraper {
	s := &Scraper{
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape fetches t.URL and returns every non-empty extracted item.
func (s *Scraper) Scrape(ctx context.Context, t Target) ([]string, error) {
	s.logger.Info("starting scrape", "job", t.Name, "url", t.URL)

	body, err := s.fetch(ctx, http.MethodGet, t.URL, t.UserAgent, t.ProxyURL)
	if err != nil {
		return nil, err
	}

	var items []string
	switch t.SelectorType {
	case api.SelectorCSS:
		items, err = ExtractCSS(body, t.Selector, t.DataType)
	case api.SelectorRegex:
		items, err = ExtractRegex(body, t.Selector)
	default:
		return nil, fmt.Errorf("unknown selector type %q", t.SelectorType)
	}
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		s.logger.Warn("no data found", "job", t.Name, "selector", t.Selector)
	} else {
		s.logger.Info("scrape finished", "job", t.Name, "items", len(items))
	}
	return items, nil
}

// TestScrape runs Scrape and keeps at most TestLimit items.
func (s *Scraper) TestScrape(ctx context.Context, t Target) ([]string, error) {
	items, err := s.Scrape(ctx, t)
	if err != nil {
		return nil, err
	}
	if len(items) > TestLimit {
		items = items[:TestLimit]
	}
	return items, nil
}

// ValidateURL sends a HEAD request and reports whether it succeeded with a
// 2xx status. Transport failures are errors.
func (s *Scraper) ValidateURL(ctx context.Context, rawURL string) (bool, error) {
	_, err := s.fetch(ctx, http.MethodHead, rawURL, "", "")
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to validate URL: %w", err)
	}
	return true, nil
}

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func (s *Scraper) fetch(ctx context.Context, method, rawURL, userAgent, proxyURL string) ([]byte, error) {
	if userAgent == "" {
		userAgent = s.userAgent
	}

	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(s.timeout)
	c.ParseHTTPErrorResponse = true

	if proxyURL != "" {
		if err := c.SetProxy(proxyURL); err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
	}
	if s.transport != nil {
		c.WithTransport(s.transport)
	}

	var (
		body   []byte
		status int
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})

	done := make(chan error, 1)
	go func() {
		if method == http.MethodHead {
			done <- c.Head(rawURL)
		} else {
			done <- c.Visit(rawURL)
		}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("failed to fetch URL: %w", err)
		}
	}

	if status < 200 || status >= 300 {
		return nil, &StatusError{StatusCode: status}
	}
	return body, nil
}

// ExtractCSS selects elements of an HTML document. Text items are the
// element's text nodes joined by spaces and trimmed; attribute items are
// the attribute's value. Empty items are dropped.
func ExtractCSS(html []byte, selector string, dt codec.DataType) ([]string, error) {
	sel, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid CSS selector '%s': %w", selector, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	attr, isAttr := dt.AttributeName()

	items := []string{}
	doc.FindMatcher(sel).Each(func(_ int, el *goquery.Selection) {
		var data string
		if isAttr {
			data = el.AttrOr(attr, "")
		} else {
			var parts []string
			collectText(el, &parts)
			data = strings.TrimSpace(strings.Join(parts, " "))
		}
		if data != "" {
			items = append(items, data)
		}
	})
	return items, nil
}

func collectText(s *goquery.Selection, parts *[]string) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			*parts = append(*parts, c.Text())
			return
		}
		collectText(c, parts)
	})
}

// ExtractRegex returns the first capture group of every match, or the whole
// match when the pattern has no groups. Empty items are dropped.
func ExtractRegex(text []byte, pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern '%s': %w", pattern, err)
	}

	group := 0
	if re.NumSubexp() > 0 {
		group = 1
	}

	items := []string{}
	for _, m := range re.FindAllStringSubmatch(string(text), -1) {
		if m[group] != "" {
			items = append(items, m[group])
		}
	}
	return items, nil
}

// ValidateCSSSelector reports whether selector parses.
func ValidateCSSSelector(selector string) error {
	if _, err := cascadia.ParseGroup(selector); err != nil {
		return fmt.Errorf("invalid CSS selector: %w", err)
	}
	return nil
}

// ValidateRegexPattern reports whether pattern compiles.
func ValidateRegexPattern(pattern string) error {
	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("invalid regex pattern: %w", err)
	}
	return nil
}
