// Package observability provides OpenTelemetry instrumentation for tracing and metrics.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// MeterName is the instrumentation scope for scraperd metrics.
const MeterName = "scrapedesk/scraperd"

// InitMetrics initializes the OpenTelemetry metrics provider with a Prometheus exporter.
// It returns the HTTP handler for the /metrics endpoint and a shutdown function.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// Instruments are the counters scraperd records into.
type Instruments struct {
	commands        otelmetric.Int64Counter
	commandDuration otelmetric.Float64Histogram
	scrapeItems     otelmetric.Int64Counter
}

// NewInstruments registers the scraperd instruments on the global meter provider.
// Call it after InitMetrics.
func NewInstruments() (*Instruments, error) {
	meter := otel.Meter(MeterName)

	commands, err := meter.Int64Counter("scrapedesk.commands",
		otelmetric.WithDescription("Gateway commands handled, by command and outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create commands counter: %w", err)
	}

	duration, err := meter.Float64Histogram("scrapedesk.command.duration",
		otelmetric.WithDescription("Gateway command latency"),
		otelmetric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	items, err := meter.Int64Counter("scrapedesk.scrape.items",
		otelmetric.WithDescription("Items extracted by scrapes"))
	if err != nil {
		return nil, fmt.Errorf("failed to create items counter: %w", err)
	}

	return &Instruments{commands: commands, commandDuration: duration, scrapeItems: items}, nil
}

// RecordCommand counts one handled command. A nil receiver is a no-op.
func (i *Instruments) RecordCommand(ctx context.Context, command string, ok bool, elapsed time.Duration) {
	if i == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("command", command),
		attribute.String("outcome", outcome),
	)
	i.commands.Add(ctx, 1, attrs)
	i.commandDuration.Record(ctx, elapsed.Seconds(), otelmetric.WithAttributes(attribute.String("command", command)))
}

// RecordScrape counts extracted items for a job run. A nil receiver is a no-op.
func (i *Instruments) RecordScrape(ctx context.Context, jobID int64, items int, ok bool) {
	if i == nil {
		return
	}
	i.scrapeItems.Add(ctx, int64(items), otelmetric.WithAttributes(
		attribute.Int64("job_id", jobID),
		attribute.Bool("success", ok),
	))
}
