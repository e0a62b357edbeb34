package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	LoginTotal           metric.Int64Counter
	RegisterTotal        metric.Int64Counter
	QueryDurationSeconds metric.Float64Histogram
	StoreErrorsTotal     metric.Int64Counter
}

// New creates the instruments from the global MeterProvider. Without an
// installed provider the instruments are no-ops.
func New() (*AppMetrics, error) {
	return NewFromMeter(otel.GetMeterProvider().Meter("catalog-api"))
}

func NewFromMeter(meter metric.Meter) (*AppMetrics, error) {
	var err error
	m := &AppMetrics{}

	m.LoginTotal, err = meter.Int64Counter(
		"auth_login_total",
		metric.WithDescription("Login attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: auth_login_total: %w", err)
	}

	m.RegisterTotal, err = meter.Int64Counter(
		"auth_register_total",
		metric.WithDescription("Registration attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: auth_register_total: %w", err)
	}

	m.QueryDurationSeconds, err = meter.Float64Histogram(
		"catalog_query_duration_seconds",
		metric.WithDescription("Duration of catalog queries in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: catalog_query_duration_seconds: %w", err)
	}

	m.StoreErrorsTotal, err = meter.Int64Counter(
		"store_errors_total",
		metric.WithDescription("Document store failures by operation"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: store_errors_total: %w", err)
	}

	return m, nil
}

func (m *AppMetrics) RecordLogin(ctx context.Context, outcome string) {
	m.LoginTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *AppMetrics) RecordRegister(ctx context.Context, outcome string) {
	m.RegisterTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *AppMetrics) RecordQuery(ctx context.Context, collection string, start time.Time) {
	m.QueryDurationSeconds.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("collection", collection)))
}

func (m *AppMetrics) RecordStoreError(ctx context.Context, op string) {
	m.StoreErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
