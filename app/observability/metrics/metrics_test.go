package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestAppMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewFromMeter(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordLogin(ctx, "success")
	m.RecordLogin(ctx, "success")
	m.RecordLogin(ctx, "failure")
	m.RecordRegister(ctx, "conflict")
	m.RecordQuery(ctx, "brand", time.Now().Add(-10*time.Millisecond))
	m.RecordStoreError(ctx, "find")

	got := collect(t, reader)

	login, ok := got["auth_login_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range login.DataPoints {
		total += dp.Value
	}
	assert.EqualValues(t, 3, total)
	assert.Len(t, login.DataPoints, 2, "one series per outcome")

	hist, ok := got["catalog_query_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.EqualValues(t, 1, hist.DataPoints[0].Count)

	assert.Contains(t, got, "auth_register_total")
	assert.Contains(t, got, "store_errors_total")
}

func TestNewWithoutProvider(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	assert.NotPanics(t, func() { m.RecordLogin(context.Background(), "success") })
}
