// Package testing provides in-memory OpenTelemetry providers and assertions
// for the pipeline's spans and instruments.
//
//	tp := NewTestTraceProvider()
//	mp := NewTestMeterProvider()
//	client := http.NewBuilder(resolver, log).
//		WithTracerProvider(tp).
//		WithMeterProvider(mp).
//		Build()
//	...
//	AssertCounterTotal(t, mp.Collect(t), "kew.client.attempts", 3)
package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const metricNotFoundErrMsg = "metric %s not found"

// TestTraceProvider records every ended span synchronously.
type TestTraceProvider struct {
	*sdktrace.TracerProvider
	Exporter *tracetest.InMemoryExporter
}

func NewTestTraceProvider() *TestTraceProvider {
	exporter := tracetest.NewInMemoryExporter()
	return &TestTraceProvider{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)),
		Exporter:       exporter,
	}
}

// TestMeterProvider collects instruments on demand through a manual reader.
type TestMeterProvider struct {
	*sdkmetric.MeterProvider
	Reader *sdkmetric.ManualReader
}

func NewTestMeterProvider() *TestMeterProvider {
	reader := sdkmetric.NewManualReader()
	return &TestMeterProvider{
		MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		Reader:        reader,
	}
}

// Collect reads the current state of all instruments.
func (tmp *TestMeterProvider) Collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, tmp.Reader.Collect(context.Background(), &rm), "failed to collect metrics")
	return rm
}

// FindMetric returns nil when no metric is called metricName.
func FindMetric(rm metricdata.ResourceMetrics, metricName string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == metricName {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// AssertCounterTotal sums an int64 counter over all attribute sets.
func AssertCounterTotal(t *testing.T, rm metricdata.ResourceMetrics, metricName string, expected int64) {
	t.Helper()
	m := FindMetric(rm, metricName)
	require.NotNil(t, m, metricNotFoundErrMsg, metricName)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is %T, not Sum[int64]", metricName, m.Data)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, expected, total, "metric %s total mismatch", metricName)
}

// AssertHistogramCount sums the sample count of a float64 histogram.
func AssertHistogramCount(t *testing.T, rm metricdata.ResourceMetrics, metricName string, expected uint64) {
	t.Helper()
	m := FindMetric(rm, metricName)
	require.NotNil(t, m, metricNotFoundErrMsg, metricName)

	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "metric %s is %T, not Histogram[float64]", metricName, m.Data)

	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, expected, count, "metric %s count mismatch", metricName)
}

// AssertSpanAttribute checks a single attribute of a recorded span.
func AssertSpanAttribute(t *testing.T, span *tracetest.SpanStub, key string, expected any) {
	t.Helper()
	for _, kv := range span.Attributes {
		if string(kv.Key) != key {
			continue
		}
		switch v := expected.(type) {
		case string:
			assert.Equal(t, v, kv.Value.AsString(), "attribute %s value mismatch", key)
		case int:
			assert.Equal(t, int64(v), kv.Value.AsInt64(), "attribute %s value mismatch", key)
		case int64:
			assert.Equal(t, v, kv.Value.AsInt64(), "attribute %s value mismatch", key)
		case bool:
			assert.Equal(t, v, kv.Value.AsBool(), "attribute %s value mismatch", key)
		default:
			assert.Equal(t, v, kv.Value.AsInterface(), "attribute %s value mismatch", key)
		}
		return
	}
	assert.Fail(t, "attribute not found", "span %s has no attribute %s", span.Name, key)
}
