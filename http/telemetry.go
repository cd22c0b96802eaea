package http

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/WikipediaBrown/Kew-Developer/observability"
)

const (
	instrumentationName = "github.com/WikipediaBrown/Kew-Developer/http"

	metricAttempts = "kew.client.attempts"
	metricRetries  = "kew.client.retries"
	metricFailures = "kew.client.failures"
	metricDuration = "kew.client.duration"

	attrEndpoint      = "kew.endpoint"
	attrErrorType     = "error.type"
	attrAttempts      = "kew.attempts"
	attrNetworkStatus = "kew.network.status"
	attrIdempotency   = "kew.idempotency_key"
)

type instruments struct {
	attempts metric.Int64Counter
	retries  metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

func newInstruments(mp metric.MeterProvider) (*instruments, error) {
	meter := mp.Meter(instrumentationName)

	attempts, err := observability.CreateCounter(meter, metricAttempts, "Network attempts made by logical calls")
	if err != nil {
		return nil, err
	}
	retries, err := observability.CreateCounter(meter, metricRetries, "Backoff waits caused by retryable statuses")
	if err != nil {
		return nil, err
	}
	failures, err := observability.CreateCounter(meter, metricFailures, "Logical calls that ended in an error")
	if err != nil {
		return nil, err
	}
	duration, err := observability.CreateHistogram(meter, metricDuration, "Logical call duration including backoff",
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &instruments{attempts: attempts, retries: retries, failures: failures, duration: duration}, nil
}

func noopInstruments() *instruments {
	inst, _ := newInstruments(noop.NewMeterProvider())
	return inst
}

// errorTypeOf names err for metric and span attributes.
func errorTypeOf(err error) string {
	var clientErr ClientError
	switch {
	case errors.As(err, &clientErr):
		return string(clientErr.Type())
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	default:
		return "unknown"
	}
}

func endpointAttr(env *Envelope) attribute.KeyValue {
	return attribute.String(attrEndpoint, env.Endpoint.String())
}
