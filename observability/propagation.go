package observability

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// InjectTraceContext writes the W3C traceparent (and baggage) of ctx into
// req using the global propagator. Its signature matches a request
// interceptor so it can be registered on the client directly.
func InjectTraceContext(ctx context.Context, req *http.Request) error {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return nil
}
