package http

import (
	"context"
	"errors"
	"net"
	nethttp "net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/WikipediaBrown/Kew-Developer/codec"
	"github.com/WikipediaBrown/Kew-Developer/endpoint"
	"github.com/WikipediaBrown/Kew-Developer/idempotency"
	"github.com/WikipediaBrown/Kew-Developer/logger"
	"github.com/WikipediaBrown/Kew-Developer/netstatus"
)

const (
	// DefaultTimeout is the default per-attempt timeout
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default maximum number of retries for retryable statuses
	DefaultMaxRetries = 0

	// DefaultBackoffUnit is the length of one backoff unit
	DefaultBackoffUnit = time.Millisecond
)

// Resolver maps endpoints to absolute targets. *endpoint.Resolver implements it.
type Resolver interface {
	Resolve(ep endpoint.Endpoint) (endpoint.Target, error)
}

// StatusSource reports the last known network status. *netstatus.Monitor
// implements it.
type StatusSource interface {
	Current() netstatus.Status
}

// client implements the Client interface
type client struct {
	httpClient           *nethttp.Client
	resolver             Resolver
	logger               logger.Logger
	config               *Config
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
	decoder              codec.Decoder
	encoder              codec.Encoder
	sleeper              Sleeper
	jitter               JitterSource
	limiter              *rate.Limiter
	status               StatusSource
	tracer               trace.Tracer
	metrics              *instruments
	callCount            int64
}

// Builder provides a fluent interface for configuring the client
type Builder struct {
	config         *Config
	resolver       Resolver
	logger         logger.Logger
	decoder        codec.Decoder
	encoder        codec.Encoder
	sleeper        Sleeper
	jitter         JitterSource
	transport      nethttp.RoundTripper
	status         StatusSource
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// NewBuilder creates a new client builder
func NewBuilder(resolver Resolver, log logger.Logger) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{
		config: &Config{
			Timeout:              DefaultTimeout,
			MaxRetries:           DefaultMaxRetries,
			BackoffUnit:          DefaultBackoffUnit,
			RequestInterceptors:  []RequestInterceptor{},
			ResponseInterceptors: []ResponseInterceptor{},
			DefaultHeaders:       make(map[string]string),
		},
		resolver: resolver,
		logger:   log,
	}
}

// WithTimeout sets the per-attempt timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithMaxRetries sets how many times a retryable status is retried.
// Negative values are treated as zero.
func (b *Builder) WithMaxRetries(maxRetries int) *Builder {
	b.config.MaxRetries = max(maxRetries, 0)
	return b
}

// WithBackoffUnit sets the length of one backoff unit
func (b *Builder) WithBackoffUnit(unit time.Duration) *Builder {
	if unit > 0 {
		b.config.BackoffUnit = unit
	}
	return b
}

// WithSleeper replaces the timer used between attempts
func (b *Builder) WithSleeper(s Sleeper) *Builder {
	b.sleeper = s
	return b
}

// WithJitterSource replaces the random jitter source
func (b *Builder) WithJitterSource(j JitterSource) *Builder {
	b.jitter = j
	return b
}

// WithRateLimit paces attempts with a token bucket. rps <= 0 disables it.
func (b *Builder) WithRateLimit(rps float64, burst int) *Builder {
	b.config.RateLimit = rps
	b.config.RateBurst = burst
	return b
}

// WithAuthToken sets the raw Authorization header value sent with all requests
func (b *Builder) WithAuthToken(token string) *Builder {
	b.config.AuthToken = token
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithDecoder sets the default response decoder
func (b *Builder) WithDecoder(d codec.Decoder) *Builder {
	b.decoder = d
	return b
}

// WithEncoder sets the request body encoder
func (b *Builder) WithEncoder(e codec.Encoder) *Builder {
	b.encoder = e
	return b
}

// WithTransport sets the underlying round tripper
func (b *Builder) WithTransport(rt nethttp.RoundTripper) *Builder {
	b.transport = rt
	return b
}

// WithCompression advertises br and gzip support on every request
func (b *Builder) WithCompression() *Builder {
	b.config.Compression = true
	return b
}

// WithNetworkStatus reports the given status in retry logs and spans
func (b *Builder) WithNetworkStatus(src StatusSource) *Builder {
	b.status = src
	return b
}

// WithMeterProvider sets the provider for the client's instruments
func (b *Builder) WithMeterProvider(mp metric.MeterProvider) *Builder {
	b.meterProvider = mp
	return b
}

// WithTracerProvider sets the provider for the client's spans
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// Build creates the client with the configured options
func (b *Builder) Build() Client {
	c := &client{
		httpClient: &nethttp.Client{
			Timeout:   b.config.Timeout,
			Transport: b.transport,
		},
		resolver:             b.resolver,
		logger:               b.logger,
		config:               b.config,
		requestInterceptors:  b.config.RequestInterceptors,
		responseInterceptors: b.config.ResponseInterceptors,
		decoder:              b.decoder,
		encoder:              b.encoder,
		sleeper:              b.sleeper,
		jitter:               b.jitter,
		status:               b.status,
	}
	if c.decoder == nil {
		c.decoder = codec.DefaultDecoder
	}
	if c.encoder == nil {
		c.encoder = codec.DefaultEncoder
	}
	if c.sleeper == nil {
		c.sleeper = timerSleeper{}
	}
	if c.jitter == nil {
		c.jitter = defaultJitter
	}
	if b.config.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(b.config.RateLimit), max(b.config.RateBurst, 1))
	}

	tp := b.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	c.tracer = tp.Tracer(instrumentationName)

	mp := b.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	inst, err := newInstruments(mp)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Client instruments unavailable, metrics disabled")
		inst = noopInstruments()
	}
	c.metrics = inst
	return c
}

// Decoder returns the client's default decoder
func (c *client) Decoder() codec.Decoder {
	return c.decoder
}

// Fetch performs a request without a body
func (c *client) Fetch(ctx context.Context, ep endpoint.Endpoint, opts ...CallOption) (*Response, error) {
	return c.call(ctx, ep, nil, opts)
}

// Send performs a request with an encoded body
func (c *client) Send(ctx context.Context, ep endpoint.Endpoint, body any, opts ...CallOption) (*Response, error) {
	return c.call(ctx, ep, body, opts)
}

func (c *client) call(ctx context.Context, ep endpoint.Endpoint, body any, opts []CallOption) (*Response, error) {
	env, err := c.envelope(ctx, ep, body, applyCallOptions(opts))
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("endpoint", ep.String()).
			Msg("Failed to build request")
		return nil, err
	}
	return c.execute(ctx, env)
}

// envelope resolves ep and builds the call's envelope. The idempotency key
// comes from the call option, then the context, then a fresh one.
func (c *client) envelope(ctx context.Context, ep endpoint.Endpoint, body any, o *callOptions) (*Envelope, error) {
	if c.resolver == nil {
		return nil, NewValidationError("client has no resolver", "resolver", nil)
	}
	target, err := c.resolver.Resolve(ep)
	if err != nil {
		return nil, NewValidationError("cannot resolve endpoint", "endpoint", err)
	}

	key := o.key
	if key.IsZero() {
		key = idempotency.Ensure(ctx)
	}
	token := c.config.AuthToken
	if o.token != nil {
		token = *o.token
	}

	env, err := BuildEnvelope(target, body, key, token, c.encoder)
	if err != nil {
		return nil, err
	}
	applyHeaders(env.Header, c.config.DefaultHeaders)
	applyHeaders(env.Header, o.headers)
	if c.config.Compression {
		env.Header.Set(headerAcceptEncoding, acceptedEncodings)
	}
	return env, nil
}

// execute runs the attempt/backoff loop for one logical call
func (c *client) execute(ctx context.Context, env *Envelope) (resp *Response, err error) {
	start := time.Now()
	callCount := atomic.AddInt64(&c.callCount, 1)
	state := NewRetryState()

	ctx, span := c.tracer.Start(ctx, "kew.call "+env.Endpoint.String(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(env.Method.String()),
			semconv.URLFull(env.URL.String()),
			endpointAttr(env),
			attribute.String(attrIdempotency, env.Key.String()),
		))
	defer func() {
		c.finish(ctx, span, env, state, start, err)
	}()

	for {
		if err := c.waitRateLimit(ctx); err != nil {
			return nil, err
		}

		state.Attempts++
		c.metrics.attempts.Add(ctx, 1, metric.WithAttributes(endpointAttr(env)))

		result, err := c.attempt(ctx, env, state.Attempts)
		if err != nil {
			return nil, err
		}
		span.SetAttributes(semconv.HTTPResponseStatusCode(result.StatusCode))

		switch Classify(result.StatusCode) {
		case OutcomeSuccess:
			result.Stats = Stats{
				ElapsedTime: time.Since(start),
				Attempts:    state.Attempts,
				CallCount:   callCount,
			}
			c.logResponse(env, result)
			return result, nil
		case OutcomeMalformed:
			return nil, NewMalformedResponseError(result.StatusCode)
		case OutcomeTerminal:
			return nil, NewServerError(result.StatusCode, result.Body)
		}

		if state.Attempts > c.config.MaxRetries {
			return nil, NewMaxRetriesError(state.Attempts, result.StatusCode, result.Body)
		}

		wait := time.Duration(state.Next(c.jitter)) * c.config.BackoffUnit
		c.metrics.retries.Add(ctx, 1, metric.WithAttributes(endpointAttr(env)))
		c.logRetry(env, state, result.StatusCode, wait)

		if err := c.sleeper.Sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// attempt sends one request built from env and reads its response
func (c *client) attempt(ctx context.Context, env *Envelope, n int) (*Response, error) {
	req, err := env.NewRequest(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.runRequestInterceptors(ctx, req); err != nil {
		return nil, NewInterceptorError("request interceptor failed", "request", err)
	}
	c.logRequest(env, req, n)

	logger.IncrementNetworkCounter(ctx)
	sent := time.Now()
	httpResp, err := c.httpClient.Do(req)
	logger.AddNetworkElapsed(ctx, time.Since(sent).Nanoseconds())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if isMalformedStatusLine(err) {
			return nil, newUnparsableResponseError(err)
		}
		return nil, NewTransportError("request execution failed", err, isTimeout(err))
	}
	return c.buildResponse(ctx, req, httpResp)
}

// buildResponse runs response interceptors, reads body, and builds a Response.
func (c *client) buildResponse(ctx context.Context, req *nethttp.Request, httpResp *nethttp.Response) (*Response, error) {
	defer httpResp.Body.Close()

	if err := c.runResponseInterceptors(ctx, req, httpResp); err != nil {
		return nil, NewInterceptorError("response interceptor failed", "response", err)
	}

	body, err := readBody(httpResp)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, NewTransportError("failed to read response body", err, isTimeout(err))
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Headers:    httpResp.Header,
	}, nil
}

func (c *client) waitRateLimit(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return NewTransportError("rate limit wait exceeds deadline", err, true)
	}
	return nil
}

func (c *client) finish(ctx context.Context, span trace.Span, env *Envelope, state *RetryState, start time.Time, err error) {
	defer span.End()

	status := c.networkStatus()
	c.metrics.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(endpointAttr(env)))
	span.SetAttributes(
		attribute.Int(attrAttempts, state.Attempts),
		attribute.String(attrNetworkStatus, status.String()),
	)

	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}

	errType := errorTypeOf(err)
	c.metrics.failures.Add(ctx, 1, metric.WithAttributes(
		endpointAttr(env),
		attribute.String(attrErrorType, errType),
	))
	span.RecordError(err)
	span.SetStatus(codes.Error, errType)

	c.logger.Error().
		Err(err).
		Str("endpoint", env.Endpoint.String()).
		Str("idempotency_key", env.Key.String()).
		Str("error_type", errType).
		Int("attempts", state.Attempts).
		Str("network_status", status.String()).
		Dur("elapsed", time.Since(start)).
		Msg("Request failed")
}

func (c *client) networkStatus() netstatus.Status {
	if c.status == nil {
		return netstatus.Unknown
	}
	return c.status.Current()
}

// reservedHeaders are owned by the envelope and never overridden
var reservedHeaders = map[string]struct{}{
	nethttp.CanonicalHeaderKey(headerContentType):   {},
	nethttp.CanonicalHeaderKey(headerAuthorization): {},
	nethttp.CanonicalHeaderKey(idempotency.Header):  {},
}

func applyHeaders(dst nethttp.Header, headers map[string]string) {
	for key, value := range headers {
		if _, reserved := reservedHeaders[nethttp.CanonicalHeaderKey(key)]; reserved {
			continue
		}
		dst.Set(key, value)
	}
}

// isMalformedStatusLine matches net/http's untyped errors for replies that
// are not HTTP ("malformed HTTP response", "malformed HTTP status code",
// "malformed HTTP version").
func isMalformedStatusLine(err error) bool {
	return strings.Contains(err.Error(), "malformed HTTP")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// runRequestInterceptors executes all request interceptors
func (c *client) runRequestInterceptors(ctx context.Context, req *nethttp.Request) error {
	for _, interceptor := range c.requestInterceptors {
		if err := interceptor(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// runResponseInterceptors executes all response interceptors
func (c *client) runResponseInterceptors(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error {
	for _, interceptor := range c.responseInterceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return err
		}
	}
	return nil
}

func (c *client) logRequest(env *Envelope, req *nethttp.Request, attempt int) {
	logEvent := c.logger.Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("attempt", attempt).
		Interface("headers", req.Header)

	if len(env.Body) > 0 {
		logEvent.Bytes("body", env.Body)
	}

	logEvent.Msg("Request attempt")
}

func (c *client) logRetry(env *Envelope, state *RetryState, status int, wait time.Duration) {
	c.logger.Warn().
		Str("endpoint", env.Endpoint.String()).
		Str("idempotency_key", env.Key.String()).
		Int("attempt", state.Attempts).
		Int("max_retries", c.config.MaxRetries).
		Int("status", status).
		Int64("delay_units", state.Delay).
		Dur("wait", wait).
		Str("network_status", c.networkStatus().String()).
		Msg("Retryable status, backing off")
}

func (c *client) logResponse(env *Envelope, resp *Response) {
	logEvent := c.logger.Debug().
		Str("direction", "inbound").
		Str("endpoint", env.Endpoint.String()).
		Int("status", resp.StatusCode).
		Int("attempts", resp.Stats.Attempts).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int64("call_count", resp.Stats.CallCount)

	if encoding := resp.Headers.Get(headerContentEncoding); encoding != "" {
		logEvent.Str("content_encoding", strings.ToLower(encoding))
	}

	logEvent.Msg("Request succeeded")
}
