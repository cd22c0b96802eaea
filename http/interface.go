package http

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/WikipediaBrown/Kew-Developer/codec"
	"github.com/WikipediaBrown/Kew-Developer/endpoint"
	"github.com/WikipediaBrown/Kew-Developer/idempotency"
)

// Client issues requests against resolved endpoints
type Client interface {
	// Fetch sends a request without a body.
	Fetch(ctx context.Context, ep endpoint.Endpoint, opts ...CallOption) (*Response, error)
	// Send encodes body and sends it. The body is ignored for methods that do
	// not carry one.
	Send(ctx context.Context, ep endpoint.Endpoint, body any, opts ...CallOption) (*Response, error)
	// Decoder returns the client's default response decoder.
	Decoder() codec.Decoder
}

// Response represents an HTTP response with tracking information
type Response struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	Stats      Stats
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	Attempts    int
	CallCount   int64
}

// RequestInterceptor is called before sending each attempt
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after receiving each attempt's response
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// CallOption customizes a single logical call.
type CallOption func(*callOptions)

type callOptions struct {
	key     idempotency.Key
	token   *string
	decoder codec.Decoder
	headers map[string]string
}

// WithIdempotencyKey reuses key instead of generating a fresh one.
func WithIdempotencyKey(key idempotency.Key) CallOption {
	return func(o *callOptions) {
		o.key = key
	}
}

// WithAuthToken overrides the client's Authorization token for this call.
// An empty token removes the header.
func WithAuthToken(token string) CallOption {
	return func(o *callOptions) {
		o.token = &token
	}
}

// WithDecoder selects the decoder used by Request and RequestWithBody.
func WithDecoder(d codec.Decoder) CallOption {
	return func(o *callOptions) {
		o.decoder = d
	}
}

// WithHeader adds a header to every attempt of this call. Content-Type,
// Idempotency-Key and Authorization cannot be overridden this way.
func WithHeader(key, value string) CallOption {
	return func(o *callOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

func applyCallOptions(opts []CallOption) *callOptions {
	o := &callOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Config holds the client configuration
type Config struct {
	Timeout              time.Duration
	MaxRetries           int
	BackoffUnit          time.Duration
	AuthToken            string
	RateLimit            float64
	RateBurst            int
	Compression          bool
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	DefaultHeaders       map[string]string
}
