package http

import (
	"bytes"
	"context"
	"io"
	nethttp "net/http"
	"net/url"

	"github.com/WikipediaBrown/Kew-Developer/codec"
	"github.com/WikipediaBrown/Kew-Developer/endpoint"
	"github.com/WikipediaBrown/Kew-Developer/idempotency"
)

const (
	headerContentType   = "Content-Type"
	contentTypeJSON     = "application/json"
	headerAuthorization = "Authorization"
)

// Envelope is everything needed to send one logical call. It is built once
// and every attempt creates its request from it, so the key and the body
// bytes never change between attempts.
type Envelope struct {
	Endpoint endpoint.Endpoint
	Method   endpoint.Method
	URL      *url.URL
	Header   nethttp.Header
	Body     []byte
	Key      idempotency.Key
}

// BuildEnvelope assembles the envelope for target. body is serialized only
// when the method carries a payload. The Authorization header is set to the
// raw token when token is non-empty. A nil encoder selects codec.DefaultEncoder.
func BuildEnvelope(target endpoint.Target, body any, key idempotency.Key, token string, enc codec.Encoder) (*Envelope, error) {
	if target.URL == nil {
		return nil, NewValidationError("target URL cannot be empty", "url", nil)
	}
	if target.Method == "" {
		return nil, NewValidationError("target method cannot be empty", "method", nil)
	}
	if key.IsZero() {
		return nil, NewValidationError("idempotency key cannot be empty", "idempotency_key", nil)
	}
	if enc == nil {
		enc = codec.DefaultEncoder
	}

	env := &Envelope{
		Endpoint: target.Endpoint,
		Method:   target.Method,
		URL:      target.URL,
		Header:   make(nethttp.Header),
		Key:      key,
	}

	if body != nil && target.Method.CarriesBody() {
		data, err := enc.Encode(body)
		if err != nil {
			return nil, NewEncodingError(err)
		}
		env.Body = data
	}

	env.Header.Set(headerContentType, contentTypeJSON)
	env.Header.Set(idempotency.Header, key.String())
	if token != "" {
		env.Header.Set(headerAuthorization, token)
	}
	return env, nil
}

// NewRequest creates a fresh request for one attempt.
func (e *Envelope) NewRequest(ctx context.Context) (*nethttp.Request, error) {
	var body io.Reader
	if e.Body != nil {
		body = bytes.NewReader(e.Body)
	}

	req, err := nethttp.NewRequestWithContext(ctx, e.Method.String(), e.URL.String(), body)
	if err != nil {
		return nil, NewValidationError("failed to create HTTP request", "url", err)
	}
	req.Header = e.Header.Clone()
	return req, nil
}
