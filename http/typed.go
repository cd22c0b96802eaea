package http

import (
	"context"
	"errors"
	"reflect"

	"github.com/WikipediaBrown/Kew-Developer/codec"
	"github.com/WikipediaBrown/Kew-Developer/endpoint"
)

// Request fetches ep and decodes the response into a T.
func Request[T any](ctx context.Context, c Client, ep endpoint.Endpoint, opts ...CallOption) (T, error) {
	resp, err := c.Fetch(ctx, ep, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeResponse[T](c, resp, opts)
}

// RequestWithBody sends body to ep and decodes the response into a T.
func RequestWithBody[T, E any](ctx context.Context, c Client, ep endpoint.Endpoint, body E, opts ...CallOption) (T, error) {
	resp, err := c.Send(ctx, ep, body, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeResponse[T](c, resp, opts)
}

// decodeResponse uses the call's decoder when one was given, else the client's.
func decodeResponse[T any](c Client, resp *Response, opts []CallOption) (T, error) {
	d := applyCallOptions(opts).decoder
	if d == nil {
		d = c.Decoder()
	}

	out, err := codec.Decode[T](resp.Body, d)
	if err != nil {
		target := reflect.TypeFor[T]().String()
		var decodeErr *codec.DecodeError
		if errors.As(err, &decodeErr) {
			target = decodeErr.Target
		}
		return out, NewDecodingError(target, err)
	}
	return out, nil
}
