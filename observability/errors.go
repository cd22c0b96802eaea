package observability

import "errors"

var (
	ErrNilConfig          = errors.New("observability: config is nil")
	ErrMissingServiceName = errors.New("observability: service name is required when observability is enabled")
	ErrInvalidSampleRate  = errors.New("observability: trace sample rate must be between 0.0 and 1.0")
	ErrInvalidProtocol    = errors.New("observability: protocol must be either 'http' or 'grpc'")
	// ErrInvalidEndpointFormat means a grpc endpoint carried a scheme or an
	// http endpoint lacked one.
	ErrInvalidEndpointFormat = errors.New("observability: invalid endpoint format for protocol")
)
