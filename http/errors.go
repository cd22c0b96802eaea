package http

import (
	"errors"
	"fmt"
)

// ClientError represents different types of pipeline errors
type ClientError interface {
	error
	Type() ErrorType
}

// ErrorType defines the category of client error
type ErrorType string

const (
	MalformedResponseError ErrorType = "malformed_response"
	ServerError            ErrorType = "server"
	MaxRetriesError        ErrorType = "max_retries"
	TransportError         ErrorType = "transport"
	DecodingError          ErrorType = "decoding"
	EncodingError          ErrorType = "encoding"
	ValidationError        ErrorType = "validation"
	InterceptorError       ErrorType = "interceptor"
)

// StatusError is implemented by errors that carry the last response status.
type StatusError interface {
	ClientError
	StatusCode() int
	Body() []byte
}

// malformedResponseError is a response without an interpretable status line
type malformedResponseError struct {
	statusCode int
	wrapped    error
}

func (e *malformedResponseError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("malformed response: %v", e.wrapped)
	}
	return fmt.Sprintf("malformed response: status %d is not an HTTP status", e.statusCode)
}

func (e *malformedResponseError) Unwrap() error {
	return e.wrapped
}

func (e *malformedResponseError) Type() ErrorType {
	return MalformedResponseError
}

func (e *malformedResponseError) StatusCode() int {
	return e.statusCode
}

// serverError is a non-retryable status answered by the server
type serverError struct {
	statusCode int
	body       []byte
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error: status %d", e.statusCode)
}

func (e *serverError) Type() ErrorType {
	return ServerError
}

func (e *serverError) StatusCode() int {
	return e.statusCode
}

func (e *serverError) Body() []byte {
	return e.body
}

// maxRetriesError is a retryable status that outlived the retry budget
type maxRetriesError struct {
	attempts   int
	statusCode int
	body       []byte
}

func (e *maxRetriesError) Error() string {
	return fmt.Sprintf("maximum retries exceeded after %d attempts (last status: %d)", e.attempts, e.statusCode)
}

func (e *maxRetriesError) Type() ErrorType {
	return MaxRetriesError
}

func (e *maxRetriesError) StatusCode() int {
	return e.statusCode
}

func (e *maxRetriesError) Body() []byte {
	return e.body
}

// Attempts is the number of network calls made before giving up.
func (e *maxRetriesError) Attempts() int {
	return e.attempts
}

// transportError means no response was obtained
type transportError struct {
	message string
	wrapped error
	timeout bool
}

func (e *transportError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("transport error: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("transport error: %s", e.message)
}

func (e *transportError) Type() ErrorType {
	return TransportError
}

func (e *transportError) Unwrap() error {
	return e.wrapped
}

// Timeout reports whether the attempt ran out of time.
func (e *transportError) Timeout() bool {
	return e.timeout
}

// decodingError wraps a codec failure with the target type
type decodingError struct {
	target  string
	wrapped error
}

func (e *decodingError) Error() string {
	return fmt.Sprintf("decoding error: cannot decode into %s: %v", e.target, e.wrapped)
}

func (e *decodingError) Type() ErrorType {
	return DecodingError
}

func (e *decodingError) Unwrap() error {
	return e.wrapped
}

// Target is the name of the type that failed to decode.
func (e *decodingError) Target() string {
	return e.target
}

// encodingError means the request body could not be serialized
type encodingError struct {
	wrapped error
}

func (e *encodingError) Error() string {
	return fmt.Sprintf("encoding error: %v", e.wrapped)
}

func (e *encodingError) Type() ErrorType {
	return EncodingError
}

func (e *encodingError) Unwrap() error {
	return e.wrapped
}

// validationError represents request validation errors
type validationError struct {
	message string
	field   string
	wrapped error
}

func (e *validationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("validation error: %s (field: %s)", e.message, e.field)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

func (e *validationError) Type() ErrorType {
	return ValidationError
}

func (e *validationError) Unwrap() error {
	return e.wrapped
}

// interceptorError represents interceptor-related errors
type interceptorError struct {
	message string
	wrapped error
	stage   string
}

func (e *interceptorError) Error() string {
	return fmt.Sprintf("interceptor error: %s (stage: %s): %v", e.message, e.stage, e.wrapped)
}

func (e *interceptorError) Type() ErrorType {
	return InterceptorError
}

func (e *interceptorError) Unwrap() error {
	return e.wrapped
}

// NewMalformedResponseError creates a new malformed response error
func NewMalformedResponseError(statusCode int) ClientError {
	return &malformedResponseError{statusCode: statusCode}
}

// newUnparsableResponseError reports a reply whose status line could not be
// parsed at all.
func newUnparsableResponseError(err error) ClientError {
	return &malformedResponseError{wrapped: err}
}

// NewServerError creates a new server error
func NewServerError(statusCode int, body []byte) ClientError {
	return &serverError{statusCode: statusCode, body: body}
}

// NewMaxRetriesError creates a new max retries error
func NewMaxRetriesError(attempts, lastStatus int, body []byte) ClientError {
	return &maxRetriesError{attempts: attempts, statusCode: lastStatus, body: body}
}

// NewTransportError creates a new transport error
func NewTransportError(message string, wrapped error, timeout bool) ClientError {
	return &transportError{message: message, wrapped: wrapped, timeout: timeout}
}

// NewDecodingError creates a new decoding error
func NewDecodingError(target string, wrapped error) ClientError {
	return &decodingError{target: target, wrapped: wrapped}
}

// NewEncodingError creates a new encoding error
func NewEncodingError(wrapped error) ClientError {
	return &encodingError{wrapped: wrapped}
}

// NewValidationError creates a new validation error
func NewValidationError(message, field string, wrapped error) ClientError {
	return &validationError{message: message, field: field, wrapped: wrapped}
}

// NewInterceptorError creates a new interceptor error
func NewInterceptorError(message, stage string, wrapped error) ClientError {
	return &interceptorError{message: message, wrapped: wrapped, stage: stage}
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsServerStatus checks if an error is a server error with a specific status code
func IsServerStatus(err error, statusCode int) bool {
	var srvErr *serverError
	if errors.As(err, &srvErr) {
		return srvErr.StatusCode() == statusCode
	}
	return false
}

// IsTimeout reports whether err is a transport error caused by a per-attempt timeout.
func IsTimeout(err error) bool {
	var tErr *transportError
	return errors.As(err, &tErr) && tErr.Timeout()
}

// AttemptsOf returns how many network calls a max_retries error made.
func AttemptsOf(err error) (int, bool) {
	var mrErr *maxRetriesError
	if errors.As(err, &mrErr) {
		return mrErr.Attempts(), true
	}
	return 0, false
}
