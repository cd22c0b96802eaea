package http

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTypes(t *testing.T) {
	cause := errors.New("cause")

	tests := []struct {
		name     string
		err      ClientError
		expected ErrorType
		message  string
	}{
		{"malformed", NewMalformedResponseError(0), MalformedResponseError, "malformed response: status 0"},
		{"server", NewServerError(404, []byte("nope")), ServerError, "server error: status 404"},
		{"max retries", NewMaxRetriesError(3, 503, nil), MaxRetriesError, "maximum retries exceeded after 3 attempts (last status: 503)"},
		{"transport", NewTransportError("dial failed", cause, false), TransportError, "transport error: dial failed: cause"},
		{"decoding", NewDecodingError("chat.LlamaResponse", cause), DecodingError, "decoding error: cannot decode into chat.LlamaResponse: cause"},
		{"encoding", NewEncodingError(cause), EncodingError, "encoding error: cause"},
		{"validation", NewValidationError("bad", "url", nil), ValidationError, "validation error: bad (field: url)"},
		{"interceptor", NewInterceptorError("failed", "request", cause), InterceptorError, "interceptor error: failed (stage: request): cause"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Type())
			assert.Contains(t, tt.err.Error(), tt.message)
			assert.True(t, IsErrorType(tt.err, tt.expected))
			assert.True(t, IsErrorType(fmt.Errorf("wrapped: %w", tt.err), tt.expected))
		})
	}
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("cause")
	for _, err := range []error{
		NewTransportError("x", cause, false),
		NewDecodingError("T", cause),
		NewEncodingError(cause),
		NewValidationError("x", "", cause),
		NewInterceptorError("x", "response", cause),
	} {
		assert.ErrorIs(t, err, cause)
	}
}

func TestIsErrorTypeEdgeCases(t *testing.T) {
	assert.False(t, IsErrorType(nil, ServerError))
	assert.False(t, IsErrorType(errors.New("plain"), ServerError))
	assert.False(t, IsErrorType(context.Canceled, TransportError))
}

func TestMaxRetriesDistinctFromServerError(t *testing.T) {
	err := NewMaxRetriesError(4, 429, []byte("slow down"))
	assert.False(t, IsServerStatus(err, 429))

	attempts, ok := AttemptsOf(err)
	assert.True(t, ok)
	assert.Equal(t, 4, attempts)

	_, ok = AttemptsOf(NewServerError(429, nil))
	assert.False(t, ok)
}

func TestTransportTimeout(t *testing.T) {
	assert.True(t, IsTimeout(NewTransportError("slow", context.DeadlineExceeded, true)))
	assert.False(t, IsTimeout(NewTransportError("refused", nil, false)))
	assert.False(t, IsTimeout(NewServerError(504, nil)))
	assert.Equal(t, "transport error: refused", NewTransportError("refused", nil, false).Error())
}

func TestValidationErrorWithoutField(t *testing.T) {
	assert.Equal(t, "validation error: bad", NewValidationError("bad", "", nil).Error())
}
