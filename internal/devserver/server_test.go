package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/WikipediaBrown/Kew-Developer/chat"
	"github.com/WikipediaBrown/Kew-Developer/idempotency"
	"github.com/WikipediaBrown/Kew-Developer/logger"
)

const (
	testBody  = `{"model":"llama3","messages":[{"role":"user","content":"hello there world"}]}`
	testToken = "Bearer dev-token"
)

func newTestServer(opts Options) *Server {
	return New(opts, logger.Nop())
}

func post(s *Server, path, body, key string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(idempotency.Header, key)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apiError {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	s := newTestServer(Options{Token: testToken})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLlamaEchoesLastUserMessage(t *testing.T) {
	s := newTestServer(Options{})

	rec := post(s, "/api/chat", testBody, idempotency.New().String())
	require.Equal(t, http.StatusOK, rec.Code)

	var reply llamaReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "llama3", reply.Model)
	assert.Equal(t, chat.RoleAssistant, reply.Message.Role)
	assert.Equal(t, "hello there world", reply.Message.Content)
	assert.Equal(t, 3, reply.EvalCount)
	assert.True(t, reply.Done)

	// Keys on the wire are snake_case.
	assert.Contains(t, rec.Body.String(), `"eval_count":3`)
	assert.Contains(t, rec.Body.String(), `"done_reason":"stop"`)
}

func TestChatGPTRoutes(t *testing.T) {
	s := newTestServer(Options{BasePath: "v1/"})
	body := `{"model":"gpt-4o-mini","messages":[{"role":"user","content":"hi"}]}`

	for _, path := range []string{"/v1/api/ChatGPT/4o", "/v1/api/ChatGPT/4o/dev"} {
		t.Run(path, func(t *testing.T) {
			rec := post(s, path, body, idempotency.New().String())
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"message":{"role":"assistant","content":"hi"}}`, rec.Body.String())
		})
	}

	rec := post(s, "/api/ChatGPT/4o", body, idempotency.New().String())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFailFirstInjectsFailuresPerKey(t *testing.T) {
	s := newTestServer(Options{FailFirst: 2, FailStatus: http.StatusTooManyRequests})
	key := idempotency.New().String()

	for i := 1; i <= 2; i++ {
		rec := post(s, "/api/chat", testBody, key)
		require.Equal(t, http.StatusTooManyRequests, rec.Code, "attempt %d", i)
		assert.Equal(t, "TOO_MANY_REQUESTS", decodeError(t, rec).Code)
	}

	rec := post(s, "/api/chat", testBody, key)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, s.Attempts(key))

	// A different logical call starts its own count.
	other := idempotency.New().String()
	rec = post(s, "/api/chat", testBody, other)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 1, s.Attempts(other))
}

func TestFailStatusDefaultsTo503(t *testing.T) {
	s := newTestServer(Options{FailFirst: 1})

	rec := post(s, "/api/chat", testBody, idempotency.New().String())

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, rec).Code)
}

func TestReplayReturnsCachedReply(t *testing.T) {
	s := newTestServer(Options{})
	key := idempotency.New().String()

	first := post(s, "/api/chat", testBody, key)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Empty(t, first.Header().Get(ReplayedHeader))

	// The replay ignores the new body.
	second := post(s, "/api/chat", `{"model":"llama3","messages":[{"role":"user","content":"changed"}]}`, key)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 2, s.Attempts(key))
}

func TestFailedRepliesAreNotCached(t *testing.T) {
	s := newTestServer(Options{})
	key := idempotency.New().String()

	rec := post(s, "/api/chat", `{"model":"llama3","messages":[]}`, key)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = post(s, "/api/chat", testBody, key)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(ReplayedHeader))
}

func TestIdempotencyKeyRequired(t *testing.T) {
	s := newTestServer(Options{})

	tests := []struct {
		name string
		key  string
	}{
		{name: "missing", key: ""},
		{name: "not_a_uuid", key: "retry-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(s, "/api/chat", testBody, tt.key)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "BAD_REQUEST", decodeError(t, rec).Code)
		})
	}
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(Options{Token: testToken})

	rec := post(s, "/api/chat", testBody, idempotency.New().String(), "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)

	rec = post(s, "/api/chat", testBody, idempotency.New().String())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(s, "/api/chat", testBody, idempotency.New().String(), "Authorization", testToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(Options{})

	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{name: "invalid_json", body: `{"model":`, status: http.StatusBadRequest, msg: "invalid JSON body"},
		{name: "missing_model", body: `{"messages":[{"role":"user","content":"x"}]}`, status: http.StatusUnprocessableEntity, msg: chat.ErrModelRequired.Error()},
		{name: "no_messages", body: `{"model":"llama3","messages":[]}`, status: http.StatusUnprocessableEntity, msg: chat.ErrNoMessages.Error()},
		{name: "bad_role", body: `{"model":"llama3","messages":[{"role":"robot","content":"x"}]}`, status: http.StatusUnprocessableEntity, msg: chat.ErrInvalidMessage.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(s, "/api/chat", tt.body, idempotency.New().String())
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, decodeError(t, rec).Message)
		})
	}
}

func TestNormalizeBasePath(t *testing.T) {
	assert.Equal(t, "", normalizeBasePath(""))
	assert.Equal(t, "", normalizeBasePath("/"))
	assert.Equal(t, "/v1", normalizeBasePath("v1"))
	assert.Equal(t, "/v1/api", normalizeBasePath("/v1/api/"))
}

func TestStatusToErrorCode(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", statusToErrorCode(http.StatusNotFound))
	assert.Equal(t, "METHOD_NOT_ALLOWED", statusToErrorCode(http.StatusMethodNotAllowed))
	assert.Equal(t, "INTERNAL_ERROR", statusToErrorCode(http.StatusTeapot))
}

func TestServerSpansJoinIncomingTrace(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	originalTP := otel.GetTracerProvider()
	originalPropagator := otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(originalTP)
		otel.SetTextMapPropagator(originalPropagator)
	})

	s := newTestServer(Options{})
	traceparent := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	rec := post(s, "/api/chat", testBody, idempotency.New().String(), "Traceparent", traceparent)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext.TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent.SpanID().String())
}
