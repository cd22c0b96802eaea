// Package devserver is an in-memory stand-in for the inference server. It
// echoes the last user message, can fail the first attempts of every logical
// call, and deduplicates completed calls by Idempotency-Key.
package devserver

import (
	"context"
	goerrors "errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/WikipediaBrown/Kew-Developer/chat"
	"github.com/WikipediaBrown/Kew-Developer/idempotency"
	"github.com/WikipediaBrown/Kew-Developer/logger"
)

// ReplayedHeader marks a response served from the idempotency cache.
const ReplayedHeader = "Idempotent-Replayed"

const (
	llamaRoute      = "/api/chat"
	chatGPTRoute    = "/api/ChatGPT/4o"
	chatGPTDevRoute = "/api/ChatGPT/4o/dev"
	healthRoute     = "/health"

	// ServiceName labels the server's spans.
	ServiceName = "kew-devserver"
)

// Options configures the fake server.
type Options struct {
	// BasePath prefixes every chat route, e.g. "/v1".
	BasePath string
	// FailFirst attempts of each idempotency key answer FailStatus.
	FailFirst  int
	FailStatus int
	// Token, when set, must match the Authorization header.
	Token string
}

type cachedReply struct {
	status int
	body   []byte
}

// Server represents the fake inference server.
type Server struct {
	echo     *echo.Echo
	logger   logger.Logger
	opts     Options
	basePath string

	mu       sync.Mutex
	attempts map[string]int
	replies  map[string]cachedReply
}

// normalizeBasePath ensures the base path starts with "/" and doesn't end with "/".
func normalizeBasePath(basePath string) string {
	basePath = strings.Trim(basePath, "/")
	if basePath == "" {
		return ""
	}
	return "/" + basePath
}

// New creates the server and registers its routes.
func New(opts Options, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if opts.FailStatus == 0 {
		opts.FailStatus = http.StatusServiceUnavailable
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	e.Use(middleware.RequestID())
	e.Use(otelecho.Middleware(ServiceName))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error().
				Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Bytes("stack", stack).
				Msg("Panic recovered")
			return err
		},
	}))

	s := &Server{
		echo:     e,
		logger:   log,
		opts:     opts,
		basePath: normalizeBasePath(opts.BasePath),
		attempts: make(map[string]int),
		replies:  make(map[string]cachedReply),
	}

	e.GET(healthRoute, s.healthCheck)
	g := e.Group(s.basePath, s.requestLogger, s.authenticate, s.idempotent)
	g.POST(llamaRoute, s.llama)
	g.POST(chatGPTRoute, s.chatGPT)
	g.POST(chatGPTDevRoute, s.chatGPT)

	log.Debug().
		Str("base_path", s.basePath).
		Int("fail_first", opts.FailFirst).
		Int("fail_status", opts.FailStatus).
		Msg("Dev server routes configured")
	return s
}

// ServeHTTP lets the server run under httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.logger.Info().
		Str("address", addr).
		Str("base_path", s.basePath).
		Msg("Starting dev server...")

	// Shutdown stops echo's own server, so that one is configured and started.
	s.echo.Server.ReadHeaderTimeout = 5 * time.Second
	err := s.echo.Start(addr)
	if goerrors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the HTTP server with the given context.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Attempts returns how many requests arrived with key, replays included.
func (s *Server) Attempts(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[key]
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) llama(c echo.Context) error {
	var req chat.LlamaRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}

	now := time.Now().UTC()
	return c.JSON(http.StatusOK, llamaReply{
		Model:              string(req.Model),
		CreatedAt:          now.Format(time.RFC3339Nano),
		Message:            echoMessage(req.Messages),
		DoneReason:         "stop",
		Done:               true,
		TotalDuration:      int64(2 * time.Millisecond),
		LoadDuration:       int64(time.Millisecond),
		PromptEvalCount:    len(req.Messages),
		PromptEvalDuration: int64(500 * time.Microsecond),
		EvalCount:          len(strings.Fields(lastUserContent(req.Messages))),
		EvalDuration:       int64(500 * time.Microsecond),
	})
}

func (s *Server) chatGPT(c echo.Context) error {
	var req chat.ChatGPTRequest
	if err := bindRequest(c, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chat.ChatGPTResponse{Message: echoMessage(req.Messages)})
}

// llamaReply is the snake_case wire shape of a Llama chat reply.
type llamaReply struct {
	Model              string       `json:"model"`
	CreatedAt          string       `json:"created_at"`
	Message            chat.Message `json:"message"`
	DoneReason         string       `json:"done_reason"`
	Done               bool         `json:"done"`
	TotalDuration      int64        `json:"total_duration"`
	LoadDuration       int64        `json:"load_duration"`
	PromptEvalCount    int          `json:"prompt_eval_count"`
	PromptEvalDuration int64        `json:"prompt_eval_duration"`
	EvalCount          int          `json:"eval_count"`
	EvalDuration       int64        `json:"eval_duration"`
}

type validatable interface {
	Validate() error
}

func bindRequest(c echo.Context, req validatable) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}

func echoMessage(messages []chat.Message) chat.Message {
	return chat.Message{Role: chat.RoleAssistant, Content: lastUserContent(messages)}
}

func lastUserContent(messages []chat.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == chat.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// authenticate compares the raw Authorization header when a token is configured.
func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.opts.Token != "" && c.Request().Header.Get(echo.HeaderAuthorization) != s.opts.Token {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
		return next(c)
	}
}

// idempotent counts attempts per key, injects configured failures and
// replays completed responses.
func (s *Server) idempotent(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Header.Get(idempotency.Header)
		if _, err := idempotency.Parse(key); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "missing or invalid Idempotency-Key")
		}

		s.mu.Lock()
		s.attempts[key]++
		attempt := s.attempts[key]
		cached, replay := s.replies[key]
		s.mu.Unlock()

		if replay {
			c.Response().Header().Set(ReplayedHeader, "true")
			return c.JSONBlob(cached.status, cached.body)
		}
		if attempt <= s.opts.FailFirst {
			return echo.NewHTTPError(s.opts.FailStatus, fmt.Sprintf("injected failure %d of %d", attempt, s.opts.FailFirst))
		}

		rec := &recorder{ResponseWriter: c.Response().Writer}
		c.Response().Writer = rec
		if err := next(c); err != nil {
			return err
		}
		if c.Response().Status < http.StatusMultipleChoices {
			s.mu.Lock()
			s.replies[key] = cachedReply{status: c.Response().Status, body: rec.body}
			s.mu.Unlock()
		}
		return nil
	}
}

// recorder keeps a copy of the body written through it.
type recorder struct {
	http.ResponseWriter
	body []byte
}

func (r *recorder) Write(p []byte) (int, error) {
	r.body = append(r.body, p...)
	return r.ResponseWriter.Write(p)
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		s.logger.Info().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Str("idempotency_key", req.Header.Get(idempotency.Header)).
			Int("status", c.Response().Status).
			Bool("replayed", c.Response().Header().Get(ReplayedHeader) != "").
			Dur("latency", time.Since(start)).
			Msg("Dev server request")
		return nil
	}
}
