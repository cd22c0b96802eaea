package chat

import (
	"context"

	"github.com/WikipediaBrown/Kew-Developer/codec"
	"github.com/WikipediaBrown/Kew-Developer/endpoint"
	"github.com/WikipediaBrown/Kew-Developer/http"
	"github.com/WikipediaBrown/Kew-Developer/logger"
)

// Service sends chat requests through an http.Client.
type Service struct {
	client   http.Client
	devRoute bool
	log      logger.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithDevRoute sends ChatGPT requests to the server's development route.
func WithDevRoute() ServiceOption {
	return func(s *Service) {
		s.devRoute = true
	}
}

// WithLogger sets the service logger.
func WithLogger(log logger.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func NewService(client http.Client, opts ...ServiceOption) *Service {
	s := &Service{client: client, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ollama sends req to the local inference endpoint. The reply uses snake_case
// keys and is decoded accordingly unless opts select another decoder.
func (s *Service) Ollama(ctx context.Context, req LlamaRequest, opts ...http.CallOption) (LlamaResponse, error) {
	if err := req.Validate(); err != nil {
		return LlamaResponse{}, http.NewValidationError(err.Error(), "request", err)
	}

	opts = append([]http.CallOption{http.WithDecoder(codec.SnakeCaseDecoder)}, opts...)
	resp, err := http.RequestWithBody[LlamaResponse](ctx, s.client, endpoint.Ollama, req, opts...)
	if err != nil {
		return LlamaResponse{}, err
	}

	s.log.Debug().
		Str("model", resp.Model).
		Str("done_reason", resp.DoneReason).
		Int("eval_count", resp.EvalCount).
		Dur("total_duration", resp.TotalDuration).
		Msg("Llama reply received")
	return resp, nil
}

// ChatGPT sends req to the hosted GPT-4o endpoint.
func (s *Service) ChatGPT(ctx context.Context, req ChatGPTRequest, opts ...http.CallOption) (ChatGPTResponse, error) {
	if err := req.Validate(); err != nil {
		return ChatGPTResponse{}, http.NewValidationError(err.Error(), "request", err)
	}

	ep := endpoint.ChatGPT4o
	if s.devRoute {
		ep = endpoint.ChatGPT4oDev
	}
	return http.RequestWithBody[ChatGPTResponse](ctx, s.client, ep, req, opts...)
}
