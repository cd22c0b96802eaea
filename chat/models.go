// Package chat holds the chat payloads exchanged with the inference server and
// a typed service that sends them through the request pipeline.
package chat

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// Role is the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Model names a hosted or local model.
type Model string

const (
	Llama3    Model = "llama3"
	GPT4oMini Model = "gpt-4o-mini"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role    `json:"role" validate:"required,oneof=system user assistant"`
	Content string  `json:"content"`
	Refusal *string `json:"refusal,omitempty"`
}

// UserMessage wraps content as a user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// LlamaRequest is the body of the local inference endpoint.
type LlamaRequest struct {
	Model    Model     `json:"model" validate:"required"`
	Messages []Message `json:"messages" validate:"required,min=1,dive"`
	Stream   bool      `json:"stream"`
}

// LlamaResponse is decoded with codec.SnakeCaseDecoder; the server sends
// snake_case keys such as created_at and eval_count. Durations are
// nanoseconds on the wire.
type LlamaResponse struct {
	Model              string        `json:"model"`
	CreatedAt          string        `json:"createdAt"`
	Message            Message       `json:"message"`
	DoneReason         string        `json:"doneReason"`
	Done               bool          `json:"done"`
	TotalDuration      time.Duration `json:"totalDuration"`
	LoadDuration       time.Duration `json:"loadDuration"`
	PromptEvalCount    int           `json:"promptEvalCount"`
	PromptEvalDuration time.Duration `json:"promptEvalDuration"`
	EvalCount          int           `json:"evalCount"`
	EvalDuration       time.Duration `json:"evalDuration"`
}

// ChatGPTRequest is the body of the hosted GPT-4o endpoints.
type ChatGPTRequest struct {
	Model    Model     `json:"model" validate:"required"`
	Messages []Message `json:"messages" validate:"required,min=1,dive"`
}

// ChatGPTResponse carries the assistant's reply.
type ChatGPTResponse struct {
	Message Message `json:"message"`
}

var (
	ErrModelRequired  = errors.New("chat: model is required")
	ErrNoMessages     = errors.New("chat: at least one message is required")
	ErrInvalidMessage = errors.New("chat: message has an invalid role")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports the first problem with req as one of the package's
// sentinel errors.
func (r LlamaRequest) Validate() error {
	return validateRequest(r)
}

// Validate reports the first problem with req as one of the package's
// sentinel errors.
func (r ChatGPTRequest) Validate() error {
	return validateRequest(r)
}

func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	switch fieldErrs[0].StructField() {
	case "Model":
		return ErrModelRequired
	case "Messages":
		return ErrNoMessages
	default:
		return ErrInvalidMessage
	}
}
