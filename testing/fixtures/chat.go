package fixtures

import (
	"time"

	"github.com/WikipediaBrown/Kew-Developer/chat"
)

// TestAttemptTimeout bounds a single attempt in fixture clients.
const TestAttemptTimeout = 5 * time.Second

// TestPrompt is the user message used by the canned requests.
const TestPrompt = "Why is the sky blue?"

// LlamaRequest returns a valid request for the local model.
func LlamaRequest() chat.LlamaRequest {
	return chat.LlamaRequest{
		Model:    chat.Llama3,
		Messages: []chat.Message{chat.UserMessage(TestPrompt)},
	}
}

// ChatGPTRequest returns a valid request for the hosted model.
func ChatGPTRequest() chat.ChatGPTRequest {
	return chat.ChatGPTRequest{
		Model: chat.GPT4oMini,
		Messages: []chat.Message{
			{Role: chat.RoleSystem, Content: "You are terse."},
			chat.UserMessage(TestPrompt),
		},
	}
}

// LlamaReplyJSON is a snake_case reply as the inference server sends it.
const LlamaReplyJSON = `{
	"model": "llama3",
	"created_at": "2024-06-01T12:00:00Z",
	"message": {"role": "assistant", "content": "Rayleigh scattering."},
	"done_reason": "stop",
	"done": true,
	"total_duration": 2000000,
	"load_duration": 1000000,
	"prompt_eval_count": 1,
	"prompt_eval_duration": 500000,
	"eval_count": 2,
	"eval_duration": 500000
}`

// ChatGPTReplyJSON is a hosted model reply.
const ChatGPTReplyJSON = `{"message":{"role":"assistant","content":"Rayleigh scattering."}}`

// ErrorReplyJSON is the error envelope used by the server for non-2xx replies.
const ErrorReplyJSON = `{"error":{"code":"SERVICE_UNAVAILABLE","message":"try again"}}`
