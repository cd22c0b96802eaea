package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/WikipediaBrown/Kew-Developer/chat"
	"github.com/WikipediaBrown/Kew-Developer/http"
)

const (
	endpointOllama  = "ollama"
	endpointChatGPT = "chatgpt"
)

// ChatOptions holds options for the chat command
type ChatOptions struct {
	Endpoint string
	Model    string
	Stream   bool
	DevRoute bool
}

func newChatCommand(app *App) *cobra.Command {
	opts := &ChatOptions{}

	cmd := &cobra.Command{
		Use:   "chat [text...]",
		Short: "Send a buffer as one user message",
		Long: `Send a buffer to the inference server as a single user message and print
the assistant's reply.

When stdin is not a terminal and no arguments are given, the buffer is read
from stdin verbatim. Otherwise the arguments are joined with spaces.`,
		Example: `  # Ask the local model
  kew chat "Why is the sky blue?"

  # Send a file to the hosted model on the development route
  kew chat --endpoint chatgpt --dev-route < notes.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, app.runtime, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.Endpoint, "endpoint", "e", endpointOllama, "endpoint to call (ollama, chatgpt)")
	cmd.Flags().StringVarP(&opts.Model, "model", "m", "", "model name (default llama3 or gpt-4o-mini)")
	cmd.Flags().BoolVar(&opts.Stream, "stream", false, "ask the local model to stream its reply")
	cmd.Flags().BoolVar(&opts.DevRoute, "dev-route", false, "use the ChatGPT development route")

	return cmd
}

func runChat(cmd *cobra.Command, rt *Runtime, opts *ChatOptions, args []string) error {
	text, err := readBuffer(cmd.InOrStdin(), args)
	if err != nil {
		return exitWithCode(ExitRequest, err)
	}

	var svcOpts []chat.ServiceOption
	svcOpts = append(svcOpts, chat.WithLogger(rt.Logger))
	if opts.DevRoute {
		svcOpts = append(svcOpts, chat.WithDevRoute())
	}
	svc := chat.NewService(rt.Client, svcOpts...)

	// The monitor runs beside the call and stops once the reply is in.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rt.Monitor.Run(gctx)
	})

	var reply string
	g.Go(func() error {
		defer cancel()
		var callErr error
		reply, callErr = send(gctx, svc, opts, text)
		return callErr
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) && cmd.Context().Err() != nil {
			return exitWithCode(ExitNetwork, fmt.Errorf("interrupted: %w", err))
		}
		return exitWithCode(exitCodeFor(err), err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), reply)
	return err
}

func send(ctx context.Context, svc *chat.Service, opts *ChatOptions, text string) (string, error) {
	messages := []chat.Message{chat.UserMessage(text)}

	switch opts.Endpoint {
	case endpointOllama:
		resp, err := svc.Ollama(ctx, chat.LlamaRequest{
			Model:    modelOr(opts.Model, chat.Llama3),
			Messages: messages,
			Stream:   opts.Stream,
		})
		return resp.Message.Content, err
	case endpointChatGPT:
		resp, err := svc.ChatGPT(ctx, chat.ChatGPTRequest{
			Model:    modelOr(opts.Model, chat.GPT4oMini),
			Messages: messages,
		})
		return resp.Message.Content, err
	default:
		return "", http.NewValidationError(
			fmt.Sprintf("unknown endpoint %q (want %s or %s)", opts.Endpoint, endpointOllama, endpointChatGPT),
			"endpoint", nil)
	}
}

func modelOr(name string, fallback chat.Model) chat.Model {
	if name == "" {
		return fallback
	}
	return chat.Model(name)
}

// readBuffer prefers arguments; without them it reads a piped stdin.
func readBuffer(in io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", errors.New("nothing to send: pass text as arguments or pipe it on stdin")
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New("nothing to send: stdin was empty")
	}
	return string(data), nil
}

func exitCodeFor(err error) int {
	switch {
	case http.IsErrorType(err, http.ValidationError),
		http.IsErrorType(err, http.EncodingError):
		return ExitConfig
	case http.IsErrorType(err, http.TransportError):
		return ExitNetwork
	default:
		return ExitRequest
	}
}
