package commands

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/WikipediaBrown/Kew-Developer/internal/devserver"
	"github.com/WikipediaBrown/Kew-Developer/logger"
)

// DevServerOptions holds options for the development server command
type DevServerOptions struct {
	Address  string
	LogLevel string
	Pretty   bool
	devserver.Options
}

// NewDevServerCommand creates the root command of kew-devserver.
func NewDevServerCommand(version string) *cobra.Command {
	opts := &DevServerOptions{}

	cmd := &cobra.Command{
		Use:   "kew-devserver",
		Short: "Run a local fake inference server",
		Long: `Serve the chat endpoints with echo replies for local development and
integration tests. Failures can be injected for the first attempts of every
Idempotency-Key, and completed calls are replayed from memory.`,
		Example: `  # Fail the first two attempts of each call with 503
  kew-devserver --addr :11434 --fail-first 2

  # Require a token and mount under /v1
  kew-devserver --base-path /v1 --token "Bearer dev-token"`,
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDevServer(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Address, "addr", "127.0.0.1:11434", "listen address")
	cmd.Flags().StringVar(&opts.BasePath, "base-path", "", "prefix for the chat routes")
	cmd.Flags().IntVar(&opts.FailFirst, "fail-first", 0, "failed attempts per idempotency key before success")
	cmd.Flags().IntVar(&opts.FailStatus, "fail-status", 503, "status used for injected failures")
	cmd.Flags().StringVar(&opts.Token, "token", "", "required Authorization header value")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "info", "log level")
	cmd.Flags().BoolVar(&opts.Pretty, "pretty", false, "human readable logs")

	return cmd
}

func runDevServer(ctx context.Context, opts *DevServerOptions) error {
	log := logger.NewWithWriter(os.Stderr, opts.LogLevel, opts.Pretty, nil)
	srv := devserver.New(opts.Options, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(opts.Address)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down dev server...")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
