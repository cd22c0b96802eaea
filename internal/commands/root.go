// Package commands implements the kew command tree using Cobra.
package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/WikipediaBrown/Kew-Developer/config"
	"github.com/WikipediaBrown/Kew-Developer/logger"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitConfig  = 1
	ExitRequest = 2
	ExitNetwork = 3
)

// App is one CLI invocation. The runtime is built lazily by the root
// command's PersistentPreRunE and released by Close.
type App struct {
	version string
	environ func() []string

	configFile string
	logLevel   string
	pretty     bool

	runtime *Runtime
}

// NewApp creates the CLI. A nil environ reads the process environment.
func NewApp(version string, environ func() []string) *App {
	return &App{version: version, environ: environ}
}

// Execute runs the command tree and releases the runtime afterwards.
func (a *App) Execute(ctx context.Context) error {
	defer a.Close()
	return a.Command().ExecuteContext(ctx)
}

// Close flushes telemetry for a runtime built by a previous run.
func (a *App) Close() error {
	rt := a.runtime
	a.runtime = nil
	return rt.Close()
}

// Command builds the root command with every subcommand attached.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "kew",
		Short: "Send chat requests through the kew request pipeline",
		Long: `kew sends chat requests to an inference server with idempotent retries,
exponential backoff, and reachability monitoring.

Configuration comes from the environment (API_HOST, API_PATH, MAX_RETRIES, ...),
then the YAML file named by --config or KEW_CONFIG_FILE, then defaults.`,
		Version:           a.version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default is ./config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level (trace, debug, info, warn, error, disabled)")
	root.PersistentFlags().BoolVar(&a.pretty, "pretty", false, "human readable logs")

	root.AddCommand(
		newChatCommand(a),
		newResolveCommand(a),
		newNetStatusCommand(a),
		NewVersionCommand(a.version),
	)
	return root
}

func (a *App) setup(cmd *cobra.Command, _ []string) error {
	if a.runtime != nil {
		return nil
	}

	cfg, err := config.LoadWithOptions(config.Options{File: a.configFile, Environ: a.environ})
	if err != nil {
		return exitWithCode(ExitConfig, err)
	}

	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr(), level, cfg.Log.Pretty || a.pretty, nil)

	rt, err := NewRuntime(cfg, log)
	if err != nil {
		return exitWithCode(ExitConfig, err)
	}
	a.runtime = rt
	return nil
}

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func exitWithCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: code, Err: err}
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitConfig
}
