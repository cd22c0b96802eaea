package commands

import (
	"net"
	"time"

	"github.com/WikipediaBrown/Kew-Developer/config"
	"github.com/WikipediaBrown/Kew-Developer/endpoint"
	"github.com/WikipediaBrown/Kew-Developer/http"
	"github.com/WikipediaBrown/Kew-Developer/logger"
	"github.com/WikipediaBrown/Kew-Developer/netstatus"
	"github.com/WikipediaBrown/Kew-Developer/observability"
)

// Runtime holds everything a subcommand needs. It is built once per
// invocation from the loaded configuration.
type Runtime struct {
	Config   *config.Config
	Logger   logger.Logger
	Resolver *endpoint.Resolver
	Monitor  *netstatus.Monitor
	Client   http.Client

	provider observability.Provider
}

// NewRuntime wires the pipeline from cfg.
func NewRuntime(cfg *config.Config, log logger.Logger) (*Runtime, error) {
	provider, err := observability.NewProvider(&cfg.Observability)
	if err != nil {
		return nil, err
	}

	resolver, err := endpoint.NewResolver(cfg.API, cfg.App.Env)
	if err != nil {
		_ = observability.Shutdown(provider, time.Second)
		return nil, err
	}

	monitor := netstatus.NewMonitor(
		netstatus.DialProber{Address: probeAddress(resolver), Timeout: cfg.Network.Probe.Timeout},
		netstatus.WithInterval(cfg.Network.Probe.Interval),
		netstatus.WithLogger(log),
	)

	builder := http.NewBuilder(resolver, log).
		WithTimeout(cfg.HTTP.Timeout).
		WithMaxRetries(cfg.API.MaxRetries).
		WithBackoffUnit(cfg.HTTP.Backoff.Unit).
		WithAuthToken(cfg.API.Token).
		WithRateLimit(cfg.HTTP.RateLimit.RPS, cfg.HTTP.RateLimit.Burst).
		WithNetworkStatus(monitor).
		WithRequestInterceptor(observability.InjectTraceContext).
		WithTracerProvider(provider.TracerProvider()).
		WithMeterProvider(provider.MeterProvider())
	if cfg.HTTP.Compression {
		builder = builder.WithCompression()
	}

	log.Debug().
		Str("env", cfg.App.Env).
		Str("base_url", resolver.BaseURL().String()).
		Int("max_retries", cfg.API.MaxRetries).
		Dur("timeout", cfg.HTTP.Timeout).
		Msg("Runtime configured")

	return &Runtime{
		Config:   cfg,
		Logger:   log,
		Resolver: resolver,
		Monitor:  monitor,
		Client:   builder.Build(),
		provider: provider,
	}, nil
}

// Close flushes telemetry.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	return observability.Shutdown(r.provider, observability.DefaultShutdownTimeout)
}

// probeAddress is the host:port the monitor dials.
func probeAddress(r *endpoint.Resolver) string {
	u := r.BaseURL()
	if u.Port() != "" {
		return u.Host
	}
	port := "443"
	if u.Scheme == "http" {
		port = "80"
	}
	return net.JoinHostPort(u.Hostname(), port)
}
