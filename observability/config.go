package observability

import (
	"strings"
	"time"
)

const (
	// EndpointStdout pretty-prints telemetry to stdout.
	EndpointStdout = "stdout"

	ProtocolHTTP = "http"
	ProtocolGRPC = "grpc"

	EnvironmentDevelopment = "development"
)

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool {
	return &v
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}

// Config controls trace and metric export for the request pipeline.
// Everything is a no-op unless Enabled is set.
type Config struct {
	Enabled     bool          `koanf:"enabled" json:"enabled"`
	Service     ServiceConfig `koanf:"service" json:"service"`
	Environment string        `koanf:"environment" json:"environment"`
	Trace       TraceConfig   `koanf:"trace" json:"trace"`
	Metrics     MetricsConfig `koanf:"metrics" json:"metrics"`
}

type ServiceConfig struct {
	Name    string `koanf:"name" json:"name"`
	Version string `koanf:"version" json:"version"`
}

// TraceConfig selects the span exporter. Endpoint is "stdout", a URL for
// the http protocol or host:port for grpc.
type TraceConfig struct {
	Enabled  *bool             `koanf:"enabled" json:"enabled"`
	Endpoint string            `koanf:"endpoint" json:"endpoint"`
	Protocol string            `koanf:"protocol" json:"protocol"`
	Insecure bool              `koanf:"insecure" json:"insecure"`
	Headers  map[string]string `koanf:"headers" json:"headers"`
	Sample   SampleConfig      `koanf:"sample" json:"sample"`
	Batch    BatchConfig       `koanf:"batch" json:"batch"`
}

type SampleConfig struct {
	// Rate is the fraction of traces kept. nil means 1.0.
	Rate *float64 `koanf:"rate" json:"rate"`
}

type BatchConfig struct {
	Timeout time.Duration `koanf:"timeout" json:"timeout"`
	Size    int           `koanf:"size" json:"size"`
}

// MetricsConfig selects the metric exporter. Protocol, Insecure and Headers
// are shared with TraceConfig.
type MetricsConfig struct {
	Enabled  *bool         `koanf:"enabled" json:"enabled"`
	Endpoint string        `koanf:"endpoint" json:"endpoint"`
	Interval time.Duration `koanf:"interval" json:"interval"`
}

// ApplyDefaults fills unset fields. Signals default to enabled when the
// provider is enabled and they were not switched off explicitly.
func (c *Config) ApplyDefaults() {
	if c.Service.Version == "" {
		c.Service.Version = "unknown"
	}
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}

	if c.Trace.Endpoint == "" {
		c.Trace.Endpoint = EndpointStdout
	}
	if c.Enabled && c.Trace.Enabled == nil {
		c.Trace.Enabled = BoolPtr(true)
	}
	if c.Trace.Protocol == "" {
		c.Trace.Protocol = ProtocolHTTP
	}
	if c.Trace.Endpoint == EndpointStdout {
		c.Trace.Insecure = true
	}
	if c.Trace.Sample.Rate == nil {
		c.Trace.Sample.Rate = Float64Ptr(1.0)
	}
	if c.Trace.Batch.Timeout == 0 {
		c.Trace.Batch.Timeout = 5 * time.Second
		if c.Environment == EnvironmentDevelopment || c.Trace.Endpoint == EndpointStdout {
			c.Trace.Batch.Timeout = 500 * time.Millisecond
		}
	}
	if c.Trace.Batch.Size == 0 {
		c.Trace.Batch.Size = 512
	}

	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = EndpointStdout
	}
	if c.Enabled && c.Metrics.Enabled == nil {
		c.Metrics.Enabled = BoolPtr(true)
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = 10 * time.Second
	}
}

// Validate checks an enabled configuration.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.Service.Name == "" {
		return ErrMissingServiceName
	}
	if rate := c.Trace.Sample.Rate; rate != nil && (*rate < 0 || *rate > 1) {
		return ErrInvalidSampleRate
	}

	switch c.Trace.Protocol {
	case "", ProtocolHTTP, ProtocolGRPC:
	default:
		return ErrInvalidProtocol
	}
	if err := validateEndpointFormat(c.Trace.Endpoint, c.Trace.Protocol); err != nil {
		return err
	}
	return validateEndpointFormat(c.Metrics.Endpoint, c.Trace.Protocol)
}

// validateEndpointFormat requires a scheme for http and rejects one for grpc.
func validateEndpointFormat(endpoint, protocol string) error {
	if endpoint == EndpointStdout || endpoint == "" {
		return nil
	}
	hasScheme := strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
	if protocol == ProtocolGRPC && hasScheme {
		return ErrInvalidEndpointFormat
	}
	if protocol != ProtocolGRPC && !hasScheme {
		return ErrInvalidEndpointFormat
	}
	return nil
}
