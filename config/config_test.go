package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testHost = "api.example.com"
	testPath = "/v1"
)

func environ(vars ...string) func() []string {
	return func() []string { return vars }
}

func baseEnv(extra ...string) func() []string {
	vars := append([]string{
		"API_HOST=" + testHost,
		"API_PATH=" + testPath,
		"MAX_RETRIES=3",
		"APP_ENV=" + EnvProduction,
	}, extra...)
	return environ(vars...)
}

func requireConfigError(t *testing.T, err error, category, field string) *ConfigError {
	t.Helper()
	require.Error(t, err)
	ce, ok := asConfigError(err)
	require.True(t, ok, "expected *ConfigError, got %T: %v", err, err)
	assert.Equal(t, category, ce.Category)
	assert.Equal(t, field, ce.Field)
	return ce
}

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := LoadWithOptions(Options{Environ: baseEnv()})
	require.NoError(t, err)

	assert.Equal(t, "kew", cfg.App.Name)
	assert.Equal(t, EnvProduction, cfg.App.Env)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, testHost, cfg.API.Host)
	assert.Equal(t, testPath, cfg.API.Path)
	assert.Equal(t, 3, cfg.API.MaxRetries)
	assert.Zero(t, cfg.API.Port)
	assert.Empty(t, cfg.API.Token)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, time.Millisecond, cfg.HTTP.Backoff.Unit)
	assert.Zero(t, cfg.HTTP.RateLimit.RPS)
	assert.Equal(t, 5*time.Second, cfg.Network.Probe.Interval)
	assert.Equal(t, 2*time.Second, cfg.Network.Probe.Timeout)

	assert.False(t, cfg.Observability.Enabled)
	assert.Equal(t, "kew", cfg.Observability.Service.Name)
	assert.Equal(t, EnvProduction, cfg.Observability.Environment)
}

func TestLoadProfileDefault(t *testing.T) {
	cfg, err := LoadWithOptions(Options{Environ: environ(
		"API_HOST="+testHost, "API_PATH="+testPath, "MAX_RETRIES=1", "PORT=8080",
	)})
	require.NoError(t, err)
	assert.Equal(t, DefaultEnv, cfg.App.Env)
}

func TestLoadWithEnvironmentOverrides(t *testing.T) {
	cfg, err := LoadWithOptions(Options{Environ: baseEnv(
		"API_TOKEN=raw-token",
		"LOG_LEVEL=debug",
		"LOG_PRETTY=true",
		"HTTP_TIMEOUT=5s",
		"HTTP_BACKOFF_UNIT=10ms",
		"HTTP_RATELIMIT_RPS=2.5",
		"HTTP_RATELIMIT_BURST=4",
		"HTTP_COMPRESSION=true",
		"NETWORK_PROBE_INTERVAL=1s",
		"HOME=/root",
	)})
	require.NoError(t, err)

	assert.Equal(t, "raw-token", cfg.API.Token)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 10*time.Millisecond, cfg.HTTP.Backoff.Unit)
	assert.InDelta(t, 2.5, cfg.HTTP.RateLimit.RPS, 0.0001)
	assert.Equal(t, 4, cfg.HTTP.RateLimit.Burst)
	assert.True(t, cfg.HTTP.Compression)
	assert.Equal(t, time.Second, cfg.Network.Probe.Interval)
}

func TestLoadDevelopmentProfile(t *testing.T) {
	t.Run("port_required", func(t *testing.T) {
		_, err := LoadWithOptions(Options{Environ: baseEnv("APP_ENV=" + EnvDevelopment)})
		requireConfigError(t, err, CategoryMissing, "api.port")
		assert.Contains(t, err.Error(), "PORT")
	})

	t.Run("port_set", func(t *testing.T) {
		cfg, err := LoadWithOptions(Options{Environ: baseEnv("APP_ENV="+EnvDevelopment, "PORT=8080")})
		require.NoError(t, err)
		assert.True(t, cfg.IsDevelopment())
		assert.Equal(t, 8080, cfg.API.Port)
	})

	t.Run("port_out_of_range", func(t *testing.T) {
		_, err := LoadWithOptions(Options{Environ: baseEnv("APP_ENV="+EnvDevelopment, "PORT=70000")})
		requireConfigError(t, err, CategoryInvalid, "api.port")
	})
}

func TestLoadMissingRequiredKeys(t *testing.T) {
	tests := []struct {
		name   string
		env    []string
		field  string
		envVar string
	}{
		{name: "host", env: []string{"API_PATH=/v1", "MAX_RETRIES=3"}, field: "api.host", envVar: "API_HOST"},
		{name: "path", env: []string{"API_HOST=" + testHost, "MAX_RETRIES=3"}, field: "api.path", envVar: "API_PATH"},
		{name: "max_retries", env: []string{"API_HOST=" + testHost, "API_PATH=/v1"}, field: "api.maxretries", envVar: "MAX_RETRIES"},
		{name: "blank_host", env: []string{"API_HOST= ", "API_PATH=/v1", "MAX_RETRIES=3"}, field: "api.host", envVar: "API_HOST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWithOptions(Options{Environ: environ(tt.env...)})
			requireConfigError(t, err, CategoryMissing, tt.field)
			assert.True(t, IsMissing(err))
			assert.Contains(t, err.Error(), tt.envVar)
		})
	}
}

func TestLoadTypeMismatch(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		field string
	}{
		{name: "max_retries_text", env: "MAX_RETRIES=three", field: "api.maxretries"},
		{name: "max_retries_fraction", env: "MAX_RETRIES=1.5", field: "api.maxretries"},
		{name: "port_text", env: "PORT=http", field: "api.port"},
		{name: "timeout", env: "HTTP_TIMEOUT=soon", field: "http.timeout"},
		{name: "compression", env: "HTTP_COMPRESSION=maybe", field: "http.compression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWithOptions(Options{Environ: baseEnv(tt.env)})
			requireConfigError(t, err, CategoryInvalid, tt.field)
			assert.True(t, IsInvalid(err))
		})
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		field string
	}{
		{name: "negative_retries", env: "MAX_RETRIES=-1", field: "api.maxretries"},
		{name: "bad_host", env: "API_HOST=not a host", field: "api.host"},
		{name: "unknown_env", env: "APP_ENV=qa", field: "app.env"},
		{name: "zero_backoff", env: "HTTP_BACKOFF_UNIT=0s", field: "http.backoff.unit"},
		{name: "rps_without_burst", env: "HTTP_RATELIMIT_RPS=1", field: "http.ratelimit.burst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWithOptions(Options{Environ: baseEnv(tt.env)})
			requireConfigError(t, err, CategoryInvalid, tt.field)
		})
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kew.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  env: development
api:
  host: localhost
  path: v1/
  maxretries: 2
  port: 11434
http:
  backoff:
    unit: 5ms
`), 0o600))

	t.Run("file_values", func(t *testing.T) {
		cfg, err := LoadWithOptions(Options{File: path, Environ: environ()})
		require.NoError(t, err)
		assert.Equal(t, "localhost", cfg.API.Host)
		assert.Equal(t, "/v1", cfg.API.Path)
		assert.Equal(t, 2, cfg.API.MaxRetries)
		assert.Equal(t, 11434, cfg.API.Port)
		assert.Equal(t, 5*time.Millisecond, cfg.HTTP.Backoff.Unit)
	})

	t.Run("env_overrides_file", func(t *testing.T) {
		cfg, err := LoadWithOptions(Options{File: path, Environ: environ("MAX_RETRIES=7")})
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.API.MaxRetries)
	})

	t.Run("file_from_env_var", func(t *testing.T) {
		cfg, err := LoadWithOptions(Options{Environ: environ(FileEnvVar + "=" + path)})
		require.NoError(t, err)
		assert.Equal(t, "localhost", cfg.API.Host)
	})

	t.Run("explicit_missing_file", func(t *testing.T) {
		_, err := LoadWithOptions(Options{File: filepath.Join(dir, "absent.yaml"), Environ: baseEnv()})
		requireConfigError(t, err, CategoryInvalid, FileEnvVar)
	})
}

func TestLoadFromInlineYAML(t *testing.T) {
	yamlContent := []byte(`
api:
  host: 10.0.0.7
  path: /
  maxretries: 4
http:
  compression: true
  ratelimit:
    rps: 2.5
    burst: 3
observability:
  enabled: false
`)

	t.Run("values", func(t *testing.T) {
		cfg, err := LoadWithOptions(Options{YAML: yamlContent, Environ: environ("APP_ENV=" + EnvProduction)})
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.7", cfg.API.Host)
		assert.Equal(t, "/", cfg.API.Path)
		assert.Equal(t, 4, cfg.API.MaxRetries)
		assert.True(t, cfg.HTTP.Compression)
		assert.InDelta(t, 2.5, cfg.HTTP.RateLimit.RPS, 0.001)
		assert.Equal(t, 3, cfg.HTTP.RateLimit.Burst)
	})

	t.Run("ignores_file_env_var", func(t *testing.T) {
		cfg, err := LoadWithOptions(Options{
			YAML:    yamlContent,
			Environ: environ("APP_ENV="+EnvProduction, FileEnvVar+"=/does/not/exist.yaml"),
		})
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.API.MaxRetries)
	})

	t.Run("unparsable", func(t *testing.T) {
		_, err := LoadWithOptions(Options{YAML: []byte("api: [unclosed"), Environ: baseEnv()})
		requireConfigError(t, err, CategoryInvalid, "")
	})
}

func TestTransformEnv(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "API_HOST", want: "api.host"},
		{in: "MAX_RETRIES", want: "api.maxretries"},
		{in: "PORT", want: "api.port"},
		{in: "OBSERVABILITY_TRACE_ENDPOINT", want: "observability.trace.endpoint"},
		{in: "PATH", want: ""},
		{in: "APPLICATION", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, _ := transformEnv(tt.in, "x")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnvVarFor(t *testing.T) {
	assert.Equal(t, "MAX_RETRIES", envVarFor("api.maxretries"))
	assert.Equal(t, "PORT", envVarFor("api.port"))
	assert.Equal(t, "API_HOST", envVarFor("api.host"))
}

func TestConfigErrorFormatting(t *testing.T) {
	err := NewMissingFieldError("api.host", "API_HOST", "api.host")
	assert.Equal(t, "config_missing: api.host required set API_HOST env var or add api.host to config.yaml", err.Error())

	inv := NewInvalidFieldError("app.env", "invalid value", []string{"development", "production"})
	assert.Equal(t, "config_invalid: app.env invalid value must be one of: development, production", inv.Error())
}
