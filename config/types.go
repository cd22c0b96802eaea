package config

import (
	"time"

	"github.com/WikipediaBrown/Kew-Developer/observability"
)

// Config is the fully loaded and validated configuration.
type Config struct {
	App           AppConfig            `koanf:"app" json:"app"`
	API           APIConfig            `koanf:"api" json:"api"`
	Log           LogConfig            `koanf:"log" json:"log"`
	HTTP          HTTPConfig           `koanf:"http" json:"http"`
	Network       NetworkConfig        `koanf:"network" json:"network"`
	Observability observability.Config `koanf:"observability" json:"observability" validate:"-"`
}

type AppConfig struct {
	Name    string `koanf:"name" json:"name" validate:"required"`
	Version string `koanf:"version" json:"version"`
	// Env selects the URL profile: plain http with an explicit port in
	// development, https otherwise.
	Env string `koanf:"env" json:"env" validate:"oneof=development staging production"`
}

// APIConfig describes the remote inference API.
type APIConfig struct {
	Host       string `koanf:"host" json:"host" validate:"required,hostname_rfc1123|ip"`
	Path       string `koanf:"path" json:"path" validate:"required"`
	MaxRetries int    `koanf:"maxretries" json:"maxRetries" validate:"gte=0,lte=30"`
	// Port is only used, and then required, in development.
	Port  int    `koanf:"port" json:"port" validate:"omitempty,min=1,max=65535"`
	Token string `koanf:"token" json:"token"`
}

type LogConfig struct {
	Level  string `koanf:"level" json:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `koanf:"pretty" json:"pretty"`
}

// HTTPConfig tunes the request pipeline.
type HTTPConfig struct {
	// Timeout bounds a single attempt, not the whole call.
	Timeout     time.Duration   `koanf:"timeout" json:"timeout" validate:"gt=0"`
	Backoff     BackoffConfig   `koanf:"backoff" json:"backoff"`
	RateLimit   RateLimitConfig `koanf:"ratelimit" json:"rateLimit"`
	Compression bool            `koanf:"compression" json:"compression"`
}

// BackoffConfig sets the length of one backoff unit. The delay grows in
// whole units: 2, 4, 8... plus up to a quarter of that as jitter.
type BackoffConfig struct {
	Unit time.Duration `koanf:"unit" json:"unit" validate:"gt=0"`
}

// RateLimitConfig paces attempts client side. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `koanf:"rps" json:"rps" validate:"gte=0"`
	Burst int     `koanf:"burst" json:"burst" validate:"gte=0"`
}

type NetworkConfig struct {
	Probe ProbeConfig `koanf:"probe" json:"probe"`
}

type ProbeConfig struct {
	Interval time.Duration `koanf:"interval" json:"interval" validate:"gt=0"`
	Timeout  time.Duration `koanf:"timeout" json:"timeout" validate:"gt=0"`
}

// IsDevelopment reports whether the development URL profile is active.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == EnvDevelopment
}
