package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// FileEnvVar points at an optional YAML file.
	FileEnvVar  = "KEW_CONFIG_FILE"
	defaultFile = "config.yaml"
)

// envAliases maps the short variable names used by existing deployments.
var envAliases = map[string]string{
	"MAX_RETRIES": "api.maxretries",
	"PORT":        "api.port",
}

// envSections limits which variables are read; everything else in the
// process environment is ignored.
var envSections = []string{"app.", "api.", "log.", "http.", "network.", "observability."}

type valueKind string

const (
	kindInt      valueKind = "integer"
	kindFloat    valueKind = "number"
	kindBool     valueKind = "boolean"
	kindDuration valueKind = "duration"
)

type typedKey struct {
	key  string
	kind valueKind
}

// typedKeys are checked before unmarshalling so a bad value is reported
// against its own key.
var typedKeys = []typedKey{
	{"api.maxretries", kindInt},
	{"api.port", kindInt},
	{"log.pretty", kindBool},
	{"http.timeout", kindDuration},
	{"http.backoff.unit", kindDuration},
	{"http.ratelimit.rps", kindFloat},
	{"http.ratelimit.burst", kindInt},
	{"http.compression", kindBool},
	{"network.probe.interval", kindDuration},
	{"network.probe.timeout", kindDuration},
	{"observability.enabled", kindBool},
}

// requiredKeys have no default in any profile.
var requiredKeys = []string{"api.host", "api.path", "api.maxretries"}

// Options customise Load. The zero value reads the process environment and
// ./config.yaml (or $KEW_CONFIG_FILE).
type Options struct {
	File string
	// YAML, when set, is used instead of any file.
	YAML    []byte
	Environ func() []string
}

// Load loads configuration with priority:
// 1. Environment variables (highest priority)
// 2. YAML configuration file
// 3. Default values (lowest priority)
func Load() (*Config, error) {
	return LoadWithOptions(Options{})
}

// LoadWithOptions is Load with an explicit file and environment source.
func LoadWithOptions(opts Options) (*Config, error) {
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if opts.YAML != nil {
		if err := k.Load(rawbytes.Provider(opts.YAML), yaml.Parser()); err != nil {
			return nil, NewInvalidFieldError("", fmt.Sprintf("cannot parse inline yaml: %v", err), nil)
		}
	} else if err := loadFile(k, opts.File, environ); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(".", env.Opt{
		EnvironFunc:   environ,
		TransformFunc: transformEnv,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := checkKeys(k); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, NewValidationError("", fmt.Sprintf("failed to unmarshal config: %v", err))
	}
	cfg.API.Path = normalizePath(cfg.API.Path)
	if cfg.Observability.Service.Name == "" {
		cfg.Observability.Service.Name = cfg.App.Name
	}
	if cfg.Observability.Service.Version == "" {
		cfg.Observability.Service.Version = cfg.App.Version
	}
	if cfg.Observability.Environment == "" {
		cfg.Observability.Environment = cfg.App.Env
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":    "kew",
		"app.version": "dev",
		"app.env":     DefaultEnv,

		"log.level":  "info",
		"log.pretty": false,

		"http.timeout":         "30s",
		"http.backoff.unit":    "1ms",
		"http.ratelimit.rps":   0,
		"http.ratelimit.burst": 0,
		"http.compression":     false,

		"network.probe.interval": "5s",
		"network.probe.timeout":  "2s",

		"observability.enabled": false,
	}
	return k.Load(confmap.Provider(defaults, "."), nil)
}

// loadFile loads the YAML file when present. A missing default file is not
// an error; a missing explicitly named file is.
func loadFile(k *koanf.Koanf, path string, environ func() []string) error {
	explicit := path != ""
	if !explicit {
		if v, ok := lookupEnv(environ, FileEnvVar); ok && v != "" {
			path, explicit = v, true
		} else {
			path = defaultFile
		}
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return NewInvalidFieldError(FileEnvVar, fmt.Sprintf("cannot read %s: %v", path, err), nil)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return NewInvalidFieldError(FileEnvVar, fmt.Sprintf("cannot parse %s: %v", path, err), nil)
	}
	return nil
}

// transformEnv turns API_HOST into api.host. Variables outside the known
// sections are dropped.
func transformEnv(key, value string) (string, any) {
	if alias, ok := envAliases[key]; ok {
		return alias, value
	}
	k := strings.ReplaceAll(strings.ToLower(key), "_", ".")
	for _, section := range envSections {
		if strings.HasPrefix(k, section) {
			return k, value
		}
	}
	return "", nil
}

// envVarFor is the inverse of transformEnv, used in error messages.
func envVarFor(key string) string {
	for env, alias := range envAliases {
		if alias == key {
			return env
		}
	}
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func checkKeys(k *koanf.Koanf) error {
	for _, key := range requiredKeys {
		if !k.Exists(key) || strings.TrimSpace(fmt.Sprint(k.Get(key))) == "" {
			return NewMissingFieldError(key, envVarFor(key), key)
		}
	}

	for _, tk := range typedKeys {
		if !k.Exists(tk.key) {
			continue
		}
		var err error
		raw := k.Get(tk.key)
		switch tk.kind {
		case kindInt:
			_, err = toInt(raw)
		case kindFloat:
			_, err = toFloat64(raw)
		case kindBool:
			_, err = toBool(raw)
		case kindDuration:
			_, err = toDuration(raw)
		}
		if err != nil {
			return NewInvalidFieldError(tk.key, fmt.Sprintf("expected %s, got %q (%v)", tk.kind, fmt.Sprint(raw), err), nil)
		}
	}
	return nil
}

// normalizePath yields "/v1" for "v1", "/v1/" and "/v1"; a bare "/" stays.
func normalizePath(p string) string {
	return "/" + strings.Trim(strings.TrimSpace(p), "/")
}

func lookupEnv(environ func() []string, name string) (string, bool) {
	for _, kv := range environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k == name {
			return v, true
		}
	}
	return "", false
}
