package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

var structValidator = newStructValidator()

// newStructValidator reports fields by their koanf key rather than the Go
// field name.
func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks struct constraints and the cross-field rules that tags
// cannot express. The first violation is returned as a *ConfigError.
func Validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return NewValidationError("", err.Error())
	}

	if cfg.IsDevelopment() && cfg.API.Port == 0 {
		return NewMissingFieldError("api.port", "PORT", "api.port")
	}
	if cfg.HTTP.RateLimit.RPS > 0 && cfg.HTTP.RateLimit.Burst == 0 {
		return NewValidationError("http.ratelimit.burst", "must be positive when http.ratelimit.rps is set")
	}
	if err := cfg.Observability.Validate(); err != nil {
		return NewValidationError("observability", err.Error())
	}
	return nil
}

func fieldError(fe validator.FieldError) *ConfigError {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required":
		return NewMissingFieldError(field, envVarFor(field), field)
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("invalid value %q", fmt.Sprint(fe.Value())), strings.Fields(fe.Param()))
	case "hostname_rfc1123|ip", "hostname_rfc1123", "ip":
		return NewValidationError(field, fmt.Sprintf("%q is not a hostname or ip address", fmt.Sprint(fe.Value())))
	default:
		if fe.Param() != "" {
			return NewValidationError(field, fmt.Sprintf("must satisfy %s=%s, got %v", fe.Tag(), fe.Param(), fe.Value()))
		}
		return NewValidationError(field, fmt.Sprintf("must satisfy %s, got %v", fe.Tag(), fe.Value()))
	}
}

func asConfigError(err error) (*ConfigError, bool) {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
