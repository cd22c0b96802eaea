package config

import (
	"fmt"
	"strings"
)

// Error categories.
const (
	CategoryMissing = "missing"
	CategoryInvalid = "invalid"
)

// ConfigError describes a configuration problem that prevents start-up.
// Messages are lowercase and name the key plus how to fix it.
//
//nolint:revive // exported as config.ConfigError on purpose
type ConfigError struct {
	Category string   // "missing" or "invalid"
	Field    string   // koanf key, e.g. "api.maxretries"
	Message  string
	Action   string
	Details  []string
}

func (e *ConfigError) Error() string {
	var parts []string
	if e.Category != "" {
		parts = append(parts, fmt.Sprintf("config_%s:", e.Category))
	}
	if e.Field != "" {
		parts = append(parts, e.Field)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Action != "" {
		parts = append(parts, e.Action)
	}
	if len(e.Details) > 0 {
		parts = append(parts, strings.Join(e.Details, "; "))
	}
	return strings.Join(parts, " ")
}

// NewMissingFieldError reports a required key that no source provided.
func NewMissingFieldError(field, envVar, yamlPath string) *ConfigError {
	return &ConfigError{
		Category: CategoryMissing,
		Field:    field,
		Message:  "required",
		Action:   fmt.Sprintf("set %s env var or add %s to config.yaml", envVar, yamlPath),
	}
}

// NewInvalidFieldError reports a value of the wrong type or outside its range.
func NewInvalidFieldError(field, message string, validOptions []string) *ConfigError {
	err := &ConfigError{
		Category: CategoryInvalid,
		Field:    field,
		Message:  message,
	}
	if len(validOptions) > 0 {
		err.Action = fmt.Sprintf("must be one of: %s", strings.Join(validOptions, ", "))
	}
	return err
}

func NewValidationError(field, message string) *ConfigError {
	return &ConfigError{
		Category: CategoryInvalid,
		Field:    field,
		Message:  message,
	}
}

// IsMissing reports whether err is a ConfigError for an absent key.
func IsMissing(err error) bool {
	ce, ok := asConfigError(err)
	return ok && ce.Category == CategoryMissing
}

// IsInvalid reports whether err is a ConfigError for a malformed value.
func IsInvalid(err error) bool {
	ce, ok := asConfigError(err)
	return ok && ce.Category == CategoryInvalid
}
