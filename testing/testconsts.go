package testing

import "time"

// Logger Constants
// These constants define common logger configurations used across test files.
const (
	// TestLoggerLevelDebug is the debug log level used in most tests
	TestLoggerLevelDebug = "debug"
	// TestLoggerLevelDisabled completely disables logging in tests
	TestLoggerLevelDisabled = "disabled"
)

// API Constants
// Common values for resolver and client configuration.
const (
	TestAPIHost  = "api.example.com"
	TestAPIPath  = "/v1"
	TestAPIPort  = 11434
	TestAPIToken = "Bearer test-token"
)

// OpenTelemetry Constants
const (
	TestServiceName = "test-service"
	TestMeterName   = "test-meter"
)

// Time Duration Constants
// Common time durations used in test synchronization and timeouts.
const (
	// TestEventuallyTimeout is the timeout for require.Eventually assertions (500ms)
	TestEventuallyTimeout = 500 * time.Millisecond
	// TestEventuallyTick is the polling interval for require.Eventually (10ms)
	TestEventuallyTick = 10 * time.Millisecond
)
