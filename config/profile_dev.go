//go:build dev

package config

// DefaultEnv is the profile used when APP_ENV is unset. Builds tagged dev
// talk to a local server over plain http.
const DefaultEnv = EnvDevelopment
