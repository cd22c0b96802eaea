//go:build !dev

package config

// DefaultEnv is the profile used when APP_ENV is unset.
const DefaultEnv = EnvProduction
