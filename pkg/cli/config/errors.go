package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrInvalidConfig      = goerr.New("invalid configuration")
	ErrInvalidBackend     = goerr.New("invalid repository backend")
	ErrInvalidProvider    = goerr.New("invalid LLM provider")
	ErrInvalidLogLevel    = goerr.New("invalid log level")
	ErrInvalidLogFormat   = goerr.New("invalid log format")
	ErrMissingProjectID   = goerr.New("project ID is required")
	ErrMissingDSN         = goerr.New("database DSN is required")
	ErrConfigFileNotFound = goerr.New("configuration file not found")
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
	BackendKey    = "backend"
	ProviderKey   = "provider"
	FieldKey      = "field"
	ValueKey      = "value"
)
