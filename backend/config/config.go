package config

import (
	"github.com/slackmoji/slackmoji/slackmoji"
)

// WebAppConfig contains web-specific configuration
type WebAppConfig struct {
	Config      *slackmoji.Config
	Debug       bool
	Environment string
}

// NewWebAppConfig creates a new web app configuration
func NewWebAppConfig(cfg *slackmoji.Config, debug bool) *WebAppConfig {
	environment := "production"
	if debug {
		environment = "development"
	}

	return &WebAppConfig{
		Config:      cfg,
		Debug:       debug,
		Environment: environment,
	}
}

// GetDatabaseConfig returns the database configuration
func (w *WebAppConfig) GetDatabaseConfig() slackmoji.DBConfig {
	return w.Config.DB
}

// GetAPIConfig returns the HTTP listener configuration
func (w *WebAppConfig) GetAPIConfig() slackmoji.APIConfig {
	return w.Config.API
}

// GetLogConfig returns the log configuration
func (w *WebAppConfig) GetLogConfig() slackmoji.LogConfig {
	return w.Config.Log
}

// CORSOrigins returns the allowed CORS origins, defaulting to localhost
// development frontends.
func (w *WebAppConfig) CORSOrigins() string {
	if w.Config.API.CORSOrigins != "" {
		return w.Config.API.CORSOrigins
	}
	return "http://localhost:3000,http://localhost:8080"
}
