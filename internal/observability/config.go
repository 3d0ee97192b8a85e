// Package observability wires request logging, HTTP metrics and tracing
// middleware around the gin engine.
package observability

import (
	"os"
	"strings"

	"github.com/millwise/shopfloor/internal/config"
)

// Config holds observability settings derived from the app config plus
// environment overrides.
type Config struct {
	ServiceName string
	Environment string
	LogLevel    string

	OtelEnabled  bool
	OTLPEndpoint string
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "shopfloor"
	}
	return Config{
		ServiceName:  serviceName,
		Environment:  getenv("DEPLOYMENT_ENV", "production"),
		LogLevel:     strings.ToLower(strings.TrimSpace(cfg.LogLevel)),
		OtelEnabled:  cfg.OtelEnabled,
		OTLPEndpoint: strings.TrimSpace(cfg.OTLPEndpoint),
	}
}

func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getenv(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return def
}
