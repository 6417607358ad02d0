package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is loaded from the environment, optionally seeded from a .env file.
type Config struct {
	Port             int    `envconfig:"PORT" default:"3001"`
	Room             string `envconfig:"ROOM" default:"disaster-room"`
	FrontendURL      string `envconfig:"FRONTEND_URL"`
	LogFile          string `envconfig:"LOG_FILE" default:"chat-logs.txt"`
	DisableDiscovery bool   `envconfig:"DISABLE_DISCOVERY"`
}

func Load() (*Config, error) {
	// a missing .env file is fine, the environment still applies
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Room == "" {
		return fmt.Errorf("room cannot be empty")
	}
	if c.LogFile == "" {
		return fmt.Errorf("log file cannot be empty")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// AllowedOrigins returns the CORS allow-list: local development origins plus
// the configured frontend, if any.
func (c *Config) AllowedOrigins() []string {
	origins := []string{
		"http://localhost:5173",
		"http://localhost:3000",
	}
	if c.FrontendURL != "" {
		origins = append(origins, c.FrontendURL)
	}
	return origins
}
