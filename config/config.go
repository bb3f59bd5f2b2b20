package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// AppName doubles as the database schema name for the app.
const AppName = "tripsplit"

type Config struct {
	Port      string        `env:"PORT" envDefault:"8080"`
	JWTSecret string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from env: %w", err)
	}
	return cfg, nil
}
