// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the server needs to wire the stores.
type Config struct {
	EconomyDBPath   string        `env:"ECONOMY_DB_PATH" envDefault:"data/economy.db"`
	CooldownDBPath  string        `env:"COOLDOWN_DB_PATH" envDefault:"data/cooldowns.db"`
	StartingBalance int64         `env:"STARTING_BALANCE" envDefault:"250"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" envDefault:"10m"`
	Port            int           `env:"HTTP_PORT" envDefault:"8080"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges. A zero SweepInterval disables the sweeper.
func (c Config) Validate() error {
	var errs []error
	if c.EconomyDBPath == "" {
		errs = append(errs, errors.New("economy database path is required"))
	}
	if c.CooldownDBPath == "" {
		errs = append(errs, errors.New("cooldown database path is required"))
	}
	if c.EconomyDBPath != "" && c.EconomyDBPath != ":memory:" && c.EconomyDBPath == c.CooldownDBPath {
		errs = append(errs, errors.New("economy and cooldown stores must use separate files"))
	}
	if c.StartingBalance < 0 {
		errs = append(errs, fmt.Errorf("starting balance must not be negative, got %d", c.StartingBalance))
	}
	if c.SweepInterval < 0 {
		errs = append(errs, fmt.Errorf("sweep interval must not be negative, got %s", c.SweepInterval))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	return errors.Join(errs...)
}
