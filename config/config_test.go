package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/economy.db", cfg.EconomyDBPath)
	assert.Equal(t, "data/cooldowns.db", cfg.CooldownDBPath)
	assert.Equal(t, int64(250), cfg.StartingBalance)
	assert.Equal(t, 10*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("ECONOMY_DB_PATH", "/var/lib/bot/economy.db")
	t.Setenv("COOLDOWN_DB_PATH", "/var/lib/bot/cooldowns.db")
	t.Setenv("STARTING_BALANCE", "1000")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/bot/economy.db", cfg.EconomyDBPath)
	assert.Equal(t, "/var/lib/bot/cooldowns.db", cfg.CooldownDBPath)
	assert.Equal(t, int64(1000), cfg.StartingBalance)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 9090, cfg.Port)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("STARTING_BALANCE", "lots")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		EconomyDBPath:   "a.db",
		CooldownDBPath:  "b.db",
		StartingBalance: 250,
		SweepInterval:   time.Minute,
		Port:            8080,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing economy path", func(c *Config) { c.EconomyDBPath = "" }},
		{"shared file", func(c *Config) { c.CooldownDBPath = c.EconomyDBPath }},
		{"negative starting balance", func(c *Config) { c.StartingBalance = -1 }},
		{"negative sweep interval", func(c *Config) { c.SweepInterval = -time.Second }},
		{"port out of range", func(c *Config) { c.Port = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("both in memory", func(t *testing.T) {
		cfg := valid
		cfg.EconomyDBPath, cfg.CooldownDBPath = ":memory:", ":memory:"
		assert.NoError(t, cfg.Validate())
	})
}
