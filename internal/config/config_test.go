package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blackjack.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "localhost:8080", cfg.ListenAddress())
	assert.Equal(t, 30*time.Minute, cfg.IdleTimeout())
	assert.Equal(t, log.InfoLevel, cfg.Level())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server {
  port      = 9090
  log_level = "debug"
}

game {
  decks         = 6
  default_wager = 25
  idle_timeout  = "5m"
}

ledger {
  driver           = "memory"
  starting_balance = 1000
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Address)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, log.DebugLevel, cfg.Level())
	assert.Equal(t, 6, cfg.Game.Decks)
	assert.Equal(t, int64(25), cfg.Game.DefaultWager)
	assert.Equal(t, 7, cfg.Game.MaxPlayers)
	assert.Equal(t, 5*time.Minute, cfg.IdleTimeout())
	assert.Equal(t, DriverMemory, cfg.Ledger.Driver)
	assert.Empty(t, cfg.Ledger.Path)
	assert.Equal(t, int64(1000), cfg.Policy().StartingBalance)
	assert.Equal(t, int64(200), cfg.Policy().ResetBalance)
	assert.Len(t, cfg.GameOptions(), 4)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server {
  port = 9090
}
`)
	t.Setenv("BLACKJACK_PORT", "7070")
	t.Setenv("BLACKJACK_LEDGER_PATH", "/tmp/override.db")
	t.Setenv("BLACKJACK_DEFAULT_WAGER", "50")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/tmp/override.db", cfg.Ledger.Path)
	assert.Equal(t, int64(50), cfg.Game.DefaultWager)
}

func TestLoadRejectsBadHCL(t *testing.T) {
	path := writeConfig(t, `server { port = }`)
	_, err := Load(path)
	assert.Error(t, err)

	path = writeConfig(t, `table "main" {}`)
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"log level", func(c *Config) { c.Server.LogLevel = "loud" }},
		{"decks", func(c *Config) { c.Game.Decks = 0 }},
		{"wager", func(c *Config) { c.Game.DefaultWager = -1 }},
		{"players", func(c *Config) { c.Game.MaxPlayers = 11 }},
		{"reshuffle", func(c *Config) { c.Game.ReshuffleAt = 208 }},
		{"idle", func(c *Config) { c.Game.IdleTimeout = "soon" }},
		{"driver", func(c *Config) { c.Ledger.Driver = "postgres" }},
		{"path", func(c *Config) { c.Ledger.Path = " " }},
		{"balance", func(c *Config) { c.Ledger.ResetBalance = -1 }},
		{"leaderboard", func(c *Config) { c.Ledger.LeaderboardSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
