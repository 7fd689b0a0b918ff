// Package config loads blackjackd settings from an HCL file with
// BLACKJACK_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/blackjackbot/internal/game"
	"github.com/lox/blackjackbot/internal/ledger"
	"github.com/lox/blackjackbot/internal/shoe"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BLACKJACK_"

// Ledger drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config is the complete daemon configuration.
type Config struct {
	Server ServerSettings
	Game   GameSettings
	Ledger LedgerSettings
}

// ServerSettings configures the HTTP and websocket listener.
type ServerSettings struct {
	Address  string `hcl:"address,optional" env:"ADDRESS"`
	Port     int    `hcl:"port,optional" env:"PORT"`
	LogLevel string `hcl:"log_level,optional" env:"LOG_LEVEL"`
	// Tokens maps bridge tokens to bridge names. Empty disables auth
	// unless AuthURL is set.
	Tokens          map[string]string `hcl:"tokens,optional" env:"TOKENS"`
	AuthURL         string            `hcl:"auth_url,optional" env:"AUTH_URL"`
	AuthAdminSecret string            `hcl:"auth_admin_secret,optional" env:"AUTH_ADMIN_SECRET"`
}

// GameSettings configures every table the daemon opens.
type GameSettings struct {
	Decks        int    `hcl:"decks,optional" env:"DECKS"`
	DefaultWager int64  `hcl:"default_wager,optional" env:"DEFAULT_WAGER"`
	MaxPlayers   int    `hcl:"max_players,optional" env:"MAX_PLAYERS"`
	ReshuffleAt  int    `hcl:"reshuffle_at,optional" env:"RESHUFFLE_AT"`
	IdleTimeout  string `hcl:"idle_timeout,optional" env:"IDLE_TIMEOUT"`
	Seed         int64  `hcl:"seed,optional" env:"SEED"`
}

// LedgerSettings configures balance storage.
type LedgerSettings struct {
	Driver          string `hcl:"driver,optional" env:"LEDGER_DRIVER"`
	Path            string `hcl:"path,optional" env:"LEDGER_PATH"`
	StartingBalance int64  `hcl:"starting_balance,optional" env:"STARTING_BALANCE"`
	ResetBalance    int64  `hcl:"reset_balance,optional" env:"RESET_BALANCE"`
	LeaderboardSize int    `hcl:"leaderboard_size,optional" env:"LEADERBOARD_SIZE"`
}

type fileConfig struct {
	Server *ServerSettings `hcl:"server,block"`
	Game   *GameSettings   `hcl:"game,block"`
	Ledger *LedgerSettings `hcl:"ledger,block"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Game: GameSettings{
			Decks:        shoe.DefaultDecks,
			DefaultWager: game.DefaultWager,
			MaxPlayers:   game.DefaultMaxPlayers,
			ReshuffleAt:  game.DefaultReshuffleAt,
			IdleTimeout:  "30m",
		},
		Ledger: LedgerSettings{
			Driver:          DriverSQLite,
			Path:            "blackjack.db",
			StartingBalance: ledger.DefaultStartingBalance,
			ResetBalance:    ledger.DefaultResetBalance,
			LeaderboardSize: ledger.DefaultLeaderboardSize,
		},
	}
}

// Load reads filename, falling back to defaults when it does not exist,
// then applies environment overrides and validates the result.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename != "" {
		if err := cfg.loadFile(filename); err != nil {
			return nil, err
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(filename string) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var raw fileConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	if raw.Server != nil {
		c.Server = *raw.Server
	}
	if raw.Game != nil {
		c.Game = *raw.Game
	}
	if raw.Ledger != nil {
		c.Ledger = *raw.Ledger
	}
	return nil
}

// applyDefaults fills fields a partial file block left empty.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Server.Address == "" {
		c.Server.Address = d.Server.Address
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = d.Server.LogLevel
	}
	if c.Game.Decks == 0 {
		c.Game.Decks = d.Game.Decks
	}
	if c.Game.DefaultWager == 0 {
		c.Game.DefaultWager = d.Game.DefaultWager
	}
	if c.Game.MaxPlayers == 0 {
		c.Game.MaxPlayers = d.Game.MaxPlayers
	}
	if c.Game.ReshuffleAt == 0 {
		c.Game.ReshuffleAt = d.Game.ReshuffleAt
	}
	if c.Game.IdleTimeout == "" {
		c.Game.IdleTimeout = d.Game.IdleTimeout
	}
	if c.Ledger.Driver == "" {
		c.Ledger.Driver = d.Ledger.Driver
	}
	if c.Ledger.Path == "" && c.Ledger.Driver == DriverSQLite {
		c.Ledger.Path = d.Ledger.Path
	}
	if c.Ledger.StartingBalance == 0 {
		c.Ledger.StartingBalance = d.Ledger.StartingBalance
	}
	if c.Ledger.ResetBalance == 0 {
		c.Ledger.ResetBalance = d.Ledger.ResetBalance
	}
	if c.Ledger.LeaderboardSize == 0 {
		c.Ledger.LeaderboardSize = d.Ledger.LeaderboardSize
	}
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Server.LogLevel, err)
	}

	if c.Game.Decks < 1 || c.Game.Decks > 16 {
		return fmt.Errorf("game: decks must be between 1 and 16, got %d", c.Game.Decks)
	}
	if c.Game.DefaultWager < 0 {
		return fmt.Errorf("game: default wager must not be negative")
	}
	if c.Game.MaxPlayers < 1 || c.Game.MaxPlayers > 10 {
		return fmt.Errorf("game: max players must be between 1 and 10, got %d", c.Game.MaxPlayers)
	}
	if size := c.Game.Decks * shoe.Suits * len(shoe.Ranks); c.Game.ReshuffleAt < 0 || c.Game.ReshuffleAt >= size {
		return fmt.Errorf("game: reshuffle_at must be between 0 and %d", size-1)
	}
	if idle, err := time.ParseDuration(c.Game.IdleTimeout); err != nil || idle < 0 {
		return fmt.Errorf("game: invalid idle timeout %q", c.Game.IdleTimeout)
	}

	switch strings.ToLower(c.Ledger.Driver) {
	case DriverSQLite:
		if strings.TrimSpace(c.Ledger.Path) == "" {
			return fmt.Errorf("ledger: path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("ledger: unknown driver %q", c.Ledger.Driver)
	}
	if c.Ledger.StartingBalance < 0 || c.Ledger.ResetBalance < 0 {
		return fmt.Errorf("ledger: balances must not be negative")
	}
	if c.Ledger.LeaderboardSize < 1 {
		return fmt.Errorf("ledger: leaderboard size must be positive")
	}
	return nil
}

// ListenAddress returns host:port for the listener.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// Level returns the parsed log level.
func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.Server.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// IdleTimeout returns how long a table may sit untouched before it is
// reaped.
func (c *Config) IdleTimeout() time.Duration {
	idle, _ := time.ParseDuration(c.Game.IdleTimeout)
	return idle
}

// Policy returns the ledger balance policy.
func (c *Config) Policy() ledger.Policy {
	return ledger.Policy{
		StartingBalance: c.Ledger.StartingBalance,
		ResetBalance:    c.Ledger.ResetBalance,
	}
}

// GameOptions returns the options applied to every new table.
func (c *Config) GameOptions() []game.Option {
	return []game.Option{
		game.WithDecks(c.Game.Decks),
		game.WithMaxPlayers(c.Game.MaxPlayers),
		game.WithReshuffleAt(c.Game.ReshuffleAt),
		game.WithDefaultWager(c.Game.DefaultWager),
	}
}
