package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjackbot/internal/config"
	"github.com/lox/blackjackbot/internal/ledger"
	"github.com/lox/blackjackbot/internal/ledger/sqlite"
)

// load reads the configuration and builds the logger it asks for.
func (g *Globals) load() (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, nil, err
	}
	if g.LogLevel != "" {
		cfg.Server.LogLevel = g.LogLevel
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           cfg.Level(),
		ReportTimestamp: true,
	})
	return cfg, logger, nil
}

// openBank opens the ledger named by cfg. The returned func releases it.
func openBank(ctx context.Context, cfg *config.Config) (ledger.Bank, func() error, error) {
	switch strings.ToLower(cfg.Ledger.Driver) {
	case config.DriverMemory:
		return ledger.NewMemory(cfg.Policy()), func() error { return nil }, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.Ledger.Path, cfg.Policy())
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown ledger driver %q", cfg.Ledger.Driver)
}

// openStore opens the SQLite ledger for the ledger subcommands.
func openStore(ctx context.Context, cfg *config.Config) (*sqlite.Store, error) {
	if !strings.EqualFold(cfg.Ledger.Driver, config.DriverSQLite) {
		return nil, fmt.Errorf("ledger commands need the %s driver, config uses %s", config.DriverSQLite, cfg.Ledger.Driver)
	}
	return sqlite.Open(ctx, cfg.Ledger.Path, cfg.Policy())
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Received signal, shutting down gracefully", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
