package main

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjackbot/internal/auth"
	"github.com/lox/blackjackbot/internal/config"
	"github.com/lox/blackjackbot/internal/game"
	"github.com/lox/blackjackbot/internal/randutil"
	"github.com/lox/blackjackbot/internal/router"
	"github.com/lox/blackjackbot/internal/server"
)

// ServeCmd runs the websocket server and the idle table reaper.
type ServeCmd struct {
	Addr   string `short:"a" help:"Address to bind to, host:port (overrides config)"`
	Memory bool   `help:"Keep balances in memory instead of the ledger database"`
	Seed   *int64 `help:"Deterministic RNG seed for dealing (optional)"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	if err := c.apply(cfg); err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	bank, closeBank, err := openBank(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() {
		if err := closeBank(); err != nil {
			logger.Error("Failed to close ledger", "error", err)
		}
	}()

	seed := cfg.Game.Seed
	if c.Seed != nil {
		seed = *c.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
		logger.Info("Using random seed", "seed", seed)
	} else {
		logger.Info("Using deterministic seed", "seed", seed)
	}

	games := router.NewRegistry(quartz.NewReal(), cfg.IdleTimeout(), logger)
	rt := router.New(bank, games, router.Options{
		DefaultWager:    cfg.Game.DefaultWager,
		LeaderboardSize: cfg.Ledger.LeaderboardSize,
		GameOptions:     tableOptions(cfg, seed),
		Logger:          logger,
	})
	srv := server.NewServer(rt, bank, logger)
	srv.SetValidator(validator(cfg))

	logger.Info("Starting blackjack server",
		"addr", cfg.ListenAddress(),
		"ledger", cfg.Ledger.Driver,
		"decks", cfg.Game.Decks,
		"default_wager", cfg.Game.DefaultWager,
		"idle_timeout", cfg.IdleTimeout(),
		"auth", cfg.Server.AuthURL != "" || len(cfg.Server.Tokens) > 0)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return games.Run(egCtx) })
	eg.Go(func() error { return srv.Serve(egCtx, cfg.ListenAddress()) })
	eg.Go(func() error {
		<-egCtx.Done()
		logger.Info("Shutting down server...")
		return nil
	})
	return eg.Wait()
}

func (c *ServeCmd) apply(cfg *config.Config) error {
	if c.Memory {
		cfg.Ledger.Driver = config.DriverMemory
	}
	if c.Addr != "" {
		host, port, err := net.SplitHostPort(c.Addr)
		if err != nil {
			return fmt.Errorf("invalid address %q: %w", c.Addr, err)
		}
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", port, err)
		}
		cfg.Server.Address = host
		cfg.Server.Port = n
	}
	return cfg.Validate()
}

func validator(cfg *config.Config) auth.Validator {
	switch {
	case cfg.Server.AuthURL != "":
		return auth.NewHTTPValidator(cfg.Server.AuthURL, cfg.Server.AuthAdminSecret)
	case len(cfg.Server.Tokens) > 0:
		return auth.NewStaticValidator(cfg.Server.Tokens)
	}
	return auth.NoopValidator{}
}

// tableOptions hands every new table the configured rules and its own
// generator, fanned out from seed.
func tableOptions(cfg *config.Config, seed int64) func() []game.Option {
	var mu sync.Mutex
	parent := randutil.New(seed)
	return func() []game.Option {
		mu.Lock()
		tableSeed := randutil.Seed(parent)
		mu.Unlock()
		return append(cfg.GameOptions(), game.WithRNG(randutil.New(tableSeed)))
	}
}
