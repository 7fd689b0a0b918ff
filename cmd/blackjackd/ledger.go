package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lox/blackjackbot/internal/ledger"
)

// LedgerCmd groups the offline ledger tools.
type LedgerCmd struct {
	Import LedgerImportCmd `cmd:"" help:"Load balances from a legacy money.csv file"`
	Export LedgerExportCmd `cmd:"" help:"Write every balance to a money.csv file"`
	Top    LedgerTopCmd    `cmd:"" help:"Print the richest accounts"`
}

type LedgerImportCmd struct {
	File string `arg:"" type:"existingfile" help:"money.csv to import"`
}

func (c *LedgerImportCmd) Run(g *Globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	ctx := context.Background()

	accounts, err := ledger.ImportLegacyFile(c.File)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Import(ctx, accounts); err != nil {
		return err
	}
	logger.Info("Imported balances", "file", c.File, "accounts", len(accounts), "ledger", cfg.Ledger.Path)
	return nil
}

type LedgerExportCmd struct {
	File string `arg:"" help:"money.csv to write"`
}

func (c *LedgerExportCmd) Run(g *Globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	accounts, err := store.Leaderboard(ctx, 0)
	if err != nil {
		return err
	}
	if err := ledger.ExportLegacyFile(c.File, accounts); err != nil {
		return err
	}
	logger.Info("Exported balances", "file", c.File, "accounts", len(accounts))
	return nil
}

type LedgerTopCmd struct {
	Limit int `short:"n" default:"10" help:"Number of accounts to show"`
}

func (c *LedgerTopCmd) Run(g *Globals) error {
	cfg, _, err := g.load()
	if err != nil {
		return err
	}
	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	accounts, err := store.Leaderboard(ctx, c.Limit)
	if err != nil {
		return err
	}
	return printLeaderboard(os.Stdout, accounts)
}

func printLeaderboard(w io.Writer, accounts []ledger.Account) error {
	rows := make([][]string, 0, len(accounts))
	for i, a := range accounts {
		name := a.Name
		if name == "" {
			name = a.ID
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), name, strconv.FormatInt(a.Balance, 10)})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Player", "Bucks").
		Rows(rows...)
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
