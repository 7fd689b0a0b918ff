package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/lox/blackjackbot/internal/client"
	"github.com/lox/blackjackbot/internal/game"
	"github.com/lox/blackjackbot/internal/tui"
)

var CLI struct {
	Config   string `short:"c" default:"blackjack-client.hcl" help:"Path to HCL configuration file"`
	Server   string `short:"s" help:"Server URL to connect to (overrides config)"`
	Token    string `short:"t" env:"BLACKJACK_TOKEN" help:"Bridge token (overrides config)"`
	ID       string `short:"i" help:"Account ID to play as (overrides config)"`
	Name     string `short:"n" help:"Display name (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	LogFile  string `help:"Log file path (overrides config)"`
	Plain    bool   `help:"Disable colours and borders"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("blackjack"),
		kong.Description("Terminal client for the blackjack bot"),
		kong.UsageOnError(),
	)

	cfg, err := client.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}

	if CLI.Server != "" {
		cfg.Server.URL = CLI.Server
	}
	if CLI.Token != "" {
		cfg.Server.Token = CLI.Token
	}
	if CLI.ID != "" {
		cfg.Player.ID = CLI.ID
	}
	if CLI.Name != "" {
		cfg.Player.Name = CLI.Name
	}
	if CLI.LogLevel != "" {
		cfg.UI.LogLevel = CLI.LogLevel
	}
	if CLI.LogFile != "" {
		cfg.UI.LogFile = CLI.LogFile
	}
	if CLI.Plain {
		cfg.UI.Plain = true
	}
	if cfg.Player.ID == "" {
		cfg.Player.ID = os.Getenv("USER")
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	logFile, err := os.OpenFile(cfg.UI.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Printf("Failed to open log file: %v\n", err)
		ctx.Exit(1)
	}
	defer func() { _ = logFile.Close() }()

	level, err := log.ParseLevel(cfg.UI.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger := log.NewWithOptions(logFile, log.Options{Level: level, ReportTimestamp: true})

	profile := termenv.EnvColorProfile()
	plain := cfg.UI.Plain || tui.PlainProfile(profile)
	lipgloss.SetColorProfile(profile)

	who := game.Identity{ID: cfg.Player.ID, Name: cfg.Player.Name}
	logger.Info("Starting blackjack client", "server", cfg.Server.URL, "player", who.ID, "plain", plain)

	wsClient := client.New(cfg.Server.URL, who, logger)
	wsClient.SetToken(cfg.Server.Token)
	dialCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	err = wsClient.Connect(dialCtx)
	cancel()
	if err != nil {
		fmt.Printf("Failed to connect to server: %v\n", err)
		ctx.Exit(1)
	}
	defer func() { _ = wsClient.Close() }()

	model := tui.New(wsClient, who, logger, plain)
	model.Info("Connected to " + cfg.Server.URL + " as " + who.String() + ".")
	model.Info("Type help for the command list, quit to leave. The leading ! is optional.")

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		ctx.Exit(1)
	}
}
