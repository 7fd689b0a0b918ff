package router

import (
	"errors"
	"strings"

	"github.com/lox/blackjackbot/internal/ledger"
)

// Command is a chat command the router understands.
type Command int

const (
	CmdUnknown Command = iota
	CmdBlackjack
	CmdNewTable
	CmdJoin
	CmdBet
	CmdDeal
	CmdHit
	CmdStay
	CmdSettle
	CmdAbandon
	CmdBalance
	CmdRegister
	CmdReset
	CmdLeaderboard
	CmdTable
	CmdHelp
)

var commandNames = map[Command]string{
	CmdUnknown:     "unknown",
	CmdBlackjack:   "blackjack",
	CmdNewTable:    "new",
	CmdJoin:        "join",
	CmdBet:         "bet",
	CmdDeal:        "deal",
	CmdHit:         "hit",
	CmdStay:        "stay",
	CmdSettle:      "settle",
	CmdAbandon:     "abandon",
	CmdBalance:     "balance",
	CmdRegister:    "register",
	CmdReset:       "reset",
	CmdLeaderboard: "leaderboard",
	CmdTable:       "table",
	CmdHelp:        "help",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

var aliases = map[string]Command{
	"blackjack":   CmdBlackjack,
	"bj":          CmdBlackjack,
	"join":        CmdJoin,
	"bet":         CmdBet,
	"deal":        CmdDeal,
	"hit":         CmdHit,
	"stay":        CmdStay,
	"stand":       CmdStay,
	"settle":      CmdSettle,
	"abandon":     CmdAbandon,
	"leave":       CmdAbandon,
	"balance":     CmdBalance,
	"bal":         CmdBalance,
	"register":    CmdRegister,
	"reset":       CmdReset,
	"leaderboard": CmdLeaderboard,
	"lb":          CmdLeaderboard,
	"table":       CmdTable,
	"status":      CmdTable,
	"help":        CmdHelp,
}

var (
	// ErrNotCommand is returned for chat text that is not addressed to the
	// bot at all.
	ErrNotCommand = errors.New("not a command")
	// ErrUnknownCommand is returned for "!" text the bot does not know.
	ErrUnknownCommand = errors.New("unknown command")
)

// Intent is a parsed chat command.
type Intent struct {
	Command Command
	// Wager is set for !blackjack and !bet; HasWager is false when
	// !blackjack was given no amount.
	Wager    ledger.Wager
	HasWager bool
	// Target is the table or identity named by !join or !balance.
	Target string
}

// ParseIntent turns chat text into an Intent. Malformed amounts fail with
// ledger.ErrInvalidWager.
func ParseIntent(text string) (Intent, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "!") {
		return Intent{}, ErrNotCommand
	}
	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return Intent{}, ErrUnknownCommand
	}
	cmd, ok := aliases[strings.ToLower(fields[0])]
	if !ok {
		return Intent{}, ErrUnknownCommand
	}
	args := fields[1:]
	intent := Intent{Command: cmd}

	switch cmd {
	case CmdBlackjack:
		if len(args) == 0 {
			return intent, nil
		}
		if strings.EqualFold(args[0], "new") {
			intent.Command = CmdNewTable
			return intent, nil
		}
		return withWager(intent, args[0])
	case CmdBet:
		if len(args) == 0 {
			return Intent{}, ledger.ErrInvalidWager
		}
		return withWager(intent, args[0])
	case CmdJoin, CmdBalance:
		if len(args) > 0 {
			intent.Target = strings.TrimPrefix(args[0], "@")
		}
	}
	return intent, nil
}

func withWager(intent Intent, arg string) (Intent, error) {
	w, err := ledger.ParseWager(arg)
	if err != nil {
		return Intent{}, err
	}
	intent.Wager = w
	intent.HasWager = true
	return intent, nil
}
