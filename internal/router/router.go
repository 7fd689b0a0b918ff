// Package router turns chat commands into blackjack game operations. It
// owns the registry that maps each identity to its game, talks to the
// ledger for account commands, and renders every error as chat text.
package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjackbot/internal/game"
	"github.com/lox/blackjackbot/internal/ledger"
)

// Reply is the router's answer to one chat message. An empty Text means
// the message was not for the bot.
type Reply struct {
	Text      string `json:"text"`
	RoundOver bool   `json:"round_over"`
	GameOver  bool   `json:"game_over"`
}

// Options tunes a Router.
type Options struct {
	DefaultWager    int64
	LeaderboardSize int
	// GameOptions returns extra options for each new game.
	GameOptions func() []game.Option
	Logger      *log.Logger
}

// Router dispatches chat commands.
type Router struct {
	bank   ledger.Bank
	games  *Registry
	opts   Options
	logger *log.Logger
}

// New returns a router backed by bank and games.
func New(bank ledger.Bank, games *Registry, opts Options) *Router {
	if opts.DefaultWager <= 0 {
		opts.DefaultWager = game.DefaultWager
	}
	if opts.LeaderboardSize <= 0 {
		opts.LeaderboardSize = ledger.DefaultLeaderboardSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Router{bank: bank, games: games, opts: opts, logger: logger.WithPrefix("router")}
}

// Registry returns the router's game registry.
func (r *Router) Registry() *Registry { return r.games }

// Handle runs one chat message from who.
func (r *Router) Handle(ctx context.Context, who game.Identity, text string) Reply {
	intent, err := ParseIntent(text)
	switch {
	case errors.Is(err, ErrNotCommand):
		return Reply{}
	case errors.Is(err, ledger.ErrInvalidWager):
		return say(invalidBetMsg, who)
	case err != nil:
		return say(unknownCommandMsg, who)
	}

	r.logger.Debug("command", "user", who.ID, "command", intent.Command)

	switch intent.Command {
	case CmdBlackjack:
		return r.blackjack(ctx, who, intent)
	case CmdNewTable:
		return r.newTable(ctx, who)
	case CmdJoin:
		return r.join(ctx, who, intent.Target)
	case CmdBet:
		return r.bet(ctx, who, intent.Wager)
	case CmdDeal:
		return r.play(who, func(g *game.Game) (game.Outcome, error) { return g.StartRound(ctx, who.ID) })
	case CmdHit:
		return r.play(who, func(g *game.Game) (game.Outcome, error) { return g.Hit(ctx, who.ID) })
	case CmdStay:
		return r.play(who, func(g *game.Game) (game.Outcome, error) { return g.Stay(ctx, who.ID) })
	case CmdSettle:
		return r.play(who, func(g *game.Game) (game.Outcome, error) { return g.Settle(ctx) })
	case CmdAbandon:
		return r.abandon(who)
	case CmdBalance:
		return r.balance(ctx, who, intent.Target)
	case CmdRegister:
		return r.register(ctx, who)
	case CmdReset:
		return r.reset(ctx, who)
	case CmdLeaderboard:
		return r.leaderboard(ctx, who)
	case CmdTable:
		return r.table(who)
	case CmdHelp:
		return Reply{Text: fmt.Sprintf(helpMsg, r.opts.DefaultWager)}
	}
	return say(unknownCommandMsg, who)
}

func (r *Router) blackjack(ctx context.Context, who game.Identity, intent Intent) Reply {
	if _, ok := r.games.Lookup(who.ID); ok {
		return say(finMsg, who)
	}
	prefix, err := r.enroll(ctx, who)
	if err != nil {
		return r.explain(who, err)
	}

	wager := ledger.Fixed(r.opts.DefaultWager)
	if intent.HasWager {
		wager = intent.Wager
	}

	var out game.Outcome
	g, err := r.games.Create(who, func(id string) (*game.Game, error) {
		g, o, err := game.NewSinglePlayer(ctx, who, r.bank, wager, r.gameOptions(id)...)
		out = o
		return g, err
	})
	if g == nil {
		return prefixed(prefix, r.explain(who, err))
	}
	return prefixed(prefix, r.finish(g, out, err, who))
}

func (r *Router) newTable(ctx context.Context, who game.Identity) Reply {
	if _, ok := r.games.Lookup(who.ID); ok {
		return say(finMsg, who)
	}
	prefix, err := r.enroll(ctx, who)
	if err != nil {
		return r.explain(who, err)
	}
	g, err := r.games.Create(who, func(id string) (*game.Game, error) {
		return game.New(who, r.bank, true, r.gameOptions(id)...), nil
	})
	if err != nil {
		return r.explain(who, err)
	}
	r.logger.Info("table opened", "table", g.ID(), "owner", who.ID)
	return prefixed(prefix, say(tableCreatedMsg, g.ID(), who))
}

func (r *Router) join(ctx context.Context, who game.Identity, target string) Reply {
	if target == "" {
		return say(joinUsageMsg, who)
	}
	prefix, err := r.enroll(ctx, who)
	if err != nil {
		return r.explain(who, err)
	}
	g, err := r.games.Join(target, who)
	switch {
	case errors.Is(err, ErrTableNotFound):
		return prefixed(prefix, say(tableNotFoundMsg, target, who))
	case errors.Is(err, game.ErrNotMultiplayer), errors.Is(err, game.ErrGameOver):
		return prefixed(prefix, say(tableNotOpenMsg, who))
	}
	if err != nil {
		return prefixed(prefix, r.explain(who, err))
	}
	p, _ := g.Player(who.ID)
	return prefixed(prefix, say(joinedMsg, who, g.Owner(), p.Wager))
}

func (r *Router) bet(ctx context.Context, who game.Identity, wager ledger.Wager) Reply {
	g, ok := r.games.Lookup(who.ID)
	if !ok || !g.Multiplayer() {
		return say(noMultiplayerGameMsg, who)
	}
	amount, err := g.PlaceBet(ctx, who.ID, wager)
	if err != nil {
		return r.explain(who, err)
	}
	r.games.Touch(who.ID)
	if wager.IsAllIn() {
		return say(allInBetMsg, amount, who)
	}
	return say(betMsg, amount, who)
}

// play runs a game operation for who and retires the game when it ends.
func (r *Router) play(who game.Identity, op func(*game.Game) (game.Outcome, error)) Reply {
	g, ok := r.games.Lookup(who.ID)
	if !ok {
		return say(noGameMsg, who)
	}
	out, err := op(g)
	r.games.Touch(who.ID)
	return r.finish(g, out, err, who)
}

func (r *Router) finish(g *game.Game, out game.Outcome, err error, who game.Identity) Reply {
	if out.GameOver {
		r.games.Retire(g.ID())
	}
	if err != nil && out.Report == "" {
		return r.explain(who, err)
	}
	if err != nil {
		r.logger.Warn("game operation failed", "table", g.ID(), "user", who.ID, "err", err)
	}
	return Reply{Text: out.Report, RoundOver: out.RoundOver, GameOver: out.GameOver}
}

func (r *Router) abandon(who game.Identity) Reply {
	g, ok := r.games.Lookup(who.ID)
	if !ok {
		return say(noGameMsg, who)
	}
	if g.Owner().ID == who.ID {
		if err := g.Close(); err != nil {
			return r.explainAbandon(who, err)
		}
		r.games.Retire(g.ID())
		r.logger.Info("table abandoned", "table", g.ID(), "owner", who.ID)
		return Reply{Text: fmt.Sprintf(abandonedMsg, who), GameOver: true}
	}
	if err := g.RemovePlayer(who.ID); err != nil {
		return r.explainAbandon(who, err)
	}
	r.games.Leave(who.ID)
	return say(leftMsg, who)
}

// explainAbandon renders a refused abandon. A dealt hand must be played out.
func (r *Router) explainAbandon(who game.Identity, err error) Reply {
	if errors.Is(err, game.ErrRoundInProgress) {
		return say(finishHandMsg, who)
	}
	return r.explain(who, err)
}

// table describes who's table: seats, the dealer's up card and whose turn
// it is.
func (r *Router) table(who game.Identity) Reply {
	g, ok := r.games.Lookup(who.ID)
	if !ok {
		return say(noGameMsg, who)
	}

	var b strings.Builder
	fmt.Fprintf(&b, tableStatusMsg, g.ID(), g.Owner(), g.Rounds())
	if d := g.Dealer(); d.UpCard != 0 {
		b.WriteString("\n")
		fmt.Fprintf(&b, dealerUpMsg, d.Total)
	}
	for _, p := range g.Players() {
		b.WriteString("\n")
		fmt.Fprintf(&b, seatMsg, p.Identity, p.Wager, p.Status)
		if len(p.Cards) > 0 {
			fmt.Fprintf(&b, seatTotalMsg, p.Total)
		}
	}
	switch current, ok := g.CurrentPlayer(); {
	case g.Settling():
		b.WriteString("\n")
		fmt.Fprintf(&b, settlementPendingMsg, who)
	case ok:
		b.WriteString("\n")
		fmt.Fprintf(&b, waitingOnMsg, current)
	}
	return Reply{Text: b.String()}
}

func (r *Router) balance(ctx context.Context, who game.Identity, target string) Reply {
	if target != "" && target != who.ID {
		acct, err := r.bank.Account(ctx, target)
		if errors.Is(err, ledger.ErrUnknownAccount) {
			return say(unknownAccountMsg, target, who)
		}
		if err != nil {
			return r.explain(who, err)
		}
		return say(balanceMsg, displayName(acct), acct.Balance)
	}
	bal, created, err := r.bank.Register(ctx, who.ID, who.Name)
	if err != nil {
		return r.explain(who, err)
	}
	if created {
		return say(newUserMsg, bal, who)
	}
	return say(balanceMsg, who, bal)
}

func (r *Router) register(ctx context.Context, who game.Identity) Reply {
	bal, created, err := r.bank.Register(ctx, who.ID, who.Name)
	if err != nil {
		return r.explain(who, err)
	}
	if created {
		return say(registeredMsg, bal, who)
	}
	return say(alreadyInMsg, bal, who)
}

func (r *Router) reset(ctx context.Context, who game.Identity) Reply {
	if _, ok := r.games.Lookup(who.ID); ok {
		return say(finMsg, who)
	}
	if _, _, err := r.bank.Register(ctx, who.ID, who.Name); err != nil {
		return r.explain(who, err)
	}
	bal, err := r.bank.Reset(ctx, who.ID)
	if err != nil {
		return r.explain(who, err)
	}
	return say(resetMsg, bal, who)
}

func (r *Router) leaderboard(ctx context.Context, who game.Identity) Reply {
	if _, _, err := r.bank.Register(ctx, who.ID, who.Name); err != nil {
		return r.explain(who, err)
	}
	all, err := r.bank.Leaderboard(ctx, 0)
	if err != nil {
		return r.explain(who, err)
	}

	var b strings.Builder
	b.WriteString(leaderboardTitle)
	for i, acct := range all {
		if i == r.opts.LeaderboardSize {
			break
		}
		fmt.Fprintf(&b, "\n%d. %s %d", i+1, displayName(acct), acct.Balance)
	}
	for i, acct := range all {
		if acct.ID == who.ID {
			b.WriteString("\n")
			fmt.Fprintf(&b, positionMsg, who, i+1, acct.Balance)
			break
		}
	}
	return Reply{Text: b.String()}
}

// enroll registers who with the bank, returning the new-user notice when
// this call created the account.
func (r *Router) enroll(ctx context.Context, who game.Identity) (string, error) {
	bal, created, err := r.bank.Register(ctx, who.ID, who.Name)
	if err != nil {
		return "", err
	}
	if created {
		return fmt.Sprintf(newUserMsg, bal, who), nil
	}
	return "", nil
}

func (r *Router) gameOptions(id string) []game.Option {
	opts := []game.Option{
		game.WithID(id),
		game.WithDefaultWager(r.opts.DefaultWager),
		game.WithLogger(r.logger),
	}
	if r.opts.GameOptions != nil {
		opts = append(opts, r.opts.GameOptions()...)
	}
	return opts
}

// explain renders err as chat text for who.
func (r *Router) explain(who game.Identity, err error) Reply {
	var funds *ledger.FundsError
	switch {
	case errors.Is(err, ErrAlreadyPlaying):
		return say(finMsg, who)
	case errors.As(err, &funds) && funds.ID != who.ID:
		return say(otherCannotCoverMsg, funds.ID, who)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return say(notEnoughMsg, who)
	case errors.Is(err, ledger.ErrInvalidWager):
		return say(invalidBetMsg, who)
	case errors.Is(err, game.ErrNotYourTurn):
		return say(notYourTurnMsg, who)
	case errors.Is(err, game.ErrNotInGame), errors.Is(err, game.ErrGameOver):
		return say(noGameMsg, who)
	case errors.Is(err, game.ErrNotMultiplayer):
		return say(noMultiplayerGameMsg, who)
	case errors.Is(err, game.ErrNotOwner):
		return say(notOwnerMsg, who)
	case errors.Is(err, game.ErrTableFull):
		return say(tableFullMsg, who)
	case errors.Is(err, game.ErrAlreadyJoined):
		return say(alreadyJoinedMsg, who)
	case errors.Is(err, game.ErrRoundInProgress):
		return say(roundInProgressMsg, who)
	case errors.Is(err, game.ErrRoundNotStarted):
		return say(roundNotStartedMsg, who)
	case errors.Is(err, game.ErrSettlementPending):
		return say(settlementPendingMsg, who)
	case errors.Is(err, game.ErrNothingToSettle):
		return say(nothingToSettleMsg, who)
	}
	r.logger.Error("unhandled error", "user", who.ID, "err", err)
	return say(errorMsg, who)
}

func say(format string, args ...any) Reply {
	return Reply{Text: fmt.Sprintf(format, args...)}
}

func prefixed(prefix string, reply Reply) Reply {
	if prefix != "" {
		reply.Text = prefix + "\n" + reply.Text
	}
	return reply
}

func displayName(acct ledger.Account) string {
	if acct.Name != "" {
		return acct.Name
	}
	return acct.ID
}
