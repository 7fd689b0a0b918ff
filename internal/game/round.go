package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/lox/blackjackbot/internal/ledger"
	"github.com/lox/blackjackbot/internal/shoe"
)

// StartRound deals a new round. In multiplayer games only the owner may
// deal. Every wager is checked against its balance first; if any cannot
// be covered nothing is dealt.
func (g *Game) StartRound(ctx context.Context, id string) (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case g.finished:
		return Outcome{}, ErrGameOver
	case g.settling:
		return Outcome{}, ErrSettlementPending
	case g.started:
		return Outcome{}, ErrRoundInProgress
	case g.find(id) == nil:
		return Outcome{}, ErrNotInGame
	case g.players[0].Identity.ID != id:
		return Outcome{}, ErrNotOwner
	}

	for _, p := range g.players {
		balance, err := g.ledger.Balance(ctx, p.Identity.ID)
		if err != nil {
			return Outcome{}, err
		}
		if p.Wager > balance {
			return Outcome{}, &ledger.FundsError{ID: p.Identity.ID, Balance: balance, Delta: -p.Wager}
		}
	}

	var b strings.Builder
	g.prepareShoe()
	if need := 2 + 2*len(g.players); g.shoe.Remaining() < need {
		return g.abort(&b, fmt.Errorf("deal round: %w", shoe.ErrEmptyShoe))
	}

	g.dealer.Reset()
	g.dealerDone = false
	for _, p := range g.players {
		p.resetRound()
	}

	for range 2 {
		if _, err := g.deal(&g.dealer); err != nil {
			return g.abort(&b, err)
		}
	}
	for _, p := range g.players {
		for range 2 {
			if _, err := g.deal(&p.Hand); err != nil {
				return g.abort(&b, err)
			}
		}
		p.Status = Active
	}
	g.started = true
	g.turn = 0

	g.logger.Debug("round dealt",
		"round", g.rounds+1,
		"players", len(g.players),
		"dealer_up", g.dealer.cards[0],
		"remaining", g.shoe.Remaining())

	fmt.Fprintf(&b, dealerShowingMsg, g.dealer.cards[0])
	for _, p := range g.players {
		g.writeStartingHand(&b, p)
	}

	if g.dealer.Natural() {
		for _, p := range g.players {
			if p.Hand.Natural() {
				p.Status, p.Result = Blackjack, Push
			} else {
				p.Status, p.Result = Stayed, Lose
			}
		}
		g.turn = len(g.players)
		g.dealerDone = true
		b.WriteString("\n" + dealerBlackjackMsg)
		g.writeResults(&b, true)
		return g.closeRound(ctx, &b)
	}

	for _, p := range g.players {
		if p.Hand.Natural() {
			p.Status, p.Result = Blackjack, Win
			g.collect(ctx, p)
		}
	}

	g.advanceTurn()
	if g.turn == len(g.players) {
		b.WriteString("\n")
		return g.finishRound(ctx, &b)
	}
	g.writeTurn(&b, g.players[g.turn])
	return Outcome{Report: b.String()}, nil
}

// Hit deals one card to the player whose turn it is.
func (g *Game) Hit(ctx context.Context, id string) (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, err := g.actor(id)
	if err != nil {
		return Outcome{}, err
	}

	var b strings.Builder
	card, err := g.shoe.Draw()
	if err != nil {
		return g.abort(&b, fmt.Errorf("hit: %w", err))
	}
	demoted := p.Hand.Add(card)
	g.writeHit(&b, p, card, demoted)

	switch {
	case p.Hand.Busted():
		p.Status, p.Result = Busted, Lose
		g.collect(ctx, p)
		g.writeBust(&b, p)
	case p.Hand.Natural():
		p.Status, p.Result = Blackjack, Win
		g.collect(ctx, p)
		fmt.Fprintf(&b, " "+hit21Msg, Goal, p.Identity)
	default:
		b.WriteString(" ")
		fmt.Fprintf(&b, promptMsg, p.Identity)
		return Outcome{Report: b.String()}, nil
	}
	return g.advance(ctx, &b)
}

// Stay ends the current player's turn at their present total.
func (g *Game) Stay(ctx context.Context, id string) (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, err := g.actor(id)
	if err != nil {
		return Outcome{}, err
	}
	p.Status = Stayed

	var b strings.Builder
	fmt.Fprintf(&b, stayedMsg, p.Identity, p.Hand.Total())
	return g.advance(ctx, &b)
}

// actor returns the player allowed to act, or why id may not.
func (g *Game) actor(id string) (*Player, error) {
	switch {
	case g.finished:
		return nil, ErrGameOver
	case g.settling:
		return nil, ErrSettlementPending
	case !g.started:
		return nil, ErrRoundNotStarted
	}
	p := g.find(id)
	if p == nil {
		return nil, ErrNotInGame
	}
	if g.turn < 0 || g.turn >= len(g.players) {
		return nil, fmt.Errorf("%w: %d of %d", ErrTurnOutOfRange, g.turn, len(g.players))
	}
	if g.players[g.turn] != p {
		return nil, ErrNotYourTurn
	}
	return p, nil
}

// advanceTurn moves the cursor past every player that is not Active. It
// never moves off an Active player, so repeated calls are harmless.
func (g *Game) advanceTurn() {
	for g.turn < len(g.players) && g.players[g.turn].Status != Active {
		g.turn++
	}
}

func (g *Game) advance(ctx context.Context, b *strings.Builder) (Outcome, error) {
	g.advanceTurn()
	b.WriteString("\n")
	if g.turn < len(g.players) {
		g.writeTurn(b, g.players[g.turn])
		return Outcome{Report: b.String()}, nil
	}
	return g.finishRound(ctx, b)
}

// finishRound plays the dealer out when anyone is still live, resolves the
// stayed players and settles the round.
func (g *Game) finishRound(ctx context.Context, b *strings.Builder) (Outcome, error) {
	if g.anyStayed() {
		if err := g.playDealer(); err != nil {
			return g.abort(b, err)
		}
		for _, p := range g.players {
			if p.Status == Stayed {
				p.Result = compare(p.Hand.Total(), g.dealer.Total())
			}
		}
		g.writeResults(b, false)
	}
	g.dealerDone = true
	return g.closeRound(ctx, b)
}

func (g *Game) anyStayed() bool {
	for _, p := range g.players {
		if p.Status == Stayed {
			return true
		}
	}
	return false
}

// playDealer draws while the dealer is under 17. Add demotes an ace that
// would otherwise bust, after which drawing continues.
func (g *Game) playDealer() error {
	for g.dealer.Total() < DealerStandsOn {
		if _, err := g.deal(&g.dealer); err != nil {
			return fmt.Errorf("dealer draw: %w", err)
		}
	}
	g.logger.Debug("dealer stands", "total", g.dealer.Total(), "cards", g.dealer.Len())
	return nil
}

func compare(player, dealer int) Result {
	switch {
	case player > dealer, dealer > Goal:
		return Win
	case player == dealer:
		return Push
	default:
		return Lose
	}
}

func (g *Game) deal(h *Hand) (bool, error) {
	card, err := g.shoe.Draw()
	if err != nil {
		return false, err
	}
	return h.Add(card), nil
}

// prepareShoe rebuilds the shoe between rounds once it runs low. The
// first round always uses the shoe the game was created with.
func (g *Game) prepareShoe() {
	if g.rounds == 0 {
		return
	}
	need := 2 + 2*len(g.players)
	if g.shoe.Remaining() >= max(need, g.cfg.reshuffleAt) {
		return
	}
	g.logger.Debug("reshuffling", "remaining", g.shoe.Remaining(), "decks", g.cfg.decks)
	g.shoe = shoe.New(g.cfg.decks, g.rng)
}

// abort ends the game after an invariant violation such as an exhausted
// shoe. Money already moved this round stays moved.
func (g *Game) abort(b *strings.Builder, err error) (Outcome, error) {
	g.finished = true
	g.started = false
	g.logger.Error("game aborted", "err", err)
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(abortedMsg)
	return Outcome{Report: b.String(), RoundOver: true, GameOver: true}, err
}

// completeRound finalises a settled round: single-player games finish and
// multiplayer games return to the lobby with wagers intact.
func (g *Game) completeRound(b *strings.Builder) Outcome {
	g.settling = false
	g.rounds++
	g.logger.Info("round complete", "round", g.rounds, "dealer", g.dealer.Total())

	if !g.multiplayer {
		g.finished = true
		g.started = false
		return Outcome{Report: strings.TrimRight(b.String(), "\n "), RoundOver: true, GameOver: true}
	}

	g.reset()
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteString("\n")
	}
	fmt.Fprintf(b, nextRoundMsg, g.players[0].Identity)
	return Outcome{Report: b.String(), RoundOver: true}
}

func (g *Game) reset() {
	g.started = false
	g.turn = 0
	g.dealer.Reset()
	g.dealerDone = false
	for _, p := range g.players {
		p.resetRound()
	}
}
