package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lox/blackjackbot/internal/ledger"
)

// Settle retries the settlement of a round whose ledger movements could
// not be applied. Nothing is dealt until it succeeds.
func (g *Game) Settle(ctx context.Context) (Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.finished {
		return Outcome{}, ErrGameOver
	}
	if !g.settling {
		return Outcome{}, ErrNothingToSettle
	}

	var b strings.Builder
	if err := g.settle(ctx); err != nil {
		g.writeSettleFailure(&b, err)
		return Outcome{Report: b.String()}, err
	}
	b.WriteString(settledMsg)
	return g.completeRound(&b), nil
}

func (g *Game) closeRound(ctx context.Context, b *strings.Builder) (Outcome, error) {
	if err := g.settle(ctx); err != nil {
		g.settling = true
		g.writeSettleFailure(b, err)
		return Outcome{Report: b.String()}, err
	}
	return g.completeRound(b), nil
}

// collect applies a player's result as soon as it is known. A failure is
// not fatal: the player stays unsettled and the movement is retried with
// the rest of the round.
func (g *Game) collect(ctx context.Context, p *Player) {
	delta := p.delta()
	if delta == 0 {
		p.settled = true
		return
	}
	if _, err := g.ledger.Adjust(ctx, p.Identity.ID, delta); err != nil {
		g.logger.Warn("deferring ledger movement", "player", p.Identity.ID, "delta", delta, "err", err)
		return
	}
	p.settled = true
	g.logger.Debug("ledger adjusted", "player", p.Identity.ID, "delta", delta, "result", p.Result)
}

// settle applies every outstanding movement for the round or none of
// them. Debits are checked against current balances before anything is
// written.
func (g *Game) settle(ctx context.Context) error {
	var (
		adjustments []ledger.Adjustment
		owed        []*Player
	)
	for _, p := range g.players {
		if p.settled || p.Result == Unresolved {
			continue
		}
		delta := p.delta()
		if delta == 0 {
			p.settled = true
			continue
		}
		adjustments = append(adjustments, ledger.Adjustment{ID: p.Identity.ID, Delta: delta})
		owed = append(owed, p)
	}
	if len(adjustments) == 0 {
		return nil
	}

	for _, adj := range adjustments {
		if adj.Delta >= 0 {
			continue
		}
		balance, err := g.ledger.Balance(ctx, adj.ID)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSettlementFailed, err)
		}
		if balance+adj.Delta < 0 {
			return fmt.Errorf("%w: %w", ErrSettlementFailed,
				&ledger.FundsError{ID: adj.ID, Balance: balance, Delta: adj.Delta})
		}
	}

	if batcher, ok := g.ledger.(ledger.Batcher); ok {
		if err := batcher.ApplyBatch(ctx, adjustments); err != nil {
			return fmt.Errorf("%w: %w", ErrSettlementFailed, err)
		}
		for _, p := range owed {
			p.settled = true
		}
		g.logger.Info("round settled", "movements", len(adjustments))
		return nil
	}

	for i, adj := range adjustments {
		if _, err := g.ledger.Adjust(ctx, adj.ID, adj.Delta); err != nil {
			g.compensate(ctx, owed[:i])
			return fmt.Errorf("%w: %w", ErrSettlementFailed, err)
		}
	}
	for _, p := range owed {
		p.settled = true
	}
	g.logger.Info("round settled", "movements", len(adjustments))
	return nil
}

// compensate reverses movements applied before a sequential settlement
// failed. A player whose reversal also fails is marked settled because
// their balance already reflects the result.
func (g *Game) compensate(ctx context.Context, applied []*Player) {
	for _, p := range applied {
		if _, err := g.ledger.Adjust(ctx, p.Identity.ID, -p.delta()); err != nil {
			g.logger.Error("could not reverse ledger movement", "player", p.Identity.ID, "err", err)
			p.settled = true
		}
	}
}

func (g *Game) writeSettleFailure(b *strings.Builder, err error) {
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteString("\n")
	}
	var funds *ledger.FundsError
	if errors.As(err, &funds) {
		name := funds.ID
		if p := g.find(funds.ID); p != nil {
			name = p.Identity.String()
		}
		fmt.Fprintf(b, settleFundsMsg, name, -funds.Delta)
	} else {
		b.WriteString(settleFailedMsg)
	}
	g.logger.Warn("settlement failed", "err", err)
}
