package game

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lox/blackjackbot/internal/shoe"
)

const (
	dealerShowingMsg   = "The dealer is showing %d, with one card face down. "
	startingHandMsg    = "%s your starting hand consists of %s and %s. Your total is %d. "
	twoAcesMsg         = "%s your starting hand consists of two Aces. One of them will act as a 1. Your total is %d. "
	hit21Msg           = "You hit %d! You win, %s!"
	promptMsg          = "Type !hit to deal another card to yourself, or !stay to stop at your current total, %s."
	turnMsg            = "It's %s's turn. "
	dealtMsg           = "%s you were dealt %s, bringing your total to %d. "
	demotedMsg         = "To avoid busting, your Ace will be treated as a 1. Your new total is %d. "
	valuesMsg          = "Your card values are %s. The dealer is showing %d, with one card face down."
	bustMsg            = " You busted. Game over, %s."
	bustTableMsg       = " You busted, %s."
	stayedMsg          = "%s you stayed with a total of %d."
	dealerBlackjackMsg = "The dealer has blackjack! "
	dealerTotalMsg     = "The dealer has a total of %d. "
	closerWinMsg       = "You're closer to %d with a sum of %d. You win! Your winnings have been added to your balance, %s.\n"
	tieMsg             = "That ties your sum of %d. Your bet has been returned, %s.\n"
	dealerBustMsg      = "You have a sum of %d. The dealer busts. You win! Your winnings have been added to your balance, %s.\n"
	loseMsg            = "That's closer to %d than your sum of %d. You lose. Your loss has been deducted from your balance, %s.\n"
	pointlessMsg       = "Unfortunately, you bet nothing, so this was all pointless.\n"
	nextRoundMsg       = "The round is over. Type !deal to play the next round, %s."
	settledMsg         = "The round has been settled.\n"
	settleFundsMsg     = "Settlement failed: %s cannot cover a loss of %d. No balances were changed; type !settle to try again."
	settleFailedMsg    = "Settlement failed and no balances were changed; type !settle to try again."
	abortedMsg         = "The shoe ran out of cards, so this game has been ended."
)

func (g *Game) writeStartingHand(b *strings.Builder, p *Player) {
	if g.multiplayer {
		b.WriteString("\n")
	}
	cards := p.Hand.Cards()
	if p.Hand.Demoted() > 0 {
		fmt.Fprintf(b, twoAcesMsg, p.Identity, p.Hand.Total())
	} else {
		fmt.Fprintf(b, startingHandMsg, p.Identity,
			shoe.CardName(cards[0], g.rng), shoe.CardName(cards[1], g.rng), p.Hand.Total())
	}
	if p.Hand.Natural() && !g.dealer.Natural() {
		fmt.Fprintf(b, hit21Msg+" ", Goal, p.Identity)
	}
}

func (g *Game) writeTurn(b *strings.Builder, p *Player) {
	if g.multiplayer {
		if !strings.HasSuffix(b.String(), "\n") && b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(b, turnMsg, p.Identity)
	}
	fmt.Fprintf(b, promptMsg, p.Identity)
}

func (g *Game) writeHit(b *strings.Builder, p *Player, card int, demoted bool) {
	total := p.Hand.Total()
	before := total
	if demoted {
		before += aceDemotion
	}
	fmt.Fprintf(b, dealtMsg, p.Identity, shoe.CardName(card, g.rng), before)
	if demoted {
		fmt.Fprintf(b, demotedMsg, total)
	}
	fmt.Fprintf(b, valuesMsg, joinValues(p.Hand.Values()), g.dealer.cards[0])
}

func (g *Game) writeBust(b *strings.Builder, p *Player) {
	if g.multiplayer {
		fmt.Fprintf(b, bustTableMsg, p.Identity)
		return
	}
	fmt.Fprintf(b, bustMsg, p.Identity)
}

// writeResults reports the dealer's total and the result of every stayed
// player, or of everyone when the dealer was dealt blackjack.
func (g *Game) writeResults(b *strings.Builder, everyone bool) {
	dealer := g.dealer.Total()
	fmt.Fprintf(b, dealerTotalMsg, dealer)
	for _, p := range g.players {
		if !everyone && p.Status != Stayed {
			continue
		}
		total := p.Hand.Total()
		switch {
		case total > dealer:
			fmt.Fprintf(b, closerWinMsg, Goal, total, p.Identity)
		case total == dealer:
			fmt.Fprintf(b, tieMsg, total, p.Identity)
		case dealer > Goal:
			fmt.Fprintf(b, dealerBustMsg, total, p.Identity)
		default:
			fmt.Fprintf(b, loseMsg, Goal, total, p.Identity)
		}
		if p.Wager == 0 {
			b.WriteString(pointlessMsg)
		}
	}
}

func joinValues(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
