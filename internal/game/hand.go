package game

import "github.com/lox/blackjackbot/internal/shoe"

const (
	// Goal is the total every hand is trying to reach.
	Goal = 21
	// DealerStandsOn is the total at or above which the dealer stops drawing.
	DealerStandsOn = 17

	aceDemotion = shoe.Ace - 1
)

// Hand holds the card values dealt to one participant. Drawn values are
// never rewritten: an ace reinterpreted as 1 is tracked as a demotion count
// and applied when the total is computed.
type Hand struct {
	cards   []int
	demoted int
}

// Add appends a dealt card. If the hand would bust and still has an ace
// counted as 11, exactly one such ace is demoted to 1. It reports whether a
// demotion happened.
func (h *Hand) Add(card int) bool {
	h.cards = append(h.cards, card)
	if h.Total() > Goal && h.demoted < h.aces() {
		h.demoted++
		return true
	}
	return false
}

// Reset empties the hand for a new round.
func (h *Hand) Reset() {
	h.cards = h.cards[:0]
	h.demoted = 0
}

func (h Hand) aces() int {
	n := 0
	for _, c := range h.cards {
		if c == shoe.Ace {
			n++
		}
	}
	return n
}

// rawTotal is the sum of the values as drawn, every ace counted as 11.
func (h Hand) rawTotal() int {
	sum := 0
	for _, c := range h.cards {
		sum += c
	}
	return sum
}

// Total is the effective total after demotions.
func (h Hand) Total() int {
	return h.rawTotal() - aceDemotion*h.demoted
}

// Busted reports whether the effective total exceeds 21.
func (h Hand) Busted() bool { return h.Total() > Goal }

// Natural reports whether the effective total is exactly 21.
func (h Hand) Natural() bool { return h.Total() == Goal }

// Soft reports whether an ace is still being counted as 11.
func (h Hand) Soft() bool { return h.demoted < h.aces() }

// Demoted returns how many aces are being counted as 1.
func (h Hand) Demoted() int { return h.demoted }

// Len returns the number of cards in the hand.
func (h Hand) Len() int { return len(h.cards) }

// Cards returns the values as drawn.
func (h Hand) Cards() []int {
	out := make([]int, len(h.cards))
	copy(out, h.cards)
	return out
}

// Values returns the effective value of each card in draw order; the
// earliest aces are the ones shown as demoted.
func (h Hand) Values() []int {
	out := h.Cards()
	left := h.demoted
	for i, c := range out {
		if left == 0 {
			break
		}
		if c == shoe.Ace {
			out[i] = 1
			left--
		}
	}
	return out
}
