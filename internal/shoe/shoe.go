// Package shoe models the pool of undealt blackjack cards for one table.
//
// Only rank values are tracked: 2 through 10, face cards as 10, and aces as
// 11. Suits never influence play, so a deck is thirteen values repeated
// once per suit.
package shoe

import (
	"errors"
	rand "math/rand/v2"
)

const (
	// Ace is the high value of an ace. Hands demote it to 1 when needed.
	Ace = 11
	// Face is the value of tens, jacks, queens and kings.
	Face = 10
	// Suits is the number of copies of each rank in a single deck.
	Suits = 4
	// DefaultDecks is the number of decks in a freshly built shoe.
	DefaultDecks = 4
)

// Ranks is the blackjack value of each of the thirteen ranks in a suit.
var Ranks = [13]int{2, 3, 4, 5, 6, 7, 8, 9, Face, Face, Face, Face, Ace}

// ErrEmptyShoe is returned when a draw is attempted with nothing left.
// Tables size their shoe so this never happens mid-round.
var ErrEmptyShoe = errors.New("shoe is empty")

// Shoe is an unordered bag of card values.
type Shoe struct {
	cards []int
	rng   *rand.Rand // nil deals in stacked order
}

// New builds a shoe holding decks full decks and draws from it using rng.
func New(decks int, rng *rand.Rand) *Shoe {
	if rng == nil {
		panic("rng is required for a random shoe")
	}
	if decks < 1 {
		decks = 1
	}
	s := &Shoe{
		cards: make([]int, 0, decks*Suits*len(Ranks)),
		rng:   rng,
	}
	for range decks * Suits {
		s.cards = append(s.cards, Ranks[:]...)
	}
	return s
}

// NewStacked returns a shoe that deals values in exactly the given order.
// It exists so scenarios can be replayed card by card.
func NewStacked(values ...int) *Shoe {
	cards := make([]int, len(values))
	copy(cards, values)
	return &Shoe{cards: cards}
}

// Draw removes one value uniformly at random and returns it.
func (s *Shoe) Draw() (int, error) {
	n := len(s.cards)
	if n == 0 {
		return 0, ErrEmptyShoe
	}

	if s.rng == nil {
		card := s.cards[0]
		s.cards = s.cards[1:]
		return card, nil
	}

	i := s.rng.IntN(n)
	card := s.cards[i]
	s.cards[i] = s.cards[n-1]
	s.cards = s.cards[:n-1]
	return card, nil
}

// Remaining returns the number of undealt cards.
func (s *Shoe) Remaining() int {
	return len(s.cards)
}

// count returns how many cards of the given value are still undealt.
func (s *Shoe) count(value int) int {
	n := 0
	for _, c := range s.cards {
		if c == value {
			n++
		}
	}
	return n
}
