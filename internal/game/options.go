package game

import (
	"io"
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjackbot/internal/shoe"
)

const (
	// DefaultWager is the bet a player carries until they place their own.
	DefaultWager int64 = 10
	// DefaultMaxPlayers caps multiplayer tables.
	DefaultMaxPlayers = 7
	// DefaultReshuffleAt rebuilds the shoe between rounds once fewer cards
	// than this remain.
	DefaultReshuffleAt = 52
)

// Option configures a Game during creation.
type Option func(*config)

type config struct {
	id           string
	decks        int
	reshuffleAt  int
	maxPlayers   int
	defaultWager int64
	rng          *rand.Rand
	shoe         *shoe.Shoe
	logger       *log.Logger
}

func defaultConfig() *config {
	return &config{
		decks:        shoe.DefaultDecks,
		reshuffleAt:  DefaultReshuffleAt,
		maxPlayers:   DefaultMaxPlayers,
		defaultWager: DefaultWager,
	}
}

// WithID labels the game for logs and lookups.
func WithID(id string) Option {
	return func(c *config) { c.id = id }
}

// WithDecks sets the number of decks in each shoe.
func WithDecks(decks int) Option {
	return func(c *config) {
		if decks > 0 {
			c.decks = decks
		}
	}
}

// WithReshuffleAt sets the remaining-card threshold below which the shoe
// is rebuilt before a round. Zero disables reshuffling.
func WithReshuffleAt(cards int) Option {
	return func(c *config) { c.reshuffleAt = max(cards, 0) }
}

// WithMaxPlayers caps the number of seats, owner included.
func WithMaxPlayers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxPlayers = n
		}
	}
}

// WithDefaultWager sets the wager carried by players who never bet.
func WithDefaultWager(amount int64) Option {
	return func(c *config) { c.defaultWager = max(amount, 0) }
}

// WithRNG sets the random source for shoes and card names.
func WithRNG(rng *rand.Rand) Option {
	return func(c *config) { c.rng = rng }
}

// WithShoe sets the shoe used for the first round. Later rounds rebuild a
// random shoe when it runs low.
func WithShoe(s *shoe.Shoe) Option {
	return func(c *config) { c.shoe = s }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *log.Logger) Option {
	return func(c *config) { c.logger = logger }
}

func discardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}
