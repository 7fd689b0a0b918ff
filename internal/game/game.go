package game

import (
	"context"
	rand "math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjackbot/internal/ledger"
	"github.com/lox/blackjackbot/internal/randutil"
	"github.com/lox/blackjackbot/internal/shoe"
)

// Outcome is what every operation hands back to the router: the text to
// relay and whether the round or the whole game ended.
type Outcome struct {
	Report    string
	RoundOver bool
	GameOver  bool
}

// Game is a blackjack table. The owner is always players[0] and insertion
// order is turn order.
type Game struct {
	mu sync.Mutex

	id          string
	multiplayer bool
	players     []*Player
	shoe        *shoe.Shoe
	dealer      Hand

	// turn indexes the player allowed to act; len(players) means every
	// player has finished and the dealer plays.
	turn       int
	started    bool
	dealerDone bool
	settling   bool
	finished   bool
	rounds     int

	ledger ledger.Ledger
	rng    *rand.Rand
	logger *log.Logger
	cfg    *config
}

// New creates a game owned by owner. Multiplayer games start in a lobby
// where players join and bet until the owner calls StartRound; a
// single-player game created here is dealt by the first StartRound.
func New(owner Identity, l ledger.Ledger, multiplayer bool, opts ...Option) *Game {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	rng := cfg.rng
	if rng == nil {
		rng = randutil.NewUnseeded()
	}
	s := cfg.shoe
	if s == nil {
		s = shoe.New(cfg.decks, rng)
	}
	logger := cfg.logger
	if logger == nil {
		logger = discardLogger()
	}
	logger = logger.WithPrefix("game")
	if cfg.id != "" {
		logger = logger.With("game", cfg.id)
	}

	return &Game{
		id:          cfg.id,
		multiplayer: multiplayer,
		players:     []*Player{{Identity: owner, Wager: cfg.defaultWager}},
		shoe:        s,
		ledger:      l,
		rng:         rng,
		logger:      logger,
		cfg:         cfg,
	}
}

// NewSinglePlayer resolves the wager against the owner's balance and deals
// the first and only round. If the wager is invalid or unaffordable no
// game is created.
func NewSinglePlayer(ctx context.Context, owner Identity, l ledger.Ledger, wager ledger.Wager, opts ...Option) (*Game, Outcome, error) {
	balance, err := l.Balance(ctx, owner.ID)
	if err != nil {
		return nil, Outcome{}, err
	}
	amount, err := wager.Resolve(balance)
	if err != nil {
		return nil, Outcome{}, err
	}

	g := New(owner, l, false, opts...)
	g.players[0].Wager = amount
	out, err := g.StartRound(ctx, owner.ID)
	return g, out, err
}

// ID returns the label given with WithID.
func (g *Game) ID() string { return g.id }

// Owner returns the identity that created the game.
func (g *Game) Owner() Identity { return g.players[0].Identity }

// Multiplayer reports whether players may join and the game persists
// across rounds.
func (g *Game) Multiplayer() bool { return g.multiplayer }

// AddPlayer seats id at the end of the turn order. Only multiplayer games
// accept players, and only between rounds.
func (g *Game) AddPlayer(id Identity) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case !g.multiplayer:
		return ErrNotMultiplayer
	case g.finished:
		return ErrGameOver
	case g.started || g.settling:
		return ErrRoundInProgress
	case g.find(id.ID) != nil:
		return ErrAlreadyJoined
	case len(g.players) >= g.cfg.maxPlayers:
		return ErrTableFull
	}

	g.players = append(g.players, &Player{Identity: id, Wager: g.cfg.defaultWager})
	g.logger.Debug("player joined", "player", id.ID, "seats", len(g.players))
	return nil
}

// RemovePlayer takes a non-owner out of the game between rounds.
func (g *Game) RemovePlayer(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started || g.settling {
		return ErrRoundInProgress
	}
	if g.players[0].Identity.ID == id {
		return ErrNotOwner
	}
	for i, p := range g.players {
		if p.Identity.ID == id {
			g.players = append(g.players[:i], g.players[i+1:]...)
			g.logger.Debug("player left", "player", id, "seats", len(g.players))
			return nil
		}
	}
	return ErrNotInGame
}

// Close ends the game between rounds. A round that has been dealt must be
// played out and settled first, so no wager on the table is dropped.
func (g *Game) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case g.finished:
		return nil
	case g.settling:
		return ErrSettlementPending
	case g.started:
		return ErrRoundInProgress
	}
	g.finished = true
	g.logger.Debug("game closed", "rounds", g.rounds)
	return nil
}

// PlaceBet sets the wager id carries into the next round. The wager is
// resolved against the current balance before anything changes.
func (g *Game) PlaceBet(ctx context.Context, id string, wager ledger.Wager) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.find(id)
	switch {
	case p == nil:
		return 0, ErrNotInGame
	case g.finished:
		return 0, ErrGameOver
	case g.settling:
		return 0, ErrSettlementPending
	case g.started:
		return 0, ErrRoundInProgress
	}

	balance, err := g.ledger.Balance(ctx, id)
	if err != nil {
		return 0, err
	}
	amount, err := wager.Resolve(balance)
	if err != nil {
		return 0, err
	}
	p.Wager = amount
	g.logger.Debug("bet placed", "player", id, "wager", amount)
	return amount, nil
}

// IsCurrentTurn reports whether id may hit or stay right now.
func (g *Game) IsCurrentTurn(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isCurrentTurn(id)
}

func (g *Game) isCurrentTurn(id string) bool {
	return g.started && !g.settling && g.turn < len(g.players) && g.players[g.turn].Identity.ID == id
}

// CurrentPlayer returns the player whose turn it is.
func (g *Game) CurrentPlayer() (Identity, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.started || g.turn >= len(g.players) {
		return Identity{}, false
	}
	return g.players[g.turn].Identity, true
}

// Player returns a snapshot of the player with the given identity.
func (g *Game) Player(id string) (PlayerState, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.find(id)
	if p == nil {
		return PlayerState{}, false
	}
	return p.snapshot(), true
}

// Players returns snapshots of every player in turn order.
func (g *Game) Players() []PlayerState {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]PlayerState, len(g.players))
	for i, p := range g.players {
		out[i] = p.snapshot()
	}
	return out
}

// DealerState is what the table can see of the dealer. Until the dealer
// has played, Total counts only the up card and Cards is empty.
type DealerState struct {
	UpCard int
	Total  int
	Cards  []int
}

// Dealer returns the visible dealer state for the current round.
func (g *Game) Dealer() DealerState {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dealer.Len() == 0 {
		return DealerState{}
	}
	up := g.dealer.cards[0]
	if !g.dealerDone {
		return DealerState{UpCard: up, Total: up}
	}
	return DealerState{UpCard: up, Total: g.dealer.Total(), Cards: g.dealer.Cards()}
}

// Turn returns the turn cursor.
func (g *Game) Turn() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.turn
}

// Started reports whether a round is being played.
func (g *Game) Started() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.started
}

// Settling reports whether a round is waiting for Settle.
func (g *Game) Settling() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.settling
}

// Finished reports whether the game accepts no further operations.
func (g *Game) Finished() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.finished
}

// Rounds returns the number of fully settled rounds.
func (g *Game) Rounds() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rounds
}

// Remaining returns the number of cards left in the shoe.
func (g *Game) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.shoe.Remaining()
}

func (g *Game) find(id string) *Player {
	for _, p := range g.players {
		if p.Identity.ID == id {
			return p
		}
	}
	return nil
}
