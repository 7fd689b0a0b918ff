package router

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjackbot/internal/game"
	"github.com/lox/blackjackbot/internal/gameid"
)

var (
	// ErrAlreadyPlaying is returned when an identity that already belongs
	// to a game tries to create or join another.
	ErrAlreadyPlaying = errors.New("already playing a game")
	// ErrTableNotFound is returned when a join target matches no table.
	ErrTableNotFound = errors.New("table not found")
)

// Registry is the authoritative identity → game map. Each identity belongs
// to at most one game at a time.
type Registry struct {
	mu       sync.RWMutex
	byPlayer map[string]*table
	byID     map[string]*table

	ids    *gameid.Generator
	clock  quartz.Clock
	idle   time.Duration
	logger *log.Logger
}

type table struct {
	id       string
	game     *game.Game // nil while the game is being built
	members  map[string]struct{}
	lastSeen time.Time
}

// NewRegistry returns an empty registry. Games untouched for idle are
// retired by Sweep; zero disables reaping.
func NewRegistry(clock quartz.Clock, idle time.Duration, logger *log.Logger) *Registry {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Registry{
		byPlayer: make(map[string]*table),
		byID:     make(map[string]*table),
		ids:      gameid.NewGenerator(clock, nil),
		clock:    clock,
		idle:     idle,
		logger:   logger.WithPrefix("registry"),
	}
}

// Create reserves owner, builds a game with a fresh table ID and registers
// it. The reservation is released if build returns no game; a game
// returned alongside an error is still registered so the caller can
// inspect and retire it.
func (r *Registry) Create(owner game.Identity, build func(id string) (*game.Game, error)) (*game.Game, error) {
	id := r.ids.Next()
	t := &table{
		id:       id,
		members:  map[string]struct{}{owner.ID: {}},
		lastSeen: r.clock.Now(),
	}

	r.mu.Lock()
	if _, ok := r.byPlayer[owner.ID]; ok {
		r.mu.Unlock()
		return nil, ErrAlreadyPlaying
	}
	r.byPlayer[owner.ID] = t
	r.mu.Unlock()

	g, err := build(id)

	r.mu.Lock()
	defer r.mu.Unlock()
	if g == nil {
		if r.byPlayer[owner.ID] == t {
			delete(r.byPlayer, owner.ID)
		}
		return nil, err
	}
	t.game = g
	r.byID[id] = t
	r.logger.Debug("table created", "table", id, "owner", owner.ID, "multiplayer", g.Multiplayer())
	return g, err
}

// Join seats who at the table identified by target, which may be a table
// ID or the identity of anyone already seated there.
func (r *Registry) Join(target string, who game.Identity) (*game.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.resolve(target)
	if t == nil {
		return nil, ErrTableNotFound
	}
	if current, ok := r.byPlayer[who.ID]; ok {
		if current == t {
			return nil, game.ErrAlreadyJoined
		}
		return nil, ErrAlreadyPlaying
	}
	if err := t.game.AddPlayer(who); err != nil {
		return nil, err
	}
	t.members[who.ID] = struct{}{}
	t.lastSeen = r.clock.Now()
	r.byPlayer[who.ID] = t
	return t.game, nil
}

func (r *Registry) resolve(target string) *table {
	if t, ok := r.byID[gameid.Normalize(target)]; ok {
		return t
	}
	if t, ok := r.byPlayer[target]; ok && t.game != nil {
		return t
	}
	return nil
}

// Lookup returns the game playerID belongs to.
func (r *Registry) Lookup(playerID string) (*game.Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byPlayer[playerID]
	if !ok || t.game == nil {
		return nil, false
	}
	return t.game, true
}

// Touch marks playerID's game as active now.
func (r *Registry) Touch(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byPlayer[playerID]; ok {
		t.lastSeen = r.clock.Now()
	}
}

// Leave drops playerID from the map without touching the game.
func (r *Registry) Leave(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byPlayer[playerID]; ok {
		delete(t.members, playerID)
		delete(r.byPlayer, playerID)
	}
}

// Retire forgets the table and frees every identity seated at it.
func (r *Registry) Retire(tableID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[tableID]
	if !ok {
		return false
	}
	r.retire(t)
	return true
}

func (r *Registry) retire(t *table) {
	delete(r.byID, t.id)
	for id := range t.members {
		if r.byPlayer[id] == t {
			delete(r.byPlayer, id)
		}
	}
	r.logger.Debug("table retired", "table", t.id, "players", len(t.members))
}

// Len returns the number of registered tables.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Sweep retires every table idle for at least the idle timeout and
// returns their IDs. A table with a dealt or unsettled round is kept until
// the round is finished.
func (r *Registry) Sweep() []string {
	if r.idle <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	var retired []string
	for _, t := range r.byID {
		if t.game == nil || now.Sub(t.lastSeen) < r.idle {
			continue
		}
		if err := t.game.Close(); err != nil {
			r.logger.Debug("keeping idle table", "table", t.id, "reason", err)
			continue
		}
		r.retire(t)
		retired = append(retired, t.id)
	}
	if len(retired) > 0 {
		r.logger.Info("reaped idle tables", "count", len(retired), "idle", r.idle)
	}
	return retired
}

// Run sweeps on an interval until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	if r.idle <= 0 {
		<-ctx.Done()
		return nil
	}
	interval := max(r.idle/2, time.Second)
	w := r.clock.TickerFunc(ctx, interval, func() error {
		r.Sweep()
		return nil
	}, "registry", "sweep")
	err := w.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
