package game

import (
	"context"
	"errors"
	"sync"

	"github.com/lox/blackjackbot/internal/ledger"
	"github.com/lox/blackjackbot/internal/shoe"
)

var (
	alice = Identity{ID: "alice", Name: "Alice"}
	bob   = Identity{ID: "bob", Name: "Bob"}
	carol = Identity{ID: "carol", Name: "Carol"}
)

var errLedgerOffline = errors.New("ledger offline")

// countingLedger records every applied movement and never batches, so
// tests can see each ledger call the engine makes.
type countingLedger struct {
	mu       sync.Mutex
	balances map[string]int64
	applied  map[string]int
	failFor  map[string]bool
}

func newCountingLedger() *countingLedger {
	return &countingLedger{
		balances: make(map[string]int64),
		applied:  make(map[string]int),
		failFor:  make(map[string]bool),
	}
}

func (c *countingLedger) Balance(ctx context.Context, id string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance(id), nil
}

func (c *countingLedger) balance(id string) int64 {
	b, ok := c.balances[id]
	if !ok {
		b = ledger.DefaultStartingBalance
		c.balances[id] = b
	}
	return b
}

func (c *countingLedger) Adjust(ctx context.Context, id string, delta int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failFor[id] {
		return 0, errLedgerOffline
	}
	b := c.balance(id)
	if b+delta < 0 {
		return b, &ledger.FundsError{ID: id, Balance: b, Delta: delta}
	}
	c.balances[id] = b + delta
	c.applied[id]++
	return b + delta, nil
}

func (c *countingLedger) setFailing(id string, fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failFor[id] = fail
}

func (c *countingLedger) calls(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applied[id]
}

func (c *countingLedger) get(id string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance(id)
}

func stacked(values ...int) Option {
	return WithShoe(shoe.NewStacked(values...))
}

// newTable seats alice (owner) and bob at a multiplayer table dealt from
// the given stack.
func newTable(l ledger.Ledger, values ...int) *Game {
	g := New(alice, l, true, stacked(values...))
	if err := g.AddPlayer(bob); err != nil {
		panic(err)
	}
	return g
}
