package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackbot/internal/game"
	"github.com/lox/blackjackbot/internal/ledger"
	"github.com/lox/blackjackbot/internal/shoe"
)

var (
	alice = game.Identity{ID: "alice", Name: "Alice"}
	bob   = game.Identity{ID: "bob", Name: "Bob"}
	carol = game.Identity{ID: "carol", Name: "Carol"}
)

func lobby(bank ledger.Ledger, owner game.Identity) func(id string) (*game.Game, error) {
	return func(id string) (*game.Game, error) {
		return game.New(owner, bank, true, game.WithID(id)), nil
	}
}

func TestRegistryOneGamePerIdentity(t *testing.T) {
	t.Parallel()
	bank := ledger.NewMemory(ledger.DefaultPolicy())
	r := NewRegistry(quartz.NewMock(t), 0, nil)

	g, err := r.Create(alice, lobby(bank, alice))
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	got, ok := r.Lookup(alice.ID)
	require.True(t, ok)
	assert.Same(t, g, got)

	_, err = r.Create(alice, lobby(bank, alice))
	assert.ErrorIs(t, err, ErrAlreadyPlaying)

	_, err = r.Join(g.ID(), bob)
	require.NoError(t, err)
	_, err = r.Join(alice.ID, bob)
	assert.ErrorIs(t, err, game.ErrAlreadyJoined)

	_, err = r.Create(carol, lobby(bank, carol))
	require.NoError(t, err)
	_, err = r.Join(carol.ID, bob)
	assert.ErrorIs(t, err, ErrAlreadyPlaying)

	_, err = r.Join("nobody", carol)
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestRegistryJoinByUpperCaseID(t *testing.T) {
	t.Parallel()
	bank := ledger.NewMemory(ledger.DefaultPolicy())
	r := NewRegistry(nil, 0, nil)

	g, err := r.Create(alice, lobby(bank, alice))
	require.NoError(t, err)

	joined, err := r.Join(" "+upper(g.ID())+" ", bob)
	require.NoError(t, err)
	assert.Same(t, g, joined)
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func TestRegistryReleasesFailedCreate(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil, 0, nil)
	boom := errors.New("boom")

	_, err := r.Create(alice, func(string) (*game.Game, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	_, ok := r.Lookup(alice.ID)
	assert.False(t, ok)

	_, err = r.Create(alice, lobby(ledger.NewMemory(ledger.DefaultPolicy()), alice))
	assert.NoError(t, err)
}

func TestRegistryRetireFreesEveryone(t *testing.T) {
	t.Parallel()
	bank := ledger.NewMemory(ledger.DefaultPolicy())
	r := NewRegistry(nil, 0, nil)

	g, err := r.Create(alice, lobby(bank, alice))
	require.NoError(t, err)
	_, err = r.Join(alice.ID, bob)
	require.NoError(t, err)

	assert.True(t, r.Retire(g.ID()))
	assert.False(t, r.Retire(g.ID()))
	_, ok := r.Lookup(alice.ID)
	assert.False(t, ok)
	_, ok = r.Lookup(bob.ID)
	assert.False(t, ok)
	assert.Zero(t, r.Len())
}

func TestRegistryLeave(t *testing.T) {
	t.Parallel()
	bank := ledger.NewMemory(ledger.DefaultPolicy())
	r := NewRegistry(nil, 0, nil)

	g, err := r.Create(alice, lobby(bank, alice))
	require.NoError(t, err)
	_, err = r.Join(alice.ID, bob)
	require.NoError(t, err)

	r.Leave(bob.ID)
	_, ok := r.Lookup(bob.ID)
	assert.False(t, ok)

	// Retiring afterwards must not need bob.
	assert.True(t, r.Retire(g.ID()))
}

func TestRegistrySweepsIdleTables(t *testing.T) {
	t.Parallel()
	bank := ledger.NewMemory(ledger.DefaultPolicy())
	clock := quartz.NewMock(t)
	r := NewRegistry(clock, 10*time.Minute, nil)

	idle, err := r.Create(alice, lobby(bank, alice))
	require.NoError(t, err)
	_, err = r.Create(bob, lobby(bank, bob))
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)
	assert.Empty(t, r.Sweep())
	r.Touch(bob.ID)

	clock.Advance(5 * time.Minute)
	assert.Equal(t, []string{idle.ID()}, r.Sweep())
	_, ok := r.Lookup(alice.ID)
	assert.False(t, ok)
	_, ok = r.Lookup(bob.ID)
	assert.True(t, ok)
}

func TestRegistrySweepKeepsDealtRounds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	bank := ledger.NewMemory(ledger.DefaultPolicy())
	clock := quartz.NewMock(t)
	r := NewRegistry(clock, 10*time.Minute, nil)

	// Dealer 16, Alice 15: nobody is resolved by the deal.
	g, err := r.Create(alice, func(id string) (*game.Game, error) {
		return game.New(alice, bank, true, game.WithID(id), game.WithShoe(shoe.NewStacked(10, 6, 10, 5, 10))), nil
	})
	require.NoError(t, err)
	_, err = g.StartRound(ctx, alice.ID)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	assert.Empty(t, r.Sweep())
	_, ok := r.Lookup(alice.ID)
	assert.True(t, ok)

	_, err = g.Hit(ctx, alice.ID)
	require.NoError(t, err)
	bal, err := bank.Balance(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(290), bal)

	assert.Equal(t, []string{g.ID()}, r.Sweep())
	assert.True(t, g.Finished())
}

func TestRegistrySweepDisabled(t *testing.T) {
	t.Parallel()
	clock := quartz.NewMock(t)
	r := NewRegistry(clock, 0, nil)

	_, err := r.Create(alice, lobby(ledger.NewMemory(ledger.DefaultPolicy()), alice))
	require.NoError(t, err)
	clock.Advance(24 * time.Hour)
	assert.Empty(t, r.Sweep())
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRunStopsWithContext(t *testing.T) {
	t.Parallel()
	r := NewRegistry(quartz.NewMock(t), time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
