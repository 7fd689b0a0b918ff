// Package ledger defines the balance contract the blackjack engine settles
// against, plus the in-memory and legacy CSV implementations of it.
package ledger

import (
	"context"
	"errors"
	"fmt"
)

const (
	// DefaultStartingBalance is credited to an identity the first time it
	// is seen.
	DefaultStartingBalance int64 = 300
	// DefaultResetBalance is what Reset sets a balance to.
	DefaultResetBalance int64 = 200
	// DefaultLeaderboardSize is the number of entries shown by !leaderboard.
	DefaultLeaderboardSize = 10
)

var (
	// ErrInsufficientFunds is returned when a debit exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrUnknownAccount is returned by operations that never register.
	ErrUnknownAccount = errors.New("unknown account")
)

// Ledger is the contract consumed by the engine. Balance registers unknown
// identities with the starting balance as a side effect. Adjust must refuse
// any debit that would take the balance below zero and apply nothing.
type Ledger interface {
	Balance(ctx context.Context, id string) (int64, error)
	Adjust(ctx context.Context, id string, delta int64) (int64, error)
}

// Adjustment is one balance movement within a batch.
type Adjustment struct {
	ID    string
	Delta int64
}

// Batcher is implemented by ledgers that can apply several adjustments
// atomically. Either every adjustment is applied or none is.
type Batcher interface {
	ApplyBatch(ctx context.Context, adjustments []Adjustment) error
}

// Account is a registered balance holder.
type Account struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

// Bank is the full ledger service used by the chat router. Account looks
// an identity up without registering it and fails with ErrUnknownAccount.
type Bank interface {
	Ledger
	Account(ctx context.Context, id string) (Account, error)
	Register(ctx context.Context, id, name string) (balance int64, created bool, err error)
	Reset(ctx context.Context, id string) (int64, error)
	Leaderboard(ctx context.Context, limit int) ([]Account, error)
}

// Policy holds the balances handed out on registration and reset.
type Policy struct {
	StartingBalance int64
	ResetBalance    int64
}

// DefaultPolicy returns the stock 300 / 200 balances.
func DefaultPolicy() Policy {
	return Policy{
		StartingBalance: DefaultStartingBalance,
		ResetBalance:    DefaultResetBalance,
	}
}

// FundsError reports which account could not cover a debit.
type FundsError struct {
	ID      string
	Balance int64
	Delta   int64
}

func (e *FundsError) Error() string {
	return fmt.Sprintf("account %s: balance %d cannot cover %d", e.ID, e.Balance, -e.Delta)
}

func (e *FundsError) Unwrap() error { return ErrInsufficientFunds }

// Merge collapses adjustments so each account appears once, keeping first
// appearance order.
func Merge(adjustments []Adjustment) []Adjustment {
	index := make(map[string]int, len(adjustments))
	merged := make([]Adjustment, 0, len(adjustments))
	for _, adj := range adjustments {
		if i, ok := index[adj.ID]; ok {
			merged[i].Delta += adj.Delta
			continue
		}
		index[adj.ID] = len(merged)
		merged = append(merged, adj)
	}
	return merged
}
