package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidWager is returned for negative or non-numeric wagers.
var ErrInvalidWager = errors.New("invalid wager")

// Wager is either a fixed amount or the caller's whole balance. It is
// resolved to a concrete amount before any game state is touched.
type Wager struct {
	amount int64
	allIn  bool
}

// Fixed returns a wager of exactly amount.
func Fixed(amount int64) Wager { return Wager{amount: amount} }

// AllIn returns a wager of the caller's entire balance.
func AllIn() Wager { return Wager{allIn: true} }

// ParseWager accepts "all" or a base-10 integer.
func ParseWager(s string) (Wager, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "all" {
		return AllIn(), nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Wager{}, fmt.Errorf("%w: %q", ErrInvalidWager, s)
	}
	if n < 0 {
		return Wager{}, fmt.Errorf("%w: %d is negative", ErrInvalidWager, n)
	}
	return Fixed(n), nil
}

// IsAllIn reports whether the wager is the whole balance.
func (w Wager) IsAllIn() bool { return w.allIn }

// Resolve turns the wager into an amount the balance can cover.
func (w Wager) Resolve(balance int64) (int64, error) {
	if w.allIn {
		return max(balance, 0), nil
	}
	if w.amount < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrInvalidWager, w.amount)
	}
	if w.amount > balance {
		return 0, fmt.Errorf("%w: wager %d exceeds balance %d", ErrInsufficientFunds, w.amount, balance)
	}
	return w.amount, nil
}

func (w Wager) String() string {
	if w.allIn {
		return "all"
	}
	return strconv.FormatInt(w.amount, 10)
}
