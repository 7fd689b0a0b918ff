package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is a process-local Bank. It is safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	policy   Policy
	accounts map[string]*Account
}

// NewMemory returns an empty in-memory bank.
func NewMemory(policy Policy) *Memory {
	return &Memory{
		policy:   policy,
		accounts: make(map[string]*Account),
	}
}

func (m *Memory) account(id string) *Account {
	acct, ok := m.accounts[id]
	if !ok {
		acct = &Account{ID: id, Balance: m.policy.StartingBalance}
		m.accounts[id] = acct
	}
	return acct
}

// Balance returns the balance for id, registering it if needed.
func (m *Memory) Balance(ctx context.Context, id string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.account(id).Balance, nil
}

// Account returns a copy of id's account without registering it.
func (m *Memory) Account(ctx context.Context, id string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[id]
	if !ok {
		return Account{}, fmt.Errorf("account %s: %w", id, ErrUnknownAccount)
	}
	return *acct, nil
}

// Adjust moves the balance for id by delta.
func (m *Memory) Adjust(ctx context.Context, id string, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	acct := m.account(id)
	if acct.Balance+delta < 0 {
		return acct.Balance, &FundsError{ID: id, Balance: acct.Balance, Delta: delta}
	}
	acct.Balance += delta
	return acct.Balance, nil
}

// ApplyBatch applies every adjustment or none of them.
func (m *Memory) ApplyBatch(ctx context.Context, adjustments []Adjustment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	merged := Merge(adjustments)
	for _, adj := range merged {
		acct := m.account(adj.ID)
		if acct.Balance+adj.Delta < 0 {
			return &FundsError{ID: adj.ID, Balance: acct.Balance, Delta: adj.Delta}
		}
	}
	for _, adj := range merged {
		m.accounts[adj.ID].Balance += adj.Delta
	}
	return nil
}

// Register records the display name for id and reports whether the
// account was newly created.
func (m *Memory) Register(ctx context.Context, id, name string) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	_, existed := m.accounts[id]
	acct := m.account(id)
	if name != "" {
		acct.Name = name
	}
	return acct.Balance, !existed, nil
}

// Reset sets the balance for id to the policy's reset balance.
func (m *Memory) Reset(ctx context.Context, id string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	acct := m.account(id)
	acct.Balance = m.policy.ResetBalance
	return acct.Balance, nil
}

// Leaderboard returns up to limit accounts, richest first.
func (m *Memory) Leaderboard(ctx context.Context, limit int) ([]Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	accounts := make([]Account, 0, len(m.accounts))
	for _, acct := range m.accounts {
		accounts = append(accounts, *acct)
	}
	m.mu.Unlock()

	sortAccounts(accounts)
	if limit > 0 && len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

// Load replaces the balances of the given accounts, creating them as
// needed. It is used when importing legacy balance files.
func (m *Memory) Load(accounts []Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range accounts {
		acct := a
		m.accounts[a.ID] = &acct
	}
}

func sortAccounts(accounts []Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		if accounts[i].Balance != accounts[j].Balance {
			return accounts[i].Balance > accounts[j].Balance
		}
		return accounts[i].ID < accounts[j].ID
	})
}
