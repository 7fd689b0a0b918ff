// Package sqlite provides a SQLite-backed ledger.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/lox/blackjackbot/internal/ledger"
	"github.com/lox/blackjackbot/internal/ledger/sqlite/migrations"
)

// Store persists balances in SQLite. Every method runs in its own
// transaction, so concurrent games settling against one store never
// observe partial batches.
type Store struct {
	db     *sql.DB
	policy ledger.Policy
	now    func() time.Time
}

var (
	_ ledger.Bank    = (*Store)(nil)
	_ ledger.Batcher = (*Store)(nil)
)

// Open opens (creating if needed) the ledger database at path and applies
// the embedded migrations.
func Open(ctx context.Context, path string, policy ledger.Policy) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ledger path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, policy: policy, now: time.Now}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ensure inserts id with the starting balance if it is unknown and reports
// whether it did.
func (s *Store) ensure(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	now := s.now().UTC().UnixMilli()
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO accounts (id, balance, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, s.policy.StartingBalance, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("register account %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func balanceOf(ctx context.Context, tx *sql.Tx, id string) (int64, error) {
	var balance int64
	if err := tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, id).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("account %s: %w", id, ledger.ErrUnknownAccount)
		}
		return 0, fmt.Errorf("read balance %s: %w", id, err)
	}
	return balance, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Balance returns the balance for id, registering it if unknown.
func (s *Store) Balance(ctx context.Context, id string) (int64, error) {
	var balance int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.ensure(ctx, tx, id); err != nil {
			return err
		}
		var err error
		balance, err = balanceOf(ctx, tx, id)
		return err
	})
	return balance, err
}

// Account reads id's account without registering it.
func (s *Store) Account(ctx context.Context, id string) (ledger.Account, error) {
	acct := ledger.Account{ID: id}
	err := s.db.QueryRowContext(ctx, `SELECT name, balance FROM accounts WHERE id = ?`, id).
		Scan(&acct.Name, &acct.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, fmt.Errorf("account %s: %w", id, ledger.ErrUnknownAccount)
	}
	if err != nil {
		return ledger.Account{}, fmt.Errorf("read account %s: %w", id, err)
	}
	return acct, nil
}

// Adjust moves the balance for id by delta, refusing overdrafts.
func (s *Store) Adjust(ctx context.Context, id string, delta int64) (int64, error) {
	var balance int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		balance, err = s.adjust(ctx, tx, id, delta)
		return err
	})
	return balance, err
}

func (s *Store) adjust(ctx context.Context, tx *sql.Tx, id string, delta int64) (int64, error) {
	if _, err := s.ensure(ctx, tx, id); err != nil {
		return 0, err
	}
	balance, err := balanceOf(ctx, tx, id)
	if err != nil {
		return 0, err
	}
	if balance+delta < 0 {
		return balance, &ledger.FundsError{ID: id, Balance: balance, Delta: delta}
	}
	if delta == 0 {
		return balance, nil
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE accounts SET balance = balance + ?, updated_at = ? WHERE id = ?`,
		delta, s.now().UTC().UnixMilli(), id,
	)
	if err != nil {
		if isCheckViolation(err) {
			return balance, &ledger.FundsError{ID: id, Balance: balance, Delta: delta}
		}
		return balance, fmt.Errorf("update balance %s: %w", id, err)
	}
	return balance + delta, nil
}

// ApplyBatch applies every adjustment in one transaction.
func (s *Store) ApplyBatch(ctx context.Context, adjustments []ledger.Adjustment) error {
	merged := ledger.Merge(adjustments)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, adj := range merged {
			if _, err := s.adjust(ctx, tx, adj.ID, adj.Delta); err != nil {
				return err
			}
		}
		return nil
	})
}

// Register records the display name for id and reports whether the
// account was created by this call.
func (s *Store) Register(ctx context.Context, id, name string) (int64, bool, error) {
	var (
		balance int64
		created bool
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		created, err = s.ensure(ctx, tx, id)
		if err != nil {
			return err
		}
		if name != "" {
			if _, err := tx.ExecContext(ctx,
				`UPDATE accounts SET name = ?, updated_at = ? WHERE id = ?`,
				name, s.now().UTC().UnixMilli(), id,
			); err != nil {
				return fmt.Errorf("rename account %s: %w", id, err)
			}
		}
		balance, err = balanceOf(ctx, tx, id)
		return err
	})
	return balance, created, err
}

// Reset sets the balance for id to the policy's reset balance.
func (s *Store) Reset(ctx context.Context, id string) (int64, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.ensure(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`,
			s.policy.ResetBalance, s.now().UTC().UnixMilli(), id,
		)
		if err != nil {
			return fmt.Errorf("reset account %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return s.policy.ResetBalance, nil
}

// Leaderboard returns up to limit accounts, richest first. A limit of zero
// or less returns every account.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]ledger.Account, error) {
	query := `SELECT id, name, balance FROM accounts ORDER BY balance DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []ledger.Account
	for rows.Next() {
		var a ledger.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Balance); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Import upserts accounts, overwriting balances and names.
func (s *Store) Import(ctx context.Context, accounts []ledger.Account) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		now := s.now().UTC().UnixMilli()
		for _, a := range accounts {
			if a.Balance < 0 {
				return fmt.Errorf("import %s: negative balance %d", a.ID, a.Balance)
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO accounts (id, name, balance, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT(id) DO UPDATE SET name = excluded.name, balance = excluded.balance, updated_at = excluded.updated_at`,
				a.ID, a.Name, a.Balance, now, now,
			)
			if err != nil {
				return fmt.Errorf("import %s: %w", a.ID, err)
			}
		}
		return nil
	})
}

func isCheckViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_CHECK
}
