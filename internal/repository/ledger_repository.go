package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/junii03/banking-ledger/internal/errors"
	"github.com/junii03/banking-ledger/internal/models"
)

// LedgerRepository applies balance-affecting writes atomically.
type LedgerRepository interface {
	Apply(ctx context.Context, write LedgerWrite) error
}

// AccountUpdate is the new balance state for one account, guarded by the
// version the caller read.
type AccountUpdate struct {
	ID               string
	ExpectedVersion  int64
	Balance          decimal.Decimal
	AvailableBalance decimal.Decimal
	HeldAmount       decimal.Decimal
	Status           models.AccountStatus
}

// LedgerWrite groups everything that must commit together: account rows,
// an optional transaction record and its audit entries.
type LedgerWrite struct {
	Accounts    []AccountUpdate
	Transaction *models.Transaction
	Audit       []*models.AuditLog
}

// UpdateFromAccount builds the guarded update for a mutated account. The
// expected version is the one the account was read at.
func UpdateFromAccount(account *models.Account) AccountUpdate {
	return AccountUpdate{
		ID:               account.ID,
		ExpectedVersion:  account.Version,
		Balance:          account.Balance,
		AvailableBalance: account.AvailableBalance,
		HeldAmount:       account.HeldAmount,
		Status:           account.Status,
	}
}

type PostgresLedgerRepository struct {
	db          *sql.DB
	lockTimeout time.Duration
}

func NewLedgerRepository(db *sql.DB, lockTimeout time.Duration) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{db: db, lockTimeout: lockTimeout}
}

func (r *PostgresLedgerRepository) Apply(ctx context.Context, write LedgerWrite) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if r.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to set lock timeout: %w", err)
		}
	}

	if err := lockAndCheckVersions(ctx, tx, write.Accounts); err != nil {
		return err
	}

	for _, update := range write.Accounts {
		if err := updateAccount(ctx, tx, update); err != nil {
			return err
		}
	}

	if write.Transaction != nil {
		if err := insertTransaction(ctx, tx, write.Transaction); err != nil {
			return err
		}
	}

	for _, log := range write.Audit {
		if err := insertAudit(ctx, tx, log); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return translateError("failed to commit transaction", err)
	}
	return nil
}

// lockAndCheckVersions takes row locks in ascending id order so that two
// writers touching the same pair never deadlock, then compares versions.
func lockAndCheckVersions(ctx context.Context, tx *sql.Tx, updates []AccountUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	ids := make([]string, 0, len(updates))
	for _, u := range updates {
		ids = append(ids, u.ID)
	}
	sort.Strings(ids)

	rows, err := tx.QueryContext(ctx,
		`SELECT id, version FROM accounts WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`,
		pq.Array(ids))
	if err != nil {
		return translateError("failed to lock accounts", err)
	}
	defer rows.Close()

	versions := make(map[string]int64, len(ids))
	for rows.Next() {
		var id string
		var version int64
		if err := rows.Scan(&id, &version); err != nil {
			return fmt.Errorf("failed to scan account version: %w", err)
		}
		versions[id] = version
	}
	if err := rows.Err(); err != nil {
		return translateError("failed to lock accounts", err)
	}

	for _, u := range updates {
		version, ok := versions[u.ID]
		if !ok {
			return errors.ErrAccountNotFound
		}
		if version != u.ExpectedVersion {
			return fmt.Errorf("account %s at version %d, expected %d: %w",
				u.ID, version, u.ExpectedVersion, errors.ErrConcurrencyConflict)
		}
	}
	return nil
}

func updateAccount(ctx context.Context, tx *sql.Tx, u AccountUpdate) error {
	query := `UPDATE accounts
		SET balance = $2, available_balance = $3, held_amount = $4, status = $5,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND version = $6`

	result, err := tx.ExecContext(ctx, query,
		u.ID, u.Balance, u.AvailableBalance, u.HeldAmount, u.Status, u.ExpectedVersion)
	if err != nil {
		return translateError("failed to update account", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errors.ErrConcurrencyConflict
	}
	return nil
}
