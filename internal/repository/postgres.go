package repository

import (
	"context"
	"database/sql"
	_ "embed"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/junii03/banking-ledger/internal/errors"
)

//go:embed schema.sql
var schema string

// PostgreSQL error codes mapped onto ledger errors.
const (
	pqUniqueViolation      = "23505"
	pqCheckViolation       = "23514"
	pqLockNotAvailable     = "55P03"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// Constraint names declared in schema.sql.
const (
	constraintAccountNumber  = "accounts_account_number_key"
	constraintIBAN           = "accounts_iban_key"
	constraintTransactionRef = "transactions_transaction_ref_key"
	constraintReversalOf     = "transactions_reversal_of_key"
)

type scanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open establishes a connection pool to Postgres and verifies it.
func Open(ctx context.Context, cfg PostgresConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func asPQError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return pqErr, true
	}
	return nil, false
}

func isUniqueViolation(err error) bool {
	pqErr, ok := asPQError(err)
	return ok && pqErr.Code == pqUniqueViolation
}

// translateError maps driver failures onto ledger sentinels, keeping the cause.
func translateError(op string, err error) error {
	pqErr, ok := asPQError(err)
	if !ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		switch pqErr.Constraint {
		case constraintAccountNumber, constraintIBAN:
			return fmt.Errorf("%s: %w", op, errors.ErrAccountAlreadyExists)
		case constraintTransactionRef:
			return fmt.Errorf("%s: %w", op, errors.ErrDuplicateReference)
		case constraintReversalOf:
			return fmt.Errorf("%s: %w", op, errors.ErrAlreadyReversed)
		}
	case pqCheckViolation:
		return fmt.Errorf("%s: %w: %s", op, errors.ErrInsufficientFunds, pqErr.Message)
	case pqLockNotAvailable:
		return fmt.Errorf("%s: %w", op, errors.ErrBusy)
	case pqSerializationFailure, pqDeadlockDetected:
		return fmt.Errorf("%s: %w", op, errors.ErrConcurrencyConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
