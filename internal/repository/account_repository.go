package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/junii03/banking-ledger/internal/errors"
	"github.com/junii03/banking-ledger/internal/models"
)

type AccountRepository interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)
	GetAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error)
	ListAccountsByOwner(ctx context.Context, ownerID string) ([]*models.Account, error)
	AccountNumberExists(ctx context.Context, accountNumber string) (bool, error)
}

type PostgresAccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

const accountColumns = `id, account_number, iban, owner_id, account_type, title, currency,
	balance, available_balance, held_amount, daily_transaction_limit, monthly_transaction_limit,
	minimum_balance, status, branch_code, opening_date, interest_rate, version, created_at, updated_at`

func (r *PostgresAccountRepository) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `INSERT INTO accounts (id, account_number, iban, owner_id, account_type, title, currency,
			balance, available_balance, held_amount, daily_transaction_limit, monthly_transaction_limit,
			minimum_balance, status, branch_code, opening_date, interest_rate, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		account.ID,
		account.AccountNumber,
		account.IBAN,
		account.OwnerID,
		account.AccountType,
		account.Title,
		account.Currency,
		account.Balance,
		account.AvailableBalance,
		account.HeldAmount,
		account.DailyTransactionLimit,
		account.MonthlyTransactionLimit,
		account.MinimumBalance,
		account.Status,
		account.BranchCode,
		account.OpeningDate,
		account.InterestRate,
		account.Version,
	).Scan(&account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrAccountAlreadyExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccountByID treats an id that is not a UUID as unknown; the column is
// typed and Postgres would reject the bind with 22P02.
func (r *PostgresAccountRepository) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.ErrAccountNotFound
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by ID: %w", err)
	}
	return account, nil
}

func (r *PostgresAccountRepository) GetAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, accountNumber))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by number: %w", err)
	}
	return account, nil
}

func (r *PostgresAccountRepository) ListAccountsByOwner(ctx context.Context, ownerID string) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts by owner: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over accounts: %w", err)
	}
	return accounts, nil
}

func (r *PostgresAccountRepository) AccountNumberExists(ctx context.Context, accountNumber string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM accounts WHERE account_number = $1)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, accountNumber).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check if account number exists: %w", err)
	}

	return exists, nil
}

func scanAccount(row scanner) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(
		&account.ID,
		&account.AccountNumber,
		&account.IBAN,
		&account.OwnerID,
		&account.AccountType,
		&account.Title,
		&account.Currency,
		&account.Balance,
		&account.AvailableBalance,
		&account.HeldAmount,
		&account.DailyTransactionLimit,
		&account.MonthlyTransactionLimit,
		&account.MinimumBalance,
		&account.Status,
		&account.BranchCode,
		&account.OpeningDate,
		&account.InterestRate,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}
