package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/junii03/banking-ledger/internal/errors"
	"github.com/junii03/banking-ledger/internal/models"
)

// TransactionRepository is the append-only transaction store.
type TransactionRepository interface {
	Create(ctx context.Context, transaction *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)
	FindReversal(ctx context.Context, originalID string) (*models.Transaction, error)
	GetAccountHistory(ctx context.Context, accountID string, filter HistoryFilter) ([]*models.Transaction, error)
	GetMonthlySummary(ctx context.Context, accountID string, year int, month time.Month, loc *time.Location) ([]models.SummaryRow, error)
	SumCompleted(ctx context.Context, accountID string, from, to time.Time) (decimal.Decimal, error)
}

// HistoryFilter narrows an account history query. Zero values are ignored.
type HistoryFilter struct {
	Limit  int
	Skip   int
	From   time.Time
	To     time.Time
	Type   models.TransactionType
	Status models.TransactionStatus
}

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// Normalize clamps Limit and Skip into their accepted range.
func (f HistoryFilter) Normalize() HistoryFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultHistoryLimit
	}
	if f.Limit > MaxHistoryLimit {
		f.Limit = MaxHistoryLimit
	}
	if f.Skip < 0 {
		f.Skip = 0
	}
	return f
}

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

const transactionColumns = `t.id, t.transaction_ref, t.type, t.from_account_id, t.to_account_id,
	t.amount, t.currency, t.exchange_rate, t.from_balance_before, t.from_balance_after,
	t.to_balance_before, t.to_balance_after, t.status, t.description, t.channel, t.fees,
	t.risk_score, t.failure_reason, t.reversal_of, rev.id, t.created_at, t.completed_at`

// reversedByJoin derives reversedBy from the completed reversal pointing at a row.
const reversedByJoin = `FROM transactions t
	LEFT JOIN transactions rev ON rev.reversal_of = t.id AND rev.status = 'completed'`

func (r *PostgresTransactionRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	return insertTransaction(ctx, r.db, transaction)
}

func (r *PostgresTransactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.ErrTransactionNotFound
	}
	query := `SELECT ` + transactionColumns + ` ` + reversedByJoin + ` WHERE t.id = $1`
	return r.getOne(ctx, "get transaction by ID", query, id)
}

func (r *PostgresTransactionRepository) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` ` + reversedByJoin + ` WHERE t.transaction_ref = $1`
	return r.getOne(ctx, "get transaction by reference", query, reference)
}

func (r *PostgresTransactionRepository) FindReversal(ctx context.Context, originalID string) (*models.Transaction, error) {
	if _, err := uuid.Parse(originalID); err != nil {
		return nil, errors.ErrTransactionNotFound
	}
	query := `SELECT ` + transactionColumns + ` ` + reversedByJoin + `
		WHERE t.reversal_of = $1 AND t.status = 'completed'`
	return r.getOne(ctx, "find reversal", query, originalID)
}

func (r *PostgresTransactionRepository) getOne(ctx context.Context, op, query string, arg any) (*models.Transaction, error) {
	transaction, err := scanTransaction(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return transaction, nil
}

func (r *PostgresTransactionRepository) GetAccountHistory(ctx context.Context, accountID string, filter HistoryFilter) ([]*models.Transaction, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return nil, nil
	}
	filter = filter.Normalize()

	conds := []string{"(t.from_account_id = $1 OR t.to_account_id = $1)"}
	args := []any{accountID}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if !filter.From.IsZero() {
		add("t.created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("t.created_at < $%d", filter.To)
	}
	if filter.Type != "" {
		add("t.type = $%d", filter.Type)
	}
	if filter.Status != "" {
		add("t.status = $%d", filter.Status)
	}
	args = append(args, filter.Limit, filter.Skip)

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY t.created_at DESC, t.transaction_ref DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, reversedByJoin, strings.Join(conds, " AND "), len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get account history: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, transaction)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}
	return transactions, nil
}

func (r *PostgresTransactionRepository) GetMonthlySummary(ctx context.Context, accountID string, year int, month time.Month, loc *time.Location) ([]models.SummaryRow, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return nil, nil
	}
	from, to := MonthBounds(year, month, loc)
	query := `SELECT type, COALESCE(SUM(amount), 0), COUNT(*)
		FROM transactions
		WHERE (from_account_id = $1 OR to_account_id = $1)
			AND status = 'completed' AND created_at >= $2 AND created_at < $3
		GROUP BY type
		ORDER BY type`

	rows, err := r.db.QueryContext(ctx, query, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly summary: %w", err)
	}
	defer rows.Close()

	summary := []models.SummaryRow{}
	for rows.Next() {
		var row models.SummaryRow
		if err := rows.Scan(&row.Type, &row.TotalAmount, &row.Count); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		summary = append(summary, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over summary rows: %w", err)
	}
	return summary, nil
}

func (r *PostgresTransactionRepository) SumCompleted(ctx context.Context, accountID string, from, to time.Time) (decimal.Decimal, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return decimal.Zero, nil
	}
	query := `SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE (from_account_id = $1 OR to_account_id = $1)
			AND status = 'completed' AND created_at >= $2 AND created_at < $3`

	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, accountID, from, to).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum completed transactions: %w", err)
	}
	return total, nil
}

// MonthBounds returns [first instant of month, first instant of next month) in loc.
func MonthBounds(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	from := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 1, 0)
}

func insertTransaction(ctx context.Context, q querier, transaction *models.Transaction) error {
	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}

	query := `INSERT INTO transactions (id, transaction_ref, type, from_account_id, to_account_id,
			amount, currency, exchange_rate, from_balance_before, from_balance_after,
			to_balance_before, to_balance_after, status, description, channel, fees,
			risk_score, failure_reason, reversal_of, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	var riskScore sql.NullFloat64
	if transaction.RiskScore != nil {
		riskScore = sql.NullFloat64{Float64: *transaction.RiskScore, Valid: true}
	}
	var completedAt sql.NullTime
	if transaction.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *transaction.CompletedAt, Valid: true}
	}

	_, err := q.ExecContext(ctx, query,
		transaction.ID,
		transaction.TransactionID,
		transaction.Type,
		nullString(transaction.FromAccountID),
		nullString(transaction.ToAccountID),
		transaction.Amount,
		transaction.Currency,
		transaction.ExchangeRate,
		nullDecimal(transaction.FromBalanceBefore),
		nullDecimal(transaction.FromBalanceAfter),
		nullDecimal(transaction.ToBalanceBefore),
		nullDecimal(transaction.ToBalanceAfter),
		transaction.Status,
		transaction.Description,
		transaction.Channel,
		transaction.Fees,
		riskScore,
		nullString(transaction.FailureReason),
		nullString(transaction.ReversalOf),
		transaction.CreatedAt,
		completedAt,
	)
	if err != nil {
		return translateError("failed to create transaction", err)
	}
	return nil
}

func scanTransaction(row scanner) (*models.Transaction, error) {
	var (
		transaction            models.Transaction
		fromAccount, toAccount sql.NullString
		failureReason          sql.NullString
		reversalOf, reversedBy sql.NullString
		fromBefore, fromAfter  decimal.NullDecimal
		toBefore, toAfter      decimal.NullDecimal
		riskScore              sql.NullFloat64
		completedAt            sql.NullTime
	)
	err := row.Scan(
		&transaction.ID,
		&transaction.TransactionID,
		&transaction.Type,
		&fromAccount,
		&toAccount,
		&transaction.Amount,
		&transaction.Currency,
		&transaction.ExchangeRate,
		&fromBefore,
		&fromAfter,
		&toBefore,
		&toAfter,
		&transaction.Status,
		&transaction.Description,
		&transaction.Channel,
		&transaction.Fees,
		&riskScore,
		&failureReason,
		&reversalOf,
		&reversedBy,
		&transaction.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	transaction.FromAccountID = fromAccount.String
	transaction.ToAccountID = toAccount.String
	transaction.FailureReason = failureReason.String
	transaction.ReversalOf = reversalOf.String
	transaction.ReversedBy = reversedBy.String
	transaction.FromBalanceBefore = decimalPtr(fromBefore)
	transaction.FromBalanceAfter = decimalPtr(fromAfter)
	transaction.ToBalanceBefore = decimalPtr(toBefore)
	transaction.ToBalanceAfter = decimalPtr(toAfter)
	if riskScore.Valid {
		score := riskScore.Float64
		transaction.RiskScore = &score
	}
	if completedAt.Valid {
		t := completedAt.Time
		transaction.CompletedAt = &t
	}
	return &transaction, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
