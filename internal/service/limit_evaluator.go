package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/junii03/banking-ledger/internal/errors"
	"github.com/junii03/banking-ledger/internal/models"
	"github.com/junii03/banking-ledger/internal/repository"
)

const (
	PeriodDaily   = "daily"
	PeriodMonthly = "monthly"
)

// LimitEvaluator computes transacted totals from completed history. Both
// inbound and outbound legs count toward an account's total.
type LimitEvaluator struct {
	accounts     repository.AccountRepository
	transactions repository.TransactionRepository
	loc          *time.Location
	now          func() time.Time
}

func NewLimitEvaluator(accounts repository.AccountRepository, transactions repository.TransactionRepository, loc *time.Location, opts ...Option) *LimitEvaluator {
	if loc == nil {
		loc = time.UTC
	}
	o := buildOptions(opts)
	return &LimitEvaluator{
		accounts:     accounts,
		transactions: transactions,
		loc:          loc,
		now:          o.now,
	}
}

func (e *LimitEvaluator) CheckDailyLimit(ctx context.Context, accountID string, amount decimal.Decimal) (*models.LimitCheck, error) {
	account, err := e.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return e.daily(ctx, account, amount)
}

func (e *LimitEvaluator) CheckMonthlyLimit(ctx context.Context, accountID string, amount decimal.Decimal) (*models.LimitCheck, error) {
	account, err := e.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return e.monthly(ctx, account, amount)
}

func (e *LimitEvaluator) daily(ctx context.Context, account *models.Account, amount decimal.Decimal) (*models.LimitCheck, error) {
	now := e.now().In(e.loc)
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.loc)
	return e.evaluate(ctx, account, PeriodDaily, account.DailyTransactionLimit, since, since.AddDate(0, 0, 1), amount)
}

func (e *LimitEvaluator) monthly(ctx context.Context, account *models.Account, amount decimal.Decimal) (*models.LimitCheck, error) {
	now := e.now().In(e.loc)
	since, until := repository.MonthBounds(now.Year(), now.Month(), e.loc)
	return e.evaluate(ctx, account, PeriodMonthly, account.MonthlyTransactionLimit, since, until, amount)
}

func (e *LimitEvaluator) evaluate(ctx context.Context, account *models.Account, period string, limit decimal.Decimal, since, until time.Time, amount decimal.Decimal) (*models.LimitCheck, error) {
	total, err := e.transactions.SumCompleted(ctx, account.ID, since, until)
	if err != nil {
		return nil, fmt.Errorf("failed to sum %s activity: %w", period, err)
	}

	projected := total.Add(amount)
	check := &models.LimitCheck{
		AccountID:      account.ID,
		Period:         period,
		Limit:          limit,
		Total:          total,
		RemainingLimit: decimal.Max(decimal.Zero, limit.Sub(total)),
		ExceedsBy:      decimal.Max(decimal.Zero, projected.Sub(limit)),
		CanTransact:    projected.LessThanOrEqual(limit),
		Since:          since,
	}
	return check, nil
}

// limitError converts a failed check into the error returned to callers.
func limitError(check *models.LimitCheck) error {
	return &errors.LimitExceededError{
		Period:    check.Period,
		Limit:     check.Limit,
		Total:     check.Total,
		ExceedsBy: check.ExceedsBy,
	}
}
