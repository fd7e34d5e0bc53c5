package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/junii03/banking-ledger/internal/errors"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"duplicate number", &pq.Error{Code: pqUniqueViolation, Constraint: constraintAccountNumber}, errors.ErrAccountAlreadyExists},
		{"duplicate iban", &pq.Error{Code: pqUniqueViolation, Constraint: constraintIBAN}, errors.ErrAccountAlreadyExists},
		{"duplicate reference", &pq.Error{Code: pqUniqueViolation, Constraint: constraintTransactionRef}, errors.ErrDuplicateReference},
		{"second reversal", &pq.Error{Code: pqUniqueViolation, Constraint: constraintReversalOf}, errors.ErrAlreadyReversed},
		{"balance check", &pq.Error{Code: pqCheckViolation, Message: "accounts_balance_check"}, errors.ErrInsufficientFunds},
		{"lock timeout", &pq.Error{Code: pqLockNotAvailable}, errors.ErrBusy},
		{"serialization", &pq.Error{Code: pqSerializationFailure}, errors.ErrConcurrencyConflict},
		{"deadlock", fmt.Errorf("exec: %w", &pq.Error{Code: pqDeadlockDetected}), errors.ErrConcurrencyConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := translateError("op", tt.err); !stderrors.Is(got, tt.want) {
				t.Fatalf("translateError=%v want %v", got, tt.want)
			}
		})
	}

	plain := stderrors.New("connection reset")
	if got := translateError("op", plain); !stderrors.Is(got, plain) || errors.IsRetryable(got) {
		t.Fatalf("unmapped error=%v", got)
	}
}

func TestHistoryFilterNormalize(t *testing.T) {
	if f := (HistoryFilter{}).Normalize(); f.Limit != DefaultHistoryLimit {
		t.Fatalf("default limit=%d", f.Limit)
	}
	if f := (HistoryFilter{Limit: 10_000, Skip: -3}).Normalize(); f.Limit != MaxHistoryLimit || f.Skip != 0 {
		t.Fatalf("clamped=%+v", f)
	}
}

func TestMonthBounds(t *testing.T) {
	from, to := MonthBounds(2024, time.December, time.UTC)
	if !from.Equal(time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)) ||
		!to.Equal(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("bounds=%v..%v", from, to)
	}
}

// The guards return before the database is touched, so nil handles suffice.
func TestPostgresRepositoriesRejectMalformedIDs(t *testing.T) {
	ctx := context.Background()
	accounts := NewAccountRepository(nil)
	transactions := NewTransactionRepository(nil)
	june := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	lookups := []struct {
		name string
		call func() error
		want error
	}{
		{"account by id", func() error { _, err := accounts.GetAccountByID(ctx, "missing"); return err }, errors.ErrAccountNotFound},
		{"empty account id", func() error { _, err := accounts.GetAccountByID(ctx, ""); return err }, errors.ErrAccountNotFound},
		{"transaction by id", func() error { _, err := transactions.GetByID(ctx, "TXN1"); return err }, errors.ErrTransactionNotFound},
		{"reversal of", func() error { _, err := transactions.FindReversal(ctx, "TXN1"); return err }, errors.ErrTransactionNotFound},
	}
	for _, tt := range lookups {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !stderrors.Is(err, tt.want) {
				t.Fatalf("err=%v want %v", err, tt.want)
			}
		})
	}

	history, err := transactions.GetAccountHistory(ctx, "missing", HistoryFilter{})
	if err != nil || len(history) != 0 {
		t.Fatalf("history=%v err=%v", history, err)
	}
	summary, err := transactions.GetMonthlySummary(ctx, "missing", 2024, time.June, time.UTC)
	if err != nil || len(summary) != 0 {
		t.Fatalf("summary=%v err=%v", summary, err)
	}
	total, err := transactions.SumCompleted(ctx, "missing", june, june.AddDate(0, 1, 0))
	if err != nil || !total.IsZero() {
		t.Fatalf("total=%s err=%v", total, err)
	}
}
