// Package statement renders an account's completed activity for a date range
// as PDF or XLSX.
package statement

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/junii03/banking-ledger/internal/errors"
	"github.com/junii03/banking-ledger/internal/models"
	"github.com/junii03/banking-ledger/internal/repository"
)

type AccountReader interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
}

type HistoryReader interface {
	GetAccountHistory(ctx context.Context, accountID string, filter repository.HistoryFilter) ([]*models.Transaction, error)
}

type Line struct {
	Date        time.Time
	Reference   string
	Type        models.TransactionType
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Balance     decimal.Decimal
}

type Statement struct {
	Account     models.Account
	From        time.Time
	To          time.Time
	Lines       []Line
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	GeneratedAt time.Time
}

type Builder struct {
	accounts AccountReader
	history  HistoryReader
	now      func() time.Time
}

func NewBuilder(accounts AccountReader, history HistoryReader) *Builder {
	return &Builder{accounts: accounts, history: history, now: time.Now}
}

// Build collects completed transactions in [from, to), oldest first.
func (b *Builder) Build(ctx context.Context, accountID string, from, to time.Time) (*Statement, error) {
	if !to.After(from) {
		return nil, errors.NewValidationError("to", "must be after from")
	}
	account, err := b.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var txns []*models.Transaction
	filter := repository.HistoryFilter{
		Limit:  repository.MaxHistoryLimit,
		From:   from,
		To:     to,
		Status: models.TransactionStatusCompleted,
	}
	for {
		page, err := b.history.GetAccountHistory(ctx, accountID, filter)
		if err != nil {
			return nil, fmt.Errorf("load statement history: %w", err)
		}
		txns = append(txns, page...)
		if len(page) < filter.Limit {
			break
		}
		filter.Skip += len(page)
	}

	st := &Statement{
		Account:     *account,
		From:        from,
		To:          to,
		Lines:       make([]Line, 0, len(txns)),
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
		GeneratedAt: b.now(),
	}
	// History is newest first.
	for i := len(txns) - 1; i >= 0; i-- {
		line := lineFor(accountID, txns[i])
		st.TotalDebit = st.TotalDebit.Add(line.Debit)
		st.TotalCredit = st.TotalCredit.Add(line.Credit)
		st.Lines = append(st.Lines, line)
	}
	return st, nil
}

func lineFor(accountID string, txn *models.Transaction) Line {
	line := Line{
		Date:        txn.CreatedAt,
		Reference:   txn.TransactionID,
		Type:        txn.Type,
		Description: txn.Description,
		Debit:       decimal.Zero,
		Credit:      decimal.Zero,
	}
	if txn.FromAccountID == accountID {
		line.Debit = txn.Amount
		if txn.FromBalanceAfter != nil {
			line.Balance = *txn.FromBalanceAfter
		}
		return line
	}
	line.Credit = txn.Amount
	if txn.ToBalanceAfter != nil {
		line.Balance = *txn.ToBalanceAfter
	}
	return line
}
