package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/junii03/banking-ledger/internal/events"
	"github.com/junii03/banking-ledger/internal/models"
)

// Publisher turns ledger events into notifications for the owners of the
// accounts involved.
type Publisher struct {
	dispatcher Dispatcher
}

func NewPublisher(dispatcher Dispatcher) *Publisher {
	return &Publisher{dispatcher: dispatcher}
}

func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	var errs []error
	for _, m := range messagesFor(event) {
		if err := p.dispatcher.Notify(ctx, m.userID, m.Notification); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", m.userID, err))
		}
	}
	return errors.Join(errs...)
}

type addressed struct {
	userID string
	Notification
}

func messagesFor(event events.Event) []addressed {
	switch event.Type {
	case events.TransactionCompleted:
		return completedMessages(event)
	case events.TransactionFailed:
		txn := event.Transaction
		if txn == nil {
			return nil
		}
		accountID := txn.FromAccountID
		if accountID == "" {
			accountID = txn.ToAccountID
		}
		account, ok := event.Account(accountID)
		if !ok {
			return nil
		}
		return []addressed{{account.OwnerID, Notification{
			Title:   "Transaction failed",
			Message: fmt.Sprintf("Your %s of %s %s could not be completed.", txn.Type, txn.Amount.StringFixed(2), txn.Currency),
			Type:    TypeFailed,
			Data:    transactionData(txn, account),
		}}}
	case events.AccountOpened:
		return accountMessages(event, func(a models.Account) Notification {
			return Notification{
				Title:   "Account opened",
				Message: fmt.Sprintf("Your %s account %s is ready.", a.AccountType, a.AccountNumber),
				Type:    TypeAccountOpened,
				Data:    map[string]any{"account_id": a.ID, "iban": a.IBAN},
			}
		})
	case events.AccountStatusChanged:
		return accountMessages(event, func(a models.Account) Notification {
			return Notification{
				Title:   "Account status changed",
				Message: fmt.Sprintf("Account %s is now %s.", a.AccountNumber, a.Status),
				Type:    TypeAccountStatus,
				Data:    map[string]any{"account_id": a.ID, "status": string(a.Status)},
			}
		})
	}
	return nil
}

func completedMessages(event events.Event) []addressed {
	txn := event.Transaction
	if txn == nil {
		return nil
	}
	var out []addressed
	if from, ok := event.Account(txn.FromAccountID); ok {
		out = append(out, addressed{from.OwnerID, Notification{
			Title:   "Debit alert",
			Message: fmt.Sprintf("%s %s was debited from account %s.", txn.Currency, txn.Amount.StringFixed(2), from.AccountNumber),
			Type:    TypeDebit,
			Data:    transactionData(txn, from),
		}})
	}
	if to, ok := event.Account(txn.ToAccountID); ok {
		out = append(out, addressed{to.OwnerID, Notification{
			Title:   "Credit alert",
			Message: fmt.Sprintf("%s %s was credited to account %s.", txn.Currency, txn.Amount.StringFixed(2), to.AccountNumber),
			Type:    TypeCredit,
			Data:    transactionData(txn, to),
		}})
	}
	return out
}

func accountMessages(event events.Event, build func(models.Account) Notification) []addressed {
	out := make([]addressed, 0, len(event.Accounts))
	for _, a := range event.Accounts {
		out = append(out, addressed{a.OwnerID, build(a)})
	}
	return out
}

func transactionData(txn *models.Transaction, account models.Account) map[string]any {
	return map[string]any{
		"transaction_id": txn.TransactionID,
		"account_id":     account.ID,
		"amount":         txn.Amount.String(),
		"balance":        account.Balance.String(),
	}
}
