// Package events carries ledger state changes to downstream consumers such as
// notifications and the graph projection.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/junii03/banking-ledger/internal/models"
)

type Type string

const (
	TransactionCompleted Type = "transaction.completed"
	TransactionFailed    Type = "transaction.failed"
	AccountOpened        Type = "account.opened"
	AccountStatusChanged Type = "account.status_changed"
)

// Event is a point-in-time copy of what changed. Accounts holds the accounts
// touched by the change, after the change.
type Event struct {
	Type        Type
	OccurredAt  time.Time
	Transaction *models.Transaction
	Accounts    []models.Account
}

// Account returns the event's copy of the account with the given id.
func (e Event) Account(id string) (models.Account, bool) {
	for _, a := range e.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return models.Account{}, false
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Fanout delivers each event to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
