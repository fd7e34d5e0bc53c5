// Package notification delivers customer-facing messages about ledger
// activity. Delivery is best effort and never blocks a money movement.
package notification

import (
	"context"
	"errors"
	"log/slog"
)

type Type string

const (
	TypeDebit         Type = "debit"
	TypeCredit        Type = "credit"
	TypeFailed        Type = "transaction_failed"
	TypeAccountOpened Type = "account_opened"
	TypeAccountStatus Type = "account_status"
)

type Notification struct {
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Type    Type           `json:"type"`
	Data    map[string]any `json:"data,omitempty"`
}

// Dispatcher sends a notification to one user.
type Dispatcher interface {
	Notify(ctx context.Context, userID string, n Notification) error
}

// LogDispatcher writes notifications to the log instead of delivering them.
type LogDispatcher struct {
	Logger *slog.Logger
}

func (d LogDispatcher) Notify(_ context.Context, userID string, n Notification) error {
	d.Logger.Info("notification",
		"user_id", userID,
		"type", string(n.Type),
		"title", n.Title,
	)
	return nil
}

// Multi sends to every dispatcher and joins their errors.
type Multi []Dispatcher

func (m Multi) Notify(ctx context.Context, userID string, n Notification) error {
	var errs []error
	for _, d := range m {
		if err := d.Notify(ctx, userID, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
