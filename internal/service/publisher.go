package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/junii03/banking-ledger/internal/events"
)

// AsyncPublisher hands events to a publisher on a background goroutine.
// Delivery failures are logged and never reach the caller.
type AsyncPublisher struct {
	publisher events.Publisher
	timeout   time.Duration
	logger    *slog.Logger
	wg        sync.WaitGroup
}

func NewAsyncPublisher(publisher events.Publisher, timeout time.Duration, logger *slog.Logger) *AsyncPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AsyncPublisher{publisher: publisher, timeout: timeout, logger: logger}
}

func (p *AsyncPublisher) Publish(event events.Event) {
	if p == nil || p.publisher == nil {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		if err := p.publisher.Publish(ctx, event); err != nil {
			attrs := []any{"event", string(event.Type), "error", err.Error()}
			if event.Transaction != nil {
				attrs = append(attrs, "transaction_id", event.Transaction.TransactionID)
			}
			p.logger.Error("failed to publish event", attrs...)
		}
	}()
}

// Wait blocks until every in-flight event has been delivered or dropped.
func (p *AsyncPublisher) Wait() {
	if p == nil {
		return
	}
	p.wg.Wait()
}
