package graph

import (
	"context"
	"fmt"

	"github.com/junii03/banking-ledger/internal/events"
	"github.com/junii03/banking-ledger/internal/models"
)

const (
	mergeAccountQuery = `
MERGE (a:Account {id: $id})
SET a.accountNumber = $accountNumber,
    a.ownerId = $ownerId,
    a.accountType = $accountType,
    a.status = $status`

	// Edges are keyed by transaction reference so a redelivered event is a no-op.
	mergeFlowQuery = `
MERGE (src:Account {id: $fromId})
MERGE (dst:Account {id: $toId})
MERGE (src)-[r:SENT_TO {transactionId: $transactionId}]->(dst)
SET r.amount = $amount,
    r.currency = $currency,
    r.type = $type,
    r.channel = $channel,
    r.riskScore = $riskScore,
    r.reversalOf = $reversalOf,
    r.occurredAt = $occurredAt`
)

// Projector writes account nodes and money-flow edges for ledger events.
// Deposits and withdrawals have a single leg and produce no edge.
type Projector struct {
	client Client
}

func NewProjector(client Client) *Projector {
	return &Projector{client: client}
}

func (p *Projector) Publish(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.AccountOpened, events.AccountStatusChanged:
		for _, a := range event.Accounts {
			if err := p.client.ExecuteWrite(ctx, mergeAccountQuery, accountParams(a)); err != nil {
				return fmt.Errorf("project account %s: %w", a.ID, err)
			}
		}
	case events.TransactionCompleted:
		txn := event.Transaction
		if txn == nil || txn.FromAccountID == "" || txn.ToAccountID == "" {
			return nil
		}
		if err := p.client.ExecuteWrite(ctx, mergeFlowQuery, flowParams(txn)); err != nil {
			return fmt.Errorf("project transaction %s: %w", txn.TransactionID, err)
		}
	}
	return nil
}

func accountParams(a models.Account) map[string]any {
	return map[string]any{
		"id":            a.ID,
		"accountNumber": a.AccountNumber,
		"ownerId":       a.OwnerID,
		"accountType":   string(a.AccountType),
		"status":        string(a.Status),
	}
}

func flowParams(txn *models.Transaction) map[string]any {
	amount, _ := txn.Amount.Float64()
	var risk any
	if txn.RiskScore != nil {
		risk = *txn.RiskScore
	}
	var reversalOf any
	if txn.ReversalOf != "" {
		reversalOf = txn.ReversalOf
	}
	return map[string]any{
		"fromId":        txn.FromAccountID,
		"toId":          txn.ToAccountID,
		"transactionId": txn.TransactionID,
		"amount":        amount,
		"currency":      txn.Currency,
		"type":          string(txn.Type),
		"channel":       string(txn.Channel),
		"riskScore":     risk,
		"reversalOf":    reversalOf,
		"occurredAt":    txn.CreatedAt.UTC(),
	}
}
