package models

import "github.com/shopspring/decimal"

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeTransfer, TransactionTypeDeposit, TransactionTypeWithdrawal,
		TransactionTypePayment, TransactionTypeFee, TransactionTypeInterest,
		TransactionTypeReversal, TransactionTypeAdjustment:
		return true
	}
	return false
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusProcessing, TransactionStatusCompleted,
		TransactionStatusFailed, TransactionStatusCancelled, TransactionStatusReversed:
		return true
	}
	return false
}

func (c Channel) Valid() bool {
	switch c {
	case ChannelWeb, ChannelMobile, ChannelATM, ChannelBranch, ChannelAPI, ChannelSystem:
		return true
	}
	return false
}

// Involves reports whether accountID is either leg of the transaction.
func (t *Transaction) Involves(accountID string) bool {
	return t.FromAccountID == accountID || t.ToAccountID == accountID
}

// Clone returns a copy that shares no pointers with t.
func (t *Transaction) Clone() *Transaction {
	c := *t
	c.FromBalanceBefore = cloneDecimal(t.FromBalanceBefore)
	c.FromBalanceAfter = cloneDecimal(t.FromBalanceAfter)
	c.ToBalanceBefore = cloneDecimal(t.ToBalanceBefore)
	c.ToBalanceAfter = cloneDecimal(t.ToBalanceAfter)
	if t.RiskScore != nil {
		score := *t.RiskScore
		c.RiskScore = &score
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
