package models

import (
	"github.com/shopspring/decimal"
)

// CanDebit reports whether amount may leave the account without breaking
// the available-balance or minimum-balance rules.
func (a *Account) CanDebit(amount decimal.Decimal) bool {
	if a.Status != AccountStatusActive {
		return false
	}
	if a.AvailableBalance.LessThan(amount) {
		return false
	}
	return a.Balance.Sub(amount).GreaterThanOrEqual(a.MinimumBalance)
}

// CanCredit reports whether the account may receive funds.
func (a *Account) CanCredit() bool {
	return a.Status != AccountStatusClosed && a.Status != AccountStatusFrozen
}

func (a *Account) Debit(amount decimal.Decimal) {
	a.Balance = a.Balance.Sub(amount)
	a.syncAvailable()
}

func (a *Account) Credit(amount decimal.Decimal) {
	a.Balance = a.Balance.Add(amount)
	a.syncAvailable()
}

// Hold reserves amount from the available balance.
func (a *Account) Hold(amount decimal.Decimal) {
	a.HeldAmount = a.HeldAmount.Add(amount)
	a.syncAvailable()
}

// Release frees up to amount of held funds and returns what was actually released.
func (a *Account) Release(amount decimal.Decimal) decimal.Decimal {
	released := decimal.Min(amount, a.HeldAmount)
	a.HeldAmount = a.HeldAmount.Sub(released)
	a.syncAvailable()
	return released
}

// syncAvailable keeps availableBalance = balance - held, clamped to [0, balance].
func (a *Account) syncAvailable() {
	available := a.Balance.Sub(a.HeldAmount)
	if available.IsNegative() {
		available = decimal.Zero
	}
	a.AvailableBalance = available
}

// Snapshot returns the audit payload for the account's current balance state.
func (a *Account) Snapshot() AccountBalanceSnapshot {
	return AccountBalanceSnapshot{
		ID:               a.ID,
		Balance:          a.Balance,
		AvailableBalance: a.AvailableBalance,
		HeldAmount:       a.HeldAmount,
		Status:           a.Status,
		Version:          a.Version,
	}
}

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeSavings, AccountTypeCurrent, AccountTypeFixedDeposit,
		AccountTypeIslamicSavings, AccountTypeSalary:
		return true
	}
	return false
}

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusActive, AccountStatusInactive, AccountStatusFrozen, AccountStatusClosed:
		return true
	}
	return false
}

// CanTransitionTo reports whether an administrative status change is allowed.
// Closed is terminal.
func (s AccountStatus) CanTransitionTo(next AccountStatus) bool {
	if !next.Valid() || s == AccountStatusClosed {
		return false
	}
	return s != next
}
