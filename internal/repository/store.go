package repository

import (
	"database/sql"
	"time"
)

// Store bundles the repositories the services depend on.
type Store struct {
	Accounts     AccountRepository
	Transactions TransactionRepository
	Audit        AuditRepository
	Ledger       LedgerRepository
}

func NewPostgresStore(db *sql.DB, lockTimeout time.Duration) Store {
	return Store{
		Accounts:     NewAccountRepository(db),
		Transactions: NewTransactionRepository(db),
		Audit:        NewAuditRepository(db),
		Ledger:       NewLedgerRepository(db, lockTimeout),
	}
}

// Store exposes the memory store through every repository interface.
func (s *MemoryStore) Store() Store {
	return Store{Accounts: s, Transactions: s, Audit: s, Ledger: s}
}
