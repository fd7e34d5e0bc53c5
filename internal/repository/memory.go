package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/junii03/banking-ledger/internal/errors"
	"github.com/junii03/banking-ledger/internal/models"
)

// MemoryStore implements every repository interface in process. All reads
// return copies so callers can mutate freely.
type MemoryStore struct {
	mu sync.RWMutex

	accounts     map[string]*models.Account
	byNumber     map[string]string
	transactions map[string]*models.Transaction
	byReference  map[string]string
	reversals    map[string]string
	// order keeps insertion order so equal timestamps sort deterministically.
	order []string
	audit []*models.AuditLog

	now func() time.Time
}

var (
	_ AccountRepository     = (*MemoryStore)(nil)
	_ TransactionRepository = (*MemoryStore)(nil)
	_ AuditRepository       = (*MemoryStore)(nil)
	_ LedgerRepository      = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[string]*models.Account),
		byNumber:     make(map[string]string),
		transactions: make(map[string]*models.Transaction),
		byReference:  make(map[string]string),
		reversals:    make(map[string]string),
		now:          time.Now,
	}
}

func (s *MemoryStore) CreateAccount(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byNumber[account.AccountNumber]; ok {
		return errors.ErrAccountAlreadyExists
	}
	for _, existing := range s.accounts {
		if existing.IBAN == account.IBAN || existing.ID == account.ID {
			return errors.ErrAccountAlreadyExists
		}
	}

	now := s.now()
	account.CreatedAt = now
	account.UpdatedAt = now
	stored := *account
	s.accounts[account.ID] = &stored
	s.byNumber[account.AccountNumber] = account.ID
	return nil
}

func (s *MemoryStore) GetAccountByID(_ context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, errors.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *MemoryStore) GetAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	s.mu.RLock()
	id, ok := s.byNumber[accountNumber]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.ErrAccountNotFound
	}
	return s.GetAccountByID(ctx, id)
}

func (s *MemoryStore) ListAccountsByOwner(_ context.Context, ownerID string) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var accounts []*models.Account
	for _, account := range s.accounts {
		if account.OwnerID == ownerID {
			copied := *account
			accounts = append(accounts, &copied)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].AccountNumber < accounts[j].AccountNumber
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (s *MemoryStore) AccountNumberExists(_ context.Context, accountNumber string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byNumber[accountNumber]
	return ok, nil
}

func (s *MemoryStore) Create(_ context.Context, transaction *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkTransactionLocked(transaction); err != nil {
		return err
	}
	s.insertTransactionLocked(transaction)
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getTransactionLocked(id)
}

func (s *MemoryStore) GetByReference(_ context.Context, reference string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byReference[reference]
	if !ok {
		return nil, errors.ErrTransactionNotFound
	}
	return s.getTransactionLocked(id)
}

func (s *MemoryStore) FindReversal(_ context.Context, originalID string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.reversals[originalID]
	if !ok {
		return nil, errors.ErrTransactionNotFound
	}
	return s.getTransactionLocked(id)
}

func (s *MemoryStore) GetAccountHistory(_ context.Context, accountID string, filter HistoryFilter) ([]*models.Transaction, error) {
	filter = filter.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Transaction
	for i := len(s.order) - 1; i >= 0; i-- {
		txn := s.transactions[s.order[i]]
		if !txn.Involves(accountID) {
			continue
		}
		if !filter.From.IsZero() && txn.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !txn.CreatedAt.Before(filter.To) {
			continue
		}
		if filter.Type != "" && txn.Type != filter.Type {
			continue
		}
		if filter.Status != "" && txn.Status != filter.Status {
			continue
		}
		matched = append(matched, s.copyTransactionLocked(txn))
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Skip >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Skip:]
	if len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *MemoryStore) GetMonthlySummary(_ context.Context, accountID string, year int, month time.Month, loc *time.Location) ([]models.SummaryRow, error) {
	from, to := MonthBounds(year, month, loc)

	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[models.TransactionType]*models.SummaryRow)
	for _, txn := range s.transactions {
		if !s.completedWithinLocked(txn, accountID, from, to) {
			continue
		}
		row, ok := totals[txn.Type]
		if !ok {
			row = &models.SummaryRow{Type: txn.Type, TotalAmount: decimal.Zero}
			totals[txn.Type] = row
		}
		row.TotalAmount = row.TotalAmount.Add(txn.Amount)
		row.Count++
	}

	summary := make([]models.SummaryRow, 0, len(totals))
	for _, row := range totals {
		summary = append(summary, *row)
	}
	sort.Slice(summary, func(i, j int) bool { return summary[i].Type < summary[j].Type })
	return summary, nil
}

func (s *MemoryStore) SumCompleted(_ context.Context, accountID string, from, to time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, txn := range s.transactions {
		if s.completedWithinLocked(txn, accountID, from, to) {
			total = total.Add(txn.Amount)
		}
	}
	return total, nil
}

func (s *MemoryStore) Record(_ context.Context, log *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendAuditLocked(log)
	return nil
}

func (s *MemoryStore) GetByEntityID(_ context.Context, entityType, entityID string) ([]*models.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var logs []*models.AuditLog
	for i := len(s.audit) - 1; i >= 0; i-- {
		log := s.audit[i]
		if log.EntityType == entityType && log.EntityID == entityID {
			copied := *log
			logs = append(logs, &copied)
		}
	}
	return logs, nil
}

// Apply validates every part of the write before touching state, so a
// rejected write leaves the store unchanged.
func (s *MemoryStore) Apply(_ context.Context, write LedgerWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range write.Accounts {
		account, ok := s.accounts[u.ID]
		if !ok {
			return errors.ErrAccountNotFound
		}
		if account.Version != u.ExpectedVersion {
			return errors.ErrConcurrencyConflict
		}
		if u.Balance.IsNegative() || u.HeldAmount.IsNegative() || u.AvailableBalance.GreaterThan(u.Balance) {
			return errors.ErrInsufficientFunds
		}
	}
	if write.Transaction != nil {
		if err := s.checkTransactionLocked(write.Transaction); err != nil {
			return err
		}
	}

	now := s.now()
	for _, u := range write.Accounts {
		account := s.accounts[u.ID]
		account.Balance = u.Balance
		account.AvailableBalance = u.AvailableBalance
		account.HeldAmount = u.HeldAmount
		account.Status = u.Status
		account.Version++
		account.UpdatedAt = now
	}
	if write.Transaction != nil {
		s.insertTransactionLocked(write.Transaction)
	}
	for _, log := range write.Audit {
		s.appendAuditLocked(log)
	}
	return nil
}

func (s *MemoryStore) checkTransactionLocked(txn *models.Transaction) error {
	if _, ok := s.byReference[txn.TransactionID]; ok {
		return errors.ErrDuplicateReference
	}
	if txn.ReversalOf != "" && txn.Status == models.TransactionStatusCompleted {
		if _, ok := s.reversals[txn.ReversalOf]; ok {
			return errors.ErrAlreadyReversed
		}
	}
	return nil
}

func (s *MemoryStore) insertTransactionLocked(txn *models.Transaction) {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	stored := txn.Clone()
	stored.ReversedBy = ""
	s.transactions[stored.ID] = stored
	s.byReference[stored.TransactionID] = stored.ID
	s.order = append(s.order, stored.ID)
	if stored.ReversalOf != "" && stored.Status == models.TransactionStatusCompleted {
		s.reversals[stored.ReversalOf] = stored.ID
	}
}

func (s *MemoryStore) getTransactionLocked(id string) (*models.Transaction, error) {
	txn, ok := s.transactions[id]
	if !ok {
		return nil, errors.ErrTransactionNotFound
	}
	return s.copyTransactionLocked(txn), nil
}

func (s *MemoryStore) copyTransactionLocked(txn *models.Transaction) *models.Transaction {
	copied := txn.Clone()
	copied.ReversedBy = s.reversals[txn.ID]
	return copied
}

func (s *MemoryStore) completedWithinLocked(txn *models.Transaction, accountID string, from, to time.Time) bool {
	return txn.Status == models.TransactionStatusCompleted &&
		txn.Involves(accountID) &&
		!txn.CreatedAt.Before(from) &&
		txn.CreatedAt.Before(to)
}

func (s *MemoryStore) appendAuditLocked(log *models.AuditLog) {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	log.CreatedAt = s.now()
	copied := *log
	s.audit = append(s.audit, &copied)
}
