package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/junii03/banking-ledger/internal/config"
	"github.com/junii03/banking-ledger/internal/errors"
	"github.com/junii03/banking-ledger/internal/events"
	"github.com/junii03/banking-ledger/internal/iban"
	"github.com/junii03/banking-ledger/internal/models"
	"github.com/junii03/banking-ledger/internal/repository"
)

type AccountService interface {
	CreateAccount(ctx context.Context, req *models.CreateAccountRequest) (*models.Account, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error)
	ListOwnerAccounts(ctx context.Context, ownerID string) ([]*models.Account, error)
	UpdateStatus(ctx context.Context, id string, status models.AccountStatus) (*models.Account, error)
}

const defaultBranchCode = "0001"

// AccountRegistry opens accounts and owns their administrative status.
type AccountRegistry struct {
	accounts  repository.AccountRepository
	audit     repository.AuditRepository
	ledger    repository.LedgerRepository
	ibans     *iban.Generator
	locker    *AccountLocker
	publisher *AsyncPublisher
	cfg       config.LedgerConfig
	now       func() time.Time
	numbers   func() (string, error)
	logger    *slog.Logger
}

func NewAccountRegistry(store repository.Store, locker *AccountLocker, publisher *AsyncPublisher, cfg config.LedgerConfig, logger *slog.Logger, opts ...Option) (*AccountRegistry, error) {
	ibans, err := iban.NewGenerator(cfg.CountryCode, cfg.BankCode)
	if err != nil {
		return nil, fmt.Errorf("invalid IBAN settings: %w", err)
	}
	if cfg.MaxAccountNumberAttempts <= 0 {
		cfg.MaxAccountNumberAttempts = 20
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 5 * time.Second
	}
	o := buildOptions(opts)
	return &AccountRegistry{
		accounts:  store.Accounts,
		audit:     store.Audit,
		ledger:    store.Ledger,
		ibans:     ibans,
		locker:    locker,
		publisher: publisher,
		cfg:       cfg,
		now:       o.now,
		numbers:   o.newAccountNumber,
		logger:    logger,
	}, nil
}

// CreateAccount validates the request, generates a unique account number and
// its IBAN, applies product defaults and persists the account.
func (s *AccountRegistry) CreateAccount(ctx context.Context, req *models.CreateAccountRequest) (*models.Account, error) {
	if err := s.validateCreateRequest(req); err != nil {
		s.logger.Warn("invalid create account request",
			"owner_id", req.OwnerID,
			"error", err.Error(),
		)
		return nil, err
	}

	product := s.cfg.Products[req.AccountType]
	branch := strings.TrimSpace(req.BranchCode)
	if branch == "" {
		branch = defaultBranchCode
	}

	for attempt := 1; attempt <= s.cfg.MaxAccountNumberAttempts; attempt++ {
		number, err := s.nextCandidate(ctx)
		if err != nil {
			return nil, err
		}
		if number == "" {
			continue
		}

		ibanValue, err := s.ibans.FromAccountNumber(number)
		if err != nil {
			return nil, fmt.Errorf("failed to derive IBAN: %w", err)
		}

		now := s.now()
		account := &models.Account{
			ID:                      uuid.New().String(),
			AccountNumber:           number,
			IBAN:                    ibanValue,
			OwnerID:                 req.OwnerID,
			AccountType:             req.AccountType,
			Title:                   strings.TrimSpace(req.Title),
			Currency:                s.cfg.Currency,
			Balance:                 decimal.Zero,
			AvailableBalance:        decimal.Zero,
			HeldAmount:              decimal.Zero,
			DailyTransactionLimit:   product.DailyLimit,
			MonthlyTransactionLimit: product.MonthlyLimit,
			MinimumBalance:          product.MinimumBalance,
			Status:                  models.AccountStatusActive,
			BranchCode:              branch,
			OpeningDate:             now,
			InterestRate:            product.InterestRate,
			Version:                 1,
		}

		if err := s.accounts.CreateAccount(ctx, account); err != nil {
			if errors.IsAlreadyExists(err) {
				s.logger.Warn("account number taken at insert, retrying",
					"attempt", attempt,
				)
				continue
			}
			s.logger.Error("failed to create account",
				"owner_id", req.OwnerID,
				"error", err.Error(),
			)
			return nil, err
		}

		s.recordCreation(ctx, account)
		s.publisher.Publish(events.Event{
			Type:       events.AccountOpened,
			OccurredAt: now,
			Accounts:   []models.Account{*account},
		})
		s.logger.Info("account created successfully",
			"account_id", account.ID,
			"account_number", account.AccountNumber,
		)
		return account, nil
	}

	s.logger.Error("account number space exhausted",
		"owner_id", req.OwnerID,
		"attempts", s.cfg.MaxAccountNumberAttempts,
	)
	return nil, errors.ErrIdentifierExhausted
}

// nextCandidate returns a free account number, or "" when the drawn number
// is already taken.
func (s *AccountRegistry) nextCandidate(ctx context.Context) (string, error) {
	number, err := s.numbers()
	if err != nil {
		return "", err
	}
	if !iban.ValidAccountNumber(number) {
		return "", fmt.Errorf("generated account number %q: %w", number, iban.ErrInvalidAccountNumber)
	}
	exists, err := s.accounts.AccountNumberExists(ctx, number)
	if err != nil {
		s.logger.Error("failed to check account number",
			"error", err.Error(),
		)
		return "", err
	}
	if exists {
		s.logger.Debug("account number collision", "account_number", number)
		return "", nil
	}
	return number, nil
}

func (s *AccountRegistry) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	if id == "" {
		return nil, errors.ErrInvalidAccountID
	}

	account, err := s.accounts.GetAccountByID(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Warn("account not found",
				"account_id", id,
			)
			return nil, err
		}
		s.logger.Error("failed to get account",
			"account_id", id,
			"error", err.Error(),
		)
		return nil, err
	}
	return account, nil
}

func (s *AccountRegistry) GetAccountByNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	if !iban.ValidAccountNumber(accountNumber) {
		return nil, errors.NewValidationError("account_number", "must be 10 to 16 digits")
	}
	return s.accounts.GetAccountByNumber(ctx, accountNumber)
}

func (s *AccountRegistry) ListOwnerAccounts(ctx context.Context, ownerID string) ([]*models.Account, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, errors.NewValidationError("owner_id", "must be non-empty")
	}
	accounts, err := s.accounts.ListAccountsByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to list accounts",
			"owner_id", ownerID,
			"error", err.Error(),
		)
		return nil, err
	}
	return accounts, nil
}

// UpdateStatus changes an account's administrative status. Closed is
// terminal and requires a zero balance with nothing held.
func (s *AccountRegistry) UpdateStatus(ctx context.Context, id string, status models.AccountStatus) (*models.Account, error) {
	if id == "" {
		return nil, errors.ErrInvalidAccountID
	}
	if !status.Valid() {
		return nil, errors.NewValidationError("status", "must be one of active, inactive, frozen, closed")
	}

	unlock, err := s.locker.Lock(ctx, s.cfg.LockTimeout, id)
	if err != nil {
		s.logger.Warn("account busy", "account_id", id)
		return nil, err
	}
	defer unlock()

	account, err := s.accounts.GetAccountByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !account.Status.CanTransitionTo(status) {
		s.logger.Warn("invalid status transition",
			"account_id", id,
			"from", string(account.Status),
			"to", string(status),
		)
		return nil, errors.ErrInvalidStatusTransition
	}
	if status == models.AccountStatusClosed && (!account.Balance.IsZero() || !account.HeldAmount.IsZero()) {
		return nil, errors.ErrNonZeroBalance
	}

	before := account.Snapshot()
	account.Status = status
	after := account.Snapshot()
	after.Version++

	entry, err := repository.NewAuditLog(models.EntityTypeAccount, account.ID, models.AuditActionStatus, before, after)
	if err != nil {
		return nil, err
	}
	write := repository.LedgerWrite{
		Accounts: []repository.AccountUpdate{repository.UpdateFromAccount(account)},
		Audit:    []*models.AuditLog{entry},
	}
	if err := s.ledger.Apply(ctx, write); err != nil {
		s.logger.Error("failed to update account status",
			"account_id", id,
			"error", err.Error(),
		)
		if errors.IsRetryable(err) || errors.IsNotFound(err) {
			return nil, err
		}
		return nil, errors.NewPersistenceError("update account status", err)
	}
	account.Version++
	account.UpdatedAt = s.now()

	s.publisher.Publish(events.Event{
		Type:       events.AccountStatusChanged,
		OccurredAt: account.UpdatedAt,
		Accounts:   []models.Account{*account},
	})
	s.logger.Info("account status updated",
		"account_id", id,
		"status", string(status),
	)
	return account, nil
}

func (s *AccountRegistry) validateCreateRequest(req *models.CreateAccountRequest) error {
	if strings.TrimSpace(req.OwnerID) == "" {
		return errors.NewValidationError("owner_id", "must be non-empty")
	}
	if !req.AccountType.Valid() {
		return errors.NewValidationError("account_type", "must be one of savings, current, fixed_deposit, islamic_savings, salary")
	}
	if _, ok := s.cfg.Products[req.AccountType]; !ok {
		return errors.NewValidationError("account_type", "no product configured for this account type")
	}
	if strings.TrimSpace(req.Title) == "" {
		return errors.NewValidationError("title", "must be non-empty")
	}
	return nil
}

func (s *AccountRegistry) recordCreation(ctx context.Context, account *models.Account) {
	entry, err := repository.NewAuditLog(models.EntityTypeAccount, account.ID, models.AuditActionCreate, nil, account.Snapshot())
	if err == nil {
		err = s.audit.Record(ctx, entry)
	}
	if err != nil {
		s.logger.Error("failed to create audit log for account creation",
			"account_id", account.ID,
			"error", err.Error(),
		)
	}
}
