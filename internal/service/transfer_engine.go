package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/junii03/banking-ledger/internal/config"
	"github.com/junii03/banking-ledger/internal/errors"
	"github.com/junii03/banking-ledger/internal/events"
	"github.com/junii03/banking-ledger/internal/models"
	"github.com/junii03/banking-ledger/internal/repository"
)

type TransferService interface {
	Transfer(ctx context.Context, req *models.TransferRequest) (*models.Transaction, error)
	Deposit(ctx context.Context, req *models.DepositRequest) (*models.Transaction, error)
	Withdraw(ctx context.Context, req *models.WithdrawalRequest) (*models.Transaction, error)
	Reverse(ctx context.Context, transactionID string, req *models.ReverseRequest) (*models.Transaction, error)
	PlaceHold(ctx context.Context, accountID string, amount decimal.Decimal) (*models.Account, error)
	ReleaseHold(ctx context.Context, accountID string, amount decimal.Decimal) (*models.Account, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	GetAccountHistory(ctx context.Context, accountID string, filter repository.HistoryFilter) ([]*models.Transaction, error)
	GetMonthlySummary(ctx context.Context, accountID string, year int, month time.Month) (*models.MonthlySummary, error)
	GetLimitStatus(ctx context.Context, accountID string) (*models.LimitStatusResponse, error)
}

// TransferEngine is the only writer of account balances and transaction
// status. Every movement runs under per-account locks and commits through a
// single version-checked ledger write.
type TransferEngine struct {
	accounts     repository.AccountRepository
	transactions repository.TransactionRepository
	ledger       repository.LedgerRepository
	limits       *LimitEvaluator
	locker       *AccountLocker
	publisher    *AsyncPublisher
	cfg          config.LedgerConfig
	now          func() time.Time
	newReference func(time.Time) (string, error)
	logger       *slog.Logger
}

func NewTransferEngine(store repository.Store, limits *LimitEvaluator, locker *AccountLocker, publisher *AsyncPublisher, cfg config.LedgerConfig, logger *slog.Logger, opts ...Option) *TransferEngine {
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 5 * time.Second
	}
	if cfg.ConflictRetries < 0 {
		cfg.ConflictRetries = 0
	}
	o := buildOptions(opts)
	return &TransferEngine{
		accounts:     store.Accounts,
		transactions: store.Transactions,
		ledger:       store.Ledger,
		limits:       limits,
		locker:       locker,
		publisher:    publisher,
		cfg:          cfg,
		now:          o.now,
		newReference: o.newReference,
		logger:       logger,
	}
}

// movement is one balance change: a transfer has both legs, a deposit only
// a destination and a withdrawal only a source.
type movement struct {
	op           string
	txnType      models.TransactionType
	fromID       string
	toID         string
	amount       decimal.Decimal
	currency     string
	exchangeRate decimal.Decimal
	description  string
	channel      models.Channel
	riskScore    *float64
	reversalOf   string
	// compensating movements skip minimum balance and limit checks.
	compensating bool
}

// Transfer moves amount from one account to another.
func (e *TransferEngine) Transfer(ctx context.Context, req *models.TransferRequest) (*models.Transaction, error) {
	if err := e.validateTransferRequest(req); err != nil {
		e.logger.Warn("invalid transfer request",
			"from_account_id", req.FromAccountID,
			"to_account_id", req.ToAccountID,
			"amount", req.Amount.String(),
			"error", err.Error(),
		)
		return nil, err
	}

	rate := decimal.NewFromInt(1)
	if req.ExchangeRate != nil {
		rate = *req.ExchangeRate
	}
	return e.execute(ctx, movement{
		op:           "transfer",
		txnType:      models.TransactionTypeTransfer,
		fromID:       req.FromAccountID,
		toID:         req.ToAccountID,
		amount:       req.Amount,
		currency:     strings.ToUpper(req.Currency),
		exchangeRate: rate,
		description:  req.Description,
		channel:      channelOrDefault(req.Channel),
		riskScore:    req.RiskScore,
	})
}

func (e *TransferEngine) Deposit(ctx context.Context, req *models.DepositRequest) (*models.Transaction, error) {
	if err := validateSingleLeg(req.AccountID, req.Amount, req.Channel); err != nil {
		e.logger.Warn("invalid deposit request",
			"account_id", req.AccountID,
			"amount", req.Amount.String(),
			"error", err.Error(),
		)
		return nil, err
	}
	return e.execute(ctx, movement{
		op:           "deposit",
		txnType:      models.TransactionTypeDeposit,
		toID:         req.AccountID,
		amount:       req.Amount,
		exchangeRate: decimal.NewFromInt(1),
		description:  req.Description,
		channel:      channelOrDefault(req.Channel),
	})
}

func (e *TransferEngine) Withdraw(ctx context.Context, req *models.WithdrawalRequest) (*models.Transaction, error) {
	if err := validateSingleLeg(req.AccountID, req.Amount, req.Channel); err != nil {
		e.logger.Warn("invalid withdrawal request",
			"account_id", req.AccountID,
			"amount", req.Amount.String(),
			"error", err.Error(),
		)
		return nil, err
	}
	return e.execute(ctx, movement{
		op:           "withdrawal",
		txnType:      models.TransactionTypeWithdrawal,
		fromID:       req.AccountID,
		amount:       req.Amount,
		exchangeRate: decimal.NewFromInt(1),
		description:  req.Description,
		channel:      channelOrDefault(req.Channel),
	})
}

// Reverse books a compensating transfer from the original receiver back to
// the sender. The original record is left untouched.
func (e *TransferEngine) Reverse(ctx context.Context, transactionID string, req *models.ReverseRequest) (*models.Transaction, error) {
	original, err := e.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if original.Type != models.TransactionTypeTransfer || original.Status != models.TransactionStatusCompleted {
		e.logger.Warn("transaction not reversible",
			"transaction_id", original.TransactionID,
			"type", string(original.Type),
			"status", string(original.Status),
		)
		return nil, errors.ErrNotReversible
	}
	if original.ReversedBy != "" {
		return nil, errors.ErrAlreadyReversed
	}
	if _, err := e.transactions.FindReversal(ctx, original.ID); err == nil {
		return nil, errors.ErrAlreadyReversed
	} else if !errors.IsNotFound(err) {
		return nil, err
	}

	description := "Reversal of " + original.TransactionID
	if req != nil && strings.TrimSpace(req.Reason) != "" {
		description += ": " + strings.TrimSpace(req.Reason)
	}
	return e.execute(ctx, movement{
		op:           "reversal",
		txnType:      models.TransactionTypeReversal,
		fromID:       original.ToAccountID,
		toID:         original.FromAccountID,
		amount:       original.Amount,
		currency:     original.Currency,
		exchangeRate: original.ExchangeRate,
		description:  description,
		channel:      models.ChannelSystem,
		reversalOf:   original.ID,
		compensating: true,
	})
}

func (e *TransferEngine) execute(ctx context.Context, m movement) (*models.Transaction, error) {
	from, to, err := e.loadLegs(ctx, m)
	if err != nil {
		e.logger.Warn("account lookup failed",
			"operation", m.op,
			"from_account_id", m.fromID,
			"to_account_id", m.toID,
			"error", err.Error(),
		)
		return nil, err
	}

	if err := checkEligibility(m, from, to); err != nil {
		e.reject(ctx, m, from, to, err)
		return nil, err
	}
	if err := e.checkLimits(ctx, m, from); err != nil {
		if stderrors.Is(err, errors.ErrLimitExceeded) {
			e.reject(ctx, m, from, to, err)
		}
		return nil, err
	}

	var (
		txn     *models.Transaction
		touched []models.Account
	)
	err = e.withRetry(ctx, m.op, func() error {
		var err error
		txn, touched, err = e.commit(ctx, m)
		return err
	})
	if err != nil {
		if isRejection(err) {
			e.reject(ctx, m, from, to, err)
		}
		return nil, e.surface(m.op, err)
	}

	e.publisher.Publish(events.Event{
		Type:        events.TransactionCompleted,
		OccurredAt:  txn.CreatedAt,
		Transaction: txn.Clone(),
		Accounts:    touched,
	})
	e.logger.Info("transaction completed",
		"operation", m.op,
		"transaction_id", txn.TransactionID,
		"from_account_id", m.fromID,
		"to_account_id", m.toID,
		"amount", m.amount.String(),
	)
	return txn, nil
}

// commit re-reads both legs under their locks, applies the movement and
// persists it. On a failed write the local copies are restored.
func (e *TransferEngine) commit(ctx context.Context, m movement) (*models.Transaction, []models.Account, error) {
	unlock, err := e.locker.Lock(ctx, e.cfg.LockTimeout, m.fromID, m.toID)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	from, to, err := e.loadLegs(ctx, m)
	if err != nil {
		return nil, nil, err
	}
	if err := checkEligibility(m, from, to); err != nil {
		return nil, nil, err
	}

	now := e.now()
	reference, err := e.newReference(now)
	if err != nil {
		return nil, nil, err
	}

	txn := &models.Transaction{
		ID:            uuid.New().String(),
		TransactionID: reference,
		Type:          m.txnType,
		FromAccountID: m.fromID,
		ToAccountID:   m.toID,
		Amount:        m.amount,
		Currency:      e.currencyFor(m, from, to),
		ExchangeRate:  m.exchangeRate,
		Status:        models.TransactionStatusCompleted,
		Description:   m.description,
		Channel:       m.channel,
		Fees:          decimal.Zero,
		RiskScore:     m.riskScore,
		ReversalOf:    m.reversalOf,
		CreatedAt:     now,
		CompletedAt:   &now,
	}

	var (
		write   repository.LedgerWrite
		saved   []models.Account
		legs    []*models.Account
		touched []models.Account
	)
	if from != nil {
		saved = append(saved, *from)
		legs = append(legs, from)
		before := from.Balance
		from.Debit(m.amount)
		after := from.Balance
		txn.FromBalanceBefore, txn.FromBalanceAfter = &before, &after
	}
	if to != nil {
		saved = append(saved, *to)
		legs = append(legs, to)
		before := to.Balance
		to.Credit(m.amount)
		after := to.Balance
		txn.ToBalanceBefore, txn.ToBalanceAfter = &before, &after
	}

	restore := func() {
		for i, leg := range legs {
			*leg = saved[i]
		}
	}

	for i, leg := range legs {
		action := models.AuditActionCredit
		if leg == from {
			action = models.AuditActionDebit
		}
		entry, err := balanceAudit(action, &saved[i], leg)
		if err != nil {
			restore()
			return nil, nil, err
		}
		write.Accounts = append(write.Accounts, repository.UpdateFromAccount(leg))
		write.Audit = append(write.Audit, entry)
	}
	entry, err := repository.NewAuditLog(models.EntityTypeTransaction, txn.ID, models.AuditActionTransfer, nil, txn)
	if err != nil {
		restore()
		return nil, nil, err
	}
	write.Audit = append(write.Audit, entry)
	write.Transaction = txn

	if err := e.ledger.Apply(ctx, write); err != nil {
		restore()
		return nil, nil, err
	}

	for _, leg := range legs {
		leg.Version++
		leg.UpdatedAt = now
		touched = append(touched, *leg)
	}
	return txn, touched, nil
}

func (e *TransferEngine) loadLegs(ctx context.Context, m movement) (*models.Account, *models.Account, error) {
	var from, to *models.Account
	var err error
	if m.fromID != "" {
		if from, err = e.accounts.GetAccountByID(ctx, m.fromID); err != nil {
			return nil, nil, fmt.Errorf("source account: %w", err)
		}
	}
	if m.toID != "" {
		if to, err = e.accounts.GetAccountByID(ctx, m.toID); err != nil {
			return nil, nil, fmt.Errorf("destination account: %w", err)
		}
	}
	return from, to, nil
}

func checkEligibility(m movement, from, to *models.Account) error {
	if from != nil {
		switch {
		case m.compensating:
			if from.Status == models.AccountStatusClosed {
				return fmt.Errorf("source account: %w", errors.ErrAccountInactive)
			}
			// Held funds stay reserved; only the minimum balance is waived.
			if from.Balance.Sub(from.HeldAmount).LessThan(m.amount) {
				return fmt.Errorf("source account: %w", errors.ErrInsufficientFunds)
			}
		case !from.CanDebit(m.amount):
			if from.Status != models.AccountStatusActive {
				return fmt.Errorf("source account: %w", errors.ErrAccountInactive)
			}
			return fmt.Errorf("source account: %w", errors.ErrInsufficientFunds)
		}
	}
	if to != nil && !to.CanCredit() {
		return fmt.Errorf("destination account: %w", errors.ErrAccountInactive)
	}
	return nil
}

// checkLimits runs before the locks are taken, so concurrent movements can
// each pass against the same total.
func (e *TransferEngine) checkLimits(ctx context.Context, m movement, from *models.Account) error {
	if m.compensating || from == nil {
		return nil
	}
	daily, err := e.limits.daily(ctx, from, m.amount)
	if err != nil {
		return err
	}
	if !daily.CanTransact {
		return limitError(daily)
	}
	if !e.cfg.EnforceMonthlyLimit {
		return nil
	}
	monthly, err := e.limits.monthly(ctx, from, m.amount)
	if err != nil {
		return err
	}
	if !monthly.CanTransact {
		return limitError(monthly)
	}
	return nil
}

// withRetry reruns fn on version conflicts and reference collisions.
func (e *TransferEngine) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= e.cfg.ConflictRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !stderrors.Is(err, errors.ErrConcurrencyConflict) && !stderrors.Is(err, errors.ErrDuplicateReference) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		e.logger.Warn("write conflict, retrying",
			"operation", op,
			"attempt", attempt+1,
			"error", err.Error(),
		)
	}
	return err
}

// surface decides which errors reach callers as-is. Anything unexpected
// from the store becomes a PersistenceError.
func (e *TransferEngine) surface(op string, err error) error {
	var persistenceErr *errors.PersistenceError
	switch {
	case isRejection(err),
		errors.IsRetryable(err),
		stderrors.Is(err, errors.ErrAlreadyReversed),
		stderrors.Is(err, context.Canceled),
		stderrors.Is(err, context.DeadlineExceeded),
		stderrors.As(err, &persistenceErr):
		if !isRejection(err) {
			e.logger.Warn("transaction not applied",
				"operation", op,
				"error", err.Error(),
			)
		}
		return err
	}
	e.logger.Error("failed to persist transaction",
		"operation", op,
		"error", err.Error(),
	)
	return errors.NewPersistenceError(op, err)
}

func isRejection(err error) bool {
	return stderrors.Is(err, errors.ErrInsufficientFunds) ||
		stderrors.Is(err, errors.ErrAccountInactive) ||
		stderrors.Is(err, errors.ErrLimitExceeded) ||
		stderrors.Is(err, errors.ErrAccountNotFound)
}

// reject logs a rejected movement and, when enabled, records it as a failed
// transaction for audit.
func (e *TransferEngine) reject(ctx context.Context, m movement, from, to *models.Account, cause error) {
	e.logger.Warn("transaction rejected",
		"operation", m.op,
		"from_account_id", m.fromID,
		"to_account_id", m.toID,
		"amount", m.amount.String(),
		"error", cause.Error(),
	)
	if !e.cfg.RecordFailedTransfers {
		return
	}

	now := e.now()
	reference, err := e.newReference(now)
	if err != nil {
		e.logger.Error("failed to generate reference for failed transaction", "error", err.Error())
		return
	}
	txn := &models.Transaction{
		ID:            uuid.New().String(),
		TransactionID: reference,
		Type:          m.txnType,
		FromAccountID: m.fromID,
		ToAccountID:   m.toID,
		Amount:        m.amount,
		Currency:      e.currencyFor(m, from, to),
		ExchangeRate:  m.exchangeRate,
		Status:        models.TransactionStatusFailed,
		Description:   m.description,
		Channel:       m.channel,
		Fees:          decimal.Zero,
		RiskScore:     m.riskScore,
		FailureReason: cause.Error(),
		ReversalOf:    m.reversalOf,
		CreatedAt:     now,
		CompletedAt:   &now,
	}
	var accounts []models.Account
	if from != nil {
		before := from.Balance
		txn.FromBalanceBefore = &before
		accounts = append(accounts, *from)
	}
	if to != nil {
		before := to.Balance
		txn.ToBalanceBefore = &before
		accounts = append(accounts, *to)
	}

	if err := e.transactions.Create(ctx, txn); err != nil {
		e.logger.Error("failed to record failed transaction",
			"transaction_id", txn.TransactionID,
			"error", err.Error(),
		)
		return
	}

	e.publisher.Publish(events.Event{
		Type:        events.TransactionFailed,
		OccurredAt:  now,
		Transaction: txn.Clone(),
		Accounts:    accounts,
	})
}

// PlaceHold reserves amount of the account's available balance.
func (e *TransferEngine) PlaceHold(ctx context.Context, accountID string, amount decimal.Decimal) (*models.Account, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	return e.adjustHold(ctx, "place hold", accountID, func(account *models.Account) (string, error) {
		if account.Status != models.AccountStatusActive {
			return "", errors.ErrAccountInactive
		}
		if account.AvailableBalance.LessThan(amount) {
			return "", errors.ErrInsufficientFunds
		}
		account.Hold(amount)
		return models.AuditActionHold, nil
	})
}

// ReleaseHold frees up to amount of held funds.
func (e *TransferEngine) ReleaseHold(ctx context.Context, accountID string, amount decimal.Decimal) (*models.Account, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	return e.adjustHold(ctx, "release hold", accountID, func(account *models.Account) (string, error) {
		if account.Release(amount).IsZero() {
			return "", nil
		}
		return models.AuditActionRelease, nil
	})
}

// adjustHold applies mutate to the locked account. An empty action from
// mutate means nothing changed and nothing is written.
func (e *TransferEngine) adjustHold(ctx context.Context, op, accountID string, mutate func(*models.Account) (string, error)) (*models.Account, error) {
	if accountID == "" {
		return nil, errors.ErrInvalidAccountID
	}

	var result *models.Account
	err := e.withRetry(ctx, op, func() error {
		unlock, err := e.locker.Lock(ctx, e.cfg.LockTimeout, accountID)
		if err != nil {
			return err
		}
		defer unlock()

		account, err := e.accounts.GetAccountByID(ctx, accountID)
		if err != nil {
			return err
		}
		saved := *account
		action, err := mutate(account)
		if err != nil {
			return err
		}
		if action == "" {
			result = account
			return nil
		}

		entry, err := balanceAudit(action, &saved, account)
		if err != nil {
			*account = saved
			return err
		}
		write := repository.LedgerWrite{
			Accounts: []repository.AccountUpdate{repository.UpdateFromAccount(account)},
			Audit:    []*models.AuditLog{entry},
		}
		if err := e.ledger.Apply(ctx, write); err != nil {
			*account = saved
			return err
		}
		account.Version++
		account.UpdatedAt = e.now()
		result = account
		return nil
	})
	if err != nil {
		if isRejection(err) {
			e.logger.Warn("hold rejected",
				"operation", op,
				"account_id", accountID,
				"error", err.Error(),
			)
			return nil, err
		}
		return nil, e.surface(op, err)
	}

	e.logger.Info("hold updated",
		"operation", op,
		"account_id", accountID,
		"held_amount", result.HeldAmount.String(),
	)
	return result, nil
}

// GetTransaction accepts either the record id or its TXN reference.
func (e *TransferEngine) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.NewValidationError("transaction_id", "must be non-empty")
	}
	if strings.HasPrefix(id, "TXN") {
		return e.transactions.GetByReference(ctx, id)
	}
	return e.transactions.GetByID(ctx, id)
}

func (e *TransferEngine) GetAccountHistory(ctx context.Context, accountID string, filter repository.HistoryFilter) ([]*models.Transaction, error) {
	if _, err := e.accounts.GetAccountByID(ctx, accountID); err != nil {
		return nil, err
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, errors.NewValidationError("type", "unknown transaction type")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, errors.NewValidationError("status", "unknown transaction status")
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, errors.NewValidationError("to", "must not be before from")
	}

	transactions, err := e.transactions.GetAccountHistory(ctx, accountID, filter)
	if err != nil {
		e.logger.Error("failed to get account history",
			"account_id", accountID,
			"error", err.Error(),
		)
		return nil, err
	}
	return transactions, nil
}

func (e *TransferEngine) GetMonthlySummary(ctx context.Context, accountID string, year int, month time.Month) (*models.MonthlySummary, error) {
	if month < time.January || month > time.December {
		return nil, errors.NewValidationError("month", "must be between 1 and 12")
	}
	if year < 1970 {
		return nil, errors.NewValidationError("year", "must be 1970 or later")
	}
	if _, err := e.accounts.GetAccountByID(ctx, accountID); err != nil {
		return nil, err
	}

	rows, err := e.transactions.GetMonthlySummary(ctx, accountID, year, month, e.cfg.Location())
	if err != nil {
		e.logger.Error("failed to get monthly summary",
			"account_id", accountID,
			"error", err.Error(),
		)
		return nil, err
	}
	return &models.MonthlySummary{AccountID: accountID, Year: year, Month: int(month), Rows: rows}, nil
}

func (e *TransferEngine) GetLimitStatus(ctx context.Context, accountID string) (*models.LimitStatusResponse, error) {
	account, err := e.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	daily, err := e.limits.daily(ctx, account, decimal.Zero)
	if err != nil {
		return nil, err
	}
	monthly, err := e.limits.monthly(ctx, account, decimal.Zero)
	if err != nil {
		return nil, err
	}
	return &models.LimitStatusResponse{Daily: daily, Monthly: monthly}, nil
}

func (e *TransferEngine) currencyFor(m movement, from, to *models.Account) string {
	switch {
	case m.currency != "":
		return m.currency
	case from != nil:
		return from.Currency
	case to != nil:
		return to.Currency
	}
	return e.cfg.Currency
}

func (e *TransferEngine) validateTransferRequest(req *models.TransferRequest) error {
	if err := validateAmount(req.Amount); err != nil {
		return err
	}
	if req.FromAccountID == "" {
		return errors.NewValidationError("from_account_id", "must be non-empty")
	}
	if req.ToAccountID == "" {
		return errors.NewValidationError("to_account_id", "must be non-empty")
	}
	if req.FromAccountID == req.ToAccountID {
		return errors.ErrSameAccount
	}
	if req.Channel != "" && !req.Channel.Valid() {
		return errors.NewValidationError("channel", "unknown channel")
	}
	if req.ExchangeRate != nil && !req.ExchangeRate.IsPositive() {
		return errors.NewValidationError("exchange_rate", "must be positive")
	}
	if req.Currency != "" && len(req.Currency) != 3 {
		return errors.NewValidationError("currency", "must be a 3 letter code")
	}
	return nil
}

func validateSingleLeg(accountID string, amount decimal.Decimal, channel models.Channel) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if accountID == "" {
		return errors.NewValidationError("account_id", "must be non-empty")
	}
	if channel != "" && !channel.Valid() {
		return errors.NewValidationError("channel", "unknown channel")
	}
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.ErrInvalidAmount
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: at most two decimal places", errors.ErrInvalidAmount)
	}
	return nil
}

func channelOrDefault(c models.Channel) models.Channel {
	if c == "" {
		return models.ChannelAPI
	}
	return c
}

func balanceAudit(action string, before, after *models.Account) (*models.AuditLog, error) {
	next := after.Snapshot()
	next.Version = before.Version + 1
	return repository.NewAuditLog(models.EntityTypeAccount, after.ID, action, before.Snapshot(), next)
}
