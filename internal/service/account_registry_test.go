package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/junii03/banking-ledger/internal/config"
	ledgererrors "github.com/junii03/banking-ledger/internal/errors"
	"github.com/junii03/banking-ledger/internal/events"
	"github.com/junii03/banking-ledger/internal/iban"
	"github.com/junii03/banking-ledger/internal/logging"
	"github.com/junii03/banking-ledger/internal/models"
	"github.com/junii03/banking-ledger/internal/repository"
)

// numberSequence hands out the given numbers in order, then fails.
func numberSequence(numbers ...string) func() (string, error) {
	var mu sync.Mutex
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(numbers) == 0 {
			return "", errors.New("number sequence exhausted")
		}
		n := numbers[0]
		numbers = numbers[1:]
		return n, nil
	}
}

type registryFixture struct {
	store     *repository.MemoryStore
	recorder  *recordingPublisher
	publisher *AsyncPublisher
	registry  *AccountRegistry
}

func newRegistryFixture(t *testing.T, tune func(*config.LedgerConfig), wrap func(repository.Store) repository.Store, opts ...Option) *registryFixture {
	t.Helper()

	ledgerCfg := testLedgerConfig()
	if tune != nil {
		tune(&ledgerCfg)
	}
	f := &registryFixture{
		store:    repository.NewMemoryStore(),
		recorder: &recordingPublisher{},
	}
	store := f.store.Store()
	if wrap != nil {
		store = wrap(store)
	}
	logger := logging.Discard()
	f.publisher = NewAsyncPublisher(f.recorder, time.Second, logger)
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	registry, err := NewAccountRegistry(store, NewAccountLocker(), f.publisher, ledgerCfg, logger, opts...)
	if err != nil {
		t.Fatalf("NewAccountRegistry: %v", err)
	}
	f.registry = registry
	return f
}

func openRequest(accountType models.AccountType) *models.CreateAccountRequest {
	return &models.CreateAccountRequest{
		OwnerID:     "owner-1",
		AccountType: accountType,
		Title:       "Ayesha Khan",
	}
}

func TestCreateAccountAppliesProductDefaults(t *testing.T) {
	f := newRegistryFixture(t, nil, nil)

	account, err := f.registry.CreateAccount(context.Background(), openRequest(models.AccountTypeSavings))
	if err != nil {
		t.Fatalf("CreateAccount err=%v", err)
	}

	if !iban.ValidAccountNumber(account.AccountNumber) || len(account.AccountNumber) != 10 {
		t.Fatalf("account number %q", account.AccountNumber)
	}
	if err := iban.Default().Validate(account.IBAN); err != nil {
		t.Fatalf("IBAN %q: %v", account.IBAN, err)
	}
	if account.Status != models.AccountStatusActive || account.Version != 1 {
		t.Fatalf("status=%s version=%d", account.Status, account.Version)
	}
	if account.BranchCode != defaultBranchCode {
		t.Fatalf("branch=%q want %q", account.BranchCode, defaultBranchCode)
	}
	mustEqual(t, "balance", account.Balance, 0)
	mustEqual(t, "dailyLimit", account.DailyTransactionLimit, 500_000)
	mustEqual(t, "monthlyLimit", account.MonthlyTransactionLimit, 5_000_000)
	mustEqual(t, "minimumBalance", account.MinimumBalance, 1_000)
	if !account.InterestRate.Equal(decimal.RequireFromString("5.50")) {
		t.Fatalf("interest=%s want 5.50", account.InterestRate)
	}

	stored, err := f.registry.GetAccountByNumber(context.Background(), account.AccountNumber)
	if err != nil || stored.ID != account.ID {
		t.Fatalf("lookup by number=%v err=%v", stored, err)
	}

	logs, _ := f.store.GetByEntityID(context.Background(), models.EntityTypeAccount, account.ID)
	if len(logs) != 1 || logs[0].Action != models.AuditActionCreate || logs[0].OldValue != nil {
		t.Fatalf("creation audit=%v", logs)
	}

	f.publisher.Wait()
	if len(f.recorder.ofType(events.AccountOpened)) != 1 {
		t.Fatal("expected an AccountOpened event")
	}
}

func TestCreateAccountProductTable(t *testing.T) {
	tests := []struct {
		accountType models.AccountType
		daily       int64
		minimum     int64
	}{
		{models.AccountTypeCurrent, 1_000_000, 0},
		{models.AccountTypeFixedDeposit, 100_000, 10_000},
		{models.AccountTypeIslamicSavings, 500_000, 1_000},
		{models.AccountTypeSalary, 300_000, 0},
	}

	f := newRegistryFixture(t, nil, nil)
	for _, tt := range tests {
		t.Run(string(tt.accountType), func(t *testing.T) {
			account, err := f.registry.CreateAccount(context.Background(), openRequest(tt.accountType))
			if err != nil {
				t.Fatalf("CreateAccount err=%v", err)
			}
			mustEqual(t, "dailyLimit", account.DailyTransactionLimit, tt.daily)
			mustEqual(t, "minimumBalance", account.MinimumBalance, tt.minimum)
		})
	}
}

func TestCreateAccountRetriesOnCollision(t *testing.T) {
	f := newRegistryFixture(t, nil, nil, WithAccountNumberGenerator(numberSequence("1000000001", "1000000001", "1000000002")))

	first, err := f.registry.CreateAccount(context.Background(), openRequest(models.AccountTypeCurrent))
	if err != nil {
		t.Fatal(err)
	}
	if first.AccountNumber != "1000000001" {
		t.Fatalf("first number=%s", first.AccountNumber)
	}

	second, err := f.registry.CreateAccount(context.Background(), openRequest(models.AccountTypeCurrent))
	if err != nil {
		t.Fatalf("second CreateAccount err=%v", err)
	}
	if second.AccountNumber != "1000000002" {
		t.Fatalf("second number=%s want 1000000002", second.AccountNumber)
	}
}

func TestCreateAccountExhaustsAttempts(t *testing.T) {
	limit := func(cfg *config.LedgerConfig) { cfg.MaxAccountNumberAttempts = 3 }
	numbers := numberSequence("1000000001", "1000000001", "1000000001", "1000000001")
	f := newRegistryFixture(t, limit, nil, WithAccountNumberGenerator(numbers))

	if _, err := f.registry.CreateAccount(context.Background(), openRequest(models.AccountTypeCurrent)); err != nil {
		t.Fatal(err)
	}
	_, err := f.registry.CreateAccount(context.Background(), openRequest(models.AccountTypeCurrent))
	if !errors.Is(err, ledgererrors.ErrIdentifierExhausted) {
		t.Fatalf("err=%v want ErrIdentifierExhausted", err)
	}
}

// racingAccounts reports numbers as free but rejects the first insert, as
// if another writer claimed the number in between.
type racingAccounts struct {
	repository.AccountRepository
	mu      sync.Mutex
	raced   bool
	inserts int
}

func (r *racingAccounts) CreateAccount(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	r.inserts++
	first := !r.raced
	r.raced = true
	r.mu.Unlock()
	if first {
		return fmt.Errorf("insert account: %w", ledgererrors.ErrAccountAlreadyExists)
	}
	return r.AccountRepository.CreateAccount(ctx, account)
}

func TestCreateAccountInsertRaceConsumesAttempt(t *testing.T) {
	var racing *racingAccounts
	wrap := func(s repository.Store) repository.Store {
		racing = &racingAccounts{AccountRepository: s.Accounts}
		s.Accounts = racing
		return s
	}
	f := newRegistryFixture(t, nil, wrap, WithAccountNumberGenerator(numberSequence("1000000001", "1000000002")))

	account, err := f.registry.CreateAccount(context.Background(), openRequest(models.AccountTypeCurrent))
	if err != nil {
		t.Fatalf("CreateAccount err=%v", err)
	}
	if account.AccountNumber != "1000000002" || racing.inserts != 2 {
		t.Fatalf("number=%s inserts=%d", account.AccountNumber, racing.inserts)
	}
}

func TestCreateAccountValidation(t *testing.T) {
	tests := []struct {
		name string
		req  *models.CreateAccountRequest
	}{
		{"missing owner", &models.CreateAccountRequest{AccountType: models.AccountTypeSavings, Title: "x"}},
		{"unknown type", &models.CreateAccountRequest{OwnerID: "o", AccountType: "checking", Title: "x"}},
		{"blank title", &models.CreateAccountRequest{OwnerID: "o", AccountType: models.AccountTypeSavings, Title: "  "}},
	}

	f := newRegistryFixture(t, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.registry.CreateAccount(context.Background(), tt.req)
			if !ledgererrors.IsValidationError(err) {
				t.Fatalf("err=%v want validation error", err)
			}
		})
	}
}

func TestListOwnerAccounts(t *testing.T) {
	f := newRegistryFixture(t, nil, nil)
	for i := 0; i < 2; i++ {
		if _, err := f.registry.CreateAccount(context.Background(), openRequest(models.AccountTypeSavings)); err != nil {
			t.Fatal(err)
		}
	}

	accounts, err := f.registry.ListOwnerAccounts(context.Background(), "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 2 {
		t.Fatalf("accounts=%d want 2", len(accounts))
	}
	if _, err := f.registry.ListOwnerAccounts(context.Background(), " "); !ledgererrors.IsValidationError(err) {
		t.Fatalf("blank owner err=%v", err)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newRegistryFixture(t, nil, nil)
	ctx := context.Background()
	account, err := f.registry.CreateAccount(ctx, openRequest(models.AccountTypeCurrent))
	if err != nil {
		t.Fatal(err)
	}

	frozen, err := f.registry.UpdateStatus(ctx, account.ID, models.AccountStatusFrozen)
	if err != nil {
		t.Fatalf("freeze err=%v", err)
	}
	if frozen.Status != models.AccountStatusFrozen || frozen.Version != 2 {
		t.Fatalf("status=%s version=%d", frozen.Status, frozen.Version)
	}

	if _, err := f.registry.UpdateStatus(ctx, account.ID, models.AccountStatusFrozen); !errors.Is(err, ledgererrors.ErrInvalidStatusTransition) {
		t.Fatalf("same status err=%v want ErrInvalidStatusTransition", err)
	}

	closed, err := f.registry.UpdateStatus(ctx, account.ID, models.AccountStatusClosed)
	if err != nil {
		t.Fatalf("close err=%v", err)
	}
	if closed.Status != models.AccountStatusClosed {
		t.Fatalf("status=%s", closed.Status)
	}
	if _, err := f.registry.UpdateStatus(ctx, account.ID, models.AccountStatusActive); !errors.Is(err, ledgererrors.ErrInvalidStatusTransition) {
		t.Fatalf("reopen err=%v want ErrInvalidStatusTransition", err)
	}

	f.publisher.Wait()
	if got := len(f.recorder.ofType(events.AccountStatusChanged)); got != 2 {
		t.Fatalf("status events=%d want 2", got)
	}
}

func TestCloseRequiresZeroBalance(t *testing.T) {
	f := newRegistryFixture(t, nil, nil)
	ctx := context.Background()
	account, err := f.registry.CreateAccount(ctx, openRequest(models.AccountTypeCurrent))
	if err != nil {
		t.Fatal(err)
	}

	funded := repository.UpdateFromAccount(account)
	funded.Balance = decimal.NewFromInt(10)
	funded.AvailableBalance = decimal.NewFromInt(10)
	if err := f.store.Apply(ctx, repository.LedgerWrite{Accounts: []repository.AccountUpdate{funded}}); err != nil {
		t.Fatal(err)
	}

	if _, err := f.registry.UpdateStatus(ctx, account.ID, models.AccountStatusClosed); !errors.Is(err, ledgererrors.ErrNonZeroBalance) {
		t.Fatalf("err=%v want ErrNonZeroBalance", err)
	}
	if _, err := f.registry.UpdateStatus(ctx, "missing", models.AccountStatusFrozen); !errors.Is(err, ledgererrors.ErrAccountNotFound) {
		t.Fatalf("unknown account err=%v", err)
	}
	if _, err := f.registry.UpdateStatus(ctx, account.ID, "suspended"); !ledgererrors.IsValidationError(err) {
		t.Fatalf("unknown status err=%v", err)
	}
}
