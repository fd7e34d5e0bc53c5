package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/junii03/banking-ledger/internal/config"
	"github.com/junii03/banking-ledger/internal/events"
	"github.com/junii03/banking-ledger/internal/logging"
	"github.com/junii03/banking-ledger/internal/models"
	"github.com/junii03/banking-ledger/internal/repository"
)

var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func testLedgerConfig() config.LedgerConfig {
	return config.LedgerConfig{
		CountryCode:              "PK",
		BankCode:                 "HBBL",
		Currency:                 "PKR",
		MaxAccountNumberAttempts: 20,
		LockTimeout:              2 * time.Second,
		ConflictRetries:          3,
		Timezone:                 "UTC",
		RecordFailedTransfers:    true,
		PublishTimeout:           time.Second,
		Products:                 config.DefaultProducts(),
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) ofType(t events.Type) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func sequentialReferences() func(time.Time) (string, error) {
	var n atomic.Int64
	return func(now time.Time) (string, error) {
		return fmt.Sprintf("TXN%d%06d", now.UnixMilli(), n.Add(1)), nil
	}
}

type fixture struct {
	store     *repository.MemoryStore
	locker    *AccountLocker
	recorder  *recordingPublisher
	publisher *AsyncPublisher
	engine    *TransferEngine
	numbers   atomic.Int64
}

// newFixture wires an engine over a memory store. wrap, when set, replaces
// the repositories the engine sees, e.g. with a failing ledger.
func newFixture(t *testing.T, cfg config.LedgerConfig, wrap func(repository.Store) repository.Store) *fixture {
	t.Helper()

	f := &fixture{
		store:    repository.NewMemoryStore(),
		locker:   NewAccountLocker(),
		recorder: &recordingPublisher{},
	}
	store := f.store.Store()
	if wrap != nil {
		store = wrap(store)
	}

	logger := logging.Discard()
	clock := WithClock(func() time.Time { return fixedNow })
	f.publisher = NewAsyncPublisher(f.recorder, time.Second, logger)
	limits := NewLimitEvaluator(store.Accounts, store.Transactions, time.UTC, clock)
	f.engine = NewTransferEngine(store, limits, f.locker, f.publisher, cfg, logger,
		clock, WithReferenceGenerator(sequentialReferences()))
	return f
}

type accountSeed struct {
	balance int64
	minimum int64
	daily   int64
	status  models.AccountStatus
}

func (f *fixture) seed(t *testing.T, opts accountSeed) *models.Account {
	t.Helper()

	if opts.daily == 0 {
		opts.daily = 1_000_000
	}
	if opts.status == "" {
		opts.status = models.AccountStatusActive
	}
	number := fmt.Sprintf("%010d", 2_000_000_000+f.numbers.Add(1))
	balance := decimal.NewFromInt(opts.balance)
	account := &models.Account{
		ID:                      uuid.New().String(),
		AccountNumber:           number,
		IBAN:                    "PK00HBBL000000" + number,
		OwnerID:                 "owner-" + number,
		AccountType:             models.AccountTypeCurrent,
		Title:                   "Test " + number,
		Currency:                "PKR",
		Balance:                 balance,
		AvailableBalance:        balance,
		HeldAmount:              decimal.Zero,
		DailyTransactionLimit:   decimal.NewFromInt(opts.daily),
		MonthlyTransactionLimit: decimal.NewFromInt(opts.daily * 30),
		MinimumBalance:          decimal.NewFromInt(opts.minimum),
		Status:                  opts.status,
		BranchCode:              "0001",
		OpeningDate:             fixedNow,
		Version:                 1,
	}
	if err := f.store.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

func (f *fixture) account(t *testing.T, id string) *models.Account {
	t.Helper()
	account, err := f.store.GetAccountByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get account %s: %v", id, err)
	}
	return account
}

func (f *fixture) seedCompleted(t *testing.T, from, to string, amount int64) {
	t.Helper()
	err := f.store.Create(context.Background(), &models.Transaction{
		TransactionID: "TXN-SEED-" + uuid.New().String(),
		Type:          models.TransactionTypeTransfer,
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        decimal.NewFromInt(amount),
		Currency:      "PKR",
		ExchangeRate:  decimal.NewFromInt(1),
		Status:        models.TransactionStatusCompleted,
		Channel:       models.ChannelAPI,
		CreatedAt:     fixedNow.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
}

func transfer(from, to string, amount int64) *models.TransferRequest {
	return &models.TransferRequest{
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        decimal.NewFromInt(amount),
		Description:   "test transfer",
		Channel:       models.ChannelAPI,
	}
}

func mustEqual(t *testing.T, what string, got decimal.Decimal, want int64) {
	t.Helper()
	if !got.Equal(decimal.NewFromInt(want)) {
		t.Fatalf("%s=%s want %d", what, got.String(), want)
	}
}

// countingStore counts every repository call that reaches the store.
type countingStore struct {
	inner repository.Store
	calls atomic.Int64
}

func (c *countingStore) Store() repository.Store {
	return repository.Store{Accounts: c, Transactions: c, Audit: c, Ledger: c}
}

func (c *countingStore) CreateAccount(ctx context.Context, a *models.Account) error {
	c.calls.Add(1)
	return c.inner.Accounts.CreateAccount(ctx, a)
}

func (c *countingStore) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	c.calls.Add(1)
	return c.inner.Accounts.GetAccountByID(ctx, id)
}

func (c *countingStore) GetAccountByNumber(ctx context.Context, n string) (*models.Account, error) {
	c.calls.Add(1)
	return c.inner.Accounts.GetAccountByNumber(ctx, n)
}

func (c *countingStore) ListAccountsByOwner(ctx context.Context, owner string) ([]*models.Account, error) {
	c.calls.Add(1)
	return c.inner.Accounts.ListAccountsByOwner(ctx, owner)
}

func (c *countingStore) AccountNumberExists(ctx context.Context, n string) (bool, error) {
	c.calls.Add(1)
	return c.inner.Accounts.AccountNumberExists(ctx, n)
}

func (c *countingStore) Create(ctx context.Context, txn *models.Transaction) error {
	c.calls.Add(1)
	return c.inner.Transactions.Create(ctx, txn)
}

func (c *countingStore) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	c.calls.Add(1)
	return c.inner.Transactions.GetByID(ctx, id)
}

func (c *countingStore) GetByReference(ctx context.Context, ref string) (*models.Transaction, error) {
	c.calls.Add(1)
	return c.inner.Transactions.GetByReference(ctx, ref)
}

func (c *countingStore) FindReversal(ctx context.Context, id string) (*models.Transaction, error) {
	c.calls.Add(1)
	return c.inner.Transactions.FindReversal(ctx, id)
}

func (c *countingStore) GetAccountHistory(ctx context.Context, id string, f repository.HistoryFilter) ([]*models.Transaction, error) {
	c.calls.Add(1)
	return c.inner.Transactions.GetAccountHistory(ctx, id, f)
}

func (c *countingStore) GetMonthlySummary(ctx context.Context, id string, year int, month time.Month, loc *time.Location) ([]models.SummaryRow, error) {
	c.calls.Add(1)
	return c.inner.Transactions.GetMonthlySummary(ctx, id, year, month, loc)
}

func (c *countingStore) SumCompleted(ctx context.Context, id string, from, to time.Time) (decimal.Decimal, error) {
	c.calls.Add(1)
	return c.inner.Transactions.SumCompleted(ctx, id, from, to)
}

func (c *countingStore) Record(ctx context.Context, log *models.AuditLog) error {
	c.calls.Add(1)
	return c.inner.Audit.Record(ctx, log)
}

func (c *countingStore) GetByEntityID(ctx context.Context, entityType, id string) ([]*models.AuditLog, error) {
	c.calls.Add(1)
	return c.inner.Audit.GetByEntityID(ctx, entityType, id)
}

func (c *countingStore) Apply(ctx context.Context, w repository.LedgerWrite) error {
	c.calls.Add(1)
	return c.inner.Ledger.Apply(ctx, w)
}

// scriptedLedger returns the queued errors in order, then delegates.
type scriptedLedger struct {
	inner  repository.LedgerRepository
	mu     sync.Mutex
	errs   []error
	always error
	calls  int
}

func (l *scriptedLedger) Apply(ctx context.Context, w repository.LedgerWrite) error {
	l.mu.Lock()
	l.calls++
	if l.always != nil {
		l.mu.Unlock()
		return l.always
	}
	if len(l.errs) > 0 {
		err := l.errs[0]
		l.errs = l.errs[1:]
		l.mu.Unlock()
		return err
	}
	l.mu.Unlock()
	return l.inner.Apply(ctx, w)
}

func (l *scriptedLedger) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}
