package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeSavings        AccountType = "savings"
	AccountTypeCurrent        AccountType = "current"
	AccountTypeFixedDeposit   AccountType = "fixed_deposit"
	AccountTypeIslamicSavings AccountType = "islamic_savings"
	AccountTypeSalary         AccountType = "salary"
)

type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
	AccountStatusFrozen   AccountStatus = "frozen"
	AccountStatusClosed   AccountStatus = "closed"
)

type TransactionType string

const (
	TransactionTypeTransfer   TransactionType = "transfer"
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypePayment    TransactionType = "payment"
	TransactionTypeFee        TransactionType = "fee"
	TransactionTypeInterest   TransactionType = "interest"
	TransactionTypeReversal   TransactionType = "reversal"
	TransactionTypeAdjustment TransactionType = "adjustment"
)

type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
	TransactionStatusReversed   TransactionStatus = "reversed"
)

type Channel string

const (
	ChannelWeb    Channel = "web"
	ChannelMobile Channel = "mobile"
	ChannelATM    Channel = "atm"
	ChannelBranch Channel = "branch"
	ChannelAPI    Channel = "api"
	ChannelSystem Channel = "system"
)

type Account struct {
	ID                      string          `json:"id"`
	AccountNumber           string          `json:"account_number"`
	IBAN                    string          `json:"iban"`
	OwnerID                 string          `json:"owner_id"`
	AccountType             AccountType     `json:"account_type"`
	Title                   string          `json:"title"`
	Currency                string          `json:"currency"`
	Balance                 decimal.Decimal `json:"balance"`
	AvailableBalance        decimal.Decimal `json:"available_balance"`
	HeldAmount              decimal.Decimal `json:"held_amount"`
	DailyTransactionLimit   decimal.Decimal `json:"daily_transaction_limit"`
	MonthlyTransactionLimit decimal.Decimal `json:"monthly_transaction_limit"`
	MinimumBalance          decimal.Decimal `json:"minimum_balance"`
	Status                  AccountStatus   `json:"status"`
	BranchCode              string          `json:"branch_code"`
	OpeningDate             time.Time       `json:"opening_date"`
	InterestRate            decimal.Decimal `json:"interest_rate"`
	Version                 int64           `json:"version"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

type Transaction struct {
	ID                string            `json:"id"`
	TransactionID     string            `json:"transaction_id"`
	Type              TransactionType   `json:"type"`
	FromAccountID     string            `json:"from_account_id,omitempty"`
	ToAccountID       string            `json:"to_account_id,omitempty"`
	Amount            decimal.Decimal   `json:"amount"`
	Currency          string            `json:"currency"`
	ExchangeRate      decimal.Decimal   `json:"exchange_rate"`
	FromBalanceBefore *decimal.Decimal  `json:"from_balance_before,omitempty"`
	FromBalanceAfter  *decimal.Decimal  `json:"from_balance_after,omitempty"`
	ToBalanceBefore   *decimal.Decimal  `json:"to_balance_before,omitempty"`
	ToBalanceAfter    *decimal.Decimal  `json:"to_balance_after,omitempty"`
	Status            TransactionStatus `json:"status"`
	Description       string            `json:"description"`
	Channel           Channel           `json:"channel"`
	Fees              decimal.Decimal   `json:"fees"`
	RiskScore         *float64          `json:"risk_score,omitempty"`
	FailureReason     string            `json:"failure_reason,omitempty"`
	ReversalOf        string            `json:"reversal_of,omitempty"`
	ReversedBy        string            `json:"reversed_by,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
}

type AuditLog struct {
	ID         string          `json:"id"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Action     string          `json:"action"`
	OldValue   json.RawMessage `json:"old_value"`
	NewValue   json.RawMessage `json:"new_value"`
	CreatedAt  time.Time       `json:"created_at"`
}

const (
	AuditActionCreate   = "CREATE"
	AuditActionDebit    = "DEBIT"
	AuditActionCredit   = "CREDIT"
	AuditActionHold     = "HOLD"
	AuditActionRelease  = "RELEASE"
	AuditActionTransfer = "TRANSFER"
	AuditActionStatus   = "STATUS"
)

const (
	EntityTypeAccount     = "ACCOUNT"
	EntityTypeTransaction = "TRANSACTION"
)

// AccountBalanceSnapshot is the audit payload recorded for every balance-affecting write.
type AccountBalanceSnapshot struct {
	ID               string          `json:"id"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	HeldAmount       decimal.Decimal `json:"held_amount"`
	Status           AccountStatus   `json:"status"`
	Version          int64           `json:"version"`
}

// LimitCheck is the outcome of a rolling-period limit evaluation.
type LimitCheck struct {
	AccountID      string          `json:"account_id"`
	Period         string          `json:"period"`
	Limit          decimal.Decimal `json:"limit"`
	Total          decimal.Decimal `json:"total"`
	RemainingLimit decimal.Decimal `json:"remaining_limit"`
	ExceedsBy      decimal.Decimal `json:"exceeds_by"`
	CanTransact    bool            `json:"can_transact"`
	Since          time.Time       `json:"since"`
}

type SummaryRow struct {
	Type        TransactionType `json:"type"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Count       int64           `json:"count"`
}

type MonthlySummary struct {
	AccountID string       `json:"account_id"`
	Year      int          `json:"year"`
	Month     int          `json:"month"`
	Rows      []SummaryRow `json:"rows"`
}

type CreateAccountRequest struct {
	OwnerID     string      `json:"owner_id"`
	AccountType AccountType `json:"account_type"`
	Title       string      `json:"title"`
	BranchCode  string      `json:"branch_code"`
}

type UpdateStatusRequest struct {
	Status AccountStatus `json:"status"`
}

type TransferRequest struct {
	FromAccountID string           `json:"from_account_id"`
	ToAccountID   string           `json:"to_account_id"`
	Amount        decimal.Decimal  `json:"amount"`
	Description   string           `json:"description"`
	Channel       Channel          `json:"channel"`
	Currency      string           `json:"currency,omitempty"`
	ExchangeRate  *decimal.Decimal `json:"exchange_rate,omitempty"`
	RiskScore     *float64         `json:"risk_score,omitempty"`
}

type DepositRequest struct {
	AccountID   string          `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Channel     Channel         `json:"channel"`
}

type WithdrawalRequest struct {
	AccountID   string          `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Channel     Channel         `json:"channel"`
}

type ReverseRequest struct {
	Reason string `json:"reason"`
}

type HoldRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type HistoryResponse struct {
	AccountID    string        `json:"account_id"`
	Limit        int           `json:"limit"`
	Skip         int           `json:"skip"`
	Transactions []Transaction `json:"transactions"`
}

type LimitStatusResponse struct {
	Daily   *LimitCheck `json:"daily"`
	Monthly *LimitCheck `json:"monthly"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
