package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/junii03/banking-ledger/internal/errors"
	"github.com/junii03/banking-ledger/internal/models"
	"github.com/junii03/banking-ledger/internal/repository"
	"github.com/junii03/banking-ledger/internal/service"
	"github.com/junii03/banking-ledger/internal/statement"
	u "github.com/junii03/banking-ledger/internal/utils"
)

type AccountHandler struct {
	accountService  service.AccountService
	transferService service.TransferService
	statements      *statement.Builder
	loc             *time.Location
	logger          *slog.Logger
}

func NewAccountHandler(accountService service.AccountService, transferService service.TransferService, statements *statement.Builder, loc *time.Location, logger *slog.Logger) *AccountHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AccountHandler{
		accountService:  accountService,
		transferService: transferService,
		statements:      statements,
		loc:             loc,
		logger:          logger,
	}
}

func (h *AccountHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/accounts", h.CreateAccount).Methods(http.MethodPost)
	router.HandleFunc("/accounts", h.ListAccounts).Methods(http.MethodGet).Queries("owner_id", "{owner_id}")
	router.HandleFunc("/accounts/by-number/{number}", h.GetAccountByNumber).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}", h.GetAccount).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}/status", h.UpdateStatus).Methods(http.MethodPatch)
	router.HandleFunc("/accounts/{id}/transactions", h.GetHistory).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}/summary", h.GetMonthlySummary).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}/limits", h.GetLimits).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}/statement", h.GetStatement).Methods(http.MethodGet)
	router.HandleFunc("/accounts/{id}/holds", h.PlaceHold).Methods(http.MethodPost)
	router.HandleFunc("/accounts/{id}/holds", h.ReleaseHold).Methods(http.MethodDelete)
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAccountRequest
	if err := u.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("invalid create account request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	account, err := h.accountService.CreateAccount(r.Context(), &req)
	if err != nil {
		handleServiceError(h.logger, w, err, "create account")
		return
	}
	u.WriteJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountService.GetAccount(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleServiceError(h.logger, w, err, "get account")
		return
	}
	u.WriteJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) GetAccountByNumber(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountService.GetAccountByNumber(r.Context(), mux.Vars(r)["number"])
	if err != nil {
		handleServiceError(h.logger, w, err, "get account by number")
		return
	}
	u.WriteJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountService.ListOwnerAccounts(r.Context(), mux.Vars(r)["owner_id"])
	if err != nil {
		handleServiceError(h.logger, w, err, "list accounts")
		return
	}
	u.WriteJSON(w, http.StatusOK, accounts)
}

func (h *AccountHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateStatusRequest
	if err := u.DecodeJSON(r, &req); err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	account, err := h.accountService.UpdateStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		handleServiceError(h.logger, w, err, "update account status")
		return
	}
	u.WriteJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]
	filter, err := h.historyFilter(r)
	if err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid query", err.Error())
		return
	}

	transactions, err := h.transferService.GetAccountHistory(r.Context(), accountID, filter)
	if err != nil {
		handleServiceError(h.logger, w, err, "get account history")
		return
	}

	filter = filter.Normalize()
	resp := models.HistoryResponse{
		AccountID:    accountID,
		Limit:        filter.Limit,
		Skip:         filter.Skip,
		Transactions: make([]models.Transaction, 0, len(transactions)),
	}
	for _, txn := range transactions {
		resp.Transactions = append(resp.Transactions, *txn)
	}
	u.WriteJSON(w, http.StatusOK, resp)
}

func (h *AccountHandler) historyFilter(r *http.Request) (repository.HistoryFilter, error) {
	var (
		filter repository.HistoryFilter
		err    error
	)
	q := r.URL.Query()
	if filter.Limit, err = u.QueryInt(r, "limit", repository.DefaultHistoryLimit); err != nil {
		return filter, err
	}
	if filter.Skip, err = u.QueryInt(r, "skip", 0); err != nil {
		return filter, err
	}
	if filter.From, err = u.QueryTime(r, "from", h.loc); err != nil {
		return filter, err
	}
	if filter.To, err = u.QueryTime(r, "to", h.loc); err != nil {
		return filter, err
	}
	filter.Type = models.TransactionType(q.Get("type"))
	filter.Status = models.TransactionStatus(q.Get("status"))
	return filter, nil
}

func (h *AccountHandler) GetMonthlySummary(w http.ResponseWriter, r *http.Request) {
	now := time.Now().In(h.loc)
	year, err := u.QueryInt(r, "year", now.Year())
	if err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid query", err.Error())
		return
	}
	month, err := u.QueryInt(r, "month", int(now.Month()))
	if err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid query", err.Error())
		return
	}

	summary, err := h.transferService.GetMonthlySummary(r.Context(), mux.Vars(r)["id"], year, time.Month(month))
	if err != nil {
		handleServiceError(h.logger, w, err, "get monthly summary")
		return
	}
	u.WriteJSON(w, http.StatusOK, summary)
}

func (h *AccountHandler) GetLimits(w http.ResponseWriter, r *http.Request) {
	status, err := h.transferService.GetLimitStatus(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleServiceError(h.logger, w, err, "get limit status")
		return
	}
	u.WriteJSON(w, http.StatusOK, status)
}

// GetStatement streams a PDF or XLSX statement. The range defaults to the
// current calendar month.
func (h *AccountHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]
	from, err := u.QueryTime(r, "from", h.loc)
	if err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid query", err.Error())
		return
	}
	to, err := u.QueryTime(r, "to", h.loc)
	if err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid query", err.Error())
		return
	}
	if from.IsZero() {
		now := time.Now().In(h.loc)
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, h.loc)
	}
	if to.IsZero() {
		to = from.AddDate(0, 1, 0)
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "pdf"
	}
	if format != "pdf" && format != "xlsx" {
		handleServiceError(h.logger, w, errors.NewValidationError("format", "must be pdf or xlsx"), "get statement")
		return
	}

	st, err := h.statements.Build(r.Context(), accountID, from, to)
	if err != nil {
		handleServiceError(h.logger, w, err, "build statement")
		return
	}

	filename := fmt.Sprintf("statement-%s-%s.%s", st.Account.AccountNumber, from.Format("200601"), format)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if format == "xlsx" {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		err = statement.WriteXLSX(w, st)
	} else {
		w.Header().Set("Content-Type", "application/pdf")
		err = statement.WritePDF(w, st)
	}
	if err != nil {
		h.logger.Error("failed to write statement",
			"account_id", accountID,
			"format", format,
			"error", err.Error(),
		)
	}
}

type holdFunc func(ctx context.Context, accountID string, amount decimal.Decimal) (*models.Account, error)

func (h *AccountHandler) PlaceHold(w http.ResponseWriter, r *http.Request) {
	h.adjustHold(w, r, "place hold", h.transferService.PlaceHold)
}

func (h *AccountHandler) ReleaseHold(w http.ResponseWriter, r *http.Request) {
	h.adjustHold(w, r, "release hold", h.transferService.ReleaseHold)
}

func (h *AccountHandler) adjustHold(w http.ResponseWriter, r *http.Request, operation string, apply holdFunc) {
	var req models.HoldRequest
	if err := u.DecodeJSON(r, &req); err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}
	account, err := apply(r.Context(), mux.Vars(r)["id"], req.Amount)
	if err != nil {
		handleServiceError(h.logger, w, err, operation)
		return
	}
	u.WriteJSON(w, http.StatusOK, account)
}
