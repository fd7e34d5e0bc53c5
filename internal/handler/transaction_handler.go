package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/junii03/banking-ledger/internal/models"
	"github.com/junii03/banking-ledger/internal/service"
	u "github.com/junii03/banking-ledger/internal/utils"
)

type TransactionHandler struct {
	transferService service.TransferService
	logger          *slog.Logger
}

func NewTransactionHandler(transferService service.TransferService, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		transferService: transferService,
		logger:          logger,
	}
}

func (h *TransactionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/transactions", h.CreateTransfer).Methods(http.MethodPost)
	router.HandleFunc("/transactions/{id}", h.GetTransaction).Methods(http.MethodGet)
	router.HandleFunc("/transactions/{id}/reverse", h.Reverse).Methods(http.MethodPost)
	router.HandleFunc("/deposits", h.CreateDeposit).Methods(http.MethodPost)
	router.HandleFunc("/withdrawals", h.CreateWithdrawal).Methods(http.MethodPost)
}

func (h *TransactionHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest
	if err := u.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("invalid transfer request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	transaction, err := h.transferService.Transfer(r.Context(), &req)
	if err != nil {
		handleServiceError(h.logger, w, err, "create transfer")
		return
	}
	u.WriteJSON(w, http.StatusCreated, transaction)
}

func (h *TransactionHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req models.DepositRequest
	if err := u.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("invalid deposit request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	transaction, err := h.transferService.Deposit(r.Context(), &req)
	if err != nil {
		handleServiceError(h.logger, w, err, "create deposit")
		return
	}
	u.WriteJSON(w, http.StatusCreated, transaction)
}

func (h *TransactionHandler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req models.WithdrawalRequest
	if err := u.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("invalid withdrawal request", "error", err.Error())
		u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
		return
	}

	transaction, err := h.transferService.Withdraw(r.Context(), &req)
	if err != nil {
		handleServiceError(h.logger, w, err, "create withdrawal")
		return
	}
	u.WriteJSON(w, http.StatusCreated, transaction)
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transaction, err := h.transferService.GetTransaction(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleServiceError(h.logger, w, err, "get transaction")
		return
	}
	u.WriteJSON(w, http.StatusOK, transaction)
}

func (h *TransactionHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	var req models.ReverseRequest
	if r.ContentLength != 0 {
		if err := u.DecodeJSON(r, &req); err != nil {
			u.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
			return
		}
	}

	transaction, err := h.transferService.Reverse(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		handleServiceError(h.logger, w, err, "reverse transaction")
		return
	}
	u.WriteJSON(w, http.StatusCreated, transaction)
}
