package handler

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/junii03/banking-ledger/internal/errors"
	u "github.com/junii03/banking-ledger/internal/utils"
)

// handleServiceError maps service errors onto HTTP responses.
func handleServiceError(logger *slog.Logger, w http.ResponseWriter, err error, operation string) {
	if limitErr, ok := errors.AsLimitExceeded(err); ok {
		u.WriteErrorDetails(w, http.StatusUnprocessableEntity, "transaction limit exceeded", err.Error(), map[string]string{
			"period":     limitErr.Period,
			"limit":      limitErr.Limit.StringFixed(2),
			"total":      limitErr.Total.StringFixed(2),
			"exceeds_by": limitErr.ExceedsBy.StringFixed(2),
		})
		return
	}

	switch {
	case errors.IsValidationError(err):
		u.WriteError(w, http.StatusBadRequest, "validation error", err.Error())
	case stderrors.Is(err, errors.ErrInvalidAmount):
		u.WriteError(w, http.StatusBadRequest, "invalid amount", err.Error())
	case stderrors.Is(err, errors.ErrSameAccount):
		u.WriteError(w, http.StatusBadRequest, "same source and destination account", err.Error())
	case stderrors.Is(err, errors.ErrInvalidAccountID):
		u.WriteError(w, http.StatusBadRequest, "invalid account ID", "")
	case stderrors.Is(err, errors.ErrAccountNotFound):
		u.WriteError(w, http.StatusNotFound, "account not found", err.Error())
	case stderrors.Is(err, errors.ErrTransactionNotFound):
		u.WriteError(w, http.StatusNotFound, "transaction not found", "")
	case errors.IsAlreadyExists(err):
		u.WriteError(w, http.StatusConflict, "account already exists", "")
	case errors.IsInsufficientFunds(err):
		u.WriteError(w, http.StatusUnprocessableEntity, "insufficient funds", err.Error())
	case stderrors.Is(err, errors.ErrAccountInactive):
		u.WriteError(w, http.StatusUnprocessableEntity, "account not active", err.Error())
	case stderrors.Is(err, errors.ErrAlreadyReversed),
		stderrors.Is(err, errors.ErrNotReversible),
		stderrors.Is(err, errors.ErrInvalidStatusTransition),
		stderrors.Is(err, errors.ErrNonZeroBalance):
		u.WriteError(w, http.StatusConflict, err.Error(), "")
	case errors.IsRetryable(err):
		w.Header().Set("Retry-After", "1")
		u.WriteError(w, http.StatusServiceUnavailable, "please retry", err.Error())
	case stderrors.Is(err, errors.ErrIdentifierExhausted):
		u.WriteError(w, http.StatusServiceUnavailable, "unable to allocate account number", "")
	default:
		logger.Error("internal server error during "+operation, "error", err.Error())
		u.WriteError(w, http.StatusInternalServerError, "internal server error", "")
	}
}
