package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/corebank/ledger-service/internal/ledger"
	"github.com/corebank/ledger-service/internal/service"
)

// ErrorResponse is the uniform error body: HTTP status, reason phrase,
// and a human-readable detail.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, ErrorResponse{
		Status:  code,
		Error:   http.StatusText(code),
		Message: message,
	})
}

// writeLedgerError maps the ledger taxonomy onto status codes. Anything
// outside the taxonomy is an infrastructure fault and becomes a 500
// without leaking the cause.
func writeLedgerError(w http.ResponseWriter, err error) {
	var (
		alreadyExists *ledger.AlreadyExistsError
		notFound      *ledger.NotFoundError
		invalidAmount *ledger.InvalidAmountError
		insufficient  *ledger.InsufficientFundsError
	)
	switch {
	case errors.As(err, &alreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &invalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &insufficient):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
