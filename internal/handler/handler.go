// Package handler is the HTTP surface of the ledger: request decoding,
// delegation to the engine, and error-to-status mapping. No business
// rules live here.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/corebank/ledger-service/internal/ledger"
	"github.com/corebank/ledger-service/internal/middleware"
	"github.com/corebank/ledger-service/internal/service"
)

type Handler struct {
	engine *ledger.Engine
	auth   *service.Auth
	log    *logrus.Logger
}

func NewHandler(engine *ledger.Engine, auth *service.Auth, log *logrus.Logger) *Handler {
	return &Handler{engine: engine, auth: auth, log: log}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountRequest struct {
	AccountNumber  string          `json:"account_number"`
	OwnerID        string          `json:"owner_id"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type transferRequest struct {
	SourceAccountNumber string          `json:"source_account_number"`
	TargetAccountNumber string          `json:"target_account_number"`
	Amount              decimal.Decimal `json:"amount"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	user, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// CreateAccount handles account creation
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.engine.CreateAccount(r.Context(), req.AccountNumber, req.OwnerID, req.InitialBalance)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if userID, ok := middleware.UserID(r.Context()); ok {
		h.log.WithFields(logrus.Fields{"user": userID, "account": account.AccountNumber}).Info("account created via API")
	}
	writeJSON(w, http.StatusCreated, account)
}

// ListAccounts returns all accounts sorted by account number.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.engine.ListAccounts(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// Deposit credits an account.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.engine.Deposit(r.Context(), mux.Vars(r)["accountNumber"], req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Withdraw debits an account.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.engine.Withdraw(r.Context(), mux.Vars(r)["accountNumber"], req.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Transfer moves funds between two accounts atomically.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SourceAccountNumber == "" || req.TargetAccountNumber == "" {
		writeError(w, http.StatusBadRequest, "source and target account numbers are required")
		return
	}

	if err := h.engine.Transfer(r.Context(), req.SourceAccountNumber, req.TargetAccountNumber, req.Amount); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "transfer completed"})
}

// GetBalance returns the committed balance of an account.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountNumber := mux.Vars(r)["accountNumber"]
	balance, err := h.engine.GetBalance(r.Context(), accountNumber)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account_number": accountNumber,
		"balance":        balance,
	})
}

// GetTransactions returns an account's history in append order.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.engine.GetTransactions(r.Context(), mux.Vars(r)["accountNumber"])
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
