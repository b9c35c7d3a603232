package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corebank/ledger-service/internal/config"
	"github.com/corebank/ledger-service/internal/handler"
	"github.com/corebank/ledger-service/internal/ledger"
	"github.com/corebank/ledger-service/internal/middleware"
	"github.com/corebank/ledger-service/internal/models"
	"github.com/corebank/ledger-service/internal/repository"
	"github.com/corebank/ledger-service/internal/service"
)

// newTestRouter wires the same routes as cmd/api, over the memory backend.
func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{JWTSecret: "test-secret"}

	engine := ledger.NewEngine(repository.NewMemory(), log)
	auth := service.NewAuth(repository.NewMemoryUsers(), log, cfg.JWTSecret)
	h := handler.NewHandler(engine, auth, log)

	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/accounts", h.CreateAccount).Methods("POST")
	authRouter.HandleFunc("/accounts", h.ListAccounts).Methods("GET")
	authRouter.HandleFunc("/accounts/{accountNumber}/deposit", h.Deposit).Methods("POST")
	authRouter.HandleFunc("/accounts/{accountNumber}/withdraw", h.Withdraw).Methods("POST")
	authRouter.HandleFunc("/accounts/{accountNumber}/balance", h.GetBalance).Methods("GET")
	authRouter.HandleFunc("/accounts/{accountNumber}/transactions", h.GetTransactions).Methods("GET")
	authRouter.HandleFunc("/transfer", h.Transfer).Methods("POST")
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func obtainToken(t *testing.T, r http.Handler) string {
	t.Helper()
	rec := doJSON(t, r, "POST", "/register", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "s3cret",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, r, "POST", "/login", "", map[string]string{
		"email": "alice@example.com", "password": "s3cret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["token"])
	return resp["token"]
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)
	rec := doJSON(t, r, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, "POST", "/accounts", "", map[string]any{
		"account_number": "A1", "owner_id": "owner1", "initial_balance": "10.00",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, r, "GET", "/accounts", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	r := newTestRouter(t)
	obtainToken(t, r)

	rec := doJSON(t, r, "POST", "/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, r, "POST", "/login", "", map[string]string{
		"email": "nobody@example.com", "password": "s3cret",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r := newTestRouter(t)
	obtainToken(t, r)

	rec := doJSON(t, r, "POST", "/register", "", map[string]string{
		"username": "alice2", "email": "alice@example.com", "password": "other",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAccountLifecycle(t *testing.T) {
	r := newTestRouter(t)
	token := obtainToken(t, r)

	// Create.
	rec := doJSON(t, r, "POST", "/accounts", token, map[string]any{
		"account_number": "A1", "owner_id": "owner1", "initial_balance": "10.00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var account models.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	assert.Equal(t, "A1", account.AccountNumber)
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("10.00")))

	// Duplicate create conflicts and mutates nothing.
	rec = doJSON(t, r, "POST", "/accounts", token, map[string]any{
		"account_number": "A1", "owner_id": "owner2", "initial_balance": "500.00",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	var errResp handler.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, http.StatusConflict, errResp.Status)
	assert.Equal(t, "Conflict", errResp.Error)

	// Deposit.
	rec = doJSON(t, r, "POST", "/accounts/A1/deposit", token, map[string]any{"amount": "5.00"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("15.00")))

	// Overdraw is a 400 and leaves the balance alone.
	rec = doJSON(t, r, "POST", "/accounts/A1/withdraw", token, map[string]any{"amount": "100.00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Balance.
	rec = doJSON(t, r, "GET", "/accounts/A1/balance", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var balResp struct {
		AccountNumber string          `json:"account_number"`
		Balance       decimal.Decimal `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &balResp))
	assert.True(t, balResp.Balance.Equal(decimal.RequireFromString("15.00")))

	// Transfer.
	rec = doJSON(t, r, "POST", "/accounts", token, map[string]any{
		"account_number": "A2", "owner_id": "owner2", "initial_balance": "0.00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, r, "POST", "/transfer", token, map[string]any{
		"source_account_number": "A1", "target_account_number": "A2", "amount": "10.00",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// History shows the paired entries.
	rec = doJSON(t, r, "GET", "/accounts/A2/transactions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []models.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, models.TransactionTransferIn, history[0].Type)
	assert.Equal(t, "Transfer from A1", history[0].Description)

	// List is sorted by account number.
	rec = doJSON(t, r, "GET", "/accounts", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var accounts []models.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accounts))
	require.Len(t, accounts, 2)
	assert.Equal(t, "A1", accounts[0].AccountNumber)
	assert.Equal(t, "A2", accounts[1].AccountNumber)
}

func TestErrorStatusMapping(t *testing.T) {
	r := newTestRouter(t)
	token := obtainToken(t, r)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown balance", "GET", "/accounts/UNKNOWN/balance", nil, http.StatusNotFound},
		{"unknown transactions", "GET", "/accounts/UNKNOWN/transactions", nil, http.StatusNotFound},
		{"deposit unknown", "POST", "/accounts/UNKNOWN/deposit", map[string]any{"amount": "1.00"}, http.StatusNotFound},
		{"deposit zero", "POST", "/accounts/UNKNOWN/deposit", map[string]any{"amount": "0"}, http.StatusBadRequest},
		{"negative initial balance", "POST", "/accounts", map[string]any{
			"account_number": "N1", "owner_id": "o", "initial_balance": "-1.00"}, http.StatusBadRequest},
		{"transfer missing target", "POST", "/transfer", map[string]any{
			"source_account_number": "A1", "target_account_number": "", "amount": "1.00"}, http.StatusBadRequest},
		{"malformed body", "POST", "/accounts", "{not json", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var rec *httptest.ResponseRecorder
			if s, ok := tc.body.(string); ok {
				req := httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(s))
				req.Header.Set("Authorization", "Bearer "+token)
				rec = httptest.NewRecorder()
				r.ServeHTTP(rec, req)
			} else {
				rec = doJSON(t, r, tc.method, tc.path, token, tc.body)
			}
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
			var errResp handler.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
			assert.Equal(t, tc.want, errResp.Status)
			assert.NotEmpty(t, errResp.Message)
		})
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(log))
	r.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "pong")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/ping", nil))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestHeader))
}
