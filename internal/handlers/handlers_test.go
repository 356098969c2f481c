package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinflowhq/coinflow/internal/models"
	"github.com/coinflowhq/coinflow/internal/services/auth"
	"github.com/coinflowhq/coinflow/internal/services/ledger"
	"github.com/coinflowhq/coinflow/internal/session"
	"github.com/coinflowhq/coinflow/internal/storage"
)

// memUsers backs both the handler-level CRUD interface and the auth
// service's credential lookups.
type memUsers struct {
	users map[uuid.UUID]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[uuid.UUID]*models.User)}
}

func (m *memUsers) Create(_ context.Context, user *models.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return storage.ErrConflict
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return m.users[id], nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) List(_ context.Context) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memUsers) Update(_ context.Context, id uuid.UUID, username, email, passwordHash string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	u.Username, u.Email, u.PasswordHash = username, email, passwordHash
	u.UpdatedAt = time.Now().UTC()
	return u, nil
}

func (m *memUsers) Delete(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	delete(m.users, id)
	return u, nil
}

func (m *memUsers) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

type memAccounts struct {
	rows []*models.Account
}

func (m *memAccounts) Create(_ context.Context, a *models.Account) error {
	m.rows = append(m.rows, a)
	return nil
}

func (m *memAccounts) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Account, error) {
	var out []models.Account
	for _, a := range m.rows {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memAccounts) Delete(_ context.Context, userID, accountID uuid.UUID) (*models.Account, error) {
	for i, a := range m.rows {
		if a.ID == accountID && a.UserID == userID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return a, nil
		}
	}
	return nil, storage.ErrNotFound
}

type memIncomes struct {
	rows []*models.Income
}

func (m *memIncomes) Create(_ context.Context, in *models.Income) error {
	m.rows = append(m.rows, in)
	return nil
}

func (m *memIncomes) CreateBatch(_ context.Context, incomes []*models.Income) (int, error) {
	m.rows = append(m.rows, incomes...)
	return len(incomes), nil
}

func (m *memIncomes) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Income, error) {
	var out []models.Income
	for _, in := range m.rows {
		if in.UserID == userID {
			out = append(out, *in)
		}
	}
	return out, nil
}

func (m *memIncomes) Delete(_ context.Context, userID, incomeID uuid.UUID) (*models.Income, error) {
	for i, in := range m.rows {
		if in.ID == incomeID && in.UserID == userID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return in, nil
		}
	}
	return nil, storage.ErrNotFound
}

type memExpenses struct {
	rows []*models.Expense
}

func (m *memExpenses) Create(_ context.Context, ex *models.Expense) error {
	m.rows = append(m.rows, ex)
	return nil
}

func (m *memExpenses) CreateBatch(_ context.Context, expenses []*models.Expense) (int, error) {
	m.rows = append(m.rows, expenses...)
	return len(expenses), nil
}

func (m *memExpenses) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Expense, error) {
	var out []models.Expense
	for _, ex := range m.rows {
		if ex.UserID == userID {
			out = append(out, *ex)
		}
	}
	return out, nil
}

func (m *memExpenses) Delete(_ context.Context, userID, expenseID uuid.UUID) (*models.Expense, error) {
	for i, ex := range m.rows {
		if ex.ID == expenseID && ex.UserID == userID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return ex, nil
		}
	}
	return nil, storage.ErrNotFound
}

type memTransfers struct {
	rows []*models.Transaction
}

func (m *memTransfers) Create(_ context.Context, tr *models.Transaction) error {
	m.rows = append(m.rows, tr)
	return nil
}

func (m *memTransfers) CreateBatch(_ context.Context, transfers []*models.Transaction) (int, error) {
	m.rows = append(m.rows, transfers...)
	return len(transfers), nil
}

func (m *memTransfers) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, tr := range m.rows {
		if tr.UserID == userID {
			out = append(out, *tr)
		}
	}
	return out, nil
}

func (m *memTransfers) Delete(_ context.Context, userID, transactionID uuid.UUID) (*models.Transaction, error) {
	for i, tr := range m.rows {
		if tr.ID == transactionID && tr.UserID == userID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return tr, nil
		}
	}
	return nil, storage.ErrNotFound
}

type nopMailer struct{}

func (nopMailer) SendPasswordReset(_, _ string) error { return nil }

type okPinger struct{ err error }

func (p okPinger) Ping(_ context.Context) error { return p.err }

type env struct {
	mux      *http.ServeMux
	users    *memUsers
	incomes  *memIncomes
	registry *session.Registry
}

func newEnv(t *testing.T) *env {
	t.Helper()

	users := newMemUsers()
	accounts := &memAccounts{}
	incomes := &memIncomes{}
	expenses := &memExpenses{}
	transfers := &memTransfers{}
	registry := session.NewRegistry()

	authService := auth.NewService(users, registry, nopMailer{}, "http://localhost:8080", auth.DefaultResetTTL)
	ledgerService := ledger.NewService(accounts, incomes, expenses, transfers)
	h := New(authService, ledgerService, users, okPinger{})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/healthcheck", h.Healthcheck)
	mux.HandleFunc("GET /api/user", h.ListUsers)
	mux.HandleFunc("POST /api/user/new", h.CreateUser)
	mux.HandleFunc("POST /api/user/login", h.Login)
	mux.HandleFunc("POST /api/user/request_password_reset", h.RequestPasswordReset)
	mux.HandleFunc("POST /api/user/reset_password", h.ResetPassword)
	mux.HandleFunc("GET /api/user/{uuid}", h.GetUser)
	mux.HandleFunc("PUT /api/user/{uuid}", h.UpdateUser)
	mux.HandleFunc("DELETE /api/user/{uuid}", h.DeleteUser)
	mux.HandleFunc("POST /api/account/new", h.CreateAccount)
	mux.HandleFunc("GET /api/accounts/{uuid}", h.ListAccounts)
	mux.HandleFunc("DELETE /api/account/{user_uuid}/{account_id}", h.DeleteAccount)
	mux.HandleFunc("POST /api/income/new", h.CreateIncome)
	mux.HandleFunc("POST /api/incomes/bulk", h.BulkCreateIncomes)
	mux.HandleFunc("GET /api/incomes/{uuid}", h.ListIncomes)
	mux.HandleFunc("DELETE /api/income/{user_uuid}/{income_id}", h.DeleteIncome)
	mux.HandleFunc("POST /api/expense/new", h.CreateExpense)
	mux.HandleFunc("POST /api/expenses/bulk", h.BulkCreateExpenses)
	mux.HandleFunc("GET /api/expenses/{uuid}", h.ListExpenses)
	mux.HandleFunc("DELETE /api/expense/{user_uuid}/{expense_id}", h.DeleteExpense)
	mux.HandleFunc("POST /api/transaction/new", h.CreateTransaction)
	mux.HandleFunc("POST /api/transactions/bulk", h.BulkCreateTransactions)
	mux.HandleFunc("GET /api/transactions/{uuid}", h.ListTransactions)
	mux.HandleFunc("DELETE /api/transaction/{user_uuid}/{transaction_id}", h.DeleteTransaction)

	return &env{mux: mux, users: users, incomes: incomes, registry: registry}
}

func (e *env) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (e *env) registerUser(t *testing.T, email, hash string) uuid.UUID {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/user/new", map[string]string{
		"username":      "tester",
		"email":         email,
		"password_hash": hash,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id, err := uuid.Parse(decodeBody(t, rec)["uuid"].(string))
	require.NoError(t, err)
	return id
}

func TestHealthcheck(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/api/healthcheck", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	e := newEnv(t)
	e.registerUser(t, "amy@example.com", "hash-1")

	rec := e.do(t, http.MethodPost, "/api/user/new", map[string]string{
		"username":      "tester",
		"email":         "amy@example.com",
		"password_hash": "hash-2",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateUser_MissingFields(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/api/user/new", map[string]string{"email": "amy@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUser_BadAndAbsentIDs(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/api/user/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/user/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	userID := e.registerUser(t, "amy@example.com", "hash-1")

	rec := e.do(t, http.MethodPost, "/api/user/login", map[string]string{
		"email":         "amy@example.com",
		"password_hash": "hash-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, userID.String(), body["uuid"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	_, ok := e.registry.GetSession(token)
	assert.True(t, ok)
}

func TestLogin_Rejections(t *testing.T) {
	e := newEnv(t)
	e.registerUser(t, "amy@example.com", "hash-1")

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"missing password", map[string]string{"email": "amy@example.com"}, http.StatusBadRequest},
		{"wrong hash", map[string]string{"email": "amy@example.com", "password_hash": "nope"}, http.StatusUnauthorized},
		{"unknown email", map[string]string{"email": "bob@example.com", "password_hash": "hash-1"}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		rec := e.do(t, http.MethodPost, "/api/user/login", tt.body)
		assert.Equal(t, tt.want, rec.Code, tt.name)
	}
}

func TestPasswordReset_Rejections(t *testing.T) {
	e := newEnv(t)

	// Unknown email looks exactly like bad credentials.
	rec := e.do(t, http.MethodPost, "/api/user/request_password_reset", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decodeBody(t, rec)["error"])

	rec = e.do(t, http.MethodPost, "/api/user/reset_password", map[string]string{
		"reset_code":        "bogus",
		"new_password_hash": "hash-2",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid reset code", decodeBody(t, rec)["error"])

	rec = e.do(t, http.MethodPost, "/api/user/reset_password", map[string]string{"reset_code": "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPasswordReset_RoundTrip(t *testing.T) {
	e := newEnv(t)
	userID := e.registerUser(t, "amy@example.com", "old-hash")

	rec := e.do(t, http.MethodPost, "/api/user/request_password_reset", map[string]string{"email": "amy@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	// The code travels by mail; pull it straight from the registry here.
	e.registry.PutTicket("test-code", models.ResetTicket{
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(time.Minute),
	})

	rec = e.do(t, http.MethodPost, "/api/user/reset_password", map[string]string{
		"reset_code":        "test-code",
		"new_password_hash": "new-hash",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/user/login", map[string]string{
		"email":         "amy@example.com",
		"password_hash": "new-hash",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateIncome(t *testing.T) {
	e := newEnv(t)
	userID := uuid.NewString()

	rec := e.do(t, http.MethodPost, "/api/income/new", map[string]any{
		"user_uuid":  userID,
		"account_id": uuid.NewString(),
		"name":       "Salary",
		"amount":     "2500.00",
		"tags":       []string{"work"},
		"date":       "2025-03-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "Income created", body["message"])
	require.Len(t, e.incomes.rows, 1)
	assert.True(t, e.incomes.rows[0].Amount.Equal(decimal.RequireFromString("2500.00")))
}

func TestCreateIncome_Rejections(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"bad user uuid", map[string]any{"user_uuid": "abc", "account_id": uuid.NewString(), "name": "Salary", "amount": "10"}},
		{"bad date", map[string]any{"user_uuid": uuid.NewString(), "account_id": uuid.NewString(), "name": "Salary", "amount": "10", "date": "03/01/2025"}},
		{"missing amount", map[string]any{"user_uuid": uuid.NewString(), "account_id": uuid.NewString(), "name": "Salary"}},
		{"negative amount", map[string]any{"user_uuid": uuid.NewString(), "account_id": uuid.NewString(), "name": "Salary", "amount": "-4"}},
	}

	for _, tt := range tests {
		rec := e.do(t, http.MethodPost, "/api/income/new", tt.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.name)
	}
	assert.Empty(t, e.incomes.rows)
}

func TestBulkIncomes(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/incomes/bulk", map[string]any{
		"user_uuid": uuid.NewString(),
		"incomes": []map[string]any{
			{"account_id": uuid.NewString(), "name": "Salary", "amount": "2500", "date": "2025-03-01"},
			{"account_id": uuid.NewString(), "name": "Bonus", "amount": "300", "date": "2025-03-02"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.EqualValues(t, 2, decodeBody(t, rec)["inserted"])
	assert.Len(t, e.incomes.rows, 2)
}

func TestBulkIncomes_OneBadEntry(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/incomes/bulk", map[string]any{
		"user_uuid": uuid.NewString(),
		"incomes": []map[string]any{
			{"account_id": uuid.NewString(), "name": "Salary", "amount": "2500", "date": "2025-03-01"},
			{"account_id": uuid.NewString(), "name": "Bonus", "amount": "300"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, e.incomes.rows, "a bad batch leaves no partial rows")
}

func TestTransaction_SameAccount(t *testing.T) {
	e := newEnv(t)
	accountID := uuid.NewString()

	rec := e.do(t, http.MethodPost, "/api/transaction/new", map[string]any{
		"user_uuid":    uuid.NewString(),
		"from_account": accountID,
		"to_account":   accountID,
		"amount":       "10",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "same account")
}

func TestDeleteIncome_OwnershipMismatch(t *testing.T) {
	e := newEnv(t)
	owner := uuid.New()
	income := models.NewIncome(owner, uuid.New(), "Salary", decimal.NewFromInt(100), nil, time.Now())
	e.incomes.rows = append(e.incomes.rows, income)

	rec := e.do(t, http.MethodDelete, "/api/income/"+uuid.NewString()+"/"+income.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, e.incomes.rows, 1)

	rec = e.do(t, http.MethodDelete, "/api/income/"+owner.String()+"/"+income.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Income deleted", decodeBody(t, rec)["message"])
	assert.Empty(t, e.incomes.rows)
}

func TestListIncomes_ScopedToUser(t *testing.T) {
	e := newEnv(t)
	alice := uuid.New()
	bob := uuid.New()
	e.incomes.rows = append(e.incomes.rows,
		models.NewIncome(alice, uuid.New(), "Salary", decimal.NewFromInt(100), nil, time.Now()),
		models.NewIncome(bob, uuid.New(), "Salary", decimal.NewFromInt(200), nil, time.Now()),
	)

	rec := e.do(t, http.MethodGet, "/api/incomes/"+alice.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, alice.String(), out[0]["user_uuid"])
}

func TestCreateAccount_DefaultsApplied(t *testing.T) {
	e := newEnv(t)
	userID := uuid.NewString()

	rec := e.do(t, http.MethodPost, "/api/account/new", map[string]any{
		"user_uuid": userID,
		"name":      "Checking",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	account, _ := decodeBody(t, rec)["account"].(map[string]any)
	require.NotNil(t, account)
	assert.Equal(t, "general", account["type"])

	rec = e.do(t, http.MethodGet, "/api/accounts/"+userID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMalformedBody(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/user/login", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
