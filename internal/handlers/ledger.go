package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinflowhq/coinflow/internal/services/ledger"
)

const dateLayout = "2006-01-02"

type accountRequest struct {
	UserUUID string           `json:"user_uuid"`
	Name     string           `json:"name"`
	Type     string           `json:"type"`
	Balance  *decimal.Decimal `json:"balance"`
}

// CreateAccount opens a new account for a user
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !decode(w, r, &req) {
		return
	}

	account, err := h.ledger.CreateAccount(r.Context(), ledger.AccountInput{
		UserID:  req.UserUUID,
		Name:    req.Name,
		Type:    req.Type,
		Balance: req.Balance,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Account created", "account": account})
}

// ListAccounts returns a user's accounts
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.ledger.ListAccounts(r.Context(), r.PathValue("uuid"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// DeleteAccount removes an account when owner and ID match
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.ledger.DeleteAccount(r.Context(), r.PathValue("user_uuid"), r.PathValue("account_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Account deleted", "account": account})
}

type entryRequest struct {
	AccountID string           `json:"account_id"`
	Name      string           `json:"name"`
	Amount    *decimal.Decimal `json:"amount"`
	Tags      []string         `json:"tags"`
	Date      string           `json:"date"`
}

type createEntryRequest struct {
	UserUUID string `json:"user_uuid"`
	entryRequest
}

func (e entryRequest) toInput(w http.ResponseWriter) (ledger.EntryInput, bool) {
	date, err := parseDate(e.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, use YYYY-MM-DD")
		return ledger.EntryInput{}, false
	}
	return ledger.EntryInput{
		AccountID: e.AccountID,
		Name:      e.Name,
		Amount:    e.Amount,
		Tags:      e.Tags,
		Date:      date,
	}, true
}

// CreateIncome records a single income
func (h *Handler) CreateIncome(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if !decode(w, r, &req) {
		return
	}
	input, ok := req.toInput(w)
	if !ok {
		return
	}

	income, err := h.ledger.CreateIncome(r.Context(), req.UserUUID, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Income created", "income": income})
}

type bulkEntriesRequest struct {
	UserUUID string         `json:"user_uuid"`
	Incomes  []entryRequest `json:"incomes"`
	Expenses []entryRequest `json:"expenses"`
}

// BulkCreateIncomes records a batch of incomes atomically
func (h *Handler) BulkCreateIncomes(w http.ResponseWriter, r *http.Request) {
	var req bulkEntriesRequest
	if !decode(w, r, &req) {
		return
	}
	inputs, ok := toEntryInputs(w, req.Incomes)
	if !ok {
		return
	}

	count, err := h.ledger.BulkCreateIncomes(r.Context(), req.UserUUID, inputs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"inserted": count})
}

// ListIncomes returns a user's incomes, newest first
func (h *Handler) ListIncomes(w http.ResponseWriter, r *http.Request) {
	incomes, err := h.ledger.ListIncomes(r.Context(), r.PathValue("uuid"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, incomes)
}

// DeleteIncome removes an income when owner and ID match
func (h *Handler) DeleteIncome(w http.ResponseWriter, r *http.Request) {
	income, err := h.ledger.DeleteIncome(r.Context(), r.PathValue("user_uuid"), r.PathValue("income_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Income deleted", "income": income})
}

// CreateExpense records a single expense
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if !decode(w, r, &req) {
		return
	}
	input, ok := req.toInput(w)
	if !ok {
		return
	}

	expense, err := h.ledger.CreateExpense(r.Context(), req.UserUUID, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Expense added successfully", "expense": expense})
}

// BulkCreateExpenses records a batch of expenses atomically
func (h *Handler) BulkCreateExpenses(w http.ResponseWriter, r *http.Request) {
	var req bulkEntriesRequest
	if !decode(w, r, &req) {
		return
	}
	inputs, ok := toEntryInputs(w, req.Expenses)
	if !ok {
		return
	}

	count, err := h.ledger.BulkCreateExpenses(r.Context(), req.UserUUID, inputs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"inserted": count})
}

// ListExpenses returns a user's expenses, newest first
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.ledger.ListExpenses(r.Context(), r.PathValue("uuid"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

// DeleteExpense removes an expense when owner and ID match
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := h.ledger.DeleteExpense(r.Context(), r.PathValue("user_uuid"), r.PathValue("expense_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Expense deleted", "expense": expense})
}

type transferRequest struct {
	FromAccount string           `json:"from_account"`
	ToAccount   string           `json:"to_account"`
	Amount      *decimal.Decimal `json:"amount"`
	Description string           `json:"description"`
	Date        string           `json:"date"`
}

type createTransferRequest struct {
	UserUUID string `json:"user_uuid"`
	transferRequest
}

type bulkTransfersRequest struct {
	UserUUID     string            `json:"user_uuid"`
	Transactions []transferRequest `json:"transactions"`
}

func (t transferRequest) toInput(w http.ResponseWriter) (ledger.TransferInput, bool) {
	date, err := parseDate(t.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, use YYYY-MM-DD")
		return ledger.TransferInput{}, false
	}
	return ledger.TransferInput{
		FromAccount: t.FromAccount,
		ToAccount:   t.ToAccount,
		Amount:      t.Amount,
		Description: t.Description,
		Date:        date,
	}, true
}

// CreateTransaction records a single transfer between two accounts
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransferRequest
	if !decode(w, r, &req) {
		return
	}
	input, ok := req.toInput(w)
	if !ok {
		return
	}

	tr, err := h.ledger.CreateTransaction(r.Context(), req.UserUUID, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Transaction created", "transaction": tr})
}

// BulkCreateTransactions records a batch of transfers atomically
func (h *Handler) BulkCreateTransactions(w http.ResponseWriter, r *http.Request) {
	var req bulkTransfersRequest
	if !decode(w, r, &req) {
		return
	}

	inputs := make([]ledger.TransferInput, 0, len(req.Transactions))
	for _, t := range req.Transactions {
		input, ok := t.toInput(w)
		if !ok {
			return
		}
		inputs = append(inputs, input)
	}

	count, err := h.ledger.BulkCreateTransactions(r.Context(), req.UserUUID, inputs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"inserted": count})
}

// ListTransactions returns a user's transfers, newest first
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.ledger.ListTransactions(r.Context(), r.PathValue("uuid"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transfers)
}

// DeleteTransaction removes a transfer when owner and ID match
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	tr, err := h.ledger.DeleteTransaction(r.Context(), r.PathValue("user_uuid"), r.PathValue("transaction_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Transaction deleted", "transaction": tr})
}

func toEntryInputs(w http.ResponseWriter, entries []entryRequest) ([]ledger.EntryInput, bool) {
	inputs := make([]ledger.EntryInput, 0, len(entries))
	for _, e := range entries {
		input, ok := e.toInput(w)
		if !ok {
			return nil, false
		}
		inputs = append(inputs, input)
	}
	return inputs, true
}

// parseDate accepts an empty date (the service picks a default where one
// is allowed) or a YYYY-MM-DD value
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return &t, nil
}
