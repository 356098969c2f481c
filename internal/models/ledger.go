package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account holds funds for a user and anchors incomes, expenses, and
// both legs of every transaction
type Account struct {
	ID        uuid.UUID       `json:"uuid"`
	UserID    uuid.UUID       `json:"user_uuid"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewAccount creates an account with generated ID. Type defaults to
// "general" and the opening balance to zero.
func NewAccount(userID uuid.UUID, name, accountType string, balance decimal.Decimal) *Account {
	if accountType == "" {
		accountType = "general"
	}
	return &Account{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Type:      accountType,
		Balance:   balance,
		CreatedAt: time.Now().UTC(),
	}
}

// Income is money received into an account
type Income struct {
	ID         uuid.UUID       `json:"uuid"`
	UserID     uuid.UUID       `json:"user_uuid"`
	AccountID  uuid.UUID       `json:"account_uuid"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Tags       []string        `json:"tags"`
	OccurredOn time.Time       `json:"occurred_on"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewIncome creates an income row with generated ID
func NewIncome(userID, accountID uuid.UUID, name string, amount decimal.Decimal, tags []string, occurredOn time.Time) *Income {
	if tags == nil {
		tags = []string{}
	}
	return &Income{
		ID:         uuid.New(),
		UserID:     userID,
		AccountID:  accountID,
		Name:       name,
		Amount:     amount,
		Tags:       tags,
		OccurredOn: occurredOn,
		CreatedAt:  time.Now().UTC(),
	}
}

// Expense is money paid out of an account
type Expense struct {
	ID         uuid.UUID       `json:"uuid"`
	UserID     uuid.UUID       `json:"user_uuid"`
	AccountID  uuid.UUID       `json:"account_uuid"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Tags       []string        `json:"tags"`
	OccurredOn time.Time       `json:"occurred_on"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewExpense creates an expense row with generated ID
func NewExpense(userID, accountID uuid.UUID, name string, amount decimal.Decimal, tags []string, occurredOn time.Time) *Expense {
	if tags == nil {
		tags = []string{}
	}
	return &Expense{
		ID:         uuid.New(),
		UserID:     userID,
		AccountID:  accountID,
		Name:       name,
		Amount:     amount,
		Tags:       tags,
		OccurredOn: occurredOn,
		CreatedAt:  time.Now().UTC(),
	}
}

// Transaction is a transfer between two accounts of the same user
type Transaction struct {
	ID          uuid.UUID       `json:"uuid"`
	UserID      uuid.UUID       `json:"user_uuid"`
	FromAccount uuid.UUID       `json:"from_account"`
	ToAccount   uuid.UUID       `json:"to_account"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	OccurredOn  time.Time       `json:"occurred_on"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewTransaction creates a transfer row with generated ID
func NewTransaction(userID, from, to uuid.UUID, amount decimal.Decimal, description string, occurredOn time.Time) *Transaction {
	return &Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		FromAccount: from,
		ToAccount:   to,
		Amount:      amount,
		Description: description,
		OccurredOn:  occurredOn,
		CreatedAt:   time.Now().UTC(),
	}
}
