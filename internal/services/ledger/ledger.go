// Package ledger validates and applies mutations to accounts, incomes,
// expenses, and inter-account transactions.
//
// Every identifier is checked for v4-UUID shape before storage is
// touched, and bulk operations validate every entry before the first
// write so a bad batch never leaves partial rows behind.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coinflowhq/coinflow/internal/models"
	"github.com/coinflowhq/coinflow/internal/validate"
)

// ErrValidation marks malformed or missing input that never reached storage
var ErrValidation = errors.New("validation failed")

// AccountStore is the account slice of the backing store
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Account, error)
	Delete(ctx context.Context, userID, accountID uuid.UUID) (*models.Account, error)
}

// IncomeStore is the income slice of the backing store
type IncomeStore interface {
	Create(ctx context.Context, income *models.Income) error
	CreateBatch(ctx context.Context, incomes []*models.Income) (int, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Income, error)
	Delete(ctx context.Context, userID, incomeID uuid.UUID) (*models.Income, error)
}

// ExpenseStore is the expense slice of the backing store
type ExpenseStore interface {
	Create(ctx context.Context, expense *models.Expense) error
	CreateBatch(ctx context.Context, expenses []*models.Expense) (int, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Expense, error)
	Delete(ctx context.Context, userID, expenseID uuid.UUID) (*models.Expense, error)
}

// TransferStore is the transaction slice of the backing store
type TransferStore interface {
	Create(ctx context.Context, tr *models.Transaction) error
	CreateBatch(ctx context.Context, transfers []*models.Transaction) (int, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error)
	Delete(ctx context.Context, userID, transactionID uuid.UUID) (*models.Transaction, error)
}

// Service applies ledger mutations
type Service struct {
	accounts  AccountStore
	incomes   IncomeStore
	expenses  ExpenseStore
	transfers TransferStore
}

// NewService creates a new ledger service
func NewService(accounts AccountStore, incomes IncomeStore, expenses ExpenseStore, transfers TransferStore) *Service {
	return &Service{
		accounts:  accounts,
		incomes:   incomes,
		expenses:  expenses,
		transfers: transfers,
	}
}

// AccountInput describes a new account
type AccountInput struct {
	UserID  string
	Name    string
	Type    string
	Balance *decimal.Decimal
}

// EntryInput describes a new income or expense
type EntryInput struct {
	AccountID string
	Name      string
	Amount    *decimal.Decimal
	Tags      []string
	Date      *time.Time
}

// TransferInput describes a new inter-account transaction
type TransferInput struct {
	FromAccount string
	ToAccount   string
	Amount      *decimal.Decimal
	Description string
	Date        *time.Time
}

// CreateAccount validates and stores a new account
func (s *Service) CreateAccount(ctx context.Context, in AccountInput) (*models.Account, error) {
	userID, err := parseID(in.UserID, "user_uuid")
	if err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	balance := decimal.Zero
	if in.Balance != nil {
		balance = *in.Balance
	}

	account := models.NewAccount(userID, in.Name, in.Type, balance)
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// ListAccounts returns a user's accounts
func (s *Service) ListAccounts(ctx context.Context, userUUID string) ([]models.Account, error) {
	userID, err := parseID(userUUID, "user_uuid")
	if err != nil {
		return nil, err
	}
	return s.accounts.ListByUser(ctx, userID)
}

// DeleteAccount removes an account owned by the given user
func (s *Service) DeleteAccount(ctx context.Context, userUUID, accountUUID string) (*models.Account, error) {
	userID, err := parseID(userUUID, "user_uuid")
	if err != nil {
		return nil, err
	}
	accountID, err := parseID(accountUUID, "account_id")
	if err != nil {
		return nil, err
	}
	return s.accounts.Delete(ctx, userID, accountID)
}

// CreateIncome validates and stores a single income
func (s *Service) CreateIncome(ctx context.Context, userUUID string, in EntryInput) (*models.Income, error) {
	userID, err := parseID(userUUID, "user_uuid")
	if err != nil {
		return nil, err
	}
	accountID, occurredOn, err := validateEntry(in, false)
	if err != nil {
		return nil, err
	}

	income := models.NewIncome(userID, accountID, in.Name, *in.Amount, in.Tags, occurredOn)
	if err := s.incomes.Create(ctx, income); err != nil {
		return nil, err
	}
	return income, nil
}

// BulkCreateIncomes validates every entry before any write, then submits
// the batch as one atomic insert. Returns the number of rows written.
func (s *Service) BulkCreateIncomes(ctx context.Context, userUUID string, entries []EntryInput) (int, error) {
	userID, err := parseID(userUUID, "user_uuid")
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("%w: at least one income is required", ErrValidation)
	}

	incomes := make([]*models.Income, 0, len(entries))
	for i, in := range entries {
		accountID, occurredOn, err := validateEntry(in, true)
		if err != nil {
			return 0, fmt.Errorf("entry %d: %w", i, err)
		}
		incomes = append(incomes, models.NewIncome(userID, accountID, in.Name, *in.Amount, in.Tags, occurredOn))
	}

	return s.incomes.CreateBatch(ctx, incomes)
}

// ListIncomes returns a user's incomes
func (s *Service) ListIncomes(ctx context.Context, userUUID string) ([]models.Income, error) {
	userID, err := parseID(userUUID, "user_uuid")
	if err != nil {
		return nil, err
	}
	return s.incomes.ListByUser(ctx, userID)
}

// DeleteIncome removes an income owned by the given user
func (s *Service) DeleteIncome(ctx context.Context, userUUID, incomeUUID string) (*models.Income, error) {
	userID, err := parseID(userUUID, "user_uuid")
	if err != nil {
		return nil, err
	}
	incomeID, err := parseID(incomeUUID, "income_id")
	if err != nil {
		return nil, err
	}
	return s.incomes.Delete(ctx, userID, incomeID)
}

// CreateExpense validates and stores a single expense
func (s *Service) CreateExpense(ctx context.Context, userUUID string, in EntryInput) (*models.Expense, error) {
	userID, err := parseID(userUUID, "user_uuid")
	if err != nil {
		return nil, err
	}
	accountID, occurredOn, err := validateEntry(in, false)
	if err != nil {
		return nil, err
	}

	expense := models.NewExpense(userID, accountID, in.Name, *in.Amount, in.Tags, occurredOn)
	if err := s.expenses.Create(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

// BulkCreateExpenses validates every entry before any write, then
// submits the batch as one atomic insert
func (s *Service) BulkCreateExpenses(ctx context.Context, userUUID string, entries []EntryInput) (int, error) {
	userID, err := parseID(userUUID, "user_uuid")
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("%w: at least one expense is required", ErrValidation)
	}

	expenses := make([]*models.Expense, 0, len(entries))
	for i, in := range entries {
		accountID, occurredOn, err := validateEntry(in, true)
		if err != nil {
			return 0, fmt.Errorf("entry %d: %w", i, err)
		}
		expenses = append(expenses, models.NewExpense(userID, accountID, in.Name, *in.Amount, in.Tags, occurredOn))
	}

	return s.expenses.CreateBatch(ctx, expenses)
}

// ListExpenses returns a user's expenses
func (s *Service) ListExpenses(ctx context.Context, userUUID string) ([]models.Expense, error) {
	userID, err := parseID(userUUID, "user_uuid")
	if err != nil {
		return nil, err
	}
	return s.expenses.ListByUser(ctx, userID)
}

// DeleteExpense removes an expense owned by the given user
func (s *Service) DeleteExpense(ctx context.Context, userUUID, expenseUUID string) (*models.Expense, error) {
	userID, err := parseID(userUUID, "user_uuid")
	if err != nil {
		return nil, err
	}
	expenseID, err := parseID(expenseUUID, "expense_id")
	if err != nil {
		return nil, err
	}
	return s.expenses.Delete(ctx, userID, expenseID)
}

// CreateTransaction validates and stores a single transfer
func (s *Service) CreateTransaction(ctx context.Context, userUUID string, in TransferInput) (*models.Transaction, error) {
	userID, err := parseID(userUUID, "user_uuid")
	if err != nil {
		return nil, err
	}
	from, to, occurredOn, err := validateTransfer(in, false)
	if err != nil {
		return nil, err
	}

	tr := models.NewTransaction(userID, from, to, *in.Amount, in.Description, occurredOn)
	if err := s.transfers.Create(ctx, tr); err != nil {
		return nil, err
	}
	return tr, nil
}

// BulkCreateTransactions validates every entry before any write, then
// submits the batch as one atomic insert
func (s *Service) BulkCreateTransactions(ctx context.Context, userUUID string, entries []TransferInput) (int, error) {
	userID, err := parseID(userUUID, "user_uuid")
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("%w: at least one transaction is required", ErrValidation)
	}

	transfers := make([]*models.Transaction, 0, len(entries))
	for i, in := range entries {
		from, to, occurredOn, err := validateTransfer(in, true)
		if err != nil {
			return 0, fmt.Errorf("entry %d: %w", i, err)
		}
		transfers = append(transfers, models.NewTransaction(userID, from, to, *in.Amount, in.Description, occurredOn))
	}

	return s.transfers.CreateBatch(ctx, transfers)
}

// ListTransactions returns a user's transfers
func (s *Service) ListTransactions(ctx context.Context, userUUID string) ([]models.Transaction, error) {
	userID, err := parseID(userUUID, "user_uuid")
	if err != nil {
		return nil, err
	}
	return s.transfers.ListByUser(ctx, userID)
}

// DeleteTransaction removes a transfer owned by the given user
func (s *Service) DeleteTransaction(ctx context.Context, userUUID, transactionUUID string) (*models.Transaction, error) {
	userID, err := parseID(userUUID, "user_uuid")
	if err != nil {
		return nil, err
	}
	transactionID, err := parseID(transactionUUID, "transaction_id")
	if err != nil {
		return nil, err
	}
	return s.transfers.Delete(ctx, userID, transactionID)
}

// parseID rejects anything that is not a well-formed v4 UUID before
// storage is touched
func parseID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", ErrValidation, field)
	}
	if !validate.UUID(s) {
		return uuid.Nil, fmt.Errorf("%w: %s is not a valid UUID", ErrValidation, field)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s is not a valid UUID", ErrValidation, field)
	}
	return id, nil
}

func validateEntry(in EntryInput, requireDate bool) (uuid.UUID, time.Time, error) {
	accountID, err := parseID(in.AccountID, "account_id")
	if err != nil {
		return uuid.Nil, time.Time{}, err
	}
	if in.Name == "" {
		return uuid.Nil, time.Time{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := validateAmount(in.Amount); err != nil {
		return uuid.Nil, time.Time{}, err
	}

	occurredOn, err := resolveDate(in.Date, requireDate)
	if err != nil {
		return uuid.Nil, time.Time{}, err
	}
	return accountID, occurredOn, nil
}

func validateTransfer(in TransferInput, requireDate bool) (uuid.UUID, uuid.UUID, time.Time, error) {
	from, err := parseID(in.FromAccount, "from_account")
	if err != nil {
		return uuid.Nil, uuid.Nil, time.Time{}, err
	}
	to, err := parseID(in.ToAccount, "to_account")
	if err != nil {
		return uuid.Nil, uuid.Nil, time.Time{}, err
	}
	if from == to {
		return uuid.Nil, uuid.Nil, time.Time{}, fmt.Errorf("%w: cannot transfer to the same account", ErrValidation)
	}
	if err := validateAmount(in.Amount); err != nil {
		return uuid.Nil, uuid.Nil, time.Time{}, err
	}

	occurredOn, err := resolveDate(in.Date, requireDate)
	if err != nil {
		return uuid.Nil, uuid.Nil, time.Time{}, err
	}
	return from, to, occurredOn, nil
}

func validateAmount(amount *decimal.Decimal) error {
	if amount == nil {
		return fmt.Errorf("%w: amount is required", ErrValidation)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return nil
}

func resolveDate(date *time.Time, required bool) (time.Time, error) {
	if date != nil {
		return *date, nil
	}
	if required {
		return time.Time{}, fmt.Errorf("%w: date is required", ErrValidation)
	}
	return time.Now().UTC(), nil
}
