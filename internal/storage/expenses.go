package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/coinflowhq/coinflow/internal/models"
)

const insertExpenseQuery = `
	INSERT INTO expenses (id, user_id, account_id, name, amount, tags, occurred_on, created_at)
	SELECT $1, $2, $3, $4, $5, $6, $7, $8
	WHERE EXISTS (SELECT 1 FROM accounts WHERE id = $3 AND user_id = $2)
`

// ExpenseRepository provides expense data access
type ExpenseRepository struct {
	db *DB
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create inserts a single expense. A missing or foreign account reports
// ErrNotFound.
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	tag, err := r.db.Exec(ctx, insertExpenseQuery,
		expense.ID,
		expense.UserID,
		expense.AccountID,
		expense.Name,
		expense.Amount,
		expense.Tags,
		expense.OccurredOn,
		expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateBatch inserts all expenses in one transaction. Either every row
// is committed or none is; the count of inserted rows is returned.
func (r *ExpenseRepository) CreateBatch(ctx context.Context, expenses []*models.Expense) (int, error) {
	if len(expenses) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, ex := range expenses {
		batch.Queue(insertExpenseQuery,
			ex.ID, ex.UserID, ex.AccountID, ex.Name, ex.Amount, ex.Tags, ex.OccurredOn, ex.CreatedAt)
	}

	br := tx.SendBatch(ctx, batch)
	for range expenses {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return 0, fmt.Errorf("failed to insert expense batch: %w", err)
		}
		if tag.RowsAffected() == 0 {
			br.Close()
			return 0, ErrNotFound
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("failed to close expense batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit expense batch: %w", err)
	}
	return len(expenses), nil
}

// ListByUser returns a user's expenses, newest first
func (r *ExpenseRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Expense, error) {
	query := `
		SELECT id, user_id, account_id, name, amount, tags, occurred_on, created_at
		FROM expenses WHERE user_id = $1 ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		var ex models.Expense
		if err := rows.Scan(&ex.ID, &ex.UserID, &ex.AccountID, &ex.Name, &ex.Amount, &ex.Tags, &ex.OccurredOn, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, ex)
	}
	return expenses, rows.Err()
}

// Delete removes an expense when both the ID and the owner match, and
// returns the removed row
func (r *ExpenseRepository) Delete(ctx context.Context, userID, expenseID uuid.UUID) (*models.Expense, error) {
	query := `
		DELETE FROM expenses WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, account_id, name, amount, tags, occurred_on, created_at
	`
	var ex models.Expense
	err := r.db.QueryRow(ctx, query, expenseID, userID).Scan(
		&ex.ID, &ex.UserID, &ex.AccountID, &ex.Name, &ex.Amount, &ex.Tags, &ex.OccurredOn, &ex.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete expense: %w", err)
	}
	return &ex, nil
}
