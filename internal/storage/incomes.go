package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/coinflowhq/coinflow/internal/models"
)

// The guarded insert only writes when the referenced account belongs to
// the stated user, so ownership is enforced in the same statement.
const insertIncomeQuery = `
	INSERT INTO incomes (id, user_id, account_id, name, amount, tags, occurred_on, created_at)
	SELECT $1, $2, $3, $4, $5, $6, $7, $8
	WHERE EXISTS (SELECT 1 FROM accounts WHERE id = $3 AND user_id = $2)
`

// IncomeRepository provides income data access
type IncomeRepository struct {
	db *DB
}

// NewIncomeRepository creates a new income repository
func NewIncomeRepository(db *DB) *IncomeRepository {
	return &IncomeRepository{db: db}
}

// Create inserts a single income. A missing or foreign account reports
// ErrNotFound.
func (r *IncomeRepository) Create(ctx context.Context, income *models.Income) error {
	tag, err := r.db.Exec(ctx, insertIncomeQuery,
		income.ID,
		income.UserID,
		income.AccountID,
		income.Name,
		income.Amount,
		income.Tags,
		income.OccurredOn,
		income.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create income: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateBatch inserts all incomes in one transaction. Either every row is
// committed or none is; the count of inserted rows is returned.
func (r *IncomeRepository) CreateBatch(ctx context.Context, incomes []*models.Income) (int, error) {
	if len(incomes) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, in := range incomes {
		batch.Queue(insertIncomeQuery,
			in.ID, in.UserID, in.AccountID, in.Name, in.Amount, in.Tags, in.OccurredOn, in.CreatedAt)
	}

	br := tx.SendBatch(ctx, batch)
	for range incomes {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return 0, fmt.Errorf("failed to insert income batch: %w", err)
		}
		if tag.RowsAffected() == 0 {
			br.Close()
			return 0, ErrNotFound
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("failed to close income batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit income batch: %w", err)
	}
	return len(incomes), nil
}

// ListByUser returns a user's incomes, newest first
func (r *IncomeRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Income, error) {
	query := `
		SELECT id, user_id, account_id, name, amount, tags, occurred_on, created_at
		FROM incomes WHERE user_id = $1 ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list incomes: %w", err)
	}
	defer rows.Close()

	incomes := []models.Income{}
	for rows.Next() {
		var in models.Income
		if err := rows.Scan(&in.ID, &in.UserID, &in.AccountID, &in.Name, &in.Amount, &in.Tags, &in.OccurredOn, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan income: %w", err)
		}
		incomes = append(incomes, in)
	}
	return incomes, rows.Err()
}

// Delete removes an income when both the ID and the owner match, and
// returns the removed row
func (r *IncomeRepository) Delete(ctx context.Context, userID, incomeID uuid.UUID) (*models.Income, error) {
	query := `
		DELETE FROM incomes WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, account_id, name, amount, tags, occurred_on, created_at
	`
	var in models.Income
	err := r.db.QueryRow(ctx, query, incomeID, userID).Scan(
		&in.ID, &in.UserID, &in.AccountID, &in.Name, &in.Amount, &in.Tags, &in.OccurredOn, &in.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete income: %w", err)
	}
	return &in, nil
}
