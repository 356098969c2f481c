package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/coinflowhq/coinflow/internal/models"
)

// Both legs must belong to the stated user or nothing is written.
const insertTransactionQuery = `
	INSERT INTO transactions (id, user_id, from_account, to_account, amount, description, occurred_on, created_at)
	SELECT $1, $2, $3, $4, $5, $6, $7, $8
	WHERE EXISTS (SELECT 1 FROM accounts WHERE id = $3 AND user_id = $2)
	  AND EXISTS (SELECT 1 FROM accounts WHERE id = $4 AND user_id = $2)
`

// TransactionRepository provides transfer data access
type TransactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a single transfer. A missing or foreign account on
// either leg reports ErrNotFound.
func (r *TransactionRepository) Create(ctx context.Context, tr *models.Transaction) error {
	var description *string
	if tr.Description != "" {
		description = &tr.Description
	}
	tag, err := r.db.Exec(ctx, insertTransactionQuery,
		tr.ID,
		tr.UserID,
		tr.FromAccount,
		tr.ToAccount,
		tr.Amount,
		description,
		tr.OccurredOn,
		tr.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateBatch inserts all transfers in one transaction. Either every row
// is committed or none is; the count of inserted rows is returned.
func (r *TransactionRepository) CreateBatch(ctx context.Context, transfers []*models.Transaction) (int, error) {
	if len(transfers) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, tr := range transfers {
		var description *string
		if tr.Description != "" {
			description = &tr.Description
		}
		batch.Queue(insertTransactionQuery,
			tr.ID, tr.UserID, tr.FromAccount, tr.ToAccount, tr.Amount, description, tr.OccurredOn, tr.CreatedAt)
	}

	br := tx.SendBatch(ctx, batch)
	for range transfers {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return 0, fmt.Errorf("failed to insert transaction batch: %w", err)
		}
		if tag.RowsAffected() == 0 {
			br.Close()
			return 0, ErrNotFound
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("failed to close transaction batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction batch: %w", err)
	}
	return len(transfers), nil
}

// ListByUser returns a user's transfers, newest first
func (r *TransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	query := `
		SELECT id, user_id, from_account, to_account, amount, description, occurred_on, created_at
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transfers := []models.Transaction{}
	for rows.Next() {
		tr, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, *tr)
	}
	return transfers, rows.Err()
}

// Delete removes a transfer when both the ID and the owner match, and
// returns the removed row
func (r *TransactionRepository) Delete(ctx context.Context, userID, transactionID uuid.UUID) (*models.Transaction, error) {
	query := `
		DELETE FROM transactions WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, from_account, to_account, amount, description, occurred_on, created_at
	`
	tr, err := scanTransaction(r.db.QueryRow(ctx, query, transactionID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tr, nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var tr models.Transaction
	var description *string
	err := row.Scan(
		&tr.ID,
		&tr.UserID,
		&tr.FromAccount,
		&tr.ToAccount,
		&tr.Amount,
		&description,
		&tr.OccurredOn,
		&tr.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	if description != nil {
		tr.Description = *description
	}
	return &tr, nil
}
