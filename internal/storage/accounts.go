package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/coinflowhq/coinflow/internal/models"
)

// AccountRepository provides account data access
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account. An unknown owner reports ErrNotFound.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, name, type, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		account.ID,
		account.UserID,
		account.Name,
		account.Type,
		account.Balance,
		account.CreatedAt,
	)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// ListByUser returns all of a user's accounts ordered by name
func (r *AccountRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Account, error) {
	query := `
		SELECT id, user_id, name, type, balance, created_at
		FROM accounts WHERE user_id = $1 ORDER BY name ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Balance, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Delete removes an account when both the ID and the owner match, and
// returns the removed row. Ownership mismatch reports ErrNotFound.
func (r *AccountRepository) Delete(ctx context.Context, userID, accountID uuid.UUID) (*models.Account, error) {
	query := `
		DELETE FROM accounts WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, name, type, balance, created_at
	`
	var a models.Account
	err := r.db.QueryRow(ctx, query, accountID, userID).Scan(
		&a.ID, &a.UserID, &a.Name, &a.Type, &a.Balance, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete account: %w", err)
	}
	return &a, nil
}
