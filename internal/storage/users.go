package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/coinflowhq/coinflow/internal/models"
)

// UserRepository provides user data access
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. A duplicate email reports ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID. Absent users return nil, nil.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users WHERE id = $1
	`
	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

// GetByEmail retrieves a user by email. Absent users return nil, nil.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	return r.scanUser(r.db.QueryRow(ctx, query, email))
}

// List returns the identifiers of all users
func (r *UserRepository) List(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, "SELECT id FROM users")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Update replaces a user's profile fields and returns the updated row
func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, username, email, passwordHash string) (*models.User, error) {
	query := `
		UPDATE users SET username = $2, email = $3, password_hash = $4, updated_at = $5
		WHERE id = $1
		RETURNING id, username, email, password_hash, created_at, updated_at
	`
	user, err := r.scanUser(r.db.QueryRow(ctx, query, id, username, email, passwordHash, time.Now().UTC()))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// Delete removes a user and returns the removed row
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		DELETE FROM users WHERE id = $1
		RETURNING id, username, email, password_hash, created_at, updated_at
	`
	user, err := r.scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// UpdatePasswordHash replaces only the credential hash
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1",
		id, hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}
