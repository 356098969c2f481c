// Package storage provides database access and repositories
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the Postgres connection pool
type DB struct {
	*pgxpool.Pool
}

// New creates a new connection pool and verifies it with a ping
func New(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dsn: %w", err)
	}
	cfg.ConnConfig.RuntimeParams["application_name"] = "coinflow"
	cfg.ConnConfig.RuntimeParams["statement_timeout"] = "30000" // 30s
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool}, nil
}

// Migrate runs database migrations
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		createUsersTable,
		createAccountsTable,
		createIncomesTable,
		createExpensesTable,
		createTransactionsTable,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	username TEXT NOT NULL,
	email TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
`

const createAccountsTable = `
CREATE TABLE IF NOT EXISTS accounts (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT 'general',
	balance NUMERIC(14,2) NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts(user_id);
`

const createIncomesTable = `
CREATE TABLE IF NOT EXISTS incomes (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
	tags TEXT[] NOT NULL DEFAULT '{}',
	occurred_on DATE NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_incomes_user_id ON incomes(user_id);
`

const createExpensesTable = `
CREATE TABLE IF NOT EXISTS expenses (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
	tags TEXT[] NOT NULL DEFAULT '{}',
	occurred_on DATE NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_expenses_user_id ON expenses(user_id);
`

const createTransactionsTable = `
CREATE TABLE IF NOT EXISTS transactions (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	from_account UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	to_account UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
	description TEXT,
	occurred_on DATE NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (from_account <> to_account)
);

CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id);
`
