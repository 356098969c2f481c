// Package models defines core domain types
package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account holder
type User struct {
	ID           uuid.UUID `json:"uuid"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize to JSON
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser creates a new user with generated ID and timestamps.
// The password hash arrives pre-computed; this service never sees plaintext.
func NewUser(username, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Session is a live login session held in the registry
type Session struct {
	UserID   uuid.UUID `json:"user_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// ResetTicket is a single-use, time-boxed password-reset grant
type ResetTicket struct {
	UserID    uuid.UUID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the ticket can no longer be redeemed at now
func (t ResetTicket) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
