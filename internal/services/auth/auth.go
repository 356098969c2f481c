// Package auth provides the credential and session authority: login,
// reset-code issuance, and reset-code redemption.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/coinflowhq/coinflow/internal/mail"
	"github.com/coinflowhq/coinflow/internal/models"
	"github.com/coinflowhq/coinflow/internal/session"
)

var (
	// ErrInvalidCredentials is deliberately uninformative: it covers an
	// unknown email and a wrong hash alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidResetCode covers absent, already-used, and expired codes
	ErrInvalidResetCode = errors.New("invalid reset code")
)

// DefaultResetTTL is how long a reset code stays redeemable
const DefaultResetTTL = 15 * time.Minute

// UserStore is the slice of the credential store this service needs
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// Service handles authentication and password-reset operations
type Service struct {
	users    UserStore
	registry *session.Registry
	mailer   mail.Mailer
	baseURL  string
	resetTTL time.Duration
	now      func() time.Time
}

// NewService creates a new auth service. baseURL is the public origin
// embedded in reset links.
func NewService(users UserStore, registry *session.Registry, mailer mail.Mailer, baseURL string, resetTTL time.Duration) *Service {
	if resetTTL <= 0 {
		resetTTL = DefaultResetTTL
	}
	return &Service{
		users:    users,
		registry: registry,
		mailer:   mailer,
		baseURL:  baseURL,
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

// LoginInput contains login credentials. PasswordHash arrives
// pre-computed by the client; plaintext never reaches this service.
type LoginInput struct {
	Email        string
	PasswordHash string
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	UserID uuid.UUID
	Token  string
}

// Login verifies the email/hash pair and mints a session token. On any
// failure the registry is left untouched.
func (s *Service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	// Constant-time comparison so response timing leaks nothing about
	// how much of the hash matched.
	if subtle.ConstantTimeCompare([]byte(user.PasswordHash), []byte(input.PasswordHash)) != 1 {
		return nil, ErrInvalidCredentials
	}

	token := uuid.NewString()
	s.registry.PutSession(token, models.Session{
		UserID:   user.ID,
		IssuedAt: s.now().UTC(),
	})

	return &LoginResult{UserID: user.ID, Token: token}, nil
}

// RequestReset mints a time-boxed reset code for the account behind
// email and dispatches the reset link without waiting for delivery. An
// unknown email is reported exactly like bad credentials so the endpoint
// cannot confirm account existence. Earlier codes for the same user stay
// valid; each is single-use.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return ErrInvalidCredentials
	}

	code, err := generateResetCode()
	if err != nil {
		return fmt.Errorf("failed to generate reset code: %w", err)
	}

	s.registry.PutTicket(code, models.ResetTicket{
		UserID:    user.ID,
		ExpiresAt: s.now().UTC().Add(s.resetTTL),
	})

	resetLink := fmt.Sprintf("%s/update-password.html?code=%s", s.baseURL, code)

	// Fire and forget: delivery failure is logged, never surfaced.
	go func() {
		if err := s.mailer.SendPasswordReset(email, resetLink); err != nil {
			log.Printf("password reset mail to %s failed: %v", email, err)
		}
	}()

	return nil
}

// ResetPassword redeems a reset code for a credential update. The code
// is claimed atomically, so of any concurrent redeemers exactly one
// succeeds; if the storage update then fails the ticket is restored so
// the caller can retry with the same code.
func (s *Service) ResetPassword(ctx context.Context, code, newPasswordHash string) error {
	ticket, ok := s.registry.ConsumeTicket(code, s.now().UTC())
	if !ok {
		return ErrInvalidResetCode
	}

	if err := s.users.UpdatePasswordHash(ctx, ticket.UserID, newPasswordHash); err != nil {
		s.registry.PutTicket(code, ticket)
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	return nil
}

// generateResetCode returns 20 random bytes hex-encoded, a distinct
// shape from the UUID session tokens
func generateResetCode() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
