// Package handlers implements the JSON HTTP surface
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/coinflowhq/coinflow/internal/models"
	"github.com/coinflowhq/coinflow/internal/services/auth"
	"github.com/coinflowhq/coinflow/internal/services/ledger"
	"github.com/coinflowhq/coinflow/internal/storage"
)

// UserStore is the user CRUD slice of the credential store
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context) ([]uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, username, email, passwordHash string) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Pinger verifies storage liveness for the healthcheck
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the services behind the HTTP surface
type Handler struct {
	auth   *auth.Service
	ledger *ledger.Service
	users  UserStore
	db     Pinger
}

// New creates a new Handler
func New(authService *auth.Service, ledgerService *ledger.Service, users UserStore, db Pinger) *Handler {
	return &Handler{
		auth:   authService,
		ledger: ledgerService,
		users:  users,
		db:     db,
	}
}

// Healthcheck round-trips to the database
func (h *Handler) Healthcheck(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		log.Printf("healthcheck failed: %v", err)
		writeError(w, http.StatusInternalServerError, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decode parses the request body into v; a malformed body is a client error
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeServiceError maps service failures onto the response taxonomy.
// Anything unrecognized is a generic 500; the detail goes to the logs
// only, never to the caller.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, auth.ErrInvalidResetCode):
		writeError(w, http.StatusUnauthorized, "Invalid reset code")
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrConflict):
		writeError(w, http.StatusConflict, "already exists")
	default:
		log.Printf("storage failure: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
