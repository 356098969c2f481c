package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/coinflowhq/coinflow/internal/models"
	"github.com/coinflowhq/coinflow/internal/validate"
)

type userRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
}

// CreateUser registers a new user
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.Email == "" || req.PasswordHash == "" {
		writeError(w, http.StatusBadRequest, "Username, email, and password are required")
		return
	}

	user := models.NewUser(req.Username, req.Email, req.PasswordHash)
	if err := h.users.Create(r.Context(), user); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]uuid.UUID{"uuid": user.ID})
}

// ListUsers returns the identifiers of all users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ids, err := h.users.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]map[string]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		out = append(out, map[string]uuid.UUID{"uuid": id})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetUser returns one user by ID
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "uuid")
	if !ok {
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateUser replaces a user's profile fields
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "uuid")
	if !ok {
		return
	}

	var req userRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.Email == "" || req.PasswordHash == "" {
		writeError(w, http.StatusBadRequest, "Username, email, and password are required")
		return
	}

	user, err := h.users.Update(r.Context(), id, req.Username, req.Email, req.PasswordHash)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DeleteUser removes a user and echoes the removed row
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "uuid")
	if !ok {
		return
	}

	user, err := h.users.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// pathUUID extracts and validates a v4 UUID path parameter. Malformed
// identifiers are rejected before any storage round-trip.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := r.PathValue(name)
	if !validate.UUID(raw) {
		writeError(w, http.StatusBadRequest, "invalid UUID")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid UUID")
		return uuid.Nil, false
	}
	return id, true
}
