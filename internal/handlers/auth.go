package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/coinflowhq/coinflow/internal/services/auth"
)

type loginRequest struct {
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
}

type loginResponse struct {
	UUID  uuid.UUID `json:"uuid"`
	Token string    `json:"token"`
}

// Login verifies an email/hash pair and returns a session token
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.PasswordHash == "" {
		writeError(w, http.StatusBadRequest, "Email and password required")
		return
	}

	result, err := h.auth.Login(r.Context(), auth.LoginInput{
		Email:        req.Email,
		PasswordHash: req.PasswordHash,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{UUID: result.UserID, Token: result.Token})
}

type requestResetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset issues a reset code and mails its link. The
// response never reveals whether the mail went out.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req requestResetRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email required")
		return
	}

	if err := h.auth.RequestReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type resetPasswordRequest struct {
	ResetCode       string `json:"reset_code"`
	NewPasswordHash string `json:"new_password_hash"`
}

// ResetPassword exchanges a valid unexpired code for a credential update
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ResetCode == "" || req.NewPasswordHash == "" {
		writeError(w, http.StatusBadRequest, "Reset code and new password required")
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.ResetCode, req.NewPasswordHash); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
