package handlers

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"zingo/backend/internal/auth"
)

type adminAuthRequest struct {
	Password string `json:"password" validate:"required"`
}

type adminAuthResponse struct {
	Token string `json:"token"`
}

// AuthAdmin exchanges the operator password for a short-lived admin token.
func (h *Handler) AuthAdmin(w http.ResponseWriter, r *http.Request) {
	var req adminAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}
	if h.cfg.AdminPasswordHash == "" {
		writeError(w, http.StatusServiceUnavailable, "admin auth is not configured")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.AdminPasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := auth.SignAccessToken(h.cfg.JWTSecret, "admin")
	if err != nil {
		h.loggerForRequest(r).Error("sign_token_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, adminAuthResponse{Token: token})
}
