package handler

import (
	"fmt"
	"net/http"

	"github.com/time-capsule-api/internal/application/session"
	"github.com/time-capsule-api/internal/application/user"
	"github.com/time-capsule-api/internal/domain"
	"github.com/time-capsule-api/internal/transport/http/middleware"
)

// AuthHandler handles account and session endpoints.
type AuthHandler struct {
	users    user.Service
	sessions session.Service
}

func NewAuthHandler(users user.Service, sessions session.Service) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	res, err := h.users.Signup(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAuthEnvelope(res))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	res, err := h.sessions.Login(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthEnvelope(res))
}

func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDToken string `json:"id_token" validate:"required"`
	}
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	res, err := h.sessions.LoginWithGoogle(r.Context(), req.IDToken)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthEnvelope(res))
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	res, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthEnvelope(res))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httpError(w, fmt.Errorf("no session: %w", domain.ErrUnauthorized))
		return
	}
	if err := h.sessions.Logout(r.Context(), claims.SessionID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httpError(w, fmt.Errorf("no session: %w", domain.ErrUnauthorized))
		return
	}
	sess, err := h.sessions.GetCurrent(r.Context(), claims.SessionID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(sess.User))
}
