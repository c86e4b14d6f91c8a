package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/time-capsule-api/internal/application/capsule"
	"github.com/time-capsule-api/internal/domain"
	"github.com/time-capsule-api/internal/pkg/id"
	"github.com/time-capsule-api/internal/transport/http/middleware"
)

// CapsuleHandler handles capsule CRUD endpoints.
type CapsuleHandler struct {
	svc capsule.Service
}

func NewCapsuleHandler(svc capsule.Service) *CapsuleHandler { return &CapsuleHandler{svc: svc} }

// callerAndID returns the authenticated user and the {id} path parameter.
func callerAndID(r *http.Request) (userID, resourceID string, err error) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return "", "", fmt.Errorf("no session: %w", domain.ErrUnauthorized)
	}
	resourceID = chi.URLParam(r, "id")
	if !id.Valid(resourceID) {
		return "", "", fmt.Errorf("malformed id %q: %w", resourceID, domain.ErrNotFound)
	}
	return claims.UserID, resourceID, nil
}

func (h *CapsuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httpError(w, fmt.Errorf("no session: %w", domain.ErrUnauthorized))
		return
	}
	var req domain.CreateCapsuleRequest
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	c, err := h.svc.Create(r.Context(), claims.UserID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CapsuleHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httpError(w, fmt.Errorf("no session: %w", domain.ErrUnauthorized))
		return
	}
	capsules, err := h.svc.List(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, capsules)
}

func (h *CapsuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, capsuleID, err := callerAndID(r)
	if err != nil {
		httpError(w, err)
		return
	}
	c, err := h.svc.Get(r.Context(), capsuleID, userID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CapsuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, capsuleID, err := callerAndID(r)
	if err != nil {
		httpError(w, err)
		return
	}
	var req domain.UpdateCapsuleRequest
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	c, err := h.svc.Update(r.Context(), capsuleID, userID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CapsuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, capsuleID, err := callerAndID(r)
	if err != nil {
		httpError(w, err)
		return
	}
	if err := h.svc.Delete(r.Context(), capsuleID, userID); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
