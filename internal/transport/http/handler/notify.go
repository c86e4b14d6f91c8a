package handler

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/time-capsule-api/internal/application/reminder"
	"github.com/time-capsule-api/internal/domain"
)

const notifySecretHeader = "X-Notify-Secret"

// NotifyHandler lets an external scheduler trigger the reminder sweep.
type NotifyHandler struct {
	svc         reminder.Service
	secret      string
	windowHours int
}

func NewNotifyHandler(svc reminder.Service, secret string, windowHours int) *NotifyHandler {
	return &NotifyHandler{svc: svc, secret: secret, windowHours: windowHours}
}

func (h *NotifyHandler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return false
	}
	got := r.Header.Get(notifySecretHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}

func (h *NotifyHandler) SendReminders(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		httpError(w, fmt.Errorf("bad notify secret: %w", domain.ErrUnauthorized))
		return
	}
	n, err := h.svc.SendDueReminders(r.Context(), h.windowHours)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"sent": n})
}
