package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/time-capsule-api/internal/application/media"
	"github.com/time-capsule-api/internal/domain"
	"github.com/time-capsule-api/internal/pkg/id"
	"github.com/time-capsule-api/internal/transport/http/middleware"
)

// multipart framing allowance on top of the file size limit
const multipartOverhead = 1 << 20

// MediaHandler handles media upload, signed-URL and delete endpoints.
type MediaHandler struct {
	svc      media.Service
	maxBytes int64
}

func NewMediaHandler(svc media.Service, maxBytes int64) *MediaHandler {
	return &MediaHandler{svc: svc, maxBytes: maxBytes}
}

func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httpError(w, fmt.Errorf("no session: %w", domain.ErrUnauthorized))
		return
	}
	capsuleID := chi.URLParam(r, "capsuleId")
	if !id.Valid(capsuleID) {
		httpError(w, fmt.Errorf("malformed id %q: %w", capsuleID, domain.ErrNotFound))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpError(w, fmt.Errorf("request body exceeds %d bytes: %w", h.maxBytes, domain.ErrTooLarge))
			return
		}
		httpError(w, fmt.Errorf("invalid multipart form: %w", domain.ErrBadRequest))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, header, err := r.FormFile("file")
	if err != nil {
		httpError(w, fmt.Errorf("missing file field: %w", domain.ErrBadRequest))
		return
	}
	defer f.Close()

	m, err := h.svc.Upload(r.Context(), capsuleID, claims.UserID, domain.MediaUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        f,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *MediaHandler) SignedURL(w http.ResponseWriter, r *http.Request) {
	userID, mediaID, err := callerAndID(r)
	if err != nil {
		httpError(w, err)
		return
	}
	u, err := h.svc.SignedURL(r.Context(), mediaID, userID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, mediaID, err := callerAndID(r)
	if err != nil {
		httpError(w, err)
		return
	}
	if err := h.svc.Delete(r.Context(), mediaID, userID); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
