package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/time-capsule-api/internal/domain"
)

func TestHTTPError_StatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{domain.ErrCodeMismatch, http.StatusUnauthorized, "code_mismatch"},
		{domain.ErrCodeExpired, http.StatusUnauthorized, "code_expired"},
		{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{domain.ErrNotFound, http.StatusNotFound, "not_found"},
		{domain.ErrConflict, http.StatusConflict, "conflict"},
		{domain.ErrBadRequest, http.StatusBadRequest, "bad_request"},
		{domain.ErrInvalidSchedule, http.StatusBadRequest, "invalid_schedule"},
		{domain.ErrLockedCapsule, http.StatusBadRequest, "locked_capsule"},
		{domain.ErrNoCodeIssued, http.StatusBadRequest, "no_code_issued"},
		{domain.ErrUnsupportedType, http.StatusUnsupportedMediaType, "unsupported_type"},
		{domain.ErrTooLarge, http.StatusRequestEntityTooLarge, "too_large"},
		{domain.ErrUpstream, http.StatusBadGateway, "upstream_failure"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			rr := httptest.NewRecorder()
			httpError(rr, fmt.Errorf("wrapped: %w", tc.err))
			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, tc.kind, decodeError(t, rr).Kind)
		})
	}
}

func TestHTTPError_InternalDetailHidden(t *testing.T) {
	rr := httptest.NewRecorder()
	httpError(rr, errors.New("pq: password authentication failed for user admin"))
	assert.Equal(t, "internal error", decodeError(t, rr).Error)
}
