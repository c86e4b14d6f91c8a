package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/time-capsule-api/internal/config"
	jwtinfra "github.com/time-capsule-api/internal/infrastructure/jwt"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestRouter(t *testing.T, db Pinger) http.Handler {
	t.Helper()
	p, err := jwtinfra.NewHMACProvider([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, err)
	cfg := &config.Config{
		AllowedOrigins:    []string{"http://localhost:5173"},
		MaxUploadBytes:    1024,
		SignedURLTTL:      time.Hour,
		NotifyWindowHours: 24,
	}
	deps := &Deps{JWTProvider: p, DB: db}
	return NewRouter(cfg, deps, NewServices(cfg, deps))
}

func TestRouter_Health(t *testing.T) {
	tests := []struct {
		name   string
		db     Pinger
		path   string
		status int
	}{
		{"root ok", fakePinger{}, "/health", http.StatusOK},
		{"versioned ok", fakePinger{}, "/v1/health", http.StatusOK},
		{"db down", fakePinger{err: errors.New("refused")}, "/health", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			newTestRouter(t, tt.db).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestRouter_Metrics(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(t, fakePinger{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	h := newTestRouter(t, fakePinger{})
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/v1/capsules"},
		{http.MethodPost, "/v1/capsules"},
		{http.MethodGet, "/v1/auth/me"},
		{http.MethodPost, "/v1/media/upload/01HZX3K5J8W2Q4R6T8V0Y2A4C6"},
		{http.MethodGet, "/v1/media/01HZX3K5J8W2Q4R6T8V0Y2A4C7/url"},
	} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "%s %s", route.method, route.path)
	}
}

func TestRouter_NotifyWithoutSecret(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(t, fakePinger{}).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/notify/reminders", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(t, fakePinger{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/roles", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_OTPVerifyLimitedPerConnection(t *testing.T) {
	h := newTestRouter(t, fakePinger{})
	limited := 0
	for i := 0; i < 15; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/otp/verify", nil)
		req.RemoteAddr = "6.6.6.6:4242"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Positive(t, limited)
}
