package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	jwtinfra "github.com/time-capsule-api/internal/infrastructure/jwt"
	"github.com/time-capsule-api/internal/transport/http/middleware"
)

const (
	capsuleID = "01HZX3K5J8W2Q4R6T8V0Y2A4C6"
	mediaID   = "01HZX3K5J8W2Q4R6T8V0Y2A4C7"
)

func newTestJWTProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	p, err := jwtinfra.NewHMACProvider([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, err)
	return p
}

// bearerReq builds a request with a signed Bearer token for userID.
func bearerReq(t *testing.T, p *jwtinfra.Provider, method, target, userID string, body []byte) *http.Request {
	t.Helper()
	token, err := p.Sign(userID, "sess1")
	require.NoError(t, err)
	r := httptest.NewRequest(method, target, bytes.NewReader(body))
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// serveAuthed wraps the handler with middleware.Auth before serving.
func serveAuthed(p *jwtinfra.Provider, h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	middleware.Auth(p, nil)(h).ServeHTTP(rr, r)
	return rr
}

// withURLParam injects a chi URL param into the request context.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonBody(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	return env
}

func bytesReader(b []byte) *bytes.Reader { return bytes.NewReader(b) }
