package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/time-capsule-api/internal/application/session"
	"github.com/time-capsule-api/internal/domain"
	"github.com/time-capsule-api/internal/pkg/validate"
)

// MessageEnvelope is the generic success wrapper.
type MessageEnvelope struct {
	Message string `json:"message"`
}

// ErrorEnvelope is the body of every error response. Kind is stable and machine-readable.
type ErrorEnvelope struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// UserView is the caller-facing projection of a user.
type UserView struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	Username       string  `json:"username"`
	Phone          *string `json:"phone,omitempty"`
	EmailConfirmed bool    `json:"email_confirmed"`
}

// AuthEnvelope wraps every response that opens a session.
type AuthEnvelope struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	User         *UserView `json:"user,omitempty"`
}

func toUserView(u *domain.User) *UserView {
	if u == nil {
		return nil
	}
	return &UserView{ID: u.UserID, Email: u.Email, Username: u.Username, Phone: u.Phone, EmailConfirmed: u.EmailConfirmed}
}

func toAuthEnvelope(res *session.LoginResult) AuthEnvelope {
	env := AuthEnvelope{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken, TokenType: "bearer"}
	if res.Session != nil {
		env.User = toUserView(res.Session.User)
	}
	return env
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, ErrorEnvelope{Error: msg, Kind: kind})
}

// httpError maps a service error to its status code. Unclassified errors are
// logged and reported as a bare 500.
func httpError(w http.ResponseWriter, err error) {
	kind := domain.Kind(err)
	var status int
	switch {
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrCodeMismatch),
		errors.Is(err, domain.ErrCodeExpired):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrBadRequest),
		errors.Is(err, domain.ErrInvalidSchedule),
		errors.Is(err, domain.ErrLockedCapsule),
		errors.Is(err, domain.ErrNoCodeIssued):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnsupportedType):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrUpstream):
		slog.Warn("upstream failure", "error", err)
		writeError(w, http.StatusBadGateway, kind, domain.ErrUpstream.Error())
		return
	default:
		slog.Error("unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, kind, "internal error")
		return
	}
	writeJSON(w, status, ErrorEnvelope{Error: err.Error(), Kind: kind})
}

// decode reads a JSON body into dst and runs its validate tags.
func decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", domain.ErrBadRequest)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	return nil
}
