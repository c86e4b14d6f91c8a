package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/time-capsule-api/internal/domain"
	"github.com/time-capsule-api/internal/infrastructure/google"
	"github.com/time-capsule-api/internal/pkg/id"
	pkgtoken "github.com/time-capsule-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

const fieldGoogleSub = "google_sub"

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Session      *domain.Session
}

type Service interface {
	// Start opens a new session for an already authenticated user.
	Start(ctx context.Context, u *domain.User) (*LoginResult, error)
	Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error)
	LoginWithGoogle(ctx context.Context, idToken string) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error)
	Validate(ctx context.Context, sessionID string) error
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
	RevokeAll(ctx context.Context, userID string) error
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Disable(ctx context.Context, sessionID string) error
	DisableByUser(ctx context.Context, userID string) error
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, oldToken, newToken string, newExpiry int64) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByGoogleSub(ctx context.Context, sub string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type jwtSigner interface {
	Sign(userID, sessionID string) (string, error)
}

type googleVerifier interface {
	Verify(ctx context.Context, token string) (*google.Payload, error)
}

type service struct {
	sessionRepo     sessionStore
	userRepo        userStore
	jwtProvider     jwtSigner
	google          googleVerifier
	refreshTokenDur time.Duration
	now             func() time.Time
}

type ServiceDeps struct {
	SessionRepo     sessionStore
	UserRepo        userStore
	JWTProvider     jwtSigner
	GoogleVerifier  googleVerifier // nil disables Google sign-in
	RefreshTokenDur time.Duration
	Now             func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		sessionRepo:     deps.SessionRepo,
		userRepo:        deps.UserRepo,
		jwtProvider:     deps.JWTProvider,
		google:          deps.GoogleVerifier,
		refreshTokenDur: deps.RefreshTokenDur,
		now:             now,
	}
}

func (s *service) Start(ctx context.Context, u *domain.User) (*LoginResult, error) {
	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           u.UserID,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshTokenDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessionRepo.Put(ctx, sess); err != nil {
		return nil, err
	}
	bearer, err := s.jwtProvider.Sign(u.UserID, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return &LoginResult{AccessToken: bearer, RefreshToken: refreshToken, Session: sess}, nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error) {
	u, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, fmt.Errorf("account uses external sign-in: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}
	return s.Start(ctx, u)
}

// LoginWithGoogle signs in the account linked to the Google subject. An existing
// local account with the same email gets linked; otherwise a new account is created.
func (s *service) LoginWithGoogle(ctx context.Context, idToken string) (*LoginResult, error) {
	if s.google == nil {
		return nil, fmt.Errorf("google sign-in not configured: %w", domain.ErrBadRequest)
	}
	p, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	u, err := s.userRepo.GetByGoogleSub(ctx, p.Sub)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		u, err = s.linkOrCreateGoogleUser(ctx, p)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}
	return s.Start(ctx, u)
}

func (s *service) linkOrCreateGoogleUser(ctx context.Context, p *google.Payload) (*domain.User, error) {
	email := strings.ToLower(p.Email)
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		if err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{fieldGoogleSub: p.Sub}); err != nil {
			return nil, err
		}
		u.GoogleSub = p.Sub
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.now().UTC()
	userID := id.New()
	u = &domain.User{
		UserID:         userID,
		Username:       googleUsername(email, userID),
		Email:          email,
		EmailConfirmed: true,
		AuthProvider:   domain.AuthProviderGoogle,
		GoogleSub:      p.Sub,
		Enable:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.userRepo.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// googleUsername derives a username from the email local part plus an id suffix.
func googleUsername(email, userID string) string {
	local, _, _ := strings.Cut(email, "@")
	if len(local) > 40 {
		local = local[:40]
	}
	return strings.ToLower(local + "-" + userID[len(userID)-6:])
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.sessionRepo.Disable(ctx, sessionID)
}

func (s *service) Validate(ctx context.Context, sessionID string) error {
	sess, err := s.sessionRepo.Get(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("session not found: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return err
	}
	if !sess.Enable {
		return fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	return nil
}

func (s *service) GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Enable {
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	u, err := s.userRepo.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	sess.User = u
	return sess, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	sess, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	now := s.now()
	if sess.RefreshExpiresAt < now.Unix() {
		return nil, fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
	}
	newToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	newExpiry := now.Add(s.refreshTokenDur).Unix()
	if err := s.sessionRepo.RotateRefreshToken(ctx, sess.SessionID, refreshToken, newToken, newExpiry); err != nil {
		return nil, err
	}
	u, err := s.userRepo.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	bearer, err := s.jwtProvider.Sign(u.UserID, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.RefreshToken = newToken
	sess.RefreshExpiresAt = newExpiry
	sess.User = u
	return &LoginResult{AccessToken: bearer, RefreshToken: newToken, Session: sess}, nil
}

func (s *service) RevokeAll(ctx context.Context, userID string) error {
	return s.sessionRepo.DisableByUser(ctx, userID)
}
