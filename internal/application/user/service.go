package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/time-capsule-api/internal/application/session"
	"github.com/time-capsule-api/internal/domain"
	"github.com/time-capsule-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	// Signup creates a local account, opens its first session and sends an
	// email verification code. A failed code delivery does not fail the signup.
	Signup(ctx context.Context, req domain.SignupRequest) (*session.LoginResult, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type userStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
}

type sessionStarter interface {
	Start(ctx context.Context, u *domain.User) (*session.LoginResult, error)
}

type codeIssuer interface {
	Issue(ctx context.Context, email string, purpose domain.Purpose) error
}

type service struct {
	repo     userStore
	sessions sessionStarter
	codes    codeIssuer
	now      func() time.Time
}

type ServiceDeps struct {
	UserRepo   userStore
	Sessions   sessionStarter
	CodeIssuer codeIssuer
	Now        func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     deps.UserRepo,
		sessions: deps.Sessions,
		codes:    deps.CodeIssuer,
		now:      now,
	}
}

func (s *service) Signup(ctx context.Context, req domain.SignupRequest) (*session.LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	if err := s.ensureFree(ctx, s.repo.GetByEmail, email, "email already registered"); err != nil {
		return nil, err
	}
	if err := s.ensureFree(ctx, s.repo.GetByUsername, username, "username already taken"); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Username:     username,
		Email:        email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		AuthProvider: domain.AuthProviderLocal,
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}

	res, err := s.sessions.Start(ctx, u)
	if err != nil {
		return nil, err
	}
	if s.codes != nil {
		if err := s.codes.Issue(ctx, email, domain.PurposeEmailVerify); err != nil {
			slog.Warn("signup: verification code not delivered", "user_id", u.UserID, "error", err)
		}
	}
	return res, nil
}

func (s *service) ensureFree(ctx context.Context, lookup func(context.Context, string) (*domain.User, error), value, msg string) error {
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return fmt.Errorf("%s: %w", msg, domain.ErrConflict)
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}
