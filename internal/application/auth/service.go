package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/time-capsule-api/internal/application/session"
	"github.com/time-capsule-api/internal/domain"
	"github.com/time-capsule-api/internal/infrastructure/smtp"
	"github.com/time-capsule-api/internal/pkg/metrics"
	"github.com/time-capsule-api/internal/pkg/otp"
	"golang.org/x/crypto/bcrypt"
)

const (
	fieldEmailConfirmed = "email_confirmed"
	fieldPasswordHash   = "password_hash"

	minPasswordLen = 6
)

type CodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

// Service issues and redeems one-time codes. Each (user, purpose) pair holds at
// most one pending code; issuing again replaces it.
type Service interface {
	Issue(ctx context.Context, email string, purpose domain.Purpose) error
	VerifyEmail(ctx context.Context, email, code string) error
	VerifyLoginOTP(ctx context.Context, email, code string) (*session.LoginResult, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

type verificationStore interface {
	Put(ctx context.Context, v *domain.UserVerification) error
	Get(ctx context.Context, userID string, purpose domain.Purpose) (*domain.UserVerification, error)
	Consume(ctx context.Context, userID string, purpose domain.Purpose, code string) error
	Delete(ctx context.Context, userID string, purpose domain.Purpose) error
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type sessionManager interface {
	Start(ctx context.Context, u *domain.User) (*session.LoginResult, error)
	RevokeAll(ctx context.Context, userID string) error
}

type service struct {
	verificationRepo verificationStore
	userRepo         userStore
	sessions         sessionManager
	mailer           smtp.Mailer
	now              func() time.Time
}

type ServiceDeps struct {
	VerificationRepo verificationStore
	UserRepo         userStore
	Sessions         sessionManager
	Mailer           smtp.Mailer
	Now              func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		verificationRepo: deps.VerificationRepo,
		userRepo:         deps.UserRepo,
		sessions:         deps.Sessions,
		mailer:           deps.Mailer,
		now:              now,
	}
}

func (s *service) lookup(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return u, err
}

func (s *service) Issue(ctx context.Context, email string, purpose domain.Purpose) error {
	if !purpose.Valid() {
		return fmt.Errorf("unknown purpose %q: %w", purpose, domain.ErrBadRequest)
	}
	u, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	code, err := otp.Generate()
	if err != nil {
		return err
	}
	lifetime := purpose.Lifetime()
	expiresAt := s.now().UTC().Add(lifetime)
	v := &domain.UserVerification{
		UserID:    u.UserID,
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: expiresAt,
		TTL:       expiresAt.Unix(),
	}
	if err := s.verificationRepo.Put(ctx, v); err != nil {
		return err
	}
	metrics.CodesIssued.WithLabelValues(string(purpose)).Inc()

	msg, err := smtp.CodeEmail(u.Email, purpose, code, lifetime)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: send %s code: %v", domain.ErrUpstream, purpose, err)
	}
	return nil
}

// verify redeems code for purpose. The pending record is gone afterwards
// whether the code was consumed or found expired.
func (s *service) verify(ctx context.Context, email, code string, purpose domain.Purpose) (u *domain.User, err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = domain.Kind(err)
		}
		metrics.CodeRedemptions.WithLabelValues(string(purpose), result).Inc()
	}()

	u, err = s.lookup(ctx, email)
	if err != nil {
		return nil, err
	}
	v, err := s.verificationRepo.Get(ctx, u.UserID, purpose)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", purpose, domain.ErrNoCodeIssued)
	}
	if err != nil {
		return nil, err
	}
	if !otp.Equal(v.Code, code) {
		return nil, fmt.Errorf("%s: %w", purpose, domain.ErrCodeMismatch)
	}
	if s.now().After(v.ExpiresAt) {
		if err := s.verificationRepo.Delete(ctx, u.UserID, purpose); err != nil {
			slog.Warn("failed to clear expired code", "user_id", u.UserID, "purpose", purpose, "error", err)
		}
		return nil, fmt.Errorf("%s: %w", purpose, domain.ErrCodeExpired)
	}
	if err := s.verificationRepo.Consume(ctx, u.UserID, purpose, v.Code); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%s already redeemed: %w", purpose, domain.ErrNoCodeIssued)
		}
		return nil, err
	}
	return u, nil
}

func (s *service) VerifyEmail(ctx context.Context, email, code string) error {
	u, err := s.verify(ctx, email, code, domain.PurposeEmailVerify)
	if err != nil {
		return err
	}
	return s.userRepo.Update(ctx, u.UserID, map[string]interface{}{fieldEmailConfirmed: true})
}

func (s *service) VerifyLoginOTP(ctx context.Context, email, code string) (*session.LoginResult, error) {
	u, err := s.verify(ctx, email, code, domain.PurposeLoginOTP)
	if err != nil {
		return nil, err
	}
	if !u.Enable {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}
	return s.sessions.Start(ctx, u)
}

// ResetPassword replaces the password and signs the user out everywhere.
// The new password is checked before the code is spent.
func (s *service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return fmt.Errorf("new_password must be at least %d characters: %w", minPasswordLen, domain.ErrBadRequest)
	}
	u, err := s.verify(ctx, email, code, domain.PurposeRecoveryOTP)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{fieldPasswordHash: string(hash)}); err != nil {
		return err
	}
	return s.sessions.RevokeAll(ctx, u.UserID)
}
