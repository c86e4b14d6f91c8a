package capsule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/time-capsule-api/internal/domain"
	"github.com/time-capsule-api/internal/infrastructure/postgres"
	"github.com/time-capsule-api/internal/infrastructure/smtp"
	"github.com/time-capsule-api/internal/pkg/id"
	"github.com/time-capsule-api/internal/pkg/metrics"
	"github.com/time-capsule-api/internal/pkg/timeutil"
	"go.uber.org/multierr"
)

type Service interface {
	Create(ctx context.Context, ownerID string, req domain.CreateCapsuleRequest) (*domain.Capsule, error)
	List(ctx context.Context, userID string) ([]domain.Capsule, error)
	Get(ctx context.Context, capsuleID, userID string) (*domain.Capsule, error)
	// Authorize loads the capsule and checks read access without touching media.
	Authorize(ctx context.Context, capsuleID, userID string) (*domain.Capsule, error)
	Update(ctx context.Context, capsuleID, userID string, req domain.UpdateCapsuleRequest) (*domain.Capsule, error)
	Delete(ctx context.Context, capsuleID, userID string) error
}

type capsuleStore interface {
	Create(ctx context.Context, c *domain.Capsule) error
	Get(ctx context.Context, capsuleID string) (*domain.Capsule, error)
	ListOwned(ctx context.Context, userID string) ([]domain.Capsule, error)
	ListShared(ctx context.Context, userID string) ([]domain.Capsule, error)
	Update(ctx context.Context, capsuleID string, updates map[string]interface{}) error
	MarkCreatedEmailSent(ctx context.Context, capsuleID string, at time.Time) error
	Delete(ctx context.Context, capsuleID string) error
}

type mediaStore interface {
	ListByCapsule(ctx context.Context, capsuleID string) ([]domain.Media, error)
}

type objectStore interface {
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type userLookup interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type service struct {
	repo         capsuleStore
	mediaRepo    mediaStore
	storage      objectStore
	userRepo     userLookup
	mailer       smtp.Mailer
	signedURLTTL time.Duration
	now          func() time.Time
}

type ServiceDeps struct {
	CapsuleRepo  capsuleStore
	MediaRepo    mediaStore
	Storage      objectStore
	UserRepo     userLookup
	Mailer       smtp.Mailer // nil skips the creation email
	SignedURLTTL time.Duration
	Now          func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:         deps.CapsuleRepo,
		mediaRepo:    deps.MediaRepo,
		storage:      deps.Storage,
		userRepo:     deps.UserRepo,
		mailer:       deps.Mailer,
		signedURLTTL: deps.SignedURLTTL,
		now:          now,
	}
}

func (s *service) Create(ctx context.Context, ownerID string, req domain.CreateCapsuleRequest) (*domain.Capsule, error) {
	now := s.now().UTC()
	if !timeutil.IsFuture(req.UnlockDate, now) {
		return nil, fmt.Errorf("unlock_date %s: %w", req.UnlockDate.UTC().Format(time.RFC3339), domain.ErrInvalidSchedule)
	}
	title, err := cleanTitle(req.Title)
	if err != nil {
		return nil, err
	}
	c := &domain.Capsule{
		ID:         id.New(),
		OwnerID:    ownerID,
		Title:      title,
		Message:    req.Message,
		UnlockDate: req.UnlockDate.UTC(),
		CreatedAt:  now,
		IsGroup:    req.IsGroup,
		Members:    []string{},
	}
	if req.IsGroup {
		c.Members = req.GroupMembers
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	metrics.CapsulesCreated.Inc()
	s.notifyCreated(ctx, c)
	return c, nil
}

// cleanTitle trims the title; a blank result is rejected before it reaches the store.
func cleanTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", fmt.Errorf("title must not be blank: %w", domain.ErrBadRequest)
	}
	return title, nil
}

// notifyCreated emails the owner about the new capsule. Failures are only logged.
func (s *service) notifyCreated(ctx context.Context, c *domain.Capsule) {
	if s.mailer == nil || s.userRepo == nil {
		return
	}
	owner, err := s.userRepo.Get(ctx, c.OwnerID)
	if err != nil {
		slog.Warn("capsule created: owner lookup failed", "capsule_id", c.ID, "error", err)
		return
	}
	if owner.Email == "" {
		return
	}
	msg, err := smtp.CapsuleCreatedEmail(owner.Email, c)
	if err != nil {
		slog.Warn("capsule created: render email", "capsule_id", c.ID, "error", err)
		return
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		slog.Warn("capsule created: email not sent", "capsule_id", c.ID, "error", err)
		return
	}
	sentAt := s.now().UTC()
	if err := s.repo.MarkCreatedEmailSent(ctx, c.ID, sentAt); err != nil {
		slog.Warn("capsule created: stamp email", "capsule_id", c.ID, "error", err)
		return
	}
	c.CreatedEmailSentAt = &sentAt
}

// List returns owned capsules followed by shared ones, each group newest first.
// A capsule that is both owned and shared appears once, in the owned position.
// Media is attached the same way Get does it.
func (s *service) List(ctx context.Context, userID string) ([]domain.Capsule, error) {
	owned, err := s.repo.ListOwned(ctx, userID)
	if err != nil {
		return nil, err
	}
	shared, err := s.repo.ListShared(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	seen := make(map[string]bool, len(owned))
	out := make([]domain.Capsule, 0, len(owned)+len(shared))
	for _, group := range [][]domain.Capsule{owned, shared} {
		for _, c := range group {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			c.IsUnlocked = c.UnlockedAt(now)
			if err := s.attachMedia(ctx, &c); err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *service) Authorize(ctx context.Context, capsuleID, userID string) (*domain.Capsule, error) {
	c, err := s.repo.Get(ctx, capsuleID)
	if err != nil {
		return nil, err
	}
	if !c.CanRead(userID) {
		return nil, fmt.Errorf("capsule %s: %w", capsuleID, domain.ErrForbidden)
	}
	c.IsUnlocked = c.UnlockedAt(s.now())
	return c, nil
}

// Get returns the capsule with its media. Media URLs are only signed once the capsule is unlocked.
func (s *service) Get(ctx context.Context, capsuleID, userID string) (*domain.Capsule, error) {
	c, err := s.Authorize(ctx, capsuleID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.attachMedia(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) attachMedia(ctx context.Context, c *domain.Capsule) error {
	media, err := s.mediaRepo.ListByCapsule(ctx, c.ID)
	if err != nil {
		return err
	}
	for i := range media {
		media[i].FileURL = nil
		if !c.IsUnlocked {
			continue
		}
		url, err := s.storage.PresignedURL(ctx, media[i].FilePath, s.signedURLTTL)
		if err != nil {
			slog.Warn("sign media url", "media_id", media[i].ID, "error", err)
			continue
		}
		media[i].FileURL = &url
	}
	c.Media = media
	return nil
}

func (s *service) Update(ctx context.Context, capsuleID, userID string, req domain.UpdateCapsuleRequest) (*domain.Capsule, error) {
	c, err := s.Authorize(ctx, capsuleID, userID)
	if err != nil {
		return nil, err
	}
	if c.OwnerID != userID {
		return nil, fmt.Errorf("only the owner can edit a capsule: %w", domain.ErrForbidden)
	}
	if c.IsUnlocked {
		return nil, fmt.Errorf("capsule %s: %w", capsuleID, domain.ErrLockedCapsule)
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title, err := cleanTitle(*req.Title)
		if err != nil {
			return nil, err
		}
		updates[postgres.ColumnTitle] = title
	}
	if req.Message != nil {
		updates[postgres.ColumnMessage] = *req.Message
	}
	if req.UnlockDate != nil && !req.UnlockDate.Equal(c.UnlockDate) {
		if !timeutil.IsFuture(*req.UnlockDate, s.now()) {
			return nil, fmt.Errorf("unlock_date %s: %w", req.UnlockDate.UTC().Format(time.RFC3339), domain.ErrInvalidSchedule)
		}
		updates[postgres.ColumnUnlockDate] = req.UnlockDate.UTC()
		updates[postgres.ColumnReminderSentAt] = nil
	}
	if len(updates) == 0 {
		return s.Get(ctx, capsuleID, userID)
	}
	if err := s.repo.Update(ctx, capsuleID, updates); err != nil {
		return nil, err
	}
	return s.Get(ctx, capsuleID, userID)
}

// Delete removes the capsule and, best-effort, every stored object of its media.
func (s *service) Delete(ctx context.Context, capsuleID, userID string) error {
	c, err := s.repo.Get(ctx, capsuleID)
	if err != nil {
		return err
	}
	if c.OwnerID != userID {
		return fmt.Errorf("only the owner can delete a capsule: %w", domain.ErrForbidden)
	}

	media, err := s.mediaRepo.ListByCapsule(ctx, capsuleID)
	if err != nil {
		return err
	}
	var cleanupErr error
	for _, m := range media {
		cleanupErr = multierr.Append(cleanupErr, s.storage.Delete(ctx, m.FilePath))
	}
	if cleanupErr != nil {
		slog.Warn("capsule delete: some objects were not removed",
			"capsule_id", capsuleID, "failed", len(multierr.Errors(cleanupErr)), "error", cleanupErr)
	}
	return s.repo.Delete(ctx, capsuleID)
}
