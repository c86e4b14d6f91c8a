package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/time-capsule-api/internal/domain"
	"github.com/time-capsule-api/internal/pkg/fileutil"
	"github.com/time-capsule-api/internal/pkg/id"
	"github.com/time-capsule-api/internal/pkg/metrics"
)

type Service interface {
	Upload(ctx context.Context, capsuleID, userID string, file domain.MediaUpload) (*domain.Media, error)
	SignedURL(ctx context.Context, mediaID, userID string) (*domain.SignedURL, error)
	Delete(ctx context.Context, mediaID, userID string) error
}

type mediaStore interface {
	Create(ctx context.Context, m *domain.Media) error
	Get(ctx context.Context, mediaID string) (*domain.Media, error)
	Delete(ctx context.Context, mediaID string) error
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type capsuleAuthorizer interface {
	Authorize(ctx context.Context, capsuleID, userID string) (*domain.Capsule, error)
}

type service struct {
	repo         mediaStore
	storage      objectStore
	capsules     capsuleAuthorizer
	maxBytes     int64
	signedURLTTL time.Duration
	now          func() time.Time
}

type ServiceDeps struct {
	MediaRepo      mediaStore
	Storage        objectStore
	Capsules       capsuleAuthorizer
	MaxUploadBytes int64
	SignedURLTTL   time.Duration
	Now            func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:         deps.MediaRepo,
		storage:      deps.Storage,
		capsules:     deps.Capsules,
		maxBytes:     deps.MaxUploadBytes,
		signedURLTTL: deps.SignedURLTTL,
		now:          now,
	}
}

// Upload stores the object first and then its metadata row. If the row cannot
// be written the object is removed again.
func (s *service) Upload(ctx context.Context, capsuleID, userID string, file domain.MediaUpload) (m *domain.Media, err error) {
	defer func() {
		result := "stored"
		if err != nil {
			result = "rejected"
			if domain.Kind(err) == "internal" || domain.Kind(err) == "upstream_failure" {
				result = "failed"
			}
		}
		metrics.MediaUploads.WithLabelValues(result).Inc()
	}()

	c, err := s.capsules.Authorize(ctx, capsuleID, userID)
	if err != nil {
		return nil, err
	}
	if c.IsUnlocked {
		return nil, fmt.Errorf("capsule %s: %w", capsuleID, domain.ErrLockedCapsule)
	}
	kind, ok := domain.ClassifyContentType(file.ContentType)
	if !ok {
		return nil, fmt.Errorf("%q: %w", file.ContentType, domain.ErrUnsupportedType)
	}
	if s.maxBytes > 0 && file.Size > s.maxBytes {
		return nil, fmt.Errorf("%d bytes exceeds %d: %w", file.Size, s.maxBytes, domain.ErrTooLarge)
	}

	key := fileutil.ObjectKey(userID, capsuleID, fileutil.UniqueFilename(file.Filename))
	if err := s.storage.Upload(ctx, key, file.Body, file.Size, file.ContentType); err != nil {
		return nil, fmt.Errorf("%w: store object: %v", domain.ErrUpstream, err)
	}

	m = &domain.Media{
		ID:          id.New(),
		CapsuleID:   capsuleID,
		Filename:    filepath.Base(file.Filename),
		FilePath:    key,
		FileType:    kind,
		ContentType: file.ContentType,
		Size:        file.Size,
		UploadedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		slog.Error("media upload: record not saved", "capsule_id", capsuleID, "key", key, "error", err)
		if cerr := s.storage.Delete(ctx, key); cerr != nil {
			slog.Warn("media upload: orphaned object", "key", key, "error", cerr)
		} else {
			slog.Info("media upload: object removed after failed record", "key", key)
		}
		return nil, err
	}
	return m, nil
}

func (s *service) SignedURL(ctx context.Context, mediaID, userID string) (*domain.SignedURL, error) {
	m, err := s.repo.Get(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	c, err := s.capsules.Authorize(ctx, m.CapsuleID, userID)
	if err != nil {
		return nil, err
	}
	if !c.IsUnlocked {
		return nil, fmt.Errorf("capsule %s is still locked: %w", c.ID, domain.ErrForbidden)
	}
	url, err := s.storage.PresignedURL(ctx, m.FilePath, s.signedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: sign url: %v", domain.ErrUpstream, err)
	}
	return &domain.SignedURL{URL: url, ExpiresAt: s.now().UTC().Add(s.signedURLTTL)}, nil
}

func (s *service) Delete(ctx context.Context, mediaID, userID string) error {
	m, err := s.repo.Get(ctx, mediaID)
	if err != nil {
		return err
	}
	c, err := s.capsules.Authorize(ctx, m.CapsuleID, userID)
	if err != nil {
		return err
	}
	if c.OwnerID != userID {
		return fmt.Errorf("only the owner can remove media: %w", domain.ErrForbidden)
	}
	if c.IsUnlocked {
		return fmt.Errorf("capsule %s: %w", c.ID, domain.ErrLockedCapsule)
	}
	if err := s.storage.Delete(ctx, m.FilePath); err != nil {
		return fmt.Errorf("%w: delete object: %v", domain.ErrUpstream, err)
	}
	return s.repo.Delete(ctx, mediaID)
}
