package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/time-capsule-api/internal/domain"
)

// --- mocks ---

type mockMediaStore struct{ mock.Mock }

func (m *mockMediaStore) Create(ctx context.Context, md *domain.Media) error {
	return m.Called(ctx, md).Error(0)
}
func (m *mockMediaStore) Get(ctx context.Context, mediaID string) (*domain.Media, error) {
	args := m.Called(ctx, mediaID)
	if md, _ := args.Get(0).(*domain.Media); md != nil {
		return md, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockMediaStore) Delete(ctx context.Context, mediaID string) error {
	return m.Called(ctx, mediaID).Error(0)
}

type mockObjectStore struct{ mock.Mock }

func (m *mockObjectStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return m.Called(ctx, key, r, size, contentType).Error(0)
}
func (m *mockObjectStore) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}
func (m *mockObjectStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type mockAuthorizer struct{ mock.Mock }

func (m *mockAuthorizer) Authorize(ctx context.Context, capsuleID, userID string) (*domain.Capsule, error) {
	args := m.Called(ctx, capsuleID, userID)
	if c, _ := args.Get(0).(*domain.Capsule); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

var t0 = time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)

func newSvc(ms *mockMediaStore, os *mockObjectStore, ca *mockAuthorizer) Service {
	return NewService(ServiceDeps{
		MediaRepo:      ms,
		Storage:        os,
		Capsules:       ca,
		MaxUploadBytes: 1024,
		SignedURLTTL:   time.Hour,
		Now:            func() time.Time { return t0 },
	})
}

func capsuleOf(owner string, unlocked bool) *domain.Capsule {
	return &domain.Capsule{ID: "c1", OwnerID: owner, IsUnlocked: unlocked}
}

func pngUpload(size int64) domain.MediaUpload {
	return domain.MediaUpload{Filename: "Beach.PNG", ContentType: "image/png", Size: size, Body: strings.NewReader("x")}
}

var stored = &domain.Media{ID: "m1", CapsuleID: "c1", FilePath: "owner/c1/abc.png"}

// --- Upload ---

func TestUpload_HappyPath(t *testing.T) {
	ms, os, ca := &mockMediaStore{}, &mockObjectStore{}, &mockAuthorizer{}
	ca.On("Authorize", mock.Anything, "c1", "owner").Return(capsuleOf("owner", false), nil)
	os.On("Upload", mock.Anything, mock.MatchedBy(func(k string) bool {
		return strings.HasPrefix(k, "owner/c1/") && strings.HasSuffix(k, ".png")
	}), mock.Anything, int64(10), "image/png").Return(nil)
	ms.On("Create", mock.Anything, mock.AnythingOfType("*domain.Media")).Return(nil)

	m, err := newSvc(ms, os, ca).Upload(context.Background(), "c1", "owner", pngUpload(10))
	require.NoError(t, err)
	assert.Equal(t, domain.MediaImage, m.FileType)
	assert.Equal(t, "Beach.PNG", m.Filename)
	assert.Equal(t, t0, m.UploadedAt)
	assert.Nil(t, m.FileURL)
	os.AssertExpectations(t)
}

func TestUpload_UnlockedCapsule(t *testing.T) {
	ms, os, ca := &mockMediaStore{}, &mockObjectStore{}, &mockAuthorizer{}
	ca.On("Authorize", mock.Anything, "c1", "owner").Return(capsuleOf("owner", true), nil)

	_, err := newSvc(ms, os, ca).Upload(context.Background(), "c1", "owner", pngUpload(10))
	assert.ErrorIs(t, err, domain.ErrLockedCapsule)
	os.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpload_StrangerForbidden(t *testing.T) {
	ca := &mockAuthorizer{}
	ca.On("Authorize", mock.Anything, "c1", "stranger").Return(nil, domain.ErrForbidden)

	_, err := newSvc(&mockMediaStore{}, &mockObjectStore{}, ca).Upload(context.Background(), "c1", "stranger", pngUpload(10))
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpload_UnsupportedType(t *testing.T) {
	ca := &mockAuthorizer{}
	ca.On("Authorize", mock.Anything, "c1", "owner").Return(capsuleOf("owner", false), nil)
	up := pngUpload(10)
	up.ContentType = "application/pdf"

	_, err := newSvc(&mockMediaStore{}, &mockObjectStore{}, ca).Upload(context.Background(), "c1", "owner", up)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestUpload_TooLarge(t *testing.T) {
	ca := &mockAuthorizer{}
	ca.On("Authorize", mock.Anything, "c1", "owner").Return(capsuleOf("owner", false), nil)

	_, err := newSvc(&mockMediaStore{}, &mockObjectStore{}, ca).Upload(context.Background(), "c1", "owner", pngUpload(1025))
	assert.ErrorIs(t, err, domain.ErrTooLarge)
}

func TestUpload_ExactlyAtLimit(t *testing.T) {
	ms, os, ca := &mockMediaStore{}, &mockObjectStore{}, &mockAuthorizer{}
	ca.On("Authorize", mock.Anything, "c1", "owner").Return(capsuleOf("owner", false), nil)
	os.On("Upload", mock.Anything, mock.Anything, mock.Anything, int64(1024), "image/png").Return(nil)
	ms.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := newSvc(ms, os, ca).Upload(context.Background(), "c1", "owner", pngUpload(1024))
	assert.NoError(t, err)
}

func TestUpload_StorageFailure(t *testing.T) {
	ms, os, ca := &mockMediaStore{}, &mockObjectStore{}, &mockAuthorizer{}
	ca.On("Authorize", mock.Anything, "c1", "owner").Return(capsuleOf("owner", false), nil)
	os.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket gone"))

	_, err := newSvc(ms, os, ca).Upload(context.Background(), "c1", "owner", pngUpload(10))
	assert.ErrorIs(t, err, domain.ErrUpstream)
	ms.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpload_RecordFailureRemovesObject(t *testing.T) {
	ms, os, ca := &mockMediaStore{}, &mockObjectStore{}, &mockAuthorizer{}
	ca.On("Authorize", mock.Anything, "c1", "owner").Return(capsuleOf("owner", false), nil)
	var key string
	os.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { key = args.String(1) }).
		Return(nil)
	ms.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))
	os.On("Delete", mock.Anything, mock.Anything).Return(nil)

	_, err := newSvc(ms, os, ca).Upload(context.Background(), "c1", "owner", pngUpload(10))
	require.Error(t, err)
	os.AssertCalled(t, "Delete", mock.Anything, key)
}

// --- SignedURL ---

func TestSignedURL_LockedForbidden(t *testing.T) {
	ms, os, ca := &mockMediaStore{}, &mockObjectStore{}, &mockAuthorizer{}
	ms.On("Get", mock.Anything, "m1").Return(stored, nil)
	ca.On("Authorize", mock.Anything, "c1", "member").Return(capsuleOf("owner", false), nil)

	_, err := newSvc(ms, os, ca).SignedURL(context.Background(), "m1", "member")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	os.AssertNotCalled(t, "PresignedURL", mock.Anything, mock.Anything, mock.Anything)
}

func TestSignedURL_Unlocked(t *testing.T) {
	ms, os, ca := &mockMediaStore{}, &mockObjectStore{}, &mockAuthorizer{}
	ms.On("Get", mock.Anything, "m1").Return(stored, nil)
	ca.On("Authorize", mock.Anything, "c1", "member").Return(capsuleOf("owner", true), nil)
	os.On("PresignedURL", mock.Anything, "owner/c1/abc.png", time.Hour).Return("https://signed", nil)

	u, err := newSvc(ms, os, ca).SignedURL(context.Background(), "m1", "member")
	require.NoError(t, err)
	assert.Equal(t, "https://signed", u.URL)
	assert.Equal(t, t0.Add(time.Hour), u.ExpiresAt)
}

func TestSignedURL_NotFound(t *testing.T) {
	ms := &mockMediaStore{}
	ms.On("Get", mock.Anything, "nope").Return(nil, domain.ErrNotFound)

	_, err := newSvc(ms, &mockObjectStore{}, &mockAuthorizer{}).SignedURL(context.Background(), "nope", "u")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// --- Delete ---

func TestDelete_MemberForbidden(t *testing.T) {
	ms, os, ca := &mockMediaStore{}, &mockObjectStore{}, &mockAuthorizer{}
	ms.On("Get", mock.Anything, "m1").Return(stored, nil)
	ca.On("Authorize", mock.Anything, "c1", "member").Return(capsuleOf("owner", false), nil)

	err := newSvc(ms, os, ca).Delete(context.Background(), "m1", "member")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestDelete_UnlockedIsLocked(t *testing.T) {
	ms, os, ca := &mockMediaStore{}, &mockObjectStore{}, &mockAuthorizer{}
	ms.On("Get", mock.Anything, "m1").Return(stored, nil)
	ca.On("Authorize", mock.Anything, "c1", "owner").Return(capsuleOf("owner", true), nil)

	err := newSvc(ms, os, ca).Delete(context.Background(), "m1", "owner")
	assert.ErrorIs(t, err, domain.ErrLockedCapsule)
	os.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDelete_RemovesObjectThenRow(t *testing.T) {
	ms, os, ca := &mockMediaStore{}, &mockObjectStore{}, &mockAuthorizer{}
	ms.On("Get", mock.Anything, "m1").Return(stored, nil)
	ca.On("Authorize", mock.Anything, "c1", "owner").Return(capsuleOf("owner", false), nil)
	os.On("Delete", mock.Anything, "owner/c1/abc.png").Return(nil)
	ms.On("Delete", mock.Anything, "m1").Return(nil)

	require.NoError(t, newSvc(ms, os, ca).Delete(context.Background(), "m1", "owner"))
	ms.AssertExpectations(t)
}
