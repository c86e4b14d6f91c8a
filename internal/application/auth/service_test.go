package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/time-capsule-api/internal/application/session"
	"github.com/time-capsule-api/internal/domain"
	"github.com/time-capsule-api/internal/infrastructure/smtp"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockVerificationStore struct{ mock.Mock }

func (m *mockVerificationStore) Put(ctx context.Context, v *domain.UserVerification) error {
	return m.Called(ctx, v).Error(0)
}
func (m *mockVerificationStore) Get(ctx context.Context, userID string, purpose domain.Purpose) (*domain.UserVerification, error) {
	args := m.Called(ctx, userID, purpose)
	if v, _ := args.Get(0).(*domain.UserVerification); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockVerificationStore) Consume(ctx context.Context, userID string, purpose domain.Purpose, code string) error {
	return m.Called(ctx, userID, purpose, code).Error(0)
}
func (m *mockVerificationStore) Delete(ctx context.Context, userID string, purpose domain.Purpose) error {
	return m.Called(ctx, userID, purpose).Error(0)
}

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockSessionManager struct{ mock.Mock }

func (m *mockSessionManager) Start(ctx context.Context, u *domain.User) (*session.LoginResult, error) {
	args := m.Called(ctx, u)
	if r, _ := args.Get(0).(*session.LoginResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionManager) RevokeAll(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(ctx context.Context, msg smtp.Message) error {
	return m.Called(ctx, msg).Error(0)
}

// --- helpers ---

var fixedNow = time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	vs     *mockVerificationStore
	us     *mockUserStore
	sm     *mockSessionManager
	mailer *mockMailer
	now    time.Time
}

func newFixture() *fixture {
	return &fixture{
		vs:     &mockVerificationStore{},
		us:     &mockUserStore{},
		sm:     &mockSessionManager{},
		mailer: &mockMailer{},
		now:    fixedNow,
	}
}

func (f *fixture) svc() Service {
	return NewService(ServiceDeps{
		VerificationRepo: f.vs,
		UserRepo:         f.us,
		Sessions:         f.sm,
		Mailer:           f.mailer,
		Now:              func() time.Time { return f.now },
	})
}

var alice = &domain.User{UserID: "u1", Email: "alice@example.com", Enable: true}

func pending(purpose domain.Purpose, code string, expiresAt time.Time) *domain.UserVerification {
	return &domain.UserVerification{UserID: "u1", Purpose: purpose, Code: code, ExpiresAt: expiresAt}
}

// --- Issue ---

func TestIssue_StoresCodeAndSendsEmail(t *testing.T) {
	f := newFixture()
	f.us.On("GetByEmail", mock.Anything, "alice@example.com").Return(alice, nil)
	var stored *domain.UserVerification
	f.vs.On("Put", mock.Anything, mock.AnythingOfType("*domain.UserVerification")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.UserVerification) }).
		Return(nil)
	f.mailer.On("Send", mock.Anything, mock.MatchedBy(func(m smtp.Message) bool {
		return m.To == "alice@example.com" && m.HTML != "" && m.Text != ""
	})).Return(nil)

	require.NoError(t, f.svc().Issue(context.Background(), "Alice@Example.com", domain.PurposeEmailVerify))
	require.NotNil(t, stored)
	assert.Len(t, stored.Code, 6)
	assert.Equal(t, domain.PurposeEmailVerify, stored.Purpose)
	assert.Equal(t, fixedNow.Add(15*time.Minute), stored.ExpiresAt)
	assert.Equal(t, stored.ExpiresAt.Unix(), stored.TTL)
	f.mailer.AssertExpectations(t)
}

func TestIssue_LoginOTPLifetime(t *testing.T) {
	f := newFixture()
	f.us.On("GetByEmail", mock.Anything, "alice@example.com").Return(alice, nil)
	f.vs.On("Put", mock.Anything, mock.MatchedBy(func(v *domain.UserVerification) bool {
		return v.ExpiresAt.Equal(fixedNow.Add(10 * time.Minute))
	})).Return(nil)
	f.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, f.svc().Issue(context.Background(), "alice@example.com", domain.PurposeLoginOTP))
	f.vs.AssertExpectations(t)
}

func TestIssue_UnknownUser(t *testing.T) {
	f := newFixture()
	f.us.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, domain.ErrNotFound)

	err := f.svc().Issue(context.Background(), "nobody@example.com", domain.PurposeLoginOTP)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	f.vs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestIssue_SendFailureKeepsCode(t *testing.T) {
	f := newFixture()
	f.us.On("GetByEmail", mock.Anything, "alice@example.com").Return(alice, nil)
	f.vs.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	err := f.svc().Issue(context.Background(), "alice@example.com", domain.PurposeLoginOTP)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	f.vs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestIssue_InvalidPurpose(t *testing.T) {
	err := newFixture().svc().Issue(context.Background(), "alice@example.com", domain.Purpose("bogus"))
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

// --- Verify outcomes ---

func TestVerifyEmail_Success(t *testing.T) {
	f := newFixture()
	f.us.On("GetByEmail", mock.Anything, "alice@example.com").Return(alice, nil)
	f.vs.On("Get", mock.Anything, "u1", domain.PurposeEmailVerify).Return(pending(domain.PurposeEmailVerify, "123456", fixedNow.Add(time.Minute)), nil)
	f.vs.On("Consume", mock.Anything, "u1", domain.PurposeEmailVerify, "123456").Return(nil)
	f.us.On("Update", mock.Anything, "u1", map[string]interface{}{"email_confirmed": true}).Return(nil)

	require.NoError(t, f.svc().VerifyEmail(context.Background(), "alice@example.com", "123456"))
	f.us.AssertExpectations(t)
}

func TestVerifyEmail_Mismatch(t *testing.T) {
	f := newFixture()
	f.us.On("GetByEmail", mock.Anything, "alice@example.com").Return(alice, nil)
	f.vs.On("Get", mock.Anything, "u1", domain.PurposeEmailVerify).Return(pending(domain.PurposeEmailVerify, "123456", fixedNow.Add(time.Minute)), nil)

	err := f.svc().VerifyEmail(context.Background(), "alice@example.com", "654321")
	assert.ErrorIs(t, err, domain.ErrCodeMismatch)
	f.vs.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyEmail_ExpiredClearsRecord(t *testing.T) {
	f := newFixture()
	f.us.On("GetByEmail", mock.Anything, "alice@example.com").Return(alice, nil)
	f.vs.On("Get", mock.Anything, "u1", domain.PurposeEmailVerify).Return(pending(domain.PurposeEmailVerify, "123456", fixedNow.Add(-time.Second)), nil)
	f.vs.On("Delete", mock.Anything, "u1", domain.PurposeEmailVerify).Return(nil)

	err := f.svc().VerifyEmail(context.Background(), "alice@example.com", "123456")
	assert.ErrorIs(t, err, domain.ErrCodeExpired)
	f.vs.AssertExpectations(t)
	f.us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyEmail_ExactExpiryStillValid(t *testing.T) {
	f := newFixture()
	f.us.On("GetByEmail", mock.Anything, "alice@example.com").Return(alice, nil)
	f.vs.On("Get", mock.Anything, "u1", domain.PurposeEmailVerify).Return(pending(domain.PurposeEmailVerify, "123456", fixedNow), nil)
	f.vs.On("Consume", mock.Anything, "u1", domain.PurposeEmailVerify, "123456").Return(nil)
	f.us.On("Update", mock.Anything, "u1", mock.Anything).Return(nil)

	assert.NoError(t, f.svc().VerifyEmail(context.Background(), "alice@example.com", "123456"))
}

func TestVerifyEmail_NoCodeIssued(t *testing.T) {
	f := newFixture()
	f.us.On("GetByEmail", mock.Anything, "alice@example.com").Return(alice, nil)
	f.vs.On("Get", mock.Anything, "u1", domain.PurposeEmailVerify).Return(nil, domain.ErrNotFound)

	err := f.svc().VerifyEmail(context.Background(), "alice@example.com", "123456")
	assert.ErrorIs(t, err, domain.ErrNoCodeIssued)
}

func TestVerifyEmail_UnknownUser(t *testing.T) {
	f := newFixture()
	f.us.On("GetByEmail", mock.Anything, "x@example.com").Return(nil, domain.ErrNotFound)

	err := f.svc().VerifyEmail(context.Background(), "x@example.com", "123456")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerifyEmail_ConcurrentRedeemLoses(t *testing.T) {
	f := newFixture()
	f.us.On("GetByEmail", mock.Anything, "alice@example.com").Return(alice, nil)
	f.vs.On("Get", mock.Anything, "u1", domain.PurposeEmailVerify).Return(pending(domain.PurposeEmailVerify, "123456", fixedNow.Add(time.Minute)), nil)
	f.vs.On("Consume", mock.Anything, "u1", domain.PurposeEmailVerify, "123456").Return(domain.ErrNotFound)

	err := f.svc().VerifyEmail(context.Background(), "alice@example.com", "123456")
	assert.ErrorIs(t, err, domain.ErrNoCodeIssued)
}

func TestVerifyLoginOTP_ReuseFails(t *testing.T) {
	f := newFixture()
	f.us.On("GetByEmail", mock.Anything, "alice@example.com").Return(alice, nil)
	f.vs.On("Get", mock.Anything, "u1", domain.PurposeLoginOTP).
		Return(pending(domain.PurposeLoginOTP, "111111", fixedNow.Add(time.Minute)), nil).Once()
	f.vs.On("Get", mock.Anything, "u1", domain.PurposeLoginOTP).Return(nil, domain.ErrNotFound)
	f.vs.On("Consume", mock.Anything, "u1", domain.PurposeLoginOTP, "111111").Return(nil).Once()
	f.sm.On("Start", mock.Anything, alice).Return(&session.LoginResult{AccessToken: "bearer"}, nil)

	svc := f.svc()
	res, err := svc.VerifyLoginOTP(context.Background(), "alice@example.com", "111111")
	require.NoError(t, err)
	assert.Equal(t, "bearer", res.AccessToken)

	_, err = svc.VerifyLoginOTP(context.Background(), "alice@example.com", "111111")
	assert.ErrorIs(t, err, domain.ErrNoCodeIssued)
}

func TestVerifyLoginOTP_PurposesAreIndependent(t *testing.T) {
	f := newFixture()
	f.us.On("GetByEmail", mock.Anything, "alice@example.com").Return(alice, nil)
	f.vs.On("Get", mock.Anything, "u1", domain.PurposeLoginOTP).Return(nil, domain.ErrNotFound)

	_, err := f.svc().VerifyLoginOTP(context.Background(), "alice@example.com", "123456")
	assert.ErrorIs(t, err, domain.ErrNoCodeIssued)
	f.vs.AssertNotCalled(t, "Get", mock.Anything, "u1", domain.PurposeEmailVerify)
}

// --- ResetPassword ---

func TestResetPassword_UpdatesHashAndRevokesSessions(t *testing.T) {
	f := newFixture()
	f.us.On("GetByEmail", mock.Anything, "alice@example.com").Return(alice, nil)
	f.vs.On("Get", mock.Anything, "u1", domain.PurposeRecoveryOTP).Return(pending(domain.PurposeRecoveryOTP, "222222", fixedNow.Add(time.Minute)), nil)
	f.vs.On("Consume", mock.Anything, "u1", domain.PurposeRecoveryOTP, "222222").Return(nil)
	f.us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(u map[string]interface{}) bool {
		hash, _ := u["password_hash"].(string)
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte("newsecret")) == nil
	})).Return(nil)
	f.sm.On("RevokeAll", mock.Anything, "u1").Return(nil)

	require.NoError(t, f.svc().ResetPassword(context.Background(), "alice@example.com", "222222", "newsecret"))
	f.sm.AssertExpectations(t)
	f.sm.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestResetPassword_ShortPasswordKeepsCode(t *testing.T) {
	f := newFixture()

	err := f.svc().ResetPassword(context.Background(), "alice@example.com", "222222", "123")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	f.vs.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.us.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}
