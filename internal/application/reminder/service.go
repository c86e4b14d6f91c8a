package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/time-capsule-api/internal/domain"
	"github.com/time-capsule-api/internal/infrastructure/smtp"
	"github.com/time-capsule-api/internal/infrastructure/sns"
	"github.com/time-capsule-api/internal/pkg/metrics"
	"github.com/time-capsule-api/internal/pkg/timeutil"
)

type Service interface {
	// SendDueReminders emails the owner of every capsule unlocking within the
	// next windowHours that has not been reminded yet, and returns how many were sent.
	SendDueReminders(ctx context.Context, windowHours int) (int, error)
}

type capsuleStore interface {
	ListDueForReminder(ctx context.Context, from, to time.Time) ([]domain.Capsule, error)
	MarkReminderSent(ctx context.Context, capsuleID string, at time.Time) error
}

type userLookup interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type service struct {
	capsuleRepo capsuleStore
	userRepo    userLookup
	mailer      smtp.Mailer
	sms         sns.SMSSender
	now         func() time.Time
}

type ServiceDeps struct {
	CapsuleRepo capsuleStore
	UserRepo    userLookup
	Mailer      smtp.Mailer
	SMSSender   sns.SMSSender // optional
	Now         func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		capsuleRepo: deps.CapsuleRepo,
		userRepo:    deps.UserRepo,
		mailer:      deps.Mailer,
		sms:         deps.SMSSender,
		now:         now,
	}
}

func (s *service) SendDueReminders(ctx context.Context, windowHours int) (int, error) {
	if windowHours <= 0 {
		return 0, fmt.Errorf("window must be positive: %w", domain.ErrBadRequest)
	}
	now := s.now().UTC()
	due, err := s.capsuleRepo.ListDueForReminder(ctx, now, now.Add(time.Duration(windowHours)*time.Hour))
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if s.remind(ctx, &due[i], now) {
			sent++
		}
	}
	if len(due) > 0 {
		slog.Info("reminders processed", "due", len(due), "sent", sent)
	}
	return sent, nil
}

// remind delivers one reminder. The capsule is stamped only after the email went out,
// so a failed send is retried on the next run.
func (s *service) remind(ctx context.Context, c *domain.Capsule, now time.Time) bool {
	owner, err := s.userRepo.Get(ctx, c.OwnerID)
	if err != nil {
		slog.Warn("reminder: owner lookup failed", "capsule_id", c.ID, "error", err)
		return false
	}
	if owner.Email == "" {
		return false
	}
	msg, err := smtp.ReminderEmail(owner.Email, c)
	if err != nil {
		slog.Warn("reminder: render email", "capsule_id", c.ID, "error", err)
		return false
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		slog.Warn("reminder: email not sent", "capsule_id", c.ID, "error", err)
		return false
	}
	if err := s.capsuleRepo.MarkReminderSent(ctx, c.ID, now); err != nil {
		slog.Error("reminder: sent but not stamped", "capsule_id", c.ID, "error", err)
	}
	metrics.RemindersSent.Inc()

	if s.sms != nil && owner.Phone != nil && *owner.Phone != "" {
		text := fmt.Sprintf("Your time capsule %q unlocks %s.", c.Title, timeutil.Humanize(c.UnlockDate))
		if err := s.sms.SendSMS(ctx, *owner.Phone, text); err != nil {
			slog.Warn("reminder: sms not sent", "capsule_id", c.ID, "error", err)
		}
	}
	return true
}
