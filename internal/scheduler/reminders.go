// Package scheduler runs periodic background jobs inside the API process.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const defaultJobTimeout = 5 * time.Minute

type reminderSender interface {
	SendDueReminders(ctx context.Context, windowHours int) (int, error)
}

// Reminders triggers the reminder sweep on a cron schedule. Overlapping runs are
// skipped so at most one sweep is active at a time.
type Reminders struct {
	sender      reminderSender
	spec        string
	windowHours int
	timeout     time.Duration
	cron        *cron.Cron
}

type Option func(*Reminders)

// WithCron injects a preconfigured cron instance.
func WithCron(c *cron.Cron) Option {
	return func(r *Reminders) {
		if c != nil {
			r.cron = c
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(r *Reminders) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewReminders(sender reminderSender, spec string, windowHours int, opts ...Option) *Reminders {
	r := &Reminders{
		sender:      sender,
		spec:        spec,
		windowHours: windowHours,
		timeout:     defaultJobTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cron == nil {
		r.cron = cron.New(
			cron.WithLogger(cron.DiscardLogger),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		)
	}
	return r
}

// Start registers the job and launches the scheduler. An invalid spec is returned as an error.
func (r *Reminders) Start() error {
	if _, err := r.cron.AddFunc(r.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if _, err := r.RunOnce(ctx); err != nil {
			slog.Warn("scheduled reminder run failed", "error", err)
		}
	}); err != nil {
		return err
	}
	r.cron.Start()
	slog.Info("reminder schedule started", "spec", r.spec, "window_hours", r.windowHours)
	return nil
}

// Stop halts the scheduler. The returned context is done once a running job finishes.
func (r *Reminders) Stop() context.Context {
	return r.cron.Stop()
}

func (r *Reminders) RunOnce(ctx context.Context) (int, error) {
	return r.sender.SendDueReminders(ctx, r.windowHours)
}
