package http

import (
	"github.com/time-capsule-api/internal/application/auth"
	"github.com/time-capsule-api/internal/application/capsule"
	"github.com/time-capsule-api/internal/application/media"
	"github.com/time-capsule-api/internal/application/reminder"
	"github.com/time-capsule-api/internal/application/session"
	"github.com/time-capsule-api/internal/application/user"
	"github.com/time-capsule-api/internal/config"
)

// Services is the application layer built from Deps. main shares the reminder
// service with the in-process scheduler.
type Services struct {
	Sessions session.Service
	Users    user.Service
	Auth     auth.Service
	Capsules capsule.Service
	Media    media.Service
	Reminder reminder.Service
}

func NewServices(cfg *config.Config, deps *Deps) *Services {
	sessDeps := session.ServiceDeps{
		SessionRepo:     deps.SessionRepo,
		UserRepo:        deps.UserRepo,
		JWTProvider:     deps.JWTProvider,
		RefreshTokenDur: cfg.RefreshTokenTTL(),
	}
	// keep the interface nil rather than holding a nil *Verifier
	if deps.GoogleVerifier != nil {
		sessDeps.GoogleVerifier = deps.GoogleVerifier
	}
	sessions := session.NewService(sessDeps)

	authSvc := auth.NewService(auth.ServiceDeps{
		VerificationRepo: deps.VerificationRepo,
		UserRepo:         deps.UserRepo,
		Sessions:         sessions,
		Mailer:           deps.Mailer,
	})

	capsules := capsule.NewService(capsule.ServiceDeps{
		CapsuleRepo:  deps.CapsuleRepo,
		MediaRepo:    deps.MediaRepo,
		Storage:      deps.Storage,
		UserRepo:     deps.UserRepo,
		Mailer:       deps.Mailer,
		SignedURLTTL: cfg.SignedURLTTL,
	})

	return &Services{
		Sessions: sessions,
		Users: user.NewService(user.ServiceDeps{
			UserRepo:   deps.UserRepo,
			Sessions:   sessions,
			CodeIssuer: authSvc,
		}),
		Auth:     authSvc,
		Capsules: capsules,
		Media: media.NewService(media.ServiceDeps{
			MediaRepo:      deps.MediaRepo,
			Storage:        deps.Storage,
			Capsules:       capsules,
			MaxUploadBytes: cfg.MaxUploadBytes,
			SignedURLTTL:   cfg.SignedURLTTL,
		}),
		Reminder: reminder.NewService(reminder.ServiceDeps{
			CapsuleRepo: deps.CapsuleRepo,
			UserRepo:    deps.UserRepo,
			Mailer:      deps.Mailer,
			SMSSender:   deps.SMSSender,
		}),
	}
}
