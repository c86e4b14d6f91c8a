package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/time-capsule-api/internal/config"
	"github.com/time-capsule-api/internal/transport/http/handler"
	appmiddleware "github.com/time-capsule-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps, svcs *Services) http.Handler {
	r := chi.NewRouter()
	r.Use(appmiddleware.Metrics)
	r.Use(chimiddleware.RequestID)
	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider, svcs.Sessions)

	// 5 requests/second, burst of 10, on endpoints that send mail or check passwords.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler(deps.DB)
	authH := handler.NewAuthHandler(svcs.Users, svcs.Sessions)
	otpH := handler.NewOTPHandler(svcs.Auth)
	capsuleH := handler.NewCapsuleHandler(svcs.Capsules)
	mediaH := handler.NewMediaHandler(svcs.Media, cfg.MaxUploadBytes)
	notifyH := handler.NewNotifyHandler(svcs.Reminder, cfg.NotifySecret, cfg.NotifyWindowHours)

	r.Get("/health", healthH.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", healthH.Health)

		// public
		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)
			r.Post("/auth/signup", authH.Signup)
			r.Post("/auth/login", authH.Login)
			r.Post("/auth/google", authH.Google)
			r.Post("/auth/otp/start", otpH.StartLogin)
			r.Post("/auth/otp/verify", otpH.VerifyLogin)
			r.Post("/auth/email/verify-request", otpH.RequestEmailVerification)
			r.Post("/auth/email/verify", otpH.VerifyEmail)
			r.Post("/auth/password/recover", otpH.RecoverPassword)
			r.Post("/auth/password/reset", otpH.ResetPassword)
		})
		r.Post("/auth/refresh", authH.Refresh)
		r.Post("/notify/reminders", notifyH.SendReminders)

		// authenticated
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/auth/logout", authH.Logout)
			r.Get("/auth/me", authH.Me)

			r.Post("/capsules", capsuleH.Create)
			r.Get("/capsules", capsuleH.List)
			r.Get("/capsules/{id}", capsuleH.Get)
			r.Put("/capsules/{id}", capsuleH.Update)
			r.Delete("/capsules/{id}", capsuleH.Delete)

			r.Post("/media/upload/{capsuleId}", mediaH.Upload)
			r.Get("/media/{id}/url", mediaH.SignedURL)
			r.Delete("/media/{id}", mediaH.Delete)
		})
	})

	return r
}
