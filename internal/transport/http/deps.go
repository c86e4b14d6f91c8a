package http

import (
	"context"
	"io"
	"time"

	"github.com/time-capsule-api/internal/infrastructure/dynamo"
	"github.com/time-capsule-api/internal/infrastructure/google"
	jwtinfra "github.com/time-capsule-api/internal/infrastructure/jwt"
	"github.com/time-capsule-api/internal/infrastructure/postgres"
	"github.com/time-capsule-api/internal/infrastructure/smtp"
	"github.com/time-capsule-api/internal/infrastructure/sns"
)

// ObjectStore is the object storage backend media is kept in. Both the S3 and
// the MinIO stores satisfy it.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Pinger reports whether the relational database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         *dynamo.UserRepo
	SessionRepo      *dynamo.SessionRepo
	VerificationRepo *dynamo.VerificationRepo
	CapsuleRepo      *postgres.CapsuleRepo
	MediaRepo        *postgres.MediaRepo
	Storage          ObjectStore
	Mailer           smtp.Mailer
	SMSSender        sns.SMSSender // nil when SMS is disabled
	JWTProvider      *jwtinfra.Provider
	GoogleVerifier   *google.Verifier // nil when no client id is configured
	DB               Pinger
}
