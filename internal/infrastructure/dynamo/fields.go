package dynamo

// Key attributes. Each GSI is named "<attr>-index".
const (
	fieldUserID    = "user_id"
	fieldSessionID = "session_id"
	fieldPurpose   = "purpose"
	fieldUsername  = "username"
	fieldEmail     = "email"
	fieldGoogleSub = "google_sub"
	fieldTTL       = "ttl"
)

// Attributes written by partial updates.
const (
	fieldEnable           = "enable"
	fieldUpdatedAt        = "updated_at"
	fieldEmailConfirmed   = "email_confirmed"
	fieldPasswordHash     = "password_hash"
	fieldRefreshToken     = "refresh_token"
	fieldRefreshExpiresAt = "refresh_expires_at"
	fieldCode             = "code"
)
