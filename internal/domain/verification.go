package domain

import "time"

// Purpose scopes a one-time code. A user holds at most one pending code per purpose.
type Purpose string

const (
	PurposeEmailVerify Purpose = "email-verify"
	PurposeLoginOTP    Purpose = "login-otp"
	PurposeRecoveryOTP Purpose = "recovery-otp"
)

func (p Purpose) Valid() bool {
	switch p {
	case PurposeEmailVerify, PurposeLoginOTP, PurposeRecoveryOTP:
		return true
	}
	return false
}

// Lifetime is how long a freshly issued code of this purpose stays redeemable.
func (p Purpose) Lifetime() time.Duration {
	if p == PurposeEmailVerify {
		return 15 * time.Minute
	}
	return 10 * time.Minute
}

// UserVerification is a pending one-time code.
// PK: user_id, SK: purpose. ExpiresAt is authoritative; TTL only lets DynamoDB
// garbage-collect stale records and may lag by hours.
type UserVerification struct {
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Purpose   Purpose   `json:"purpose" dynamodbav:"purpose"`
	Code      string    `json:"-" dynamodbav:"code"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at"`
	TTL       int64     `json:"-" dynamodbav:"ttl"`
}
