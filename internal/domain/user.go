package domain

import "time"

const (
	AuthProviderLocal  = "local"
	AuthProviderGoogle = "google"
)

type User struct {
	UserID         string    `json:"id" dynamodbav:"user_id"`
	Username       string    `json:"username" dynamodbav:"username"`
	Email          string    `json:"email" dynamodbav:"email"`
	Phone          *string   `json:"phone,omitempty" dynamodbav:"phone"`
	PasswordHash   string    `json:"-" dynamodbav:"password_hash"`
	EmailConfirmed bool      `json:"email_confirmed" dynamodbav:"email_confirmed"`
	AuthProvider   string    `json:"auth_provider,omitempty" dynamodbav:"auth_provider"` // "local" | "google"
	GoogleSub      string    `json:"-" dynamodbav:"google_sub,omitempty"`
	Enable         bool      `json:"-" dynamodbav:"enable"`
	CreatedAt      time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

type SignupRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Phone    *string `json:"phone" validate:"omitempty,e164"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
