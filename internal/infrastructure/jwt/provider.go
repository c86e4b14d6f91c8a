package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/time-capsule-api/internal/config"
)

// Claims holds the JWT payload fields.
type Claims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Provider signs and verifies access tokens. The signing method is fixed at
// construction; tokens signed with any other method are rejected.
type Provider struct {
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	expiry    time.Duration
	now       func() time.Time
}

// NewProvider builds an RS256 provider from PEM key files, or an HS256 provider
// when cfg.JWTAlgorithm is HS256 and a secret is configured.
func NewProvider(cfg *config.Config) (*Provider, error) {
	if cfg.JWTAlgorithm == "HS256" {
		return NewHMACProvider([]byte(cfg.JWTSecret), cfg.JWTExpiry)
	}

	privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return NewRSAProvider(privKey, pubKey, cfg.JWTExpiry), nil
}

func NewRSAProvider(priv *rsa.PrivateKey, pub *rsa.PublicKey, expiry time.Duration) *Provider {
	return &Provider{method: jwt.SigningMethodRS256, signKey: priv, verifyKey: pub, expiry: expiry, now: time.Now}
}

func NewHMACProvider(secret []byte, expiry time.Duration) (*Provider, error) {
	if len(secret) < 32 {
		return nil, errors.New("JWT secret must be at least 32 bytes")
	}
	return &Provider{method: jwt.SigningMethodHS256, signKey: secret, verifyKey: secret, expiry: expiry, now: time.Now}, nil
}

func (p *Provider) Sign(userID, sessionID string) (string, error) {
	now := p.now()
	claims := Claims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(p.method, claims)
	return token.SignedString(p.signKey)
}

func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return p.verifyKey, nil
	},
		jwt.WithValidMethods([]string{p.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" || claims.SessionID == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
