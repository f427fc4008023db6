package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents JWT token claims
type Claims struct {
	LearnerID int64  `json:"learner_id"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// TokenGenerator issues and validates learner access tokens.
type TokenGenerator interface {
	GenerateAccessToken(learnerID int64, email string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type JWTTokenGenerator struct {
	Secret         []byte
	Issuer         string
	AccessTokenTTL time.Duration
	now            func() time.Time
}

type AuthTokens struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
