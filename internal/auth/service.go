package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/learning-platform/internal"
	learnerDatamodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/learner"
)

type LearnerStore interface {
	GetByID(ctx context.Context, id int64) (*learnerDatamodel.Learner, error)
	GetByEmail(ctx context.Context, email string) (*learnerDatamodel.Learner, error)
}

type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (*AuthTokens, error)
	Authorize(ctx context.Context, tokenString string) (internal.Learner, error)
}

// Service is the main auth service with dependencies
type Service struct {
	learners       LearnerStore
	tokenGenerator TokenGenerator
	tokenTTL       time.Duration
	logger         *slog.Logger
}

func NewService(learners LearnerStore, tokenGen TokenGenerator, tokenTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		learners:       learners,
		tokenGenerator: tokenGen,
		tokenTTL:       tokenTTL,
		logger:         logger,
	}
}

func NewJWTTokenGenerator(secret, issuer string, accessTokenTTL time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		Secret:         []byte(secret),
		Issuer:         issuer,
		AccessTokenTTL: accessTokenTTL,
		now:            time.Now,
	}
}

// Authenticate validates credentials and returns an access token
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	l, err := s.learners.GetByEmail(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, internal.ErrLearnerNotFound) {
			return nil, internal.ErrBadCredentials
		}
		return nil, internal.NewInternalError("failed to load learner", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(l.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Warn("login rejected", "learner_id", l.ID)
		return nil, internal.ErrBadCredentials
	}
	if !l.IsActive {
		return nil, internal.ErrLearnerInactive
	}

	token, err := s.tokenGenerator.GenerateAccessToken(l.ID, l.Email)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue token", err)
	}

	s.logger.Info("learner logged in", "learner_id", l.ID)
	return &AuthTokens{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   time.Now().Add(s.tokenTTL).UTC(),
	}, nil
}

// Authorize resolves a bearer token to an active learner.
func (s *Service) Authorize(ctx context.Context, tokenString string) (internal.Learner, error) {
	if tokenString == "" {
		return internal.Learner{}, internal.ErrMissingToken
	}

	claims, err := s.tokenGenerator.ValidateToken(tokenString)
	if err != nil {
		return internal.Learner{}, err
	}

	l, err := s.learners.GetByID(ctx, claims.LearnerID)
	if err != nil {
		if errors.Is(err, internal.ErrLearnerNotFound) {
			return internal.Learner{}, internal.ErrInvalidToken
		}
		return internal.Learner{}, internal.NewInternalError("failed to load learner", err)
	}
	if !l.IsActive {
		return internal.Learner{}, internal.ErrLearnerInactive
	}

	return internal.Learner{ID: l.ID, Email: l.Email}, nil
}

// GenerateAccessToken creates a new access token
func (j *JWTTokenGenerator) GenerateAccessToken(learnerID int64, email string) (string, error) {
	now := j.now()

	claims := &Claims{
		LearnerID: learnerID,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.Issuer,
			Subject:   fmt.Sprintf("%d", learnerID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// ValidateToken validates a JWT token and returns claims
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if j.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return j.Secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.LearnerID <= 0 {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}

// HashPassword creates a bcrypt hash of the password
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
