package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

// CredentialVerifier checks a login against the data store.
type CredentialVerifier interface {
	Authenticate(ctx context.Context, req models.LoginRequest) (*models.User, error)
}

type sessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	Find(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	TokenSecret string
	Issuer      string
}

// AuthService logs users in against the data store and keeps their sessions.
type AuthService struct {
	verifier  CredentialVerifier
	sessions  sessionStore
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(verifier CredentialVerifier, sessions sessionStore, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{verifier: verifier, sessions: sessions, validator: validate, logger: logger, config: config, now: time.Now}
}

// Login verifies credentials, opens a session and issues a token bound to it.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.verifier.Authenticate(ctx, req)
	if err != nil {
		if errors.Is(err, appErrors.ErrInvalidCredentials) {
			s.logger.Info("login rejected", zap.String("user_id", req.ID), zap.String("role", string(req.Role)))
			return nil, err
		}
		return nil, storeError(err, "failed to verify credentials")
	}
	if user.Role != req.Role {
		s.logger.Info("login role mismatch", zap.String("user_id", req.ID), zap.String("requested", string(req.Role)), zap.String("actual", string(user.Role)))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid id, password or role")
	}

	now := s.now().UTC()
	session := &models.Session{ID: uuid.NewString(), User: *user, CreatedAt: now}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store session")
	}

	token, err := s.issueToken(session)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.logger.Info("login succeeded", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &models.LoginResponse{AccessToken: token, TokenType: "Bearer", User: *user, IssuedAt: now}, nil
}

// Logout ends the session. The token becomes useless because its session is gone.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to end session")
	}
	return nil
}

// Session resolves a bearer token to its live session.
func (s *AuthService) Session(ctx context.Context, tokenString string) (*models.Session, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.Find(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session has ended")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.User.ID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token does not match session")
	}
	return session, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	}, jwt.WithIssuer(s.config.Issuer))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// issueToken signs a token without expiry; the session lifetime governs validity.
func (s *AuthService) issueToken(session *models.Session) (string, error) {
	claims := models.JWTClaims{
		SessionID: session.ID,
		UserID:    session.User.ID,
		Role:      session.User.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  session.User.ID,
			Issuer:   s.config.Issuer,
			IssuedAt: jwt.NewNumericDate(session.CreatedAt),
			ID:       session.ID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.TokenSecret))
}
