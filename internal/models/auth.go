package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user against the data store.
type LoginRequest struct {
	ID       string   `json:"id" validate:"required"`
	Password string   `json:"password" validate:"required"`
	Role     UserRole `json:"role" validate:"required,oneof=student proctor cluster_head hod principal"`
}

// LoginResponse returns the issued token and the session user.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	User        User      `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// Session is the cached login of one user. It has no expiry and lives until logout.
type Session struct {
	ID        string    `json:"id"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// JWTClaims represents the JWT payload binding a token to a session.
type JWTClaims struct {
	SessionID string   `json:"sid"`
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	jwt.RegisteredClaims
}
