package service

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type mockVerifier struct {
	users map[string]models.User
	err   error
}

func (m *mockVerifier) Authenticate(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[req.ID]
	if !ok || req.Password != "secret" {
		return nil, appErrors.ErrInvalidCredentials
	}
	return &u, nil
}

type mockSessionStore struct {
	sessions map[string]models.Session
}

func (m *mockSessionStore) Save(ctx context.Context, s *models.Session) error {
	m.sessions[s.ID] = *s
	return nil
}

func (m *mockSessionStore) Find(ctx context.Context, id string) (*models.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	return &s, nil
}

func (m *mockSessionStore) Delete(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func newAuthServiceForTest() (*AuthService, *mockVerifier, *mockSessionStore) {
	verifier := &mockVerifier{users: map[string]models.User{
		"P001": {ID: "P001", Name: "Dr. Kiran", Role: models.RoleProctor, Department: "CSE"},
	}}
	sessions := &mockSessionStore{sessions: map[string]models.Session{}}
	return NewAuthService(verifier, sessions, nil, nil, AuthConfig{TokenSecret: "test-secret", Issuer: "grievance-api"}), verifier, sessions
}

func TestAuthServiceLoginLogout(t *testing.T) {
	svc, _, sessions := newAuthServiceForTest()
	ctx := context.Background()

	res, err := svc.Login(ctx, models.LoginRequest{ID: "P001", Password: "secret", Role: models.RoleProctor})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, "P001", res.User.ID)
	require.Len(t, sessions.sessions, 1)

	session, err := svc.Session(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleProctor, session.User.Role)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)

	require.NoError(t, svc.Logout(ctx, session.ID))
	_, err = svc.Session(ctx, res.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceLoginRejectsWrongRole(t *testing.T) {
	svc, _, sessions := newAuthServiceForTest()

	_, err := svc.Login(context.Background(), models.LoginRequest{ID: "P001", Password: "secret", Role: models.RoleHOD})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
	assert.Empty(t, sessions.sessions)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	svc, verifier, _ := newAuthServiceForTest()
	ctx := context.Background()

	_, err := svc.Login(ctx, models.LoginRequest{ID: "P001", Password: "nope", Role: models.RoleProctor})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(ctx, models.LoginRequest{ID: "P001", Password: "secret", Role: "dean"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	verifier.err = appErrors.Clone(appErrors.ErrUpstream, "")
	_, err = svc.Login(ctx, models.LoginRequest{ID: "P001", Password: "secret", Role: models.RoleProctor})
	assert.True(t, errors.Is(err, appErrors.ErrUpstream))
}

func TestAuthServiceRejectsForeignTokens(t *testing.T) {
	svc, _, _ := newAuthServiceForTest()

	claims := models.JWTClaims{SessionID: "s1", UserID: "P001", RegisteredClaims: jwt.RegisteredClaims{Issuer: "grievance-api"}}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(forged)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, models.JWTClaims{SessionID: "s1", RegisteredClaims: jwt.RegisteredClaims{Issuer: "elsewhere"}}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(wrongIssuer)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.ValidateToken("not-a-token")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
