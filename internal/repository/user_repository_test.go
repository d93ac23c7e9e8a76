package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

var userColumns = []string{"id", "name", "role", "department", "email", "usn", "semester", "section", "proctor_id", "cluster_id", "password_hash"}

func TestUserRepositoryAuthenticate(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	query := regexp.QuoteMeta("FROM users WHERE id = $1 LIMIT 1")
	mock.ExpectQuery(query).WithArgs("S001").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("S001", "Asha Rao", "student", "CSE", nil, "1RV21CS001", 5, "A", "P001", nil, string(hash)))

	user, err := repo.Authenticate(context.Background(), models.LoginRequest{ID: "S001", Password: "secret", Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.Equal(t, "1RV21CS001", user.USN)
	assert.Equal(t, 5, user.Semester)
	assert.Equal(t, "P001", user.ProctorID)
	assert.Empty(t, user.Email)

	mock.ExpectQuery(query).WithArgs("S001").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("S001", "Asha Rao", "student", "CSE", nil, nil, nil, nil, nil, nil, string(hash)))
	_, err = repo.Authenticate(context.Background(), models.LoginRequest{ID: "S001", Password: "wrong"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	mock.ExpectQuery(query).WithArgs("ghost").WillReturnRows(sqlmock.NewRows(userColumns))
	_, err = repo.Authenticate(context.Background(), models.LoginRequest{ID: "ghost", Password: "x"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
	assert.NoError(t, mock.ExpectationsWereMet())
}
