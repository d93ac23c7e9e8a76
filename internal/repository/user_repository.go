package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Role         string         `db:"role"`
	Department   string         `db:"department"`
	Email        sql.NullString `db:"email"`
	USN          sql.NullString `db:"usn"`
	Semester     sql.NullInt64  `db:"semester"`
	Section      sql.NullString `db:"section"`
	ProctorID    sql.NullString `db:"proctor_id"`
	ClusterID    sql.NullString `db:"cluster_id"`
	PasswordHash string         `db:"password_hash"`
}

func (r userRow) model() models.User {
	return models.User{
		ID:         r.ID,
		Name:       r.Name,
		Role:       models.UserRole(r.Role),
		Department: r.Department,
		Email:      r.Email.String,
		USN:        r.USN.String,
		Semester:   int(r.Semester.Int64),
		Section:    r.Section.String,
		ProctorID:  r.ProctorID.String,
		ClusterID:  r.ClusterID.String,
	}
}

// UserRepository verifies credentials held in the users table.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Authenticate checks the password against the stored bcrypt hash and returns the user.
// Unknown ids and wrong passwords are indistinguishable to the caller.
func (r *UserRepository) Authenticate(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	const query = `SELECT id, name, role, department, email, usn, semester, section, proctor_id, cluster_id, password_hash FROM users WHERE id = $1 LIMIT 1`
	var row userRow
	if err := r.db.GetContext(ctx, &row, query, req.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	user := row.model()
	return &user, nil
}
