package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

// ProctorRepository manages proctor directory records.
type ProctorRepository struct {
	db *sqlx.DB
}

// NewProctorRepository constructs a ProctorRepository.
func NewProctorRepository(db *sqlx.DB) *ProctorRepository {
	return &ProctorRepository{db: db}
}

// List returns proctors matching the filter ordered by id.
func (r *ProctorRepository) List(ctx context.Context, filter models.ProctorFilter) ([]models.Proctor, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("dept = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(p_id) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	query := fmt.Sprintf("SELECT p_id, name, dept FROM proctors WHERE %s ORDER BY p_id", strings.Join(conditions, " AND "))
	var proctors []models.Proctor
	if err := r.db.SelectContext(ctx, &proctors, query, args...); err != nil {
		return nil, fmt.Errorf("list proctors: %w", err)
	}
	return proctors, nil
}

// FindByID fetches a proctor.
func (r *ProctorRepository) FindByID(ctx context.Context, id string) (*models.Proctor, error) {
	var proctor models.Proctor
	if err := r.db.GetContext(ctx, &proctor, "SELECT p_id, name, dept FROM proctors WHERE p_id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "proctor not found")
		}
		return nil, fmt.Errorf("get proctor: %w", err)
	}
	return &proctor, nil
}

// Create inserts a proctor.
func (r *ProctorRepository) Create(ctx context.Context, proctor *models.Proctor) error {
	if _, err := r.db.NamedExecContext(ctx, `INSERT INTO proctors (p_id, name, dept) VALUES (:p_id, :name, :dept)`, proctor); err != nil {
		return mapWriteError(err, "create proctor")
	}
	return nil
}

// Update modifies a proctor.
func (r *ProctorRepository) Update(ctx context.Context, proctor *models.Proctor) error {
	res, err := r.db.NamedExecContext(ctx, `UPDATE proctors SET name = :name, dept = :dept WHERE p_id = :p_id`, proctor)
	if err != nil {
		return mapWriteError(err, "update proctor")
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "proctor not found")
	}
	return nil
}

// Delete removes a proctor. The students foreign key still guards against orphans.
func (r *ProctorRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM proctors WHERE p_id = $1", id)
	if err != nil {
		return mapWriteError(err, "delete proctor")
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "proctor not found")
	}
	return nil
}
