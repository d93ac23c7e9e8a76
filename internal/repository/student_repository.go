package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

const pqUniqueViolation = "23505"
const pqForeignKeyViolation = "23503"

// mapWriteError turns constraint violations into conflicts callers can show.
func mapWriteError(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "record already exists")
		case pqForeignKeyViolation:
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "record is referenced by another record")
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// StudentRepository manages student directory records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters ordered by USN.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("dept = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.ProctorID != "" {
		conditions = append(conditions, fmt.Sprintf("p_id = $%d", len(args)+1))
		args = append(args, filter.ProctorID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(usn) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	query := fmt.Sprintf("SELECT usn, name, sem, section, dept, p_id FROM students WHERE %s ORDER BY usn", strings.Join(conditions, " AND "))
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByUSN fetches a student by USN.
func (r *StudentRepository) FindByUSN(ctx context.Context, usn string) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, "SELECT usn, name, sem, section, dept, p_id FROM students WHERE usn = $1", usn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &student, nil
}

// CountByProctor returns how many students reference the proctor.
func (r *StudentRepository) CountByProctor(ctx context.Context, proctorID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students WHERE p_id = $1", proctorID); err != nil {
		return 0, fmt.Errorf("count students of proctor: %w", err)
	}
	return total, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	const query = `INSERT INTO students (usn, name, sem, section, dept, p_id) VALUES (:usn, :name, :sem, :section, :dept, :p_id)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return mapWriteError(err, "create student")
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	const query = `UPDATE students SET name = :name, sem = :sem, section = :section, dept = :dept, p_id = :p_id WHERE usn = :usn`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return mapWriteError(err, "update student")
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return nil
}

// Delete removes a student.
func (r *StudentRepository) Delete(ctx context.Context, usn string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM students WHERE usn = $1", usn)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return nil
}
