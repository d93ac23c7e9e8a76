package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

const grievanceColumns = `id, student_id, student_name, student_usn, type, description, priority, status,
        submission_date, last_updated, current_handler, handler_role, comments, forward_history`

// grievanceRow is the flat table shape; comments and history are JSONB so a snapshot is one row.
type grievanceRow struct {
	ID             string    `db:"id"`
	StudentID      string    `db:"student_id"`
	StudentName    string    `db:"student_name"`
	StudentUSN     string    `db:"student_usn"`
	Type           string    `db:"type"`
	Description    string    `db:"description"`
	Priority       string    `db:"priority"`
	Status         string    `db:"status"`
	SubmissionDate time.Time `db:"submission_date"`
	LastUpdated    time.Time `db:"last_updated"`
	CurrentHandler string    `db:"current_handler"`
	HandlerRole    string    `db:"handler_role"`
	Comments       []byte    `db:"comments"`
	ForwardHistory []byte    `db:"forward_history"`
}

func newGrievanceRow(g *models.Grievance) (*grievanceRow, error) {
	comments := g.Comments
	if comments == nil {
		comments = []models.Comment{}
	}
	history := g.ForwardHistory
	if history == nil {
		history = []models.ForwardHistory{}
	}
	commentsJSON, err := json.Marshal(comments)
	if err != nil {
		return nil, fmt.Errorf("marshal comments: %w", err)
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("marshal forward history: %w", err)
	}
	return &grievanceRow{
		ID:             g.ID,
		StudentID:      g.StudentID,
		StudentName:    g.StudentName,
		StudentUSN:     g.StudentUSN,
		Type:           string(g.Type),
		Description:    g.Description,
		Priority:       string(g.Priority),
		Status:         string(g.Status),
		SubmissionDate: g.SubmissionDate,
		LastUpdated:    g.LastUpdated,
		CurrentHandler: g.CurrentHandler,
		HandlerRole:    string(g.HandlerRole),
		Comments:       commentsJSON,
		ForwardHistory: historyJSON,
	}, nil
}

func (r grievanceRow) model() (models.Grievance, error) {
	g := models.Grievance{
		ID:             r.ID,
		StudentID:      r.StudentID,
		StudentName:    r.StudentName,
		StudentUSN:     r.StudentUSN,
		Type:           models.GrievanceType(r.Type),
		Description:    r.Description,
		Priority:       models.Priority(r.Priority),
		Status:         models.GrievanceStatus(r.Status),
		SubmissionDate: r.SubmissionDate.UTC(),
		LastUpdated:    r.LastUpdated.UTC(),
		CurrentHandler: r.CurrentHandler,
		HandlerRole:    models.UserRole(r.HandlerRole),
		Comments:       []models.Comment{},
		ForwardHistory: []models.ForwardHistory{},
	}
	if len(r.Comments) > 0 {
		if err := json.Unmarshal(r.Comments, &g.Comments); err != nil {
			return g, fmt.Errorf("decode comments of %s: %w", r.ID, err)
		}
	}
	if len(r.ForwardHistory) > 0 {
		if err := json.Unmarshal(r.ForwardHistory, &g.ForwardHistory); err != nil {
			return g, fmt.Errorf("decode forward history of %s: %w", r.ID, err)
		}
	}
	return g, nil
}

// GrievanceRepository persists grievance snapshots in PostgreSQL.
type GrievanceRepository struct {
	db *sqlx.DB
}

// NewGrievanceRepository constructs a GrievanceRepository.
func NewGrievanceRepository(db *sqlx.DB) *GrievanceRepository {
	return &GrievanceRepository{db: db}
}

// List returns every grievance, newest submission first.
func (r *GrievanceRepository) List(ctx context.Context) ([]models.Grievance, error) {
	query := fmt.Sprintf("SELECT %s FROM grievances ORDER BY submission_date DESC", grievanceColumns)
	var rows []grievanceRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list grievances: %w", err)
	}
	out := make([]models.Grievance, 0, len(rows))
	for _, row := range rows {
		g, err := row.model()
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// FindByID loads one grievance.
func (r *GrievanceRepository) FindByID(ctx context.Context, id string) (*models.Grievance, error) {
	query := fmt.Sprintf("SELECT %s FROM grievances WHERE id = $1", grievanceColumns)
	var row grievanceRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grievance not found")
		}
		return nil, fmt.Errorf("get grievance: %w", err)
	}
	g, err := row.model()
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// Create inserts a new grievance snapshot.
func (r *GrievanceRepository) Create(ctx context.Context, g *models.Grievance) error {
	row, err := newGrievanceRow(g)
	if err != nil {
		return err
	}
	const query = `INSERT INTO grievances (id, student_id, student_name, student_usn, type, description, priority, status,
        submission_date, last_updated, current_handler, handler_role, comments, forward_history)
        VALUES (:id, :student_id, :student_name, :student_usn, :type, :description, :priority, :status,
        :submission_date, :last_updated, :current_handler, :handler_role, :comments, :forward_history)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create grievance: %w", err)
	}
	return nil
}

// Save overwrites the mutable part of a snapshot in a single statement. Last write wins.
func (r *GrievanceRepository) Save(ctx context.Context, g *models.Grievance) error {
	row, err := newGrievanceRow(g)
	if err != nil {
		return err
	}
	const query = `UPDATE grievances SET status = :status, last_updated = :last_updated, current_handler = :current_handler,
        handler_role = :handler_role, comments = :comments, forward_history = :forward_history WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("save grievance: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "grievance not found")
	}
	return nil
}
