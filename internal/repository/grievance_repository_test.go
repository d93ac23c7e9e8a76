package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

func newSQLMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var grievanceRowColumns = []string{"id", "student_id", "student_name", "student_usn", "type", "description", "priority", "status",
	"submission_date", "last_updated", "current_handler", "handler_role", "comments", "forward_history"}

func TestGrievanceRepositoryList(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)

	submitted := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(grievanceRowColumns).
		AddRow("G2", "S001", "Asha", "1RV21CS001", "academic", "Projector", "high", "forwarded", submitted, submitted,
			"C001", "cluster_head", []byte(`[{"id":"c1","userId":"P001","userName":"Dr. Kiran","userRole":"proctor","message":"seen","timestamp":"2024-02-01T09:00:00Z"}]`),
			[]byte(`[{"from":"P001","fromRole":"proctor","to":"C001","toRole":"cluster_head","timestamp":"2024-02-01T10:00:00Z"}]`)).
		AddRow("G1", "S002", "Ravi", "1RV21CS002", "non-academic", "Water", "low", "submitted", submitted, submitted,
			"P002", "proctor", []byte(`[]`), nil)
	mock.ExpectQuery("SELECT (.+) FROM grievances ORDER BY submission_date DESC").WillReturnRows(rows)

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.StatusForwarded, list[0].Status)
	require.Len(t, list[0].Comments, 1)
	assert.Equal(t, "seen", list[0].Comments[0].Message)
	require.Len(t, list[0].ForwardHistory, 1)
	assert.Equal(t, models.RoleClusterHead, list[0].ForwardHistory[0].ToRole)
	assert.NotNil(t, list[1].ForwardHistory)
	assert.Empty(t, list[1].ForwardHistory)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM grievances WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(grievanceRowColumns))

	_, err := repo.FindByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)

	args := make([]driverArg, len(grievanceRowColumns))
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	mock.ExpectExec("INSERT INTO grievances").WithArgs(args...).WillReturnResult(sqlmock.NewResult(1, 1))

	now := time.Now().UTC()
	err := repo.Create(context.Background(), &models.Grievance{
		ID: "G1", StudentID: "S001", Type: models.GrievanceAcademic, Priority: models.PriorityHigh,
		Status: models.StatusSubmitted, SubmissionDate: now, LastUpdated: now, CurrentHandler: "P001", HandlerRole: models.RoleProctor,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositorySave(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)

	mock.ExpectExec("UPDATE grievances SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Save(context.Background(), &models.Grievance{ID: "G1", Status: models.StatusResolved}))

	mock.ExpectExec("UPDATE grievances SET status").WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Save(context.Background(), &models.Grievance{ID: "gone"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryListError(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewGrievanceRepository(db)

	mock.ExpectQuery("FROM grievances").WillReturnError(errors.New("connection reset"))
	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list grievances")
}
