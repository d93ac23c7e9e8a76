package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-api/internal/middleware"
	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type fakeDirectorySrv struct {
	students      []models.Student
	proctors      []models.ProctorSummary
	hit           bool
	err           error
	lastFilter    models.StudentFilter
	lastRequest   models.StudentRequest
	deletedProcID string
}

func (f *fakeDirectorySrv) ListStudents(_ context.Context, filter models.StudentFilter) ([]models.Student, bool, error) {
	f.lastFilter = filter
	return f.students, f.hit, f.err
}

func (f *fakeDirectorySrv) GetStudent(_ context.Context, usn string) (*models.Student, error) {
	for _, s := range f.students {
		if s.USN == usn {
			return &s, nil
		}
	}
	return nil, appErrors.ErrNotFound
}

func (f *fakeDirectorySrv) CreateStudent(_ context.Context, req models.StudentRequest) (*models.Student, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{USN: req.USN, Name: req.Name, Semester: req.Semester, Section: req.Section, Department: req.Department, ProctorID: req.ProctorID}, nil
}

func (f *fakeDirectorySrv) UpdateStudent(_ context.Context, usn string, req models.StudentRequest) (*models.Student, error) {
	return &models.Student{USN: usn, Name: req.Name}, f.err
}

func (f *fakeDirectorySrv) DeleteStudent(context.Context, string) error { return f.err }

func (f *fakeDirectorySrv) ListProctors(context.Context, models.ProctorFilter) ([]models.ProctorSummary, bool, error) {
	return f.proctors, f.hit, f.err
}

func (f *fakeDirectorySrv) GetProctor(_ context.Context, id string) (*models.ProctorSummary, []models.Student, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return &models.ProctorSummary{Proctor: models.Proctor{ID: id}, StudentCount: len(f.students)}, f.students, nil
}

func (f *fakeDirectorySrv) CreateProctor(_ context.Context, req models.ProctorRequest) (*models.Proctor, error) {
	return &models.Proctor{ID: req.ID, Name: req.Name, Department: req.Department}, f.err
}

func (f *fakeDirectorySrv) UpdateProctor(_ context.Context, id string, req models.ProctorRequest) (*models.Proctor, error) {
	return &models.Proctor{ID: id, Name: req.Name, Department: req.Department}, f.err
}

func (f *fakeDirectorySrv) DeleteProctor(_ context.Context, id string) error {
	f.deletedProcID = id
	return f.err
}

func TestDirectoryHandlerListStudentsReportsCacheHit(t *testing.T) {
	srv := &fakeDirectorySrv{students: []models.Student{{USN: "1RV21CS001", Name: "Asha Rao", ProctorID: "P001"}}, hit: true}
	h := NewDirectoryHandler(srv)

	c, rec := newTestContext(t, &testProctor)
	middleware.WithResponseMeta()(c)
	c.Request = httptest.NewRequest(http.MethodGet, "/students?search=asha&dept=CSE&p_id=P001", nil)
	h.ListStudents(c)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Equal(t, float64(1), env.Meta["total"])
	assert.Equal(t, models.StudentFilter{Search: "asha", Department: "CSE", ProctorID: "P001"}, srv.lastFilter)
}

func TestDirectoryHandlerCreateStudent(t *testing.T) {
	srv := &fakeDirectorySrv{}
	h := NewDirectoryHandler(srv)

	c, rec := newTestContext(t, nil)
	c.Request = httptest.NewRequest(http.MethodPost, "/students", strings.NewReader(`{"usn":"1RV21IS010","name":"Kavya","sem":3,"section":"B","dept":"ISE","p_id":"P002"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	h.CreateStudent(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 3, srv.lastRequest.Semester)
	var created models.Student
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &created))
	assert.Equal(t, "P002", created.ProctorID)
}

func TestDirectoryHandlerGetStudentNotFound(t *testing.T) {
	h := NewDirectoryHandler(&fakeDirectorySrv{})
	c, rec := newTestContext(t, nil)
	c.Params = gin.Params{{Key: "usn", Value: "NOPE"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/students/NOPE", nil)

	h.GetStudent(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDirectoryHandlerDeleteProctorConflict(t *testing.T) {
	srv := &fakeDirectorySrv{err: appErrors.Clone(appErrors.ErrConflict, "cannot delete proctor with 2 assigned student(s)")}
	h := NewDirectoryHandler(srv)

	c, rec := newTestContext(t, nil)
	c.Params = gin.Params{{Key: "id", Value: "P001"}}
	c.Request = httptest.NewRequest(http.MethodDelete, "/proctors/P001", nil)
	h.DeleteProctor(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "P001", srv.deletedProcID)
	assert.Contains(t, decodeEnvelope(t, rec).Error.Message, "2 assigned")
}

func TestDirectoryHandlerDeleteProctor(t *testing.T) {
	h := NewDirectoryHandler(&fakeDirectorySrv{})
	c, rec := newTestContext(t, nil)
	c.Params = gin.Params{{Key: "id", Value: "P009"}}
	c.Request = httptest.NewRequest(http.MethodDelete, "/proctors/P009", nil)

	h.DeleteProctor(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDirectoryHandlerGetProctor(t *testing.T) {
	srv := &fakeDirectorySrv{students: []models.Student{{USN: "A"}, {USN: "B"}}}
	h := NewDirectoryHandler(srv)
	c, rec := newTestContext(t, nil)
	c.Params = gin.Params{{Key: "id", Value: "P001"}}
	c.Request = httptest.NewRequest(http.MethodGet, "/proctors/P001", nil)

	h.GetProctor(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Proctor  models.ProctorSummary `json:"proctor"`
		Students []models.Student      `json:"students"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &body))
	assert.Equal(t, 2, body.Proctor.StudentCount)
	assert.Len(t, body.Students, 2)
}
