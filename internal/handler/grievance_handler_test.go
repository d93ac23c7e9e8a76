package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/service"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type fakeGrievanceSrv struct {
	grievance  *models.Grievance
	list       []models.Grievance
	err        error
	lastActor  models.User
	lastID     string
	lastQuery  models.GrievanceQuery
	lastFormat string
	lastSubmit models.SubmitGrievanceRequest
	lastStatus models.UpdateStatusRequest
	lastFwd    models.ForwardRequest
}

func (f *fakeGrievanceSrv) Submit(_ context.Context, actor models.User, req models.SubmitGrievanceRequest) (*models.Grievance, error) {
	f.lastActor, f.lastSubmit = actor, req
	return f.grievance, f.err
}

func (f *fakeGrievanceSrv) UpdateStatus(_ context.Context, actor models.User, id string, req models.UpdateStatusRequest) (*models.Grievance, error) {
	f.lastActor, f.lastID, f.lastStatus = actor, id, req
	return f.grievance, f.err
}

func (f *fakeGrievanceSrv) Forward(_ context.Context, actor models.User, id string, req models.ForwardRequest) (*models.Grievance, error) {
	f.lastActor, f.lastID, f.lastFwd = actor, id, req
	return f.grievance, f.err
}

func (f *fakeGrievanceSrv) ForwardTargets(actor models.User) []models.ForwardTarget {
	if actor.Role != models.RoleProctor {
		return []models.ForwardTarget{}
	}
	return []models.ForwardTarget{{HandlerID: "C001", HandlerRole: models.RoleClusterHead, DisplayName: "Cluster Head - CSE"}}
}

func (f *fakeGrievanceSrv) List(_ context.Context, actor models.User, query models.GrievanceQuery) ([]models.Grievance, error) {
	f.lastActor, f.lastQuery = actor, query
	return f.list, f.err
}

func (f *fakeGrievanceSrv) Get(_ context.Context, actor models.User, id string) (*models.Grievance, error) {
	f.lastActor, f.lastID = actor, id
	return f.grievance, f.err
}

func (f *fakeGrievanceSrv) Dashboard(_ context.Context, actor models.User) (*models.DashboardStats, error) {
	return &models.DashboardStats{Total: len(f.list), Recent: f.list}, f.err
}

func (f *fakeGrievanceSrv) Export(_ context.Context, actor models.User, query models.GrievanceQuery, format string) (*service.ExportFile, error) {
	f.lastQuery, f.lastFormat = query, format
	if f.err != nil {
		return nil, f.err
	}
	return &service.ExportFile{Filename: "grievances.csv", ContentType: "text/csv", Body: []byte("id\nG1\n")}, nil
}

func sampleGrievance() *models.Grievance {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return &models.Grievance{
		ID: "G1", StudentID: "S001", StudentName: "Asha Rao", StudentUSN: "1RV21CS001",
		Type: models.GrievanceAcademic, Description: "Marks missing", Priority: models.PriorityHigh,
		Status: models.StatusSubmitted, SubmissionDate: ts, LastUpdated: ts,
		CurrentHandler: "P001", HandlerRole: models.RoleProctor,
		Comments: []models.Comment{}, ForwardHistory: []models.ForwardHistory{},
	}
}

func TestGrievanceHandlerRequiresSession(t *testing.T) {
	h := NewGrievanceHandler(&fakeGrievanceSrv{})
	c, rec := newTestContext(t, nil)
	c.Request = httptest.NewRequest(http.MethodGet, "/grievances", nil)

	h.List(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeEnvelope(t, rec).Error.Code)
}

func TestGrievanceHandlerSubmit(t *testing.T) {
	srv := &fakeGrievanceSrv{grievance: sampleGrievance()}
	h := NewGrievanceHandler(srv)

	c, rec := newTestContext(t, &testStudent)
	c.Request = httptest.NewRequest(http.MethodPost, "/grievances", strings.NewReader(`{"type":"academic","description":"Marks missing","priority":"high"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Submit(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "S001", srv.lastActor.ID)
	assert.Equal(t, models.PriorityHigh, srv.lastSubmit.Priority)
	var g models.Grievance
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &g))
	assert.Equal(t, "P001", g.CurrentHandler)
}

func TestGrievanceHandlerSubmitRejectsMalformedJSON(t *testing.T) {
	h := NewGrievanceHandler(&fakeGrievanceSrv{})
	c, rec := newTestContext(t, &testStudent)
	c.Request = httptest.NewRequest(http.MethodPost, "/grievances", strings.NewReader(`{"type":`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Submit(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, rec).Error.Code)
}

func TestGrievanceHandlerListFilters(t *testing.T) {
	srv := &fakeGrievanceSrv{list: []models.Grievance{*sampleGrievance()}}
	h := NewGrievanceHandler(srv)

	c, rec := newTestContext(t, &testProctor)
	c.Request = httptest.NewRequest(http.MethodGet, "/grievances?search=marks&status=submitted&priority=high", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.GrievanceQuery{Search: "marks", Status: models.StatusSubmitted, Priority: models.PriorityHigh}, srv.lastQuery)
	assert.Equal(t, float64(1), decodeEnvelope(t, rec).Meta["total"])

	c, rec = newTestContext(t, &testProctor)
	c.Request = httptest.NewRequest(http.MethodGet, "/grievances?status=closed", nil)
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGrievanceHandlerMapsWorkflowErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not handler", appErrors.ErrActionUnauthorized, http.StatusForbidden, "ACTION_UNAUTHORIZED"},
		{"bad transition", appErrors.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
		{"missing", appErrors.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := &fakeGrievanceSrv{err: tc.err}
			h := NewGrievanceHandler(srv)
			c, rec := newTestContext(t, &testProctor)
			c.Params = gin.Params{{Key: "id", Value: "G1"}}
			c.Request = httptest.NewRequest(http.MethodPut, "/grievances/G1/status", strings.NewReader(`{"status":"resolved","comment":"done"}`))
			c.Request.Header.Set("Content-Type", "application/json")

			h.UpdateStatus(c)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decodeEnvelope(t, rec).Error.Code)
			assert.Equal(t, "G1", srv.lastID)
			assert.Equal(t, models.StatusResolved, srv.lastStatus.Status)
		})
	}
}

func TestGrievanceHandlerForward(t *testing.T) {
	srv := &fakeGrievanceSrv{err: appErrors.Clone(appErrors.ErrNoForwardTarget, "")}
	h := NewGrievanceHandler(srv)

	c, rec := newTestContext(t, &testProctor)
	c.Params = gin.Params{{Key: "id", Value: "G1"}}
	c.Request = httptest.NewRequest(http.MethodPut, "/grievances/G1/forward", strings.NewReader(`{"to":"H001","toRole":"hod"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Forward(c)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "H001", srv.lastFwd.To)
	assert.Equal(t, models.RoleHOD, srv.lastFwd.ToRole)
}

func TestGrievanceHandlerForwardTargets(t *testing.T) {
	h := NewGrievanceHandler(&fakeGrievanceSrv{})
	c, rec := newTestContext(t, &testProctor)
	c.Request = httptest.NewRequest(http.MethodGet, "/grievances/forward-targets", nil)

	h.ForwardTargets(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var targets []models.ForwardTarget
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &targets))
	require.Len(t, targets, 1)
	assert.Equal(t, "C001", targets[0].HandlerID)
}

func TestGrievanceHandlerExport(t *testing.T) {
	srv := &fakeGrievanceSrv{}
	h := NewGrievanceHandler(srv)
	c, rec := newTestContext(t, &testProctor)
	c.Request = httptest.NewRequest(http.MethodGet, "/grievances/export?format=CSV&status=submitted", nil)

	h.Export(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", srv.lastFormat)
	assert.Equal(t, models.StatusSubmitted, srv.lastQuery.Status)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "grievances.csv")
	assert.Equal(t, "id\nG1\n", rec.Body.String())
}
