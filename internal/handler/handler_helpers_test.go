package handler

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-api/internal/middleware"
	"github.com/noah-isme/grievance-api/internal/models"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

var (
	testStudent = models.User{ID: "S001", Name: "Asha Rao", Role: models.RoleStudent, USN: "1RV21CS001", Department: "CSE"}
	testProctor = models.User{ID: "P001", Name: "Dr. Kiran", Role: models.RoleProctor, Department: "CSE"}
)

func newTestContext(t *testing.T, user *models.User) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	if user != nil {
		c.Set(middleware.ContextSessionKey, &models.Session{ID: "sess-1", User: *user})
	}
	return c, rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}
