package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/service"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
	"github.com/noah-isme/grievance-api/pkg/response"
)

type grievanceService interface {
	Submit(ctx context.Context, actor models.User, req models.SubmitGrievanceRequest) (*models.Grievance, error)
	UpdateStatus(ctx context.Context, actor models.User, id string, req models.UpdateStatusRequest) (*models.Grievance, error)
	Forward(ctx context.Context, actor models.User, id string, req models.ForwardRequest) (*models.Grievance, error)
	ForwardTargets(actor models.User) []models.ForwardTarget
	List(ctx context.Context, actor models.User, query models.GrievanceQuery) ([]models.Grievance, error)
	Get(ctx context.Context, actor models.User, id string) (*models.Grievance, error)
	Dashboard(ctx context.Context, actor models.User) (*models.DashboardStats, error)
	Export(ctx context.Context, actor models.User, query models.GrievanceQuery, format string) (*service.ExportFile, error)
}

// GrievanceHandler exposes the grievance lifecycle over HTTP.
type GrievanceHandler struct {
	service grievanceService
}

// NewGrievanceHandler constructs the handler.
func NewGrievanceHandler(svc grievanceService) *GrievanceHandler {
	return &GrievanceHandler{service: svc}
}

func grievanceQuery(c *gin.Context) models.GrievanceQuery {
	return models.GrievanceQuery{
		Search:   strings.TrimSpace(c.Query("search")),
		Status:   models.GrievanceStatus(strings.TrimSpace(c.Query("status"))),
		Priority: models.Priority(strings.TrimSpace(c.Query("priority"))),
	}
}

// List godoc
// @Summary List grievances visible to the caller
// @Description Students see their own grievances, staff see the ones they currently handle.
// @Tags Grievances
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search description, student name or id"
// @Param status query string false "Status filter"
// @Param priority query string false "Priority filter"
// @Success 200 {object} response.Envelope
// @Router /grievances [get]
func (h *GrievanceHandler) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	query := grievanceQuery(c)
	if query.Status != "" && !query.Status.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown status "+string(query.Status)))
		return
	}
	if query.Priority != "" && !query.Priority.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown priority "+string(query.Priority)))
		return
	}
	items, err := h.service.List(c.Request.Context(), user, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// Get godoc
// @Summary Get a grievance
// @Tags Grievances
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grievances/{id} [get]
func (h *GrievanceHandler) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	g, err := h.service.Get(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, g)
}

// Submit godoc
// @Summary Submit a grievance
// @Description Routed to the submitting student's proctor.
// @Tags Grievances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.SubmitGrievanceRequest true "Grievance payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /grievances [post]
func (h *GrievanceHandler) Submit(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.SubmitGrievanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grievance payload"))
		return
	}
	g, err := h.service.Submit(c.Request.Context(), user, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, g)
}

// UpdateStatus godoc
// @Summary Change grievance status
// @Description Only the current handler may set under_review, resolved or rejected.
// @Tags Grievances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grievance ID"
// @Param payload body models.UpdateStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /grievances/{id}/status [put]
func (h *GrievanceHandler) UpdateStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	g, err := h.service.UpdateStatus(c.Request.Context(), user, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, g)
}

// Forward godoc
// @Summary Escalate a grievance one level up
// @Tags Grievances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grievance ID"
// @Param payload body models.ForwardRequest true "Forward payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /grievances/{id}/forward [put]
func (h *GrievanceHandler) Forward(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.ForwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid forward payload"))
		return
	}
	g, err := h.service.Forward(c.Request.Context(), user, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, g)
}

// ForwardTargets godoc
// @Summary Escalation targets for the caller's role
// @Tags Grievances
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /grievances/forward-targets [get]
func (h *GrievanceHandler) ForwardTargets(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, h.service.ForwardTargets(user))
}

// Dashboard godoc
// @Summary Grievance counts for the caller
// @Tags Grievances
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /grievances/dashboard [get]
func (h *GrievanceHandler) Dashboard(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	stats, err := h.service.Dashboard(c.Request.Context(), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// Export godoc
// @Summary Download visible grievances
// @Tags Grievances
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /grievances/export [get]
func (h *GrievanceHandler) Export(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	file, err := h.service.Export(c.Request.Context(), user, grievanceQuery(c), strings.ToLower(c.DefaultQuery("format", service.ExportCSV)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
