package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
	"github.com/noah-isme/grievance-api/pkg/response"
)

type directoryService interface {
	ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.Student, bool, error)
	GetStudent(ctx context.Context, usn string) (*models.Student, error)
	CreateStudent(ctx context.Context, req models.StudentRequest) (*models.Student, error)
	UpdateStudent(ctx context.Context, usn string, req models.StudentRequest) (*models.Student, error)
	DeleteStudent(ctx context.Context, usn string) error
	ListProctors(ctx context.Context, filter models.ProctorFilter) ([]models.ProctorSummary, bool, error)
	GetProctor(ctx context.Context, id string) (*models.ProctorSummary, []models.Student, error)
	CreateProctor(ctx context.Context, req models.ProctorRequest) (*models.Proctor, error)
	UpdateProctor(ctx context.Context, id string, req models.ProctorRequest) (*models.Proctor, error)
	DeleteProctor(ctx context.Context, id string) error
}

// DirectoryHandler serves the student and proctor directory.
type DirectoryHandler struct {
	service directoryService
}

// NewDirectoryHandler constructs the handler.
func NewDirectoryHandler(svc directoryService) *DirectoryHandler {
	return &DirectoryHandler{service: svc}
}

// ListStudents godoc
// @Summary List students
// @Tags Directory
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name or USN"
// @Param dept query string false "Department"
// @Param p_id query string false "Proctor ID"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *DirectoryHandler) ListStudents(c *gin.Context) {
	filter := models.StudentFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		Department: strings.TrimSpace(c.Query("dept")),
		ProctorID:  strings.TrimSpace(c.Query("p_id")),
	}
	students, hit, err := h.service.ListStudents(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := metaWithCache(c, hit)
	meta["total"] = len(students)
	response.JSON(c, http.StatusOK, students, meta)
}

// GetStudent godoc
// @Summary Get a student
// @Tags Directory
// @Produce json
// @Security BearerAuth
// @Param usn path string true "Student USN"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{usn} [get]
func (h *DirectoryHandler) GetStudent(c *gin.Context) {
	student, err := h.service.GetStudent(c.Request.Context(), c.Param("usn"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// CreateStudent godoc
// @Summary Add a student
// @Tags Directory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.StudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students [post]
func (h *DirectoryHandler) CreateStudent(c *gin.Context) {
	var req models.StudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}
	student, err := h.service.CreateStudent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// UpdateStudent godoc
// @Summary Update a student
// @Tags Directory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param usn path string true "Student USN"
// @Param payload body models.StudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students/{usn} [put]
func (h *DirectoryHandler) UpdateStudent(c *gin.Context) {
	var req models.StudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}
	student, err := h.service.UpdateStudent(c.Request.Context(), c.Param("usn"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// DeleteStudent godoc
// @Summary Remove a student
// @Tags Directory
// @Security BearerAuth
// @Param usn path string true "Student USN"
// @Success 204 {string} string ""
// @Router /students/{usn} [delete]
func (h *DirectoryHandler) DeleteStudent(c *gin.Context) {
	if err := h.service.DeleteStudent(c.Request.Context(), c.Param("usn")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListProctors godoc
// @Summary List proctors with assigned student counts
// @Tags Directory
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name or ID"
// @Param dept query string false "Department"
// @Success 200 {object} response.Envelope
// @Router /proctors [get]
func (h *DirectoryHandler) ListProctors(c *gin.Context) {
	filter := models.ProctorFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		Department: strings.TrimSpace(c.Query("dept")),
	}
	proctors, hit, err := h.service.ListProctors(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := metaWithCache(c, hit)
	meta["total"] = len(proctors)
	response.JSON(c, http.StatusOK, proctors, meta)
}

// GetProctor godoc
// @Summary Get a proctor and the students assigned to it
// @Tags Directory
// @Produce json
// @Security BearerAuth
// @Param id path string true "Proctor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /proctors/{id} [get]
func (h *DirectoryHandler) GetProctor(c *gin.Context) {
	summary, students, err := h.service.GetProctor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"proctor": summary, "students": students})
}

// CreateProctor godoc
// @Summary Add a proctor
// @Tags Directory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ProctorRequest true "Proctor payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /proctors [post]
func (h *DirectoryHandler) CreateProctor(c *gin.Context) {
	var req models.ProctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid proctor payload"))
		return
	}
	proctor, err := h.service.CreateProctor(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, proctor)
}

// UpdateProctor godoc
// @Summary Update a proctor
// @Tags Directory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Proctor ID"
// @Param payload body models.ProctorRequest true "Proctor payload"
// @Success 200 {object} response.Envelope
// @Router /proctors/{id} [put]
func (h *DirectoryHandler) UpdateProctor(c *gin.Context) {
	var req models.ProctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid proctor payload"))
		return
	}
	proctor, err := h.service.UpdateProctor(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, proctor)
}

// DeleteProctor godoc
// @Summary Remove a proctor
// @Description Refused with 409 while any student is assigned to the proctor.
// @Tags Directory
// @Security BearerAuth
// @Param id path string true "Proctor ID"
// @Success 204 {string} string ""
// @Failure 409 {object} response.Envelope
// @Router /proctors/{id} [delete]
func (h *DirectoryHandler) DeleteProctor(c *gin.Context) {
	if err := h.service.DeleteProctor(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
