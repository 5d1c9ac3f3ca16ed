package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradebook-api/internal/models"
	"github.com/noah-isme/gradebook-api/internal/service"
	"github.com/noah-isme/gradebook-api/pkg/response"
)

type semesterService interface {
	List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Semester, error)
	Create(ctx context.Context, req service.NameRequest) (*models.Semester, error)
	Rename(ctx context.Context, id string, req service.NameRequest) (*models.Semester, error)
	Delete(ctx context.Context, id string) error
}

// SemesterHandler exposes semester CRUD endpoints.
type SemesterHandler struct {
	service semesterService
}

// NewSemesterHandler constructs a semester handler.
func NewSemesterHandler(svc semesterService) *SemesterHandler {
	return &SemesterHandler{service: svc}
}

// List godoc
// @Summary List semesters
// @Tags Semesters
// @Produce json
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "name, created_at or updated_at"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /semesters [get]
func (h *SemesterHandler) List(c *gin.Context) {
	semesters, pagination, err := h.service.List(c.Request.Context(), semesterFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semesters, pagination)
}

// Get godoc
// @Summary Get semester with classes and modules
// @Tags Semesters
// @Produce json
// @Param id path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /semesters/{id} [get]
func (h *SemesterHandler) Get(c *gin.Context) {
	semester, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semester, nil)
}

// Create godoc
// @Summary Create semester
// @Tags Semesters
// @Accept json
// @Produce json
// @Param payload body service.NameRequest true "Semester payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /semesters [post]
func (h *SemesterHandler) Create(c *gin.Context) {
	var req service.NameRequest
	if !bindJSON(c, &req) {
		return
	}
	semester, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, semester, "semester created")
}

// Rename godoc
// @Summary Rename semester
// @Tags Semesters
// @Accept json
// @Produce json
// @Param id path string true "Semester ID"
// @Param payload body service.NameRequest true "Semester payload"
// @Success 200 {object} response.Envelope
// @Router /semesters/{id} [put]
func (h *SemesterHandler) Rename(c *gin.Context) {
	var req service.NameRequest
	if !bindJSON(c, &req) {
		return
	}
	semester, err := h.service.Rename(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, semester, nil, response.Message("semester renamed"))
}

// Delete godoc
// @Summary Delete semester with its classes and modules
// @Tags Semesters
// @Produce json
// @Param id path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /semesters/{id} [delete]
func (h *SemesterHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, deleted(id), nil, response.Message("semester deleted"))
}
