package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradebook-api/internal/dto"
	"github.com/noah-isme/gradebook-api/internal/models"
	"github.com/noah-isme/gradebook-api/internal/service"
	"github.com/noah-isme/gradebook-api/pkg/response"
)

type classService interface {
	Get(ctx context.Context, id string) (*dto.ClassReport, error)
	Create(ctx context.Context, semesterID string, req service.NameRequest) (*models.Class, error)
	Rename(ctx context.Context, id string, req service.NameRequest) (*models.Class, error)
	Delete(ctx context.Context, id string) error
}

// ClassHandler exposes class endpoints.
type ClassHandler struct {
	service classService
}

// NewClassHandler constructs a class handler.
func NewClassHandler(svc classService) *ClassHandler {
	return &ClassHandler{service: svc}
}

// Get godoc
// @Summary Get class with module averages and class statistics
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	report, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Create godoc
// @Summary Add class to semester
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Semester ID"
// @Param payload body service.NameRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /semesters/{id}/classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var req service.NameRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.service.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class, "class added")
}

// Rename godoc
// @Summary Rename class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.NameRequest true "Class payload"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [put]
func (h *ClassHandler) Rename(c *gin.Context) {
	var req service.NameRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.service.Rename(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil, response.Message("class renamed"))
}

// Delete godoc
// @Summary Delete class and its modules
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [delete]
func (h *ClassHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, deleted(id), nil, response.Message("class deleted"))
}
