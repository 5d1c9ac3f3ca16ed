package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradebook-api/internal/models"
	"github.com/noah-isme/gradebook-api/internal/service"
	"github.com/noah-isme/gradebook-api/pkg/response"
)

type moduleService interface {
	Create(ctx context.Context, classID string, req service.CreateModuleRequest) (*models.Module, error)
	Rename(ctx context.Context, id string, req service.NameRequest) (*models.Module, error)
	UpdateGrades(ctx context.Context, id string, req service.UpdateGradesRequest) (*models.Module, error)
	UpdateCoefficient(ctx context.Context, id string, req service.UpdateCoefficientRequest) (*models.Module, error)
	Delete(ctx context.Context, id string) error
}

// ModuleHandler exposes module and score endpoints.
type ModuleHandler struct {
	service moduleService
}

// NewModuleHandler constructs a module handler.
func NewModuleHandler(svc moduleService) *ModuleHandler {
	return &ModuleHandler{service: svc}
}

// Create godoc
// @Summary Add module to class
// @Tags Modules
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.CreateModuleRequest true "Module payload"
// @Success 201 {object} response.Envelope
// @Router /classes/{id}/modules [post]
func (h *ModuleHandler) Create(c *gin.Context) {
	var req service.CreateModuleRequest
	if !bindJSON(c, &req) {
		return
	}
	module, err := h.service.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, module, "module added")
}

// Rename godoc
// @Summary Rename module
// @Tags Modules
// @Accept json
// @Produce json
// @Param id path string true "Module ID"
// @Param payload body service.NameRequest true "Module payload"
// @Success 200 {object} response.Envelope
// @Router /modules/{id} [put]
func (h *ModuleHandler) Rename(c *gin.Context) {
	var req service.NameRequest
	if !bindJSON(c, &req) {
		return
	}
	module, err := h.service.Rename(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, module, nil, response.Message("module renamed"))
}

// UpdateGrades godoc
// @Summary Replace assignment and exam scores
// @Description A null score marks it as not entered yet.
// @Tags Modules
// @Accept json
// @Produce json
// @Param id path string true "Module ID"
// @Param payload body service.UpdateGradesRequest true "Scores"
// @Success 200 {object} response.Envelope
// @Router /modules/{id}/grades [put]
func (h *ModuleHandler) UpdateGrades(c *gin.Context) {
	var req service.UpdateGradesRequest
	if !bindJSON(c, &req) {
		return
	}
	module, err := h.service.UpdateGrades(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, module, nil, response.Message("grades updated"))
}

// UpdateCoefficient godoc
// @Summary Replace module coefficient
// @Description Accepts a number or a numeric string. Unusable values fall back to 1.
// @Tags Modules
// @Accept json
// @Produce json
// @Param id path string true "Module ID"
// @Param payload body service.UpdateCoefficientRequest true "Coefficient"
// @Success 200 {object} response.Envelope
// @Router /modules/{id}/coefficient [put]
func (h *ModuleHandler) UpdateCoefficient(c *gin.Context) {
	var req service.UpdateCoefficientRequest
	if !bindJSON(c, &req) {
		return
	}
	module, err := h.service.UpdateCoefficient(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, module, nil, response.Message("coefficient updated"))
}

// Delete godoc
// @Summary Delete module
// @Tags Modules
// @Produce json
// @Param id path string true "Module ID"
// @Success 200 {object} response.Envelope
// @Router /modules/{id} [delete]
func (h *ModuleHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, deleted(id), nil, response.Message("module deleted"))
}
