package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradebook-api/internal/dto"
	"github.com/noah-isme/gradebook-api/internal/middleware"
	"github.com/noah-isme/gradebook-api/internal/service"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
	"github.com/noah-isme/gradebook-api/pkg/realtime"
	"github.com/noah-isme/gradebook-api/pkg/response"
)

type reportService interface {
	SemesterReport(ctx context.Context, semesterID string) (*dto.SemesterReport, bool, error)
	Export(ctx context.Context, semesterID, format string) (*service.ExportFile, error)
}

// ReportStream upgrades a request into a live report subscription.
type ReportStream interface {
	Serve(w http.ResponseWriter, r *http.Request, topic string, initial realtime.Message) error
}

// ReportHandler exposes aggregated grade reports.
type ReportHandler struct {
	service reportService
	stream  ReportStream
}

// NewReportHandler constructs handler. stream may be nil when realtime updates are disabled.
func NewReportHandler(svc reportService, stream ReportStream) *ReportHandler {
	return &ReportHandler{service: svc, stream: stream}
}

// SemesterReport godoc
// @Summary Semester report
// @Description Module averages, class statistics, semester statistics and the coefficient weighted average.
// @Tags Reports
// @Produce json
// @Param id path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /semesters/{id}/report [get]
func (h *ReportHandler) SemesterReport(c *gin.Context) {
	start := time.Now()
	report, cacheHit, err := h.service.SemesterReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, report, nil, meta)
}

// Export godoc
// @Summary Download semester transcript
// @Tags Reports
// @Produce text/csv,application/pdf
// @Param id path string true "Semester ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /semesters/{id}/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	file, err := h.service.Export(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// Stream godoc
// @Summary Live semester report
// @Description Upgrades to a websocket. The current report is sent first, then a new one after every change.
// @Tags Reports
// @Param id path string true "Semester ID"
// @Success 101
// @Router /semesters/{id}/stream [get]
func (h *ReportHandler) Stream(c *gin.Context) {
	if h.stream == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "realtime updates are disabled"))
		return
	}
	semesterID := c.Param("id")
	report, _, err := h.service.SemesterReport(c.Request.Context(), semesterID)
	if err != nil {
		response.Error(c, err)
		return
	}
	initial := realtime.Message{Type: service.MessageReportUpdated, Data: report}
	if err := h.stream.Serve(c.Writer, c.Request, service.ReportTopic(semesterID), initial); err != nil {
		// The connection is hijacked or already answered by the upgrader.
		_ = c.Error(err)
	}
}
