package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/noah-isme/gradebook-api/internal/dto"
	"github.com/noah-isme/gradebook-api/internal/middleware"
	"github.com/noah-isme/gradebook-api/internal/service"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
	"github.com/noah-isme/gradebook-api/pkg/realtime"
)

type fakeReportSrv struct {
	report     *dto.SemesterReport
	cacheHit   bool
	err        error
	lastFormat string
}

func (f *fakeReportSrv) SemesterReport(context.Context, string) (*dto.SemesterReport, bool, error) {
	return f.report, f.cacheHit, f.err
}

func (f *fakeReportSrv) Export(_ context.Context, _ string, format string) (*service.ExportFile, error) {
	f.lastFormat = format
	if f.err != nil {
		return nil, f.err
	}
	if format != "csv" {
		return nil, appErrors.ErrUnsupportedFormat
	}
	return &service.ExportFile{Filename: "S1_20240101_000000.csv", ContentType: "text/csv", Data: []byte("Class,Module\n")}, nil
}

func sampleReport() *dto.SemesterReport {
	return &dto.SemesterReport{
		SemesterID:             "s1",
		Name:                   "S1",
		Stats:                  dto.StatsView{Average: 14.8, AverageDisplay: "14.80", TotalModules: 1, CompletedModules: 1},
		WeightedAverage:        14.8,
		WeightedAverageDisplay: "14.80",
		Classes: []dto.ClassReport{{
			ClassID: "c1",
			Name:    "Maths",
			Modules: []dto.ModuleReport{{ModuleID: "m1", Name: "Algebre", Average: null.Float64From(14.8), AverageDisplay: "14.80"}},
		}},
	}
}

func newReportRouter(h *ReportHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/semesters", middleware.WithResponseMeta())
	group.GET("/:id/report", h.SemesterReport)
	group.GET("/:id/export", h.Export)
	group.GET("/:id/stream", h.Stream)
	return r
}

func TestReportHandlerSemesterReportMeta(t *testing.T) {
	router := newReportRouter(NewReportHandler(&fakeReportSrv{report: sampleReport(), cacheHit: true}, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/semesters/s1/report", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
	assert.Contains(t, string(envelope.Data), `"weighted_average_display":"14.80"`)
}

func TestReportHandlerSemesterReportNotFound(t *testing.T) {
	router := newReportRouter(NewReportHandler(&fakeReportSrv{err: appErrors.NotFound("semester")}, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/semesters/nope/report", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportHandlerExport(t *testing.T) {
	srv := &fakeReportSrv{report: sampleReport()}
	router := newReportRouter(NewReportHandler(srv, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/semesters/s1/export", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", srv.lastFormat)
	assert.Equal(t, `attachment; filename="S1_20240101_000000.csv"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"))
	assert.Equal(t, "Class,Module\n", rec.Body.String())
}

func TestReportHandlerExportUnsupportedFormat(t *testing.T) {
	router := newReportRouter(NewReportHandler(&fakeReportSrv{report: sampleReport()}, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/semesters/s1/export?format=docx", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrUnsupportedFormat.Code, decodeEnvelope(t, rec).Error.Code)
}

func TestReportHandlerStreamDisabled(t *testing.T) {
	router := newReportRouter(NewReportHandler(&fakeReportSrv{report: sampleReport()}, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/semesters/s1/stream", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "realtime updates are disabled", decodeEnvelope(t, rec).Error.Message)
}

func TestReportHandlerStreamPushesUpdates(t *testing.T) {
	hub := realtime.NewHub(time.Second, nil)
	router := newReportRouter(NewReportHandler(&fakeReportSrv{report: sampleReport()}, hub))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/semesters/s1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var initial map[string]interface{}
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Equal(t, service.MessageReportUpdated, initial["type"])
	assert.Equal(t, 1, hub.Subscribers(service.ReportTopic("s1")))

	hub.Publish(service.ReportTopic("s1"), realtime.Message{Type: service.MessageSemesterDeleted, Data: map[string]string{"semester_id": "s1"}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var pushed map[string]interface{}
	require.NoError(t, conn.ReadJSON(&pushed))
	assert.Equal(t, service.MessageSemesterDeleted, pushed["type"])
}
