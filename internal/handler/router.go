package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradebook-api/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes.
type Handlers struct {
	Semesters *SemesterHandler
	Classes   *ClassHandler
	Modules   *ModuleHandler
	Reports   *ReportHandler
	Metrics   *MetricsHandler
}

// RegisterRoutes mounts the probes at the root and the gradebook API under prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers) {
	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/ready", h.Metrics.Ready)
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())

	semesters := api.Group("/semesters")
	semesters.GET("", h.Semesters.List)
	semesters.POST("", h.Semesters.Create)
	semesters.GET("/:id", h.Semesters.Get)
	semesters.PUT("/:id", h.Semesters.Rename)
	semesters.DELETE("/:id", h.Semesters.Delete)
	semesters.GET("/:id/report", h.Reports.SemesterReport)
	semesters.GET("/:id/export", h.Reports.Export)
	semesters.GET("/:id/stream", h.Reports.Stream)
	semesters.POST("/:id/classes", h.Classes.Create)

	classes := api.Group("/classes")
	classes.GET("/:id", h.Classes.Get)
	classes.PUT("/:id", h.Classes.Rename)
	classes.DELETE("/:id", h.Classes.Delete)
	classes.POST("/:id/modules", h.Modules.Create)

	modules := api.Group("/modules")
	modules.PUT("/:id", h.Modules.Rename)
	modules.PUT("/:id/grades", h.Modules.UpdateGrades)
	modules.PUT("/:id/coefficient", h.Modules.UpdateCoefficient)
	modules.DELETE("/:id", h.Modules.Delete)
}
