package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/gradebook-api/api/swagger"
	"github.com/noah-isme/gradebook-api/internal/handler"
	"github.com/noah-isme/gradebook-api/internal/middleware"
	"github.com/noah-isme/gradebook-api/internal/repository"
	"github.com/noah-isme/gradebook-api/internal/service"
	"github.com/noah-isme/gradebook-api/pkg/cache"
	"github.com/noah-isme/gradebook-api/pkg/config"
	"github.com/noah-isme/gradebook-api/pkg/database"
	"github.com/noah-isme/gradebook-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/gradebook-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/gradebook-api/pkg/middleware/requestid"
	"github.com/noah-isme/gradebook-api/pkg/realtime"
	"github.com/noah-isme/gradebook-api/pkg/validation"
)

const shutdownTimeout = 10 * time.Second

// @title Gradebook API
// @version 1.0.0
// @description Semesters, classes and modules with 60/40 module averages, class and semester rollups and a coefficient weighted average.
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		logr.Fatal("failed to open database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, cfg.Database.Driver); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The gradebook keeps working without a cache.
		logr.Warn("redis unavailable, report cache disabled", zap.Error(err))
	}
	cacheRepo := repository.NewCacheRepository(redisClient)
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Reports.CacheTTL, logr, cfg.Reports.CacheEnabled && redisClient != nil)

	// Interfaces stay nil when realtime is disabled so the report service skips publishing.
	var (
		hub       *realtime.Hub
		publisher service.ReportPublisher
		stream    handler.ReportStream
	)
	if cfg.Realtime.Enabled {
		hub = realtime.NewHub(cfg.Realtime.WriteTimeout, logr)
		defer hub.Close()
		publisher = hub
		stream = hub
	}

	semesterRepo := repository.NewSemesterRepository(db)
	classRepo := repository.NewClassRepository(db)
	moduleRepo := repository.NewModuleRepository(db)
	validate := validation.New()

	exporter := service.NewExportService(cfg.Reports.TitlePrefix, logr)
	reportSvc := service.NewReportService(semesterRepo, cacheSvc, publisher, exporter, metrics, service.ReportServiceConfig{CacheTTL: cfg.Reports.CacheTTL}, logr)
	semesterSvc := service.NewSemesterService(semesterRepo, reportSvc, validate, logr)
	classSvc := service.NewClassService(classRepo, semesterRepo, moduleRepo, reportSvc, metrics, validate, logr)
	moduleSvc := service.NewModuleService(moduleRepo, classRepo, reportSvc, validate, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Semesters: handler.NewSemesterHandler(semesterSvc),
		Classes:   handler.NewClassHandler(classSvc),
		Modules:   handler.NewModuleHandler(moduleSvc),
		Reports:   handler.NewReportHandler(reportSvc, stream),
		Metrics:   handler.NewMetricsHandler(metrics, db),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "db_driver", cfg.Database.Driver, "realtime", hub != nil)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
		}
	case sig := <-shutdown:
		logr.Info("shutdown started", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logr.Error("graceful shutdown failed", zap.Error(err))
			_ = srv.Close()
		}
		logr.Info("shutdown complete")
	}
}
