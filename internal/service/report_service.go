package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gradebook-api/internal/dto"
	"github.com/noah-isme/gradebook-api/internal/models"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
	"github.com/noah-isme/gradebook-api/pkg/realtime"
)

// Message types pushed to report subscribers.
const (
	MessageReportUpdated   = "report.updated"
	MessageSemesterDeleted = "semester.deleted"
)

type semesterSnapshotLoader interface {
	LoadTree(ctx context.Context, id string) (*models.Semester, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ReportPublisher pushes messages to realtime subscribers.
type ReportPublisher interface {
	Publish(topic string, msg realtime.Message)
}

// ReportServiceConfig governs report caching.
type ReportServiceConfig struct {
	CacheTTL time.Duration
}

// ReportService aggregates semester snapshots into reports, caches them and pushes them to subscribers.
type ReportService struct {
	loader    semesterSnapshotLoader
	cache     reportCache
	publisher ReportPublisher
	exporter  *ExportService
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ReportServiceConfig
	now       func() time.Time
}

// NewReportService constructs the report service. cache and publisher may be nil.
func NewReportService(loader semesterSnapshotLoader, cache reportCache, publisher ReportPublisher, exporter *ExportService, metrics *MetricsService, cfg ReportServiceConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if exporter == nil {
		exporter = NewExportService("", logger)
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &ReportService{
		loader:    loader,
		cache:     cache,
		publisher: publisher,
		exporter:  exporter,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// ReportCacheKey is the cache key of a semester report.
func ReportCacheKey(semesterID string) string {
	return "report:semester:" + semesterID
}

// ReportTopic is the realtime topic of a semester report.
func ReportTopic(semesterID string) string {
	return "semester:" + semesterID
}

// SemesterReport returns the aggregated report, reporting whether it came from cache.
func (s *ReportService) SemesterReport(ctx context.Context, semesterID string) (*dto.SemesterReport, bool, error) {
	key := ReportCacheKey(semesterID)
	if s.cache != nil {
		var cached dto.SemesterReport
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	report, err := s.compute(ctx, semesterID)
	if err != nil {
		return nil, false, err
	}
	s.store(ctx, report)
	return report, false, nil
}

// Invalidate drops the cached report and pushes a freshly computed one to subscribers.
func (s *ReportService) Invalidate(ctx context.Context, semesterID string) {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, ReportCacheKey(semesterID)); err != nil {
			s.logger.Warn("drop cached report failed", zap.String("semester_id", semesterID), zap.Error(err))
		}
	}
	if s.publisher == nil {
		return
	}

	report, err := s.compute(ctx, semesterID)
	if err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrNotFound.Code {
			s.publisher.Publish(ReportTopic(semesterID), realtime.Message{
				Type: MessageSemesterDeleted,
				Data: map[string]string{"semester_id": semesterID},
			})
			return
		}
		s.logger.Error("recompute report failed", zap.String("semester_id", semesterID), zap.Error(err))
		return
	}
	s.store(ctx, report)
	s.publisher.Publish(ReportTopic(semesterID), realtime.Message{Type: MessageReportUpdated, Data: report})
}

// Export renders the semester transcript in the requested format.
func (s *ReportService) Export(ctx context.Context, semesterID, format string) (*ExportFile, error) {
	report, _, err := s.SemesterReport(ctx, semesterID)
	if err != nil {
		return nil, err
	}
	return s.exporter.Render(*report, format)
}

func (s *ReportService) compute(ctx context.Context, semesterID string) (*dto.SemesterReport, error) {
	start := time.Now()
	semester, err := s.loader.LoadTree(ctx, semesterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("semester")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	report := dto.NewSemesterReport(*semester, s.now().UTC())
	s.metrics.ObserveRecompute("semester", time.Since(start))
	return &report, nil
}

func (s *ReportService) store(ctx context.Context, report *dto.SemesterReport) {
	if s.cache == nil {
		return
	}
	// Failures are already logged by the cache layer.
	_ = s.cache.Set(ctx, ReportCacheKey(report.SemesterID), report, s.cfg.CacheTTL)
}
