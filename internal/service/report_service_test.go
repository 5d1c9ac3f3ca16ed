package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/noah-isme/gradebook-api/internal/dto"
	"github.com/noah-isme/gradebook-api/internal/models"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
	"github.com/noah-isme/gradebook-api/pkg/realtime"
)

type stubSnapshotLoader struct {
	trees map[string]models.Semester
	err   error
	loads int
}

func (s *stubSnapshotLoader) LoadTree(ctx context.Context, id string) (*models.Semester, error) {
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	tree, ok := s.trees[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &tree, nil
}

type memoryReportCache struct {
	mu      sync.Mutex
	entries map[string]dto.SemesterReport
	deleted []string
}

func newMemoryReportCache() *memoryReportCache {
	return &memoryReportCache{entries: map[string]dto.SemesterReport{}}
}

func (m *memoryReportCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	report, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	*(dest.(*dto.SemesterReport)) = report
	return true, nil
}

func (m *memoryReportCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = *(value.(*dto.SemesterReport))
	return nil
}

func (m *memoryReportCache) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
		m.deleted = append(m.deleted, key)
	}
	return nil
}

type recordingPublisher struct {
	topics   []string
	messages []realtime.Message
}

func (r *recordingPublisher) Publish(topic string, msg realtime.Message) {
	r.topics = append(r.topics, topic)
	r.messages = append(r.messages, msg)
}

func sampleTree() models.Semester {
	return models.Semester{
		ID:   "s1",
		Name: "Semestre 1",
		Classes: []models.Class{
			{ID: "a", SemesterID: "s1", Name: "A", Modules: []models.Module{
				{ID: "m1", ClassID: "a", Name: "Algebre", AssignmentGrade: null.Float64From(14), ExamGrade: null.Float64From(16), Coefficient: 1},
			}},
			{ID: "b", SemesterID: "s1", Name: "B", Modules: []models.Module{
				{ID: "m2", ClassID: "b", Name: "Histoire", Coefficient: 1},
			}},
		},
	}
}

var _ ReportPublisher = (*realtime.Hub)(nil)

func newReportServiceForTest(loader *stubSnapshotLoader, cache reportCache, publisher ReportPublisher) *ReportService {
	svc := NewReportService(loader, cache, publisher, NewExportService("Transcript", nil), NewMetricsService(), ReportServiceConfig{CacheTTL: time.Minute}, nil)
	svc.now = func() time.Time { return time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC) }
	return svc
}

func TestReportServiceSemesterReportComputesAndCaches(t *testing.T) {
	loader := &stubSnapshotLoader{trees: map[string]models.Semester{"s1": sampleTree()}}
	cache := newMemoryReportCache()
	svc := newReportServiceForTest(loader, cache, nil)

	report, hit, err := svc.SemesterReport(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.InDelta(t, 14.8, report.Stats.Average, 1e-9)
	assert.Equal(t, 2, report.Stats.TotalModules)
	assert.Equal(t, 1, report.Stats.CompletedModules)

	again, hit, err := svc.SemesterReport(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, report.Stats, again.Stats)
	assert.Equal(t, 1, loader.loads)
}

func TestReportServiceSemesterReportWithoutCache(t *testing.T) {
	loader := &stubSnapshotLoader{trees: map[string]models.Semester{"s1": sampleTree()}}
	svc := newReportServiceForTest(loader, nil, nil)

	first, _, err := svc.SemesterReport(context.Background(), "s1")
	require.NoError(t, err)
	second, _, err := svc.SemesterReport(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, loader.loads)
}

func TestReportServiceSemesterReportErrors(t *testing.T) {
	loader := &stubSnapshotLoader{trees: map[string]models.Semester{}}
	svc := newReportServiceForTest(loader, nil, nil)

	_, _, err := svc.SemesterReport(context.Background(), "missing")
	assertErrorCode(t, err, appErrors.ErrNotFound)

	loader.err = errors.New("db down")
	_, _, err = svc.SemesterReport(context.Background(), "s1")
	assertErrorCode(t, err, appErrors.ErrInternal)
}

func TestReportServiceInvalidatePublishesFreshReport(t *testing.T) {
	tree := sampleTree()
	loader := &stubSnapshotLoader{trees: map[string]models.Semester{"s1": tree}}
	cache := newMemoryReportCache()
	publisher := &recordingPublisher{}
	svc := newReportServiceForTest(loader, cache, publisher)

	_, _, err := svc.SemesterReport(context.Background(), "s1")
	require.NoError(t, err)

	tree.Classes[1].Modules[0].AssignmentGrade = null.Float64From(10)
	tree.Classes[1].Modules[0].ExamGrade = null.Float64From(10)
	loader.trees["s1"] = tree

	svc.Invalidate(context.Background(), "s1")

	assert.Equal(t, []string{ReportCacheKey("s1")}, cache.deleted)
	require.Len(t, publisher.messages, 1)
	assert.Equal(t, ReportTopic("s1"), publisher.topics[0])
	assert.Equal(t, MessageReportUpdated, publisher.messages[0].Type)
	pushed := publisher.messages[0].Data.(*dto.SemesterReport)
	assert.InDelta(t, 12.4, pushed.Stats.Average, 1e-9)
	assert.Equal(t, 2, pushed.Stats.CompletedModules)

	cached, hit, err := svc.SemesterReport(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.InDelta(t, 12.4, cached.Stats.Average, 1e-9)
}

func TestReportServiceInvalidateDeletedSemester(t *testing.T) {
	loader := &stubSnapshotLoader{trees: map[string]models.Semester{}}
	publisher := &recordingPublisher{}
	svc := newReportServiceForTest(loader, newMemoryReportCache(), publisher)

	svc.Invalidate(context.Background(), "gone")

	require.Len(t, publisher.messages, 1)
	assert.Equal(t, MessageSemesterDeleted, publisher.messages[0].Type)
}

func TestReportServiceInvalidateWithoutSubscribersSkipsRecompute(t *testing.T) {
	loader := &stubSnapshotLoader{trees: map[string]models.Semester{"s1": sampleTree()}}
	svc := newReportServiceForTest(loader, newMemoryReportCache(), nil)

	svc.Invalidate(context.Background(), "s1")
	assert.Zero(t, loader.loads)
}

func TestReportServiceExport(t *testing.T) {
	loader := &stubSnapshotLoader{trees: map[string]models.Semester{"s1": sampleTree()}}
	svc := newReportServiceForTest(loader, nil, nil)

	file, err := svc.Export(context.Background(), "s1", "CSV")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "semestre_1_20260201_080000.csv", file.Filename)
	assert.Contains(t, string(file.Data), "Algebre")

	_, err = svc.Export(context.Background(), "s1", "xlsx")
	assertErrorCode(t, err, appErrors.ErrUnsupportedFormat)
}
