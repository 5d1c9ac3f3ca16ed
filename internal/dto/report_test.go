package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/noah-isme/gradebook-api/internal/models"
)

func TestNewSemesterReport(t *testing.T) {
	semester := models.Semester{
		ID:   "s1",
		Name: "Semestre 1",
		Classes: []models.Class{
			{ID: "a", Name: "A", Modules: []models.Module{
				{ID: "m1", Name: "Algebre", AssignmentGrade: null.Float64From(14), ExamGrade: null.Float64From(16), Coefficient: 1},
			}},
			{ID: "b", Name: "B", Modules: []models.Module{
				{ID: "m2", Name: "Histoire", ExamGrade: null.Float64From(12), Coefficient: 3},
			}},
		},
	}
	generated := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

	report := NewSemesterReport(semester, generated)

	assert.Equal(t, "s1", report.SemesterID)
	assert.InDelta(t, 14.8, report.Stats.Average, 1e-9)
	assert.Equal(t, "14.80", report.Stats.AverageDisplay)
	assert.Equal(t, 2, report.Stats.TotalModules)
	assert.Equal(t, 1, report.Stats.CompletedModules)
	assert.Equal(t, "14.80", report.WeightedAverageDisplay)
	assert.Equal(t, generated, report.GeneratedAt)

	require.Len(t, report.Classes, 2)
	incomplete := report.Classes[1]
	assert.Equal(t, "0.00", incomplete.Stats.AverageDisplay)
	require.Len(t, incomplete.Modules, 1)
	assert.False(t, incomplete.Modules[0].Average.Valid)
	assert.Equal(t, "--", incomplete.Modules[0].AverageDisplay)
	assert.Equal(t, "--", incomplete.Modules[0].AssignmentDisplay)
	assert.Equal(t, "12.00", incomplete.Modules[0].ExamDisplay)
}

func TestNewSemesterReportDoesNotMutateInput(t *testing.T) {
	semester := models.Semester{Classes: []models.Class{{Modules: []models.Module{
		{AssignmentGrade: null.Float64From(25), ExamGrade: null.Float64From(-2), Coefficient: 0},
	}}}}

	first := NewSemesterReport(semester, time.Time{})
	second := NewSemesterReport(semester, time.Time{})

	assert.Equal(t, first, second)
	assert.Equal(t, 25.0, semester.Classes[0].Modules[0].AssignmentGrade.Float64)
	assert.Equal(t, 0.0, semester.Classes[0].Modules[0].Coefficient)
	assert.Equal(t, 1.0, first.Classes[0].Modules[0].Coefficient)
}

func TestNewSemesterReportEmpty(t *testing.T) {
	report := NewSemesterReport(models.Semester{ID: "empty"}, time.Time{})
	assert.NotNil(t, report.Classes)
	assert.Empty(t, report.Classes)
	assert.Equal(t, "0.00", report.Stats.AverageDisplay)
	assert.Equal(t, 0.0, report.WeightedAverage)
}
