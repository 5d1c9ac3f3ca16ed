package dto

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/noah-isme/gradebook-api/internal/grading"
	"github.com/noah-isme/gradebook-api/internal/models"
)

// StatsView exposes aggregated counters with a display ready average.
type StatsView struct {
	Average          float64 `json:"average"`
	AverageDisplay   string  `json:"average_display"`
	TotalModules     int     `json:"total_modules"`
	CompletedModules int     `json:"completed_modules"`
}

// ModuleReport describes one module with its computed average.
type ModuleReport struct {
	ModuleID          string       `json:"module_id"`
	Name              string       `json:"name"`
	AssignmentGrade   null.Float64 `json:"assignment_grade"`
	ExamGrade         null.Float64 `json:"exam_grade"`
	AssignmentDisplay string       `json:"assignment_display"`
	ExamDisplay       string       `json:"exam_display"`
	Coefficient       float64      `json:"coefficient"`
	Average           null.Float64 `json:"average"`
	AverageDisplay    string       `json:"average_display"`
}

// ClassReport groups module reports with the class rollup.
type ClassReport struct {
	ClassID string         `json:"class_id"`
	Name    string         `json:"name"`
	Stats   StatsView      `json:"stats"`
	Modules []ModuleReport `json:"modules"`
}

// SemesterReport is the full aggregation of a semester snapshot.
type SemesterReport struct {
	SemesterID             string        `json:"semester_id"`
	Name                   string        `json:"name"`
	Stats                  StatsView     `json:"stats"`
	WeightedAverage        float64       `json:"weighted_average"`
	WeightedAverageDisplay string        `json:"weighted_average_display"`
	Classes                []ClassReport `json:"classes"`
	GeneratedAt            time.Time     `json:"generated_at"`
}

// NewStatsView converts engine stats into their presentation form.
func NewStatsView(stats models.GradeStats) StatsView {
	return StatsView{
		Average:          stats.Average,
		AverageDisplay:   grading.FormatValue(stats.Average),
		TotalModules:     stats.TotalModules,
		CompletedModules: stats.CompletedModules,
	}
}

// NewModuleReport computes the module average.
func NewModuleReport(module models.Module) ModuleReport {
	avg := grading.ModuleAverage(module)
	return ModuleReport{
		ModuleID:          module.ID,
		Name:              module.Name,
		AssignmentGrade:   module.AssignmentGrade,
		ExamGrade:         module.ExamGrade,
		AssignmentDisplay: grading.Format(module.AssignmentGrade),
		ExamDisplay:       grading.Format(module.ExamGrade),
		Coefficient:       grading.NormalizeCoefficient(module.Coefficient),
		Average:           avg,
		AverageDisplay:    grading.Format(avg),
	}
}

// NewClassReport computes the class rollup and every module average.
func NewClassReport(class models.Class) ClassReport {
	modules := make([]ModuleReport, 0, len(class.Modules))
	for _, module := range class.Modules {
		modules = append(modules, NewModuleReport(module))
	}
	return ClassReport{
		ClassID: class.ID,
		Name:    class.Name,
		Stats:   NewStatsView(grading.ClassStats(class.Modules)),
		Modules: modules,
	}
}

// NewSemesterReport aggregates a loaded semester tree. The tree is read, never modified.
func NewSemesterReport(semester models.Semester, generatedAt time.Time) SemesterReport {
	classes := make([]ClassReport, 0, len(semester.Classes))
	for _, class := range semester.Classes {
		classes = append(classes, NewClassReport(class))
	}
	weighted := grading.WeightedAverage(grading.FlattenModules(semester.Classes))
	return SemesterReport{
		SemesterID:             semester.ID,
		Name:                   semester.Name,
		Stats:                  NewStatsView(grading.SemesterStats(semester.Classes)),
		WeightedAverage:        weighted,
		WeightedAverageDisplay: grading.FormatValue(weighted),
		Classes:                classes,
		GeneratedAt:            generatedAt,
	}
}
