// Package grading computes module, class and semester averages.
//
// Every function is pure: inputs are never mutated and no state is kept between calls,
// so callers may recompute from a fresh snapshot after each change.
package grading

import (
	"github.com/volatiletech/null/v8"

	"github.com/noah-isme/gradebook-api/internal/models"
)

const (
	// AssignmentWeight is the share of the continuous-assessment score in a module average.
	AssignmentWeight = 0.6
	// ExamWeight is the share of the exam score in a module average.
	ExamWeight = 0.4
)

// ModuleAverage returns the weighted module average, or an invalid value when either score is absent.
func ModuleAverage(m models.Module) null.Float64 {
	if !m.Completed() {
		return null.Float64{}
	}
	return null.Float64From(m.AssignmentGrade.Float64*AssignmentWeight + m.ExamGrade.Float64*ExamWeight)
}

// ClassStats rolls module averages up to the class level. Only completed modules
// contribute to the mean; a class without any completed module averages 0.
func ClassStats(modules []models.Module) models.GradeStats {
	sum := 0.0
	completed := 0
	for _, m := range modules {
		avg := ModuleAverage(m)
		if !avg.Valid {
			continue
		}
		sum += avg.Float64
		completed++
	}
	stats := models.GradeStats{TotalModules: len(modules), CompletedModules: completed}
	if completed > 0 {
		stats.Average = sum / float64(completed)
	}
	return stats
}

// SemesterStats averages the class averages of classes holding at least one completed
// module. Module counts are summed across every class, including the excluded ones.
func SemesterStats(classes []models.Class) models.GradeStats {
	var stats models.GradeStats
	sum := 0.0
	contributing := 0
	for _, class := range classes {
		cs := ClassStats(class.Modules)
		stats.TotalModules += cs.TotalModules
		stats.CompletedModules += cs.CompletedModules
		if cs.CompletedModules == 0 {
			continue
		}
		sum += cs.Average
		contributing++
	}
	if contributing > 0 {
		stats.Average = sum / float64(contributing)
	}
	return stats
}

// WeightedAverage is the flat coefficient-weighted rollup: Σ(avg·coef)/Σ(coef) over
// completed modules, with scores clamped to the grading scale first.
func WeightedAverage(modules []models.Module) float64 {
	weighted := 0.0
	totalCoef := 0.0
	for _, m := range modules {
		if !m.Completed() {
			continue
		}
		avg := ClampScore(m.AssignmentGrade.Float64)*AssignmentWeight + ClampScore(m.ExamGrade.Float64)*ExamWeight
		coef := NormalizeCoefficient(m.Coefficient)
		weighted += avg * coef
		totalCoef += coef
	}
	if totalCoef == 0 {
		return 0
	}
	return weighted / totalCoef
}

// FlattenModules lists every module of a semester tree in class order.
func FlattenModules(classes []models.Class) []models.Module {
	total := 0
	for _, class := range classes {
		total += len(class.Modules)
	}
	modules := make([]models.Module, 0, total)
	for _, class := range classes {
		modules = append(modules, class.Modules...)
	}
	return modules
}
