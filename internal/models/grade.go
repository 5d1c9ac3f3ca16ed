package models

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Module is the leaf gradable unit. An invalid score has not been entered yet and is
// never the same thing as a score of zero.
type Module struct {
	ID              string       `db:"id" json:"id"`
	ClassID         string       `db:"class_id" json:"class_id"`
	Name            string       `db:"name" json:"name"`
	AssignmentGrade null.Float64 `db:"assignment_grade" json:"assignment_grade"`
	ExamGrade       null.Float64 `db:"exam_grade" json:"exam_grade"`
	Coefficient     float64      `db:"coefficient" json:"coefficient"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// Completed reports whether both grade components are present.
func (m Module) Completed() bool {
	return m.AssignmentGrade.Valid && m.ExamGrade.Valid
}

// GradeStats summarises a class or semester rollup.
type GradeStats struct {
	Average          float64 `json:"average"`
	TotalModules     int     `json:"total_modules"`
	CompletedModules int     `json:"completed_modules"`
}
