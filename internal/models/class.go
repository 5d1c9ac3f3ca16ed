package models

import "time"

// Class represents a named group of modules within a semester.
type Class struct {
	ID         string    `db:"id" json:"id"`
	SemesterID string    `db:"semester_id" json:"semester_id"`
	Name       string    `db:"name" json:"name"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
	Modules    []Module  `db:"-" json:"modules"`
}
