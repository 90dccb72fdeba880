package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Course is the slice of the catalog this service needs: what a course
// costs and which teacher owns it. Lessons, tasks and their per-student
// fan-out live in the catalog collaborator.
type Course struct {
	ID        uint            `gorm:"primarykey"`
	Name      string          `gorm:"not null"`
	TeacherID uint            `gorm:"index;not null"`
	Cost      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Currency  string          `gorm:"default:'USD'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CourseStudent records a student's membership in a course. A row is
// created only after the enrollment transfer has committed.
type CourseStudent struct {
	ID        uint `gorm:"primarykey"`
	CourseID  uint `gorm:"not null;uniqueIndex:idx_course_student"`
	StudentID uint `gorm:"not null;uniqueIndex:idx_course_student"`
	CreatedAt time.Time
}
