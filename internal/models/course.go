package models

import "time"

// CourseStatus represents the catalog lifecycle of a course.
type CourseStatus string

const (
	CourseStatusActive   CourseStatus = "ACTIVE"
	CourseStatusInactive CourseStatus = "INACTIVE"
)

// Course represents a catalog course. CurrentStudents is maintained solely by
// the atomic seat adjustment in the course repository; MaxStudents == 0 means
// the course has no seat limit.
type Course struct {
	ID              string       `db:"id" json:"id"`
	Code            string       `db:"code" json:"code"`
	Name            string       `db:"name" json:"name"`
	TeacherName     string       `db:"teacher_name" json:"teacher_name"`
	Credit          float64      `db:"credit" json:"credit"`
	Status          CourseStatus `db:"status" json:"status"`
	MaxStudents     int          `db:"max_students" json:"max_students"`
	CurrentStudents int          `db:"current_students" json:"current_students"`
	StartDate       *time.Time   `db:"start_date" json:"start_date,omitempty"`
	EndDate         *time.Time   `db:"end_date" json:"end_date,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	Keyword   string
	Status    CourseStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CourseDetail enriches a course with its weekly schedule.
type CourseDetail struct {
	Course
	Schedules []CourseSchedule `json:"schedules"`
}
