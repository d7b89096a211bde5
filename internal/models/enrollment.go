package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusEnrolled EnrollmentStatus = "ENROLLED"
	EnrollmentStatusDropped  EnrollmentStatus = "DROPPED"
)

// Enrollment captures a student's registration to a course. At most one
// ENROLLED row exists per (course_id, student_id); a DROPPED row is
// reactivated in place on re-enrollment, never duplicated.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	CourseID   string           `db:"course_id" json:"course_id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	UserID     string           `db:"user_id" json:"user_id"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
	DroppedAt  *time.Time       `db:"dropped_at" json:"dropped_at,omitempty"`
	Score      *float64         `db:"score" json:"score,omitempty"`
}

// EnrollmentDetail enriches Enrollment with course display fields.
type EnrollmentDetail struct {
	Enrollment
	CourseCode  string  `db:"course_code" json:"course_code"`
	CourseName  string  `db:"course_name" json:"course_name"`
	TeacherName string  `db:"teacher_name" json:"teacher_name"`
	Credit      float64 `db:"credit" json:"credit"`
}
