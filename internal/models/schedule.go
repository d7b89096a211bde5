package models

import (
	"fmt"
	"time"
)

// WeekType narrows a slot to all, odd or even lesson weeks.
type WeekType string

const (
	WeekTypeAll  WeekType = "ALL"
	WeekTypeOdd  WeekType = "ODD"
	WeekTypeEven WeekType = "EVEN"
)

// CourseSchedule is one recurring weekly occurrence of a course. When the
// section pair is present it takes precedence over the wall-clock pair for
// conflict purposes.
type CourseSchedule struct {
	ID           string     `db:"id" json:"id"`
	CourseID     string     `db:"course_id" json:"course_id"`
	DayOfWeek    int        `db:"day_of_week" json:"day_of_week"`
	SectionStart *int       `db:"section_start" json:"section_start,omitempty"`
	SectionEnd   *int       `db:"section_end" json:"section_end,omitempty"`
	StartTime    *time.Time `db:"start_time" json:"start_time,omitempty"`
	EndTime      *time.Time `db:"end_time" json:"end_time,omitempty"`
	Classroom    string     `db:"classroom" json:"classroom"`
	WeekStart    int        `db:"week_start" json:"week_start"`
	WeekEnd      int        `db:"week_end" json:"week_end"`
	WeekType     WeekType   `db:"week_type" json:"week_type"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// StudentSlot pairs an enrolled slot with its course display name for
// conflict reporting.
type StudentSlot struct {
	CourseSchedule
	CourseName string `db:"course_name" json:"course_name"`
}

// ScheduleConflict describes the first colliding slot pair found for an
// enrollment attempt.
type ScheduleConflict struct {
	CourseID     string `json:"course_id"`
	CourseName   string `json:"course_name"`
	DayOfWeek    int    `json:"day_of_week"`
	SectionStart *int   `json:"section_start,omitempty"`
	SectionEnd   *int   `json:"section_end,omitempty"`
}

var dayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// DayName renders a 1-7 day-of-week for user-facing messages.
func DayName(dayOfWeek int) string {
	if dayOfWeek >= 1 && dayOfWeek <= 7 {
		return dayNames[dayOfWeek]
	}
	return fmt.Sprintf("day %d", dayOfWeek)
}

// Describe renders the conflict as a user-facing message.
func (c ScheduleConflict) Describe() string {
	if c.SectionStart != nil && c.SectionEnd != nil {
		return fmt.Sprintf("conflicts with %q on %s, sections %d-%d",
			c.CourseName, DayName(c.DayOfWeek), *c.SectionStart, *c.SectionEnd)
	}
	return fmt.Sprintf("conflicts with %q on %s", c.CourseName, DayName(c.DayOfWeek))
}
