package service

import (
	"github.com/opencampus/course-portal-api/internal/models"
)

// ConflictDetector compares a candidate course's time slots against the
// slots of a student's currently enrolled courses.
//
// The baseline rule pairs slots by day_of_week only and tests section (or
// wall-clock) overlap; week range and week parity are deliberately not
// consulted, matching the portal's historical behavior of rejecting
// odd/even-week pairs conservatively. Week-aware checking is available as an
// opt-in and skips pairs whose active weeks can never coincide.
type ConflictDetector struct {
	weekAware bool
}

// NewConflictDetector constructs a detector.
func NewConflictDetector(weekAware bool) *ConflictDetector {
	return &ConflictDetector{weekAware: weekAware}
}

// Detect returns the first conflicting pair, or nil when the candidate fits.
// The slot counts per course are small, so the quadratic scan needs no index.
func (d *ConflictDetector) Detect(candidate []models.CourseSchedule, existing []models.StudentSlot) *models.ScheduleConflict {
	for _, next := range candidate {
		for _, exist := range existing {
			if next.DayOfWeek != exist.DayOfWeek {
				continue
			}
			if d.weekAware && !weeksCanCoincide(next, exist.CourseSchedule) {
				continue
			}
			if conflict := slotsOverlap(next, exist); conflict != nil {
				return conflict
			}
		}
	}
	return nil
}

// slotsOverlap applies the closed-interval overlap rule. Section pairs take
// precedence; the wall-clock pair is the fallback when either side lacks
// sections. Intervals overlap unless newEnd < existStart or
// newStart > existEnd.
func slotsOverlap(next models.CourseSchedule, exist models.StudentSlot) *models.ScheduleConflict {
	if next.SectionStart != nil && exist.SectionStart != nil {
		newStart := *next.SectionStart
		newEnd := sectionEnd(next)
		existStart := *exist.SectionStart
		existEnd := sectionEnd(exist.CourseSchedule)

		if newEnd < existStart || newStart > existEnd {
			return nil
		}
		return &models.ScheduleConflict{
			CourseID:     exist.CourseID,
			CourseName:   exist.CourseName,
			DayOfWeek:    next.DayOfWeek,
			SectionStart: &existStart,
			SectionEnd:   &existEnd,
		}
	}

	if next.StartTime != nil && next.EndTime != nil && exist.StartTime != nil && exist.EndTime != nil {
		if next.EndTime.Before(*exist.StartTime) || next.StartTime.After(*exist.EndTime) {
			return nil
		}
		return &models.ScheduleConflict{
			CourseID:   exist.CourseID,
			CourseName: exist.CourseName,
			DayOfWeek:  next.DayOfWeek,
		}
	}

	return nil
}

func sectionEnd(slot models.CourseSchedule) int {
	if slot.SectionEnd != nil {
		return *slot.SectionEnd
	}
	return *slot.SectionStart
}

// weeksCanCoincide reports whether two slots can ever be active in the same
// lesson week, considering week ranges and odd/even parity.
func weeksCanCoincide(a, b models.CourseSchedule) bool {
	start := a.WeekStart
	if b.WeekStart > start {
		start = b.WeekStart
	}
	end := a.WeekEnd
	if b.WeekEnd < end {
		end = b.WeekEnd
	}
	if start > end {
		return false
	}

	// Disjoint parities never share a week.
	if (a.WeekType == models.WeekTypeOdd && b.WeekType == models.WeekTypeEven) ||
		(a.WeekType == models.WeekTypeEven && b.WeekType == models.WeekTypeOdd) {
		return false
	}

	// A single shared week must still match a restricted parity.
	if start == end {
		odd := start%2 == 1
		if a.WeekType == models.WeekTypeOdd && !odd {
			return false
		}
		if a.WeekType == models.WeekTypeEven && odd {
			return false
		}
		if b.WeekType == models.WeekTypeOdd && !odd {
			return false
		}
		if b.WeekType == models.WeekTypeEven && odd {
			return false
		}
	}
	return true
}
