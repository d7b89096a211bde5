package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/course-portal-api/internal/models"
)

func sectionSlot(day, start, end int) models.CourseSchedule {
	return models.CourseSchedule{
		DayOfWeek:    day,
		SectionStart: &start,
		SectionEnd:   &end,
		WeekStart:    1,
		WeekEnd:      18,
		WeekType:     models.WeekTypeAll,
	}
}

func enrolledSlot(courseID, courseName string, slot models.CourseSchedule) models.StudentSlot {
	slot.CourseID = courseID
	return models.StudentSlot{CourseSchedule: slot, CourseName: courseName}
}

func TestConflictDetectorSharedBoundarySection(t *testing.T) {
	detector := NewConflictDetector(false)

	// Sections 1-2 and 2-3 share section 2 on the same day.
	conflict := detector.Detect(
		[]models.CourseSchedule{sectionSlot(1, 2, 3)},
		[]models.StudentSlot{enrolledSlot("c-math", "Calculus", sectionSlot(1, 1, 2))},
	)
	require.NotNil(t, conflict)
	assert.Equal(t, "c-math", conflict.CourseID)
	assert.Equal(t, "Calculus", conflict.CourseName)
	assert.Equal(t, 1, conflict.DayOfWeek)
}

func TestConflictDetectorAdjacentSectionsDoNotConflict(t *testing.T) {
	detector := NewConflictDetector(false)

	// Sections 2-3 and 4-5 touch nothing: newStart(4) > existEnd(3).
	conflict := detector.Detect(
		[]models.CourseSchedule{sectionSlot(1, 4, 5)},
		[]models.StudentSlot{enrolledSlot("c-math", "Calculus", sectionSlot(1, 2, 3))},
	)
	assert.Nil(t, conflict)
}

func TestConflictDetectorDifferentDays(t *testing.T) {
	detector := NewConflictDetector(false)

	conflict := detector.Detect(
		[]models.CourseSchedule{sectionSlot(2, 1, 2)},
		[]models.StudentSlot{enrolledSlot("c-math", "Calculus", sectionSlot(1, 1, 2))},
	)
	assert.Nil(t, conflict)
}

func TestConflictDetectorIsSymmetric(t *testing.T) {
	detector := NewConflictDetector(false)
	a := sectionSlot(3, 1, 3)
	b := sectionSlot(3, 3, 4)

	first := detector.Detect([]models.CourseSchedule{a}, []models.StudentSlot{enrolledSlot("c1", "A", b)})
	second := detector.Detect([]models.CourseSchedule{b}, []models.StudentSlot{enrolledSlot("c2", "B", a)})
	assert.NotNil(t, first)
	assert.NotNil(t, second)
}

func TestConflictDetectorNilSectionEndDefaultsToStart(t *testing.T) {
	detector := NewConflictDetector(false)
	start := 3
	single := models.CourseSchedule{DayOfWeek: 1, SectionStart: &start, WeekStart: 1, WeekEnd: 18, WeekType: models.WeekTypeAll}

	conflict := detector.Detect(
		[]models.CourseSchedule{single},
		[]models.StudentSlot{enrolledSlot("c-math", "Calculus", sectionSlot(1, 3, 4))},
	)
	assert.NotNil(t, conflict)

	conflict = detector.Detect(
		[]models.CourseSchedule{single},
		[]models.StudentSlot{enrolledSlot("c-math", "Calculus", sectionSlot(1, 4, 5))},
	)
	assert.Nil(t, conflict)
}

func TestConflictDetectorWallClockFallback(t *testing.T) {
	detector := NewConflictDetector(false)
	at := func(hour, minute int) *time.Time {
		v := time.Date(2000, 1, 1, hour, minute, 0, 0, time.UTC)
		return &v
	}
	candidate := models.CourseSchedule{DayOfWeek: 5, StartTime: at(10, 0), EndTime: at(11, 30)}
	overlapping := models.CourseSchedule{DayOfWeek: 5, StartTime: at(11, 0), EndTime: at(12, 0)}
	later := models.CourseSchedule{DayOfWeek: 5, StartTime: at(13, 0), EndTime: at(14, 0)}

	assert.NotNil(t, detector.Detect(
		[]models.CourseSchedule{candidate},
		[]models.StudentSlot{enrolledSlot("c1", "Physics", overlapping)},
	))
	assert.Nil(t, detector.Detect(
		[]models.CourseSchedule{candidate},
		[]models.StudentSlot{enrolledSlot("c1", "Physics", later)},
	))
}

func TestConflictDetectorMixedSlotKindsSkipped(t *testing.T) {
	detector := NewConflictDetector(false)
	at := func(hour int) *time.Time {
		v := time.Date(2000, 1, 1, hour, 0, 0, 0, time.UTC)
		return &v
	}
	clockOnly := models.CourseSchedule{DayOfWeek: 1, StartTime: at(8), EndTime: at(10)}

	// One side has sections, the other only wall-clock times: not comparable.
	conflict := detector.Detect(
		[]models.CourseSchedule{clockOnly},
		[]models.StudentSlot{enrolledSlot("c-math", "Calculus", sectionSlot(1, 1, 2))},
	)
	assert.Nil(t, conflict)
}

func TestConflictDetectorIgnoresWeeksByDefault(t *testing.T) {
	detector := NewConflictDetector(false)

	odd := sectionSlot(1, 1, 2)
	odd.WeekType = models.WeekTypeOdd
	even := sectionSlot(1, 1, 2)
	even.WeekType = models.WeekTypeEven

	// Odd-week vs even-week courses never meet, but the baseline rule still
	// rejects the pair.
	conflict := detector.Detect(
		[]models.CourseSchedule{odd},
		[]models.StudentSlot{enrolledSlot("c-math", "Calculus", even)},
	)
	assert.NotNil(t, conflict)
}

func TestConflictDetectorWeekAware(t *testing.T) {
	detector := NewConflictDetector(true)

	t.Run("disjoint parity passes", func(t *testing.T) {
		odd := sectionSlot(1, 1, 2)
		odd.WeekType = models.WeekTypeOdd
		even := sectionSlot(1, 1, 2)
		even.WeekType = models.WeekTypeEven

		assert.Nil(t, detector.Detect(
			[]models.CourseSchedule{odd},
			[]models.StudentSlot{enrolledSlot("c-math", "Calculus", even)},
		))
	})

	t.Run("disjoint week ranges pass", func(t *testing.T) {
		first := sectionSlot(1, 1, 2)
		first.WeekStart, first.WeekEnd = 1, 8
		second := sectionSlot(1, 1, 2)
		second.WeekStart, second.WeekEnd = 9, 18

		assert.Nil(t, detector.Detect(
			[]models.CourseSchedule{first},
			[]models.StudentSlot{enrolledSlot("c-math", "Calculus", second)},
		))
	})

	t.Run("overlapping weeks still conflict", func(t *testing.T) {
		first := sectionSlot(1, 1, 2)
		first.WeekStart, first.WeekEnd = 1, 10
		second := sectionSlot(1, 1, 2)
		second.WeekStart, second.WeekEnd = 8, 18

		assert.NotNil(t, detector.Detect(
			[]models.CourseSchedule{first},
			[]models.StudentSlot{enrolledSlot("c-math", "Calculus", second)},
		))
	})

	t.Run("single shared week with wrong parity passes", func(t *testing.T) {
		odd := sectionSlot(1, 1, 2)
		odd.WeekType = models.WeekTypeOdd
		odd.WeekStart, odd.WeekEnd = 1, 8
		all := sectionSlot(1, 1, 2)
		all.WeekStart, all.WeekEnd = 8, 18

		// Only week 8 is shared and the odd-week course skips it.
		assert.Nil(t, detector.Detect(
			[]models.CourseSchedule{odd},
			[]models.StudentSlot{enrolledSlot("c-math", "Calculus", all)},
		))
	})
}
