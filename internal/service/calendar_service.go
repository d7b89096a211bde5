package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/opencampus/course-portal-api/internal/models"
	appErrors "github.com/opencampus/course-portal-api/pkg/errors"
	"github.com/opencampus/course-portal-api/pkg/export"
)

type calendarCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// eventPalette is the rotating per-course color palette. Assignment is
// stable for a given request: keyed by first-seen course.
var eventPalette = [...]string{"#409EFF", "#67C23A", "#E6A23C", "#F56C6C", "#909399"}

// CalendarService projects a student's enrolled time slots onto concrete
// calendar days. Purely derived and read-only; recomputed per request.
type CalendarService struct {
	schedules scheduleReader
	courses   calendarCourseReader
	logger    *zap.Logger
}

// NewCalendarService constructs CalendarService.
func NewCalendarService(schedules scheduleReader, courses calendarCourseReader, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{schedules: schedules, courses: courses, logger: logger}
}

// StudentCalendar returns the student's course occurrences between startDate
// and endDate inclusive, filtered by each course's validity window. Slots
// without wall-clock times carry no renderable time span and are skipped.
func (s *CalendarService) StudentCalendar(ctx context.Context, studentID string, startDate, endDate time.Time) ([]models.CalendarEvent, error) {
	if endDate.Before(startDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must not precede start date")
	}

	slots, err := s.schedules.ListEnrolledByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student schedules")
	}

	courseMap, err := s.loadCourses(ctx, slots)
	if err != nil {
		return nil, err
	}

	courseColors := make(map[string]string)
	colorIndex := 0
	var eventID int64
	events := []models.CalendarEvent{}

	for current := startDate; !current.After(endDate); current = current.AddDate(0, 0, 1) {
		dayOfWeek := isoWeekday(current)
		for _, slot := range slots {
			if slot.DayOfWeek != dayOfWeek {
				continue
			}
			course, ok := courseMap[slot.CourseID]
			if !ok {
				continue
			}
			if course.StartDate != nil && current.Before(*course.StartDate) {
				continue
			}
			if course.EndDate != nil && current.After(*course.EndDate) {
				continue
			}
			if slot.StartTime == nil || slot.EndTime == nil {
				continue
			}

			color, assigned := courseColors[course.ID]
			if !assigned {
				color = eventPalette[colorIndex%len(eventPalette)]
				courseColors[course.ID] = color
				colorIndex++
			}

			eventID++
			events = append(events, models.CalendarEvent{
				ID:    eventID,
				Title: course.Name,
				Start: atClock(current, *slot.StartTime),
				End:   atClock(current, *slot.EndTime),
				Color: color,
				ExtendedProps: map[string]interface{}{
					"course_id":     course.ID,
					"classroom":     slot.Classroom,
					"teacher_name":  course.TeacherName,
					"schedule_id":   slot.ID,
					"section_start": slot.SectionStart,
					"section_end":   slot.SectionEnd,
				},
			})
		}
	}

	return events, nil
}

// TimetableDataset flattens the student's weekly timetable into a tabular
// dataset for export.
func (s *CalendarService) TimetableDataset(ctx context.Context, studentID string) (export.Dataset, error) {
	slots, err := s.schedules.ListEnrolledByStudent(ctx, studentID)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student schedules")
	}

	sorted := make([]models.StudentSlot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].DayOfWeek != sorted[j].DayOfWeek {
			return sorted[i].DayOfWeek < sorted[j].DayOfWeek
		}
		return sectionOrClock(sorted[i]) < sectionOrClock(sorted[j])
	})

	dataset := export.Dataset{Headers: []string{"Day", "Sections", "Time", "Course", "Classroom", "Weeks"}}
	for _, slot := range sorted {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Day":       models.DayName(slot.DayOfWeek),
			"Sections":  formatSections(slot),
			"Time":      formatClockRange(slot),
			"Course":    slot.CourseName,
			"Classroom": slot.Classroom,
			"Weeks":     formatWeeks(slot),
		})
	}
	return dataset, nil
}

func (s *CalendarService) loadCourses(ctx context.Context, slots []models.StudentSlot) (map[string]*models.Course, error) {
	courseMap := make(map[string]*models.Course)
	for _, slot := range slots {
		if _, ok := courseMap[slot.CourseID]; ok {
			continue
		}
		course, err := s.courses.FindByID(ctx, slot.CourseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		courseMap[slot.CourseID] = course
	}
	return courseMap, nil
}

// isoWeekday maps Go's Sunday-based weekday to the 1-7 Monday-based scheme
// used by the schedule store.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func atClock(day time.Time, clock time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, day.Location())
}

func sectionOrClock(slot models.StudentSlot) int {
	if slot.SectionStart != nil {
		return *slot.SectionStart
	}
	if slot.StartTime != nil {
		return slot.StartTime.Hour() * 60
	}
	return 0
}

func formatSections(slot models.StudentSlot) string {
	if slot.SectionStart == nil {
		return "-"
	}
	return fmt.Sprintf("%d-%d", *slot.SectionStart, sectionEnd(slot.CourseSchedule))
}

func formatClockRange(slot models.StudentSlot) string {
	if slot.StartTime == nil || slot.EndTime == nil {
		return "-"
	}
	return fmt.Sprintf("%s-%s", slot.StartTime.Format("15:04"), slot.EndTime.Format("15:04"))
}

func formatWeeks(slot models.StudentSlot) string {
	base := fmt.Sprintf("%d-%d", slot.WeekStart, slot.WeekEnd)
	switch slot.WeekType {
	case models.WeekTypeOdd:
		return base + " (odd)"
	case models.WeekTypeEven:
		return base + " (even)"
	default:
		return base
	}
}
