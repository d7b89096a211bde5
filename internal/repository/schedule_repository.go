package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opencampus/course-portal-api/internal/models"
)

// ScheduleRepository handles persistence of course time slots.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, course_id, day_of_week, section_start, section_end, start_time, end_time, classroom, week_start, week_end, week_type, created_at`

// ListByCourse returns all time slots of a course.
func (r *ScheduleRepository) ListByCourse(ctx context.Context, courseID string) ([]models.CourseSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_schedules WHERE course_id = $1 ORDER BY day_of_week, section_start`, scheduleColumns)
	var schedules []models.CourseSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, courseID); err != nil {
		return nil, fmt.Errorf("list course schedules: %w", err)
	}
	return schedules, nil
}

// ListEnrolledByStudent returns the slots of every course the student is
// currently enrolled in, with the course name attached for conflict messages.
func (r *ScheduleRepository) ListEnrolledByStudent(ctx context.Context, studentID string) ([]models.StudentSlot, error) {
	const query = `SELECT cs.id, cs.course_id, cs.day_of_week, cs.section_start, cs.section_end,
        cs.start_time, cs.end_time, cs.classroom, cs.week_start, cs.week_end, cs.week_type, cs.created_at,
        c.name AS course_name
        FROM course_schedules cs
        JOIN course_enrollments e ON e.course_id = cs.course_id
        JOIN courses c ON c.id = cs.course_id
        WHERE e.student_id = $1 AND e.status = $2`
	var slots []models.StudentSlot
	if err := r.db.SelectContext(ctx, &slots, query, studentID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("list enrolled slots: %w", err)
	}
	return slots, nil
}

// Create persists a new time slot.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.CourseSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = time.Now().UTC()
	}
	if schedule.WeekType == "" {
		schedule.WeekType = models.WeekTypeAll
	}
	if schedule.WeekStart == 0 {
		schedule.WeekStart = 1
	}
	if schedule.WeekEnd == 0 {
		schedule.WeekEnd = 18
	}
	const query = `INSERT INTO course_schedules (id, course_id, day_of_week, section_start, section_end, start_time, end_time, classroom, week_start, week_end, week_type, created_at)
        VALUES (:id, :course_id, :day_of_week, :section_start, :section_end, :start_time, :end_time, :classroom, :week_start, :week_end, :week_type, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create course schedule: %w", err)
	}
	return nil
}

// Delete removes a time slot.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM course_schedules WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete course schedule: %w", err)
	}
	return nil
}
