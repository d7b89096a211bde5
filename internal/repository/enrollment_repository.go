package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opencampus/course-portal-api/internal/models"
)

// EnrollmentRepository handles persistence of the enrollment ledger.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, course_id, student_id, user_id, status, enrolled_at, dropped_at, score`

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_enrollments WHERE id = $1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByCourseAndStudent returns the ledger row for the pair regardless of
// status. The pair is the idempotency key: at most one row exists.
func (r *EnrollmentRepository) FindByCourseAndStudent(ctx context.Context, courseID, studentID string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_enrollments WHERE course_id = $1 AND student_id = $2`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, courseID, studentID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// CountEnrolledByStudent counts the student's currently active enrollments.
func (r *EnrollmentRepository) CountEnrolledByStudent(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM course_enrollments WHERE student_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentID, models.EnrollmentStatusEnrolled); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

// ListEnrolledDetailByStudent returns the student's active enrollments with
// course display fields.
func (r *EnrollmentRepository) ListEnrolledDetailByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.course_id, e.student_id, e.user_id, e.status, e.enrolled_at, e.dropped_at, e.score,
        c.code AS course_code, c.name AS course_name, c.teacher_name, c.credit
        FROM course_enrollments e
        JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1 AND e.status = $2
        ORDER BY e.enrolled_at DESC`
	var details []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &details, query, studentID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("list enrollment details: %w", err)
	}
	return details, nil
}

// Create persists a new ledger row.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusEnrolled
	}
	const query = `INSERT INTO course_enrollments (id, course_id, student_id, user_id, status, enrolled_at, dropped_at, score)
        VALUES (:id, :course_id, :student_id, :user_id, :status, :enrolled_at, :dropped_at, :score)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Reactivate flips a DROPPED row back to ENROLLED with a fresh enrollment
// timestamp. The row id is preserved.
func (r *EnrollmentRepository) Reactivate(ctx context.Context, id string, enrolledAt time.Time) error {
	const query = `UPDATE course_enrollments SET status = $2, enrolled_at = $3, dropped_at = NULL WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.EnrollmentStatusEnrolled, enrolledAt); err != nil {
		return fmt.Errorf("reactivate enrollment: %w", err)
	}
	return nil
}

// MarkDropped transitions a row to DROPPED.
func (r *EnrollmentRepository) MarkDropped(ctx context.Context, id string, droppedAt time.Time) error {
	const query = `UPDATE course_enrollments SET status = $2, dropped_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.EnrollmentStatusDropped, droppedAt); err != nil {
		return fmt.Errorf("mark enrollment dropped: %w", err)
	}
	return nil
}
