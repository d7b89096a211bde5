package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/opencampus/course-portal-api/internal/models"
	appErrors "github.com/opencampus/course-portal-api/pkg/errors"
)

type enrollmentLedger interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByCourseAndStudent(ctx context.Context, courseID, studentID string) (*models.Enrollment, error)
	CountEnrolledByStudent(ctx context.Context, studentID string) (int, error)
	ListEnrolledDetailByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Reactivate(ctx context.Context, id string, enrolledAt time.Time) error
	MarkDropped(ctx context.Context, id string, droppedAt time.Time) error
}

type capacityRegister interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ReserveSeat(ctx context.Context, courseID string) (bool, error)
	ReleaseSeat(ctx context.Context, courseID string) error
}

type scheduleReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.CourseSchedule, error)
	ListEnrolledByStudent(ctx context.Context, studentID string) ([]models.StudentSlot, error)
}

type notificationPublisher interface {
	Publish(ctx context.Context, event models.NotificationEvent) error
}

type admissionRecorder interface {
	ObserveAdmission(operation, outcome string)
}

// EnrollCourseRequest carries the identity and target of an enroll attempt.
// Identity fields come from the authenticated claims, passed explicitly.
type EnrollCourseRequest struct {
	CourseID  string `json:"course_id" validate:"required"`
	StudentID string `json:"-" validate:"required"`
	UserID    string `json:"-" validate:"required"`
}

// EnrollmentService is the admission controller: it decides, under
// concurrent requests, whether a student may take a seat in a course.
//
// Check order matters: conflict detection runs strictly before seat
// reservation so a rejected request never consumes and releases a seat.
// The seat itself is guarded only by the capacity register's atomic
// conditional update; no application-level lock serializes admissions.
type EnrollmentService struct {
	ledger     enrollmentLedger
	courses    capacityRegister
	schedules  scheduleReader
	detector   *ConflictDetector
	notifier   notificationPublisher
	metrics    admissionRecorder
	maxCourses int
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(ledger enrollmentLedger, courses capacityRegister, schedules scheduleReader, detector *ConflictDetector, notifier notificationPublisher, metrics admissionRecorder, maxCourses int, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if detector == nil {
		detector = NewConflictDetector(false)
	}
	if maxCourses <= 0 {
		maxCourses = 10
	}
	return &EnrollmentService{
		ledger:     ledger,
		courses:    courses,
		schedules:  schedules,
		detector:   detector,
		notifier:   notifier,
		metrics:    metrics,
		maxCourses: maxCourses,
		validator:  validate,
		logger:     logger,
	}
}

// Enroll admits a student into a course or rejects the attempt with a
// business-rule error. Preconditions run fail-fast in a fixed order; only
// after every check passes is a seat reserved and the ledger written.
// The success notification is enqueued strictly after the ledger write.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollCourseRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.reject("enroll", appErrors.Clone(appErrors.ErrCourseNotFound, ""))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.Status != models.CourseStatusActive {
		return nil, s.reject("enroll", appErrors.Clone(appErrors.ErrCourseNotActive, ""))
	}

	existing, err := s.ledger.FindByCourseAndStudent(ctx, req.CourseID, req.StudentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if existing != nil && existing.Status == models.EnrollmentStatusEnrolled {
		return nil, s.reject("enroll", appErrors.Clone(appErrors.ErrAlreadyEnrolled, ""))
	}
	reactivate := existing != nil && existing.Status == models.EnrollmentStatusDropped

	count, err := s.ledger.CountEnrolledByStudent(ctx, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if count >= s.maxCourses {
		return nil, s.reject("enroll", appErrors.Clone(appErrors.ErrEnrollmentLimitExceeded,
			fmt.Sprintf("enrollment limit reached (max %d courses)", s.maxCourses)))
	}

	if err := s.checkScheduleConflict(ctx, req.CourseID, req.StudentID); err != nil {
		return nil, err
	}

	// Conflict checks are done; from here on the only gate is capacity.
	seatReserved := false
	if course.MaxStudents > 0 {
		ok, err := s.courses.ReserveSeat(ctx, req.CourseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve seat")
		}
		if !ok {
			return nil, s.reject("enroll", appErrors.Clone(appErrors.ErrCourseFull, ""))
		}
		seatReserved = true
	}

	now := time.Now().UTC()
	var enrollment models.Enrollment
	if reactivate {
		if err := s.ledger.Reactivate(ctx, existing.ID, now); err != nil {
			s.releaseReservedSeat(ctx, req.CourseID, seatReserved)
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reactivate enrollment")
		}
		enrollment = *existing
		enrollment.Status = models.EnrollmentStatusEnrolled
		enrollment.EnrolledAt = now
		enrollment.DroppedAt = nil
	} else {
		enrollment = models.Enrollment{
			CourseID:   req.CourseID,
			StudentID:  req.StudentID,
			UserID:     req.UserID,
			Status:     models.EnrollmentStatusEnrolled,
			EnrolledAt: now,
		}
		if err := s.ledger.Create(ctx, &enrollment); err != nil {
			s.releaseReservedSeat(ctx, req.CourseID, seatReserved)
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
		}
	}

	s.publishEnrollSuccess(ctx, req.UserID, course)
	if s.metrics != nil {
		s.metrics.ObserveAdmission("enroll", "admitted")
	}

	detail := &models.EnrollmentDetail{
		Enrollment:  enrollment,
		CourseCode:  course.Code,
		CourseName:  course.Name,
		TeacherName: course.TeacherName,
		Credit:      course.Credit,
	}
	return detail, nil
}

// Drop releases a student's enrollment and frees the seat.
func (s *EnrollmentService) Drop(ctx context.Context, enrollmentID, studentID string) error {
	enrollment, err := s.ledger.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.reject("drop", appErrors.Clone(appErrors.ErrNotFound, "enrollment not found"))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.StudentID != studentID {
		return s.reject("drop", appErrors.Clone(appErrors.ErrUnauthorizedOperation, ""))
	}
	if enrollment.Status != models.EnrollmentStatusEnrolled {
		return s.reject("drop", appErrors.Clone(appErrors.ErrInvalidState, "enrollment is not active"))
	}

	if err := s.ledger.MarkDropped(ctx, enrollmentID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop enrollment")
	}

	course, err := s.courses.FindByID(ctx, enrollment.CourseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.MaxStudents > 0 {
		if err := s.courses.ReleaseSeat(ctx, enrollment.CourseID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release seat")
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveAdmission("drop", "dropped")
	}
	return nil
}

// ListEnrollments returns the student's active enrollments with course
// display fields.
func (s *EnrollmentService) ListEnrollments(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	details, err := s.ledger.ListEnrolledDetailByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return details, nil
}

func (s *EnrollmentService) checkScheduleConflict(ctx context.Context, courseID, studentID string) error {
	candidate, err := s.schedules.ListByCourse(ctx, courseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course schedules")
	}
	if len(candidate) == 0 {
		return nil
	}
	existing, err := s.schedules.ListEnrolledByStudent(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student schedules")
	}
	if conflict := s.detector.Detect(candidate, existing); conflict != nil {
		return s.reject("enroll", appErrors.Clone(appErrors.ErrScheduleConflict, conflict.Describe()))
	}
	return nil
}

// releaseReservedSeat compensates a reserved seat when the ledger write
// fails after the capacity register was already incremented.
func (s *EnrollmentService) releaseReservedSeat(ctx context.Context, courseID string, reserved bool) {
	if !reserved {
		return
	}
	if err := s.courses.ReleaseSeat(ctx, courseID); err != nil {
		s.logger.Error("failed to release reserved seat after ledger error",
			zap.String("course_id", courseID), zap.Error(err))
	}
}

// publishEnrollSuccess hands the success event to the dispatcher. The call is
// fire-and-forget: a publish failure is logged and never fails the admission.
func (s *EnrollmentService) publishEnrollSuccess(ctx context.Context, userID string, course *models.Course) {
	if s.notifier == nil {
		return
	}
	relatedID := course.ID
	event := models.NotificationEvent{
		UserID:    userID,
		Title:     "Enrollment confirmed",
		Content:   fmt.Sprintf("You are now enrolled in %q", course.Name),
		Type:      models.NotificationTypeEnrollSuccess,
		RelatedID: &relatedID,
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish enrollment notification",
			zap.String("user_id", userID), zap.String("course_id", course.ID), zap.Error(err))
	}
}

func (s *EnrollmentService) reject(operation string, err *appErrors.Error) *appErrors.Error {
	if s.metrics != nil {
		s.metrics.ObserveAdmission(operation, err.Code)
	}
	return err
}
