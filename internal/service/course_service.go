package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/opencampus/course-portal-api/internal/models"
	appErrors "github.com/opencampus/course-portal-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	UpdateStatus(ctx context.Context, id string, status models.CourseStatus) error
}

type courseScheduleRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.CourseSchedule, error)
	Create(ctx context.Context, schedule *models.CourseSchedule) error
	Delete(ctx context.Context, id string) error
}

// CreateCourseRequest describes the admin create payload.
type CreateCourseRequest struct {
	Code        string     `json:"code" validate:"required"`
	Name        string     `json:"name" validate:"required"`
	TeacherName string     `json:"teacher_name" validate:"required"`
	Credit      float64    `json:"credit" validate:"gte=0"`
	MaxStudents int        `json:"max_students" validate:"gte=0"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// UpdateCourseRequest describes the admin update payload. Seat counters are
// not updatable here.
type UpdateCourseRequest struct {
	Code        string     `json:"code" validate:"required"`
	Name        string     `json:"name" validate:"required"`
	TeacherName string     `json:"teacher_name" validate:"required"`
	Credit      float64    `json:"credit" validate:"gte=0"`
	MaxStudents int        `json:"max_students" validate:"gte=0"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// AddScheduleRequest describes a new weekly time slot.
type AddScheduleRequest struct {
	DayOfWeek    int        `json:"day_of_week" validate:"required,min=1,max=7"`
	SectionStart *int       `json:"section_start" validate:"omitempty,min=1"`
	SectionEnd   *int       `json:"section_end" validate:"omitempty,min=1"`
	StartTime    *time.Time `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
	Classroom    string     `json:"classroom"`
	WeekStart    int        `json:"week_start" validate:"omitempty,min=1"`
	WeekEnd      int        `json:"week_end" validate:"omitempty,min=1"`
	WeekType     string     `json:"week_type" validate:"omitempty,weektype"`
}

// CourseService manages the course catalog.
type CourseService struct {
	repo      courseRepository
	schedules courseScheduleRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the service.
func NewCourseService(repo courseRepository, schedules courseScheduleRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &CourseService{repo: repo, schedules: schedules, validator: validate, logger: logger}
	svc.validator.RegisterValidation("weektype", func(fl validator.FieldLevel) bool {
		switch models.WeekType(strings.ToUpper(fl.Field().String())) {
		case models.WeekTypeAll, models.WeekTypeOdd, models.WeekTypeEven:
			return true
		default:
			return false
		}
	})
	return svc
}

// List returns catalog courses with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return courses, pagination, nil
}

// Get returns a course with its weekly schedule.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrCourseNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	schedules, err := s.schedules.ListByCourse(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course schedules")
	}
	return &models.CourseDetail{Course: *course, Schedules: schedules}, nil
}

// Create adds a new catalog course, initially ACTIVE with zero seats taken.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{
		Code:        req.Code,
		Name:        req.Name,
		TeacherName: req.TeacherName,
		Credit:      req.Credit,
		Status:      models.CourseStatusActive,
		MaxStudents: req.MaxStudents,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Update rewrites a course's catalog fields.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrCourseNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	course.Code = req.Code
	course.Name = req.Name
	course.TeacherName = req.TeacherName
	course.Credit = req.Credit
	course.MaxStudents = req.MaxStudents
	course.StartDate = req.StartDate
	course.EndDate = req.EndDate
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// UpdateStatus flips a course between ACTIVE and INACTIVE.
func (s *CourseService) UpdateStatus(ctx context.Context, id string, status models.CourseStatus) error {
	switch status {
	case models.CourseStatusActive, models.CourseStatusInactive:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "invalid course status")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrCourseNotFound, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course status")
	}
	return nil
}

// AddSchedule attaches a weekly time slot to a course. A slot must carry a
// section pair or a wall-clock pair; the section pair wins for conflicts.
func (s *CourseService) AddSchedule(ctx context.Context, courseID string, req AddScheduleRequest) (*models.CourseSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	hasSections := req.SectionStart != nil
	hasClock := req.StartTime != nil && req.EndTime != nil
	if !hasSections && !hasClock {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule requires sections or start/end times")
	}
	if req.SectionStart != nil && req.SectionEnd != nil && *req.SectionEnd < *req.SectionStart {
		return nil, appErrors.Clone(appErrors.ErrValidation, "section_end must not precede section_start")
	}
	if req.WeekStart > 0 && req.WeekEnd > 0 && req.WeekEnd < req.WeekStart {
		return nil, appErrors.Clone(appErrors.ErrValidation, "week_end must not precede week_start")
	}
	if _, err := s.repo.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrCourseNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	schedule := &models.CourseSchedule{
		CourseID:     courseID,
		DayOfWeek:    req.DayOfWeek,
		SectionStart: req.SectionStart,
		SectionEnd:   req.SectionEnd,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Classroom:    req.Classroom,
		WeekStart:    req.WeekStart,
		WeekEnd:      req.WeekEnd,
		WeekType:     models.WeekType(strings.ToUpper(req.WeekType)),
	}
	if err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	return schedule, nil
}

// RemoveSchedule detaches a time slot from its course.
func (s *CourseService) RemoveSchedule(ctx context.Context, courseID, scheduleID string) error {
	schedules, err := s.schedules.ListByCourse(ctx, courseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course schedules")
	}
	for _, schedule := range schedules {
		if schedule.ID == scheduleID {
			if err := s.schedules.Delete(ctx, scheduleID); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
			}
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
}
