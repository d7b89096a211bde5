package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/course-portal-api/internal/models"
)

func newScheduleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestScheduleRepositoryListByCourse(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	rows := sqlmock.NewRows([]string{"id", "course_id", "day_of_week", "section_start", "section_end", "start_time", "end_time", "classroom", "week_start", "week_end", "week_type", "created_at"}).
		AddRow("sch-1", "c1", 1, 1, 2, nil, nil, "A-101", 1, 18, models.WeekTypeAll, time.Now())
	mock.ExpectQuery("SELECT .+ FROM course_schedules WHERE course_id = \\$1 ORDER BY day_of_week, section_start").
		WithArgs("c1").
		WillReturnRows(rows)

	schedules, err := repo.ListByCourse(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, 1, schedules[0].DayOfWeek)
	require.NotNil(t, schedules[0].SectionStart)
	assert.Equal(t, 1, *schedules[0].SectionStart)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListEnrolledByStudent(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	rows := sqlmock.NewRows([]string{"id", "course_id", "day_of_week", "section_start", "section_end", "start_time", "end_time", "classroom", "week_start", "week_end", "week_type", "created_at", "course_name"}).
		AddRow("sch-1", "c1", 3, 3, 4, nil, nil, "B-204", 1, 18, models.WeekTypeOdd, time.Now(), "Calculus")
	mock.ExpectQuery("SELECT .+ FROM course_schedules cs[\\s\\S]+JOIN course_enrollments e ON e.course_id = cs.course_id").
		WithArgs("s1", models.EnrollmentStatusEnrolled).
		WillReturnRows(rows)

	slots, err := repo.ListEnrolledByStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "Calculus", slots[0].CourseName)
	assert.Equal(t, models.WeekTypeOdd, slots[0].WeekType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec("INSERT INTO course_schedules").
		WillReturnResult(sqlmock.NewResult(0, 1))

	start := 1
	schedule := models.CourseSchedule{CourseID: "c1", DayOfWeek: 1, SectionStart: &start}
	require.NoError(t, repo.Create(context.Background(), &schedule))
	assert.NotEmpty(t, schedule.ID)
	assert.Equal(t, models.WeekTypeAll, schedule.WeekType)
	assert.Equal(t, 1, schedule.WeekStart)
	assert.Equal(t, 18, schedule.WeekEnd)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec("DELETE FROM course_schedules WHERE id = \\$1").
		WithArgs("sch-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "sch-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
