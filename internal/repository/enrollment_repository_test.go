package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/course-portal-api/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryFindByCourseAndStudent(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	droppedAt := time.Now()
	rows := sqlmock.NewRows([]string{"id", "course_id", "student_id", "user_id", "status", "enrolled_at", "dropped_at", "score"}).
		AddRow("e1", "c1", "s1", "u1", models.EnrollmentStatusDropped, time.Now().Add(-time.Hour), droppedAt, nil)
	mock.ExpectQuery("SELECT .+ FROM course_enrollments WHERE course_id = \\$1 AND student_id = \\$2").
		WithArgs("c1", "s1").
		WillReturnRows(rows)

	enrollment, err := repo.FindByCourseAndStudent(context.Background(), "c1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "e1", enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusDropped, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindByCourseAndStudentNoRow(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery("SELECT .+ FROM course_enrollments WHERE course_id = \\$1 AND student_id = \\$2").
		WithArgs("c1", "s1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByCourseAndStudent(context.Background(), "c1", "s1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCountEnrolledByStudent(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM course_enrollments WHERE student_id = $1 AND status = $2")).
		WithArgs("s1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountEnrolledByStudent(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryReactivate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	enrolledAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_enrollments SET status = $2, enrolled_at = $3, dropped_at = NULL WHERE id = $1")).
		WithArgs("e1", models.EnrollmentStatusEnrolled, enrolledAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Reactivate(context.Background(), "e1", enrolledAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryMarkDropped(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	droppedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_enrollments SET status = $2, dropped_at = $3 WHERE id = $1")).
		WithArgs("e1", models.EnrollmentStatusDropped, droppedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkDropped(context.Background(), "e1", droppedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListEnrolledDetailByStudent(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "course_id", "student_id", "user_id", "status", "enrolled_at", "dropped_at", "score", "course_code", "course_name", "teacher_name", "credit"}).
		AddRow("e1", "c1", "s1", "u1", models.EnrollmentStatusEnrolled, time.Now(), nil, nil, "CS101", "Programming", "Dr. Chen", 3.0)
	mock.ExpectQuery("SELECT .+ FROM course_enrollments e[\\s\\S]+JOIN courses c ON c.id = e.course_id").
		WithArgs("s1", models.EnrollmentStatusEnrolled).
		WillReturnRows(rows)

	details, err := repo.ListEnrolledDetailByStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "Programming", details[0].CourseName)
	require.NoError(t, mock.ExpectationsWereMet())
}
