package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/opencampus/course-portal-api/internal/models"
	"github.com/opencampus/course-portal-api/pkg/config"
	appErrors "github.com/opencampus/course-portal-api/pkg/errors"
)

type mockUserRepo struct {
	users      map[string]models.User
	lastLogins []string
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	m.lastLogins = append(m.lastLogins, id)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "course-portal-api"}
}

func newAuthFixture(t *testing.T, password string) (*AuthService, *mockUserRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	studentID := "stu-1"
	repo := &mockUserRepo{users: map[string]models.User{
		"u1": {
			ID:           "u1",
			Email:        "student@campus.edu",
			PasswordHash: string(hash),
			FullName:     "Sample Student",
			Role:         models.RoleStudent,
			StudentID:    &studentID,
			Active:       true,
		},
	}}
	return NewAuthService(repo, testJWTConfig(), nil, nil), repo
}

func TestAuthServiceLogin(t *testing.T) {
	svc, repo := newAuthFixture(t, "secret123")

	result, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@campus.edu", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, int64(3600), result.ExpiresIn)
	assert.Equal(t, "u1", result.User.ID)
	require.NotNil(t, result.User.StudentID)
	assert.Equal(t, "stu-1", *result.User.StudentID)
	assert.Contains(t, repo.lastLogins, "u1")
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t, "secret123")

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@campus.edu", Password: "wrong"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture(t, "secret123")

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@campus.edu", Password: "secret123"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	svc, repo := newAuthFixture(t, "secret123")
	user := repo.users["u1"]
	user.Active = false
	repo.users["u1"] = user

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@campus.edu", Password: "secret123"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInactiveAccount))
}

func TestAuthServiceTokenRoundTrip(t *testing.T) {
	svc, _ := newAuthFixture(t, "secret123")

	result, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@campus.edu", Password: "secret123"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	require.NotNil(t, claims.StudentID)
	assert.Equal(t, "stu-1", *claims.StudentID)
}

func TestAuthServiceValidateTokenRejectsForeignSignature(t *testing.T) {
	svc, _ := newAuthFixture(t, "secret123")
	result, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@campus.edu", Password: "secret123"})
	require.NoError(t, err)

	other := NewAuthService(&mockUserRepo{}, config.JWTConfig{Secret: "another-secret", Expiration: time.Hour, Issuer: "course-portal-api"}, nil, nil)
	_, err = other.ValidateToken(result.AccessToken)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceValidateTokenGarbage(t *testing.T) {
	svc, _ := newAuthFixture(t, "secret123")

	_, err := svc.ValidateToken("not.a.token")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}
