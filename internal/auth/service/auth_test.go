package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/devlinduldulao/citizenship-application/internal/auth/jwt"
	"github.com/devlinduldulao/citizenship-application/internal/user/repository"
	"github.com/devlinduldulao/citizenship-application/pkg/config"
	"github.com/devlinduldulao/citizenship-application/pkg/database"
	"github.com/devlinduldulao/citizenship-application/pkg/errors"
	"github.com/devlinduldulao/citizenship-application/pkg/logger"
)

func newAuthService(t *testing.T) (*AuthService, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := database.NewFromSqlx(sqlx.NewDb(mockDB, "sqlmock"), logger.New("test", "development"))
	manager := jwt.NewManager(&config.JWTConfig{
		Secret:       "test-secret",
		AccessExpiry: time.Hour,
		Issuer:       "citizenship-review",
	})
	return NewAuthService(repository.NewUserRepository(db), manager, logger.New("test", "development")), mock
}

func userRows(email, passwordHash string, isActive, isReviewer bool) *sqlmock.Rows {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "full_name", "is_active", "is_reviewer",
		"created_at", "updated_at", "last_login_at",
	}).AddRow("user-1", email, passwordHash, "Ola Nordmann", isActive, isReviewer, now, now, nil)
}

func TestLogin_Succeeds(t *testing.T) {
	svc, mock := newAuthService(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse-battery"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery(`(?s)SELECT .+ FROM users\s+WHERE email = \$1`).
		WithArgs("ola@example.com").
		WillReturnRows(userRows("ola@example.com", string(hash), true, true))
	mock.ExpectExec(`UPDATE users SET last_login_at = NOW\(\) WHERE id = \$1`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	response, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "Ola@Example.com",
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, response.Token.AccessToken)
	assert.True(t, response.User.IsReviewer)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, mock := newAuthService(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("the-right-password"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery(`(?s)SELECT .+ FROM users\s+WHERE email = \$1`).
		WithArgs("ola@example.com").
		WillReturnRows(userRows("ola@example.com", string(hash), true, false))

	_, err = svc.Login(context.Background(), &LoginRequest{
		Email:    "ola@example.com",
		Password: "the-wrong-password",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))
}

func TestLogin_UnknownEmailMapsToInvalidCredentials(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery(`(?s)SELECT .+ FROM users\s+WHERE email = \$1`).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever-password",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))
}

func TestLogin_DeactivatedAccount(t *testing.T) {
	svc, mock := newAuthService(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("some-password"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery(`(?s)SELECT .+ FROM users\s+WHERE email = \$1`).
		WithArgs("ola@example.com").
		WillReturnRows(userRows("ola@example.com", string(hash), false, false))

	_, err = svc.Login(context.Background(), &LoginRequest{
		Email:    "ola@example.com",
		Password: "some-password",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestSignup_NeverCreatesReviewer(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "new@example.com", sqlmock.AnyArg(), "Kari Nordmann", true, false).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(time.Now().UTC(), time.Now().UTC()))

	user, err := svc.Signup(context.Background(), &SignupRequest{
		Email:    "new@example.com",
		Password: "a-strong-password",
		FullName: "Kari Nordmann",
	})
	require.NoError(t, err)
	assert.False(t, user.IsReviewer)
	assert.True(t, user.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}
