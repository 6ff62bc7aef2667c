package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlinduldulao/citizenship-application/pkg/config"
	"github.com/devlinduldulao/citizenship-application/pkg/errors"
)

func testManager(expiry time.Duration) *Manager {
	return NewManager(&config.JWTConfig{
		Secret:       "test-secret",
		AccessExpiry: expiry,
		Issuer:       "citizenship-review",
	})
}

func TestGenerateAndValidate(t *testing.T) {
	manager := testManager(time.Hour)

	token, err := manager.Generate(&UserInfo{
		ID:         "user-1",
		Email:      "ola@example.com",
		FullName:   "Ola Nordmann",
		IsReviewer: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)

	claims, err := manager.Validate(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "ola@example.com", claims.Email)
	assert.True(t, claims.IsReviewer)
	assert.Equal(t, "citizenship-review", claims.Issuer)
}

func TestValidate_ExpiredToken(t *testing.T) {
	manager := testManager(-time.Minute)

	token, err := manager.Generate(&UserInfo{ID: "user-1", Email: "ola@example.com"})
	require.NoError(t, err)

	_, err = manager.Validate(token.AccessToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenExpired))
}

func TestValidate_WrongSecret(t *testing.T) {
	manager := testManager(time.Hour)
	other := NewManager(&config.JWTConfig{Secret: "different", AccessExpiry: time.Hour, Issuer: "citizenship-review"})

	token, err := manager.Generate(&UserInfo{ID: "user-1", Email: "ola@example.com"})
	require.NoError(t, err)

	_, err = other.Validate(token.AccessToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
}

func TestValidate_Garbage(t *testing.T) {
	manager := testManager(time.Hour)
	_, err := manager.Validate("not-a-token")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
}
