package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewValidator_RejectsWeakSecrets(t *testing.T) {
	_, err := NewValidator("")
	assert.Error(t, err)

	_, err = NewValidator("short")
	assert.Error(t, err)

	_, err = NewValidator(testSecret)
	assert.NoError(t, err)
}

func TestGenerateAndValidate(t *testing.T) {
	v, err := NewValidator(testSecret)
	require.NoError(t, err)

	token, err := v.Generate("alice", "", time.Hour)
	require.NoError(t, err)

	claims, err := v.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)
	assert.Empty(t, claims.Role)
}

func TestValidate_Rejections(t *testing.T) {
	v, err := NewValidator(testSecret)
	require.NoError(t, err)

	expired, err := v.Generate("alice", "", -time.Minute)
	require.NoError(t, err)
	_, err = v.Validate(expired)
	assert.Error(t, err)

	other, err := NewValidator(testSecret + "-other")
	require.NoError(t, err)
	foreign, err := other.Generate("alice", "", time.Hour)
	require.NoError(t, err)
	_, err = v.Validate(foreign)
	assert.Error(t, err)

	anonymous, err := v.Generate("", "", time.Hour)
	require.NoError(t, err)
	_, err = v.Validate(anonymous)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.Validate(none)
	assert.Error(t, err)

	_, err = v.Validate("not-a-token")
	assert.Error(t, err)
}

func TestValidate_SystemRoleNeedsNoUser(t *testing.T) {
	v, err := NewValidator(testSecret)
	require.NoError(t, err)

	token, err := v.Generate("", RoleSystem, time.Hour)
	require.NoError(t, err)

	claims, err := v.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, RoleSystem, claims.Role)
}
