package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_RoundTrip(t *testing.T) {
	token, err := IssueToken("test-secret", 42, "user", time.Hour)
	require.NoError(t, err)

	claims, err := NewJWTVerifier("test-secret").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "user", claims.Role)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := IssueToken("test-secret", 42, "user", time.Hour)
	require.NoError(t, err)

	_, err = NewJWTVerifier("other-secret").Verify(token)
	assert.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	token, err := IssueToken("test-secret", 42, "user", -time.Minute)
	require.NoError(t, err)

	_, err = NewJWTVerifier("test-secret").Verify(token)
	assert.Error(t, err)
}

func TestVerify_Garbage(t *testing.T) {
	_, err := NewJWTVerifier("test-secret").Verify("not.a.token")
	assert.Error(t, err)
}

func TestVerify_AdminRole(t *testing.T) {
	token, err := IssueToken("test-secret", 1, "admin", time.Hour)
	require.NoError(t, err)

	claims, err := NewJWTVerifier("test-secret").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)
}
