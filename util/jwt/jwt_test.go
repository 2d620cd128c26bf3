package jwt

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestIssueAndIdentity(t *testing.T) {
	tok, err := Issue("s3cret", 42, "admin", 1)
	require.NoError(t, err)

	parsed, err := jwt.Parse(tok, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil },
		jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)

	uid, role, err := Identity(claims)
	require.NoError(t, err)
	require.Equal(t, int64(42), uid)
	require.Equal(t, "admin", role)
}

func TestIdentity_MissingSub(t *testing.T) {
	_, _, err := Identity(jwt.MapClaims{"role": "user"})
	require.Error(t, err)
}

func TestIssue_WrongSecretRejected(t *testing.T) {
	tok, err := Issue("a", 1, "user", 1)
	require.NoError(t, err)

	_, err = jwt.Parse(tok, func(*jwt.Token) (interface{}, error) { return []byte("b"), nil })
	require.Error(t, err)
}
