package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathima-sithara/messaging-service/internal/apperr"
)

const testSecret = "test-secret"

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestValidatorRequiresSecret(t *testing.T) {
	_, err := NewValidator("")
	assert.Error(t, err)
}

func TestValidateClaimFallback(t *testing.T) {
	v, err := NewValidator(testSecret)
	require.NoError(t, err)

	cases := []struct {
		name   string
		claims jwt.MapClaims
		want   string
	}{
		{"user_id wins over sub", jwt.MapClaims{"user_id": "u1", "sub": "s1"}, "u1"},
		{"sub fallback", jwt.MapClaims{"sub": "s1", "id": "i1"}, "s1"},
		{"id fallback", jwt.MapClaims{"id": "i1"}, "i1"},
		{"empty user_id skipped", jwt.MapClaims{"user_id": "", "sub": "s1"}, "s1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uid, err := v.Validate(signed(t, testSecret, tc.claims))
			require.NoError(t, err)
			assert.Equal(t, tc.want, uid)
		})
	}
}

func TestValidateRejects(t *testing.T) {
	v, err := NewValidator(testSecret)
	require.NoError(t, err)

	cases := []struct {
		name  string
		token string
	}{
		{"wrong secret", signed(t, "other-secret", jwt.MapClaims{"user_id": "u1"})},
		{"no identity claim", signed(t, testSecret, jwt.MapClaims{"role": "admin"})},
		{"expired", signed(t, testSecret, jwt.MapClaims{
			"user_id": "u1",
			"exp":     time.Now().Add(-time.Hour).Unix(),
		})},
		{"garbage", "not.a.token"},
		{"empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Validate(tc.token)
			assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		})
	}
}
