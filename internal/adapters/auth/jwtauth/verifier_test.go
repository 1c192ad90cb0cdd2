package jwtauth

import (
	"context"
	"testing"
	"time"

	"medication-adherence/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, c tokenClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, c).SignedString(key)
	require.NoError(t, err)
	return s
}

func claims(sub, role, iss string, exp time.Time) tokenClaims {
	return tokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    iss,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

func TestVerify_ValidToken(t *testing.T) {
	v := New(Config{Secret: secret, Issuer: "careapp"})
	tok := sign(t, jwt.SigningMethodHS256, []byte(secret), claims("cg-1", "Caregiver", "careapp", time.Now().Add(time.Hour)))

	got, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "cg-1", got.UserID)
	assert.Equal(t, auth.RoleCaregiver, got.Role)
}

func TestVerify_Rejects(t *testing.T) {
	v := New(Config{Secret: secret, Issuer: "careapp"})
	future := time.Now().Add(time.Hour)

	cases := map[string]string{
		"expired":      sign(t, jwt.SigningMethodHS256, []byte(secret), claims("u", "elder", "careapp", time.Now().Add(-time.Minute))),
		"wrong secret": sign(t, jwt.SigningMethodHS256, []byte("other"), claims("u", "elder", "careapp", future)),
		"wrong issuer": sign(t, jwt.SigningMethodHS256, []byte(secret), claims("u", "elder", "someone", future)),
		"wrong alg":    sign(t, jwt.SigningMethodHS512, []byte(secret), claims("u", "elder", "careapp", future)),
		"bad role":     sign(t, jwt.SigningMethodHS256, []byte(secret), claims("u", "root", "careapp", future)),
		"no subject":   sign(t, jwt.SigningMethodHS256, []byte(secret), claims("", "elder", "careapp", future)),
		"garbage":      "not-a-jwt",
	}
	for name, tok := range cases {
		_, err := v.Verify(context.Background(), tok)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestVerify_NotConfigured(t *testing.T) {
	_, err := New(Config{}).Verify(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
