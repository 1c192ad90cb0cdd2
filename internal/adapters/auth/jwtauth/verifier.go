// Package jwtauth verifica tokens HS256 emitidos por el servicio de identidad.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"medication-adherence/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotConfigured = errors.New("jwt verifier not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

type Config struct {
	Secret string
	Issuer string // opcional
}

// tokenClaims: sub = usuario; role y email son propios.
type tokenClaims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

var _ auth.AuthVerifier = (*Verifier)(nil)

func New(cfg Config) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if iss := strings.TrimSpace(cfg.Issuer); iss != "" {
		opts = append(opts, jwt.WithIssuer(iss))
	}
	return &Verifier{
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(opts...),
	}
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil || len(v.secret) == 0 {
		return auth.Claims{}, ErrNotConfigured
	}

	var tc tokenClaims
	parsed, err := v.parser.ParseWithClaims(strings.TrimSpace(token), &tc, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return auth.Claims{}, ErrInvalidToken
	}

	sub := strings.TrimSpace(tc.Subject)
	role := auth.Role(strings.ToLower(strings.TrimSpace(tc.Role)))
	if sub == "" || !role.Valid() {
		return auth.Claims{}, ErrInvalidToken
	}

	return auth.Claims{
		UserID: sub,
		Role:   role,
		Email:  tc.Email,
	}, nil
}
