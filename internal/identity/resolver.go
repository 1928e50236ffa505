// Package identity resolves the caller's user id from the access token
// presented on the x-authenticated-user-token header.
package identity

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	dErrors "userprofile/pkg/domain-errors"
)

// Resolver extracts the authenticated user id from an access token.
type Resolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// TokenResolver validates HS256 access tokens and returns the subject's
// user id. Federated subjects of the form "f:<realm>:<userid>" are reduced
// to the trailing user id segment.
type TokenResolver struct {
	signingKey []byte
}

// NewTokenResolver creates a resolver for tokens signed with the given key.
func NewTokenResolver(signingKey string) *TokenResolver {
	return &TokenResolver{signingKey: []byte(signingKey)}
}

// Resolve parses and validates the token, returning the user id from the
// subject claim. An empty, malformed, or badly-signed token yields an
// auth_mismatch error.
func (r *TokenResolver) Resolve(_ context.Context, token string) (string, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return "", dErrors.New(dErrors.CodeAuthMismatch, "missing access token")
	}

	claims := new(jwt.RegisteredClaims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, dErrors.New(dErrors.CodeAuthMismatch, "unexpected signing algorithm")
		}
		return r.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return "", dErrors.New(dErrors.CodeAuthMismatch, "invalid access token")
	}

	if claims.Subject == "" {
		return "", dErrors.New(dErrors.CodeAuthMismatch, "token has no subject")
	}

	// Keycloak-style federated subjects carry the user id after the last colon.
	sub := claims.Subject
	if i := strings.LastIndex(sub, ":"); i >= 0 {
		sub = sub[i+1:]
	}
	if sub == "" {
		return "", dErrors.New(dErrors.CodeAuthMismatch, "token has no subject")
	}
	return sub, nil
}

// Static resolves tokens from a fixed map, for tests.
type Static map[string]string

func (s Static) Resolve(_ context.Context, token string) (string, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if userID, ok := s[token]; ok {
		return userID, nil
	}
	return "", dErrors.New(dErrors.CodeAuthMismatch, "invalid access token")
}
