// Package auth guards the HTTP status listener with a shared bearer token.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	ErrUnauthorized       = errors.New("auth: unauthorized")
	ErrMissingCredentials = errors.New("auth: missing bearer token")
	ErrEmptyToken         = errors.New("auth: token file is empty")
)

// Validator validates a presented token.
type Validator interface {
	Validate(token string) error
}

// StaticToken accepts exactly one shared token. An empty Token accepts nothing.
type StaticToken struct {
	Token string
}

func (s StaticToken) Validate(token string) error {
	if s.Token == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(s.Token), []byte(token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// TokenFromFile reads a StaticToken from path, ignoring surrounding whitespace.
func TokenFromFile(path string) (StaticToken, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StaticToken{}, fmt.Errorf("auth: read token: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return StaticToken{}, fmt.Errorf("%w: %s", ErrEmptyToken, path)
	}
	return StaticToken{Token: token}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingCredentials
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingCredentials
	}
	return token, nil
}
