// Package auth verifies operator credentials for the protected lead routes.
//
// The HTTP layer depends only on the Authenticator interface; the concrete
// StaticCredentials implementation is built from configuration at startup and
// injected into the router, so tests and alternative stores can swap it.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/tbourn/go-leads-backend/internal/config"
)

// ErrUnauthorized is returned for any failed credential check. Callers
// never learn which part of the credential was wrong.
var ErrUnauthorized = errors.New("unauthorized")

// Identity is the authenticated principal.
type Identity struct {
	Username string
}

// Authenticator checks a username/password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (Identity, error)
}

// StaticCredentials accepts exactly one configured username with either a
// bcrypt hash or a plaintext password. With neither configured it rejects
// every request.
type StaticCredentials struct {
	username string
	hash     []byte
	password []byte
}

// NewStaticCredentials builds a StaticCredentials from cfg. A malformed
// PasswordHash is reported here instead of failing every request later.
func NewStaticCredentials(cfg config.AuthConfig) (*StaticCredentials, error) {
	sc := &StaticCredentials{username: strings.TrimSpace(cfg.Username)}
	switch {
	case cfg.PasswordHash != "":
		if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
			return nil, fmt.Errorf("auth: invalid AUTH_PASSWORD_HASH: %w", err)
		}
		sc.hash = []byte(cfg.PasswordHash)
	case cfg.Password != "":
		sc.password = []byte(cfg.Password)
	}
	return sc, nil
}

// Configured reports whether any credential can ever succeed.
func (s *StaticCredentials) Configured() bool {
	return s.username != "" && (len(s.hash) > 0 || len(s.password) > 0)
}

// Authenticate implements Authenticator. The username and password are
// always both evaluated so response timing does not reveal which failed.
func (s *StaticCredentials) Authenticate(_ context.Context, username, password string) (Identity, error) {
	if !s.Configured() {
		return Identity{}, ErrUnauthorized
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1

	var passOK bool
	if len(s.hash) > 0 {
		passOK = bcrypt.CompareHashAndPassword(s.hash, []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), s.password) == 1
	}

	if !userOK || !passOK {
		return Identity{}, ErrUnauthorized
	}
	return Identity{Username: s.username}, nil
}

// Func adapts a plain function to Authenticator.
type Func func(ctx context.Context, username, password string) (Identity, error)

// Authenticate calls f.
func (f Func) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	return f(ctx, username, password)
}
