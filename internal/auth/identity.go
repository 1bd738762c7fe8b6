// Package auth verifies bearer tokens and resolves them to user identities.
package auth

import (
	"context"
	"errors"
)

// ErrInvalidToken is returned when a token is missing, expired, or rejected
// by the identity provider.
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the resolved principal behind a bearer token.
type Identity struct {
	Subject   string
	Username  string
	Firstname string
	Lastname  string
}

// Verifier resolves a raw bearer token to an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}
