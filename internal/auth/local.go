package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LocalVerifier validates HS256-signed tokens issued by this service. It is
// used in development and tests, where no OIDC provider is available.
type LocalVerifier struct {
	secret []byte
}

// NewLocalVerifier returns a verifier for tokens signed with the given secret.
func NewLocalVerifier(secret string) *LocalVerifier {
	return &LocalVerifier{secret: []byte(secret)}
}

// Verify parses and validates the token and extracts the identity claims.
func (v *LocalVerifier) Verify(_ context.Context, tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}
	username, _ := claims["preferred_username"].(string)
	given, _ := claims["given_name"].(string)
	family, _ := claims["family_name"].(string)

	return &Identity{
		Subject:   sub,
		Username:  username,
		Firstname: given,
		Lastname:  family,
	}, nil
}

// Sign issues a token for the given identity, valid for the given duration.
func (v *LocalVerifier) Sign(id *Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":                id.Subject,
		"preferred_username": id.Username,
		"given_name":         id.Firstname,
		"family_name":        id.Lastname,
		"iat":                now.Unix(),
		"exp":                now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
