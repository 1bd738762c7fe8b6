package server

import (
	"context"
	"strings"

	"mumble/internal/middleware"
	"mumble/internal/models"

	"github.com/gofiber/fiber/v2"
)

// bearerToken extracts the bearer token from the Authorization header.
func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// authenticate verifies the bearer token and upserts the caller's profile
// from the token claims so every authenticated user has a local row.
func (s *Server) authenticate(c *fiber.Ctx, token string) error {
	identity, err := s.verifier.Verify(c.Context(), token)
	if err != nil {
		return err
	}

	if err := s.userService.EnsureUser(c.Context(), identity); err != nil {
		return err
	}

	c.Locals("userID", identity.Subject)
	// Sync to UserContext for logging and downstream services.
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, identity.Subject)
	c.SetUserContext(ctx)
	return nil
}

// AuthRequired returns middleware that rejects requests without a valid
// bearer token.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}
		if err := s.authenticate(c, token); err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}
		return c.Next()
	}
}

// OptionalAuth returns middleware that resolves the caller's identity when a
// valid bearer token is present but lets anonymous requests through.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := bearerToken(c); token != "" {
			// Invalid tokens are treated as anonymous.
			_ = s.authenticate(c, token)
		}
		return c.Next()
	}
}

// userID returns the authenticated caller's subject. Only valid behind
// AuthRequired.
func (s *Server) userID(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}

// viewer returns the caller's subject when authenticated, nil otherwise.
// View projections branch on this.
func (s *Server) viewer(c *fiber.Ctx) *string {
	if id, ok := c.Locals("userID").(string); ok && id != "" {
		return &id
	}
	return nil
}
