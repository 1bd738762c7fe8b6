package server

import (
	"mumble/internal/models"
	"mumble/internal/service"

	"github.com/gofiber/fiber/v2"
)

// userPage writes a paginated user listing. Authenticated callers see the
// full profile; anonymous callers only the public fields.
func userPage(c *fiber.Ctx, page Pagination, count int64, users []*models.User, viewer *string) error {
	if viewer != nil {
		views := make([]models.AuthenticatedUser, 0, len(users))
		for _, u := range users {
			views = append(views, models.NewAuthenticatedUser(u))
		}
		return c.JSON(newPage(c, page, count, views))
	}

	views := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		views = append(views, models.NewPublicUser(u))
	}
	return c.JSON(newPage(c, page, count, views))
}

// GetUsers handles GET /users.
func (s *Server) GetUsers(c *fiber.Ctx) error {
	page := parsePagination(c)

	users, count, err := s.userService.ListUsers(c.Context(), page.Offset, page.Limit)
	if err != nil {
		return respondServiceError(c, err)
	}
	return userPage(c, page, count, users, s.viewer(c))
}

// GetUser handles GET /users/:id.
func (s *Server) GetUser(c *fiber.Ctx) error {
	user, err := s.userService.GetUser(c.Context(), c.Params("id"))
	if err != nil {
		return respondServiceError(c, err)
	}

	if s.viewer(c) != nil {
		return c.JSON(models.NewAuthenticatedUser(user))
	}
	return c.JSON(models.NewPublicUser(user))
}

// UpdateProfile handles PATCH /users. Omitted fields stay unchanged; fields
// set to empty strings are rejected.
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	userID := s.userID(c)

	var req struct {
		Firstname *string `json:"firstname"`
		Lastname  *string `json:"lastname"`
		Username  *string `json:"username"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	for _, field := range []*string{req.Firstname, req.Lastname, req.Username} {
		if field != nil && *field == "" {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Profile fields cannot be blank"))
		}
	}

	_, err := s.userService.UpdateProfile(c.Context(), userID, service.UpdateProfileInput{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Username:  req.Username,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// UploadAvatar handles PUT /users/avatar and returns the new avatar URL.
func (s *Server) UploadAvatar(c *fiber.Ctx) error {
	userID := s.userID(c)

	form, err := c.MultipartForm()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Multipart form data required"))
	}

	avatar, err := formMedia(c, form, service.MaxAvatarBytes, fiber.StatusUnsupportedMediaType)
	if err != nil {
		return nil
	}
	if avatar == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("A media file is required"))
	}

	url, err := s.userService.UpdateAvatar(c.Context(), userID, avatar)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(url)
}

// RemoveAvatar handles DELETE /users/avatar.
func (s *Server) RemoveAvatar(c *fiber.Ctx) error {
	userID := s.userID(c)

	if _, err := s.userService.UpdateAvatar(c.Context(), userID, nil); err != nil {
		return respondServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetFollowers handles GET /users/:id/followers.
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	page := parsePagination(c)

	followers, count, err := s.userService.Followers(c.Context(), c.Params("id"), page.Offset, page.Limit)
	if err != nil {
		return respondServiceError(c, err)
	}
	return userPage(c, page, count, followers, s.viewer(c))
}

// GetFollowees handles GET /users/:id/followees.
func (s *Server) GetFollowees(c *fiber.Ctx) error {
	page := parsePagination(c)

	followees, count, err := s.userService.Followees(c.Context(), c.Params("id"), page.Offset, page.Limit)
	if err != nil {
		return respondServiceError(c, err)
	}
	return userPage(c, page, count, followees, s.viewer(c))
}

// FollowUser handles PUT /users/:id/followers. The caller becomes a
// follower of :id; following twice is a no-op.
func (s *Server) FollowUser(c *fiber.Ctx) error {
	if err := s.userService.Follow(c.Context(), s.userID(c), c.Params("id")); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UnfollowUser handles DELETE /users/:id/followers.
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	if err := s.userService.Unfollow(c.Context(), s.userID(c), c.Params("id")); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
