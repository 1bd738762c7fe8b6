package server

import (
	"mumble/internal/models"
	"mumble/internal/notifications"
	"mumble/internal/service"

	"github.com/gofiber/fiber/v2"
)

// publishPostEvent emits a post lifecycle event carrying the viewer-less
// projection of the post. Delivery failures never fail the request.
func (s *Server) publishPostEvent(c *fiber.Ctx, eventType string, post *models.Post) {
	if post.ParentID != nil {
		s.dispatcher.Publish(c.UserContext(), eventType, models.NewReplyView(post, nil))
		return
	}
	s.dispatcher.Publish(c.UserContext(), eventType, models.NewPostView(post, nil))
}

// GetPosts handles GET /posts.
func (s *Server) GetPosts(c *fiber.Ctx) error {
	ctx := c.Context()
	page := parsePagination(c)
	viewer := s.viewer(c)

	in := service.SearchPostsInput{
		NewerThan: c.Query("newerThan"),
		OlderThan: c.Query("olderThan"),
		Text:      c.Query("text"),
		Tags:      queryList(c, "tags"),
		Creators:  queryList(c, "creators"),
		LikedBy:   queryList(c, "likedBy"),
		Offset:    page.Offset,
		Limit:     page.Limit,
		Viewer:    viewer,
	}

	posts, count, err := s.postService.SearchPosts(ctx, in)
	if err != nil {
		return respondServiceError(c, err)
	}

	views := make([]models.PostView, 0, len(posts))
	for _, post := range posts {
		views = append(views, models.NewPostView(post, viewer))
	}
	return c.JSON(newPage(c, page, count, views))
}

// CreatePost handles POST /posts. The multipart body carries an optional
// text field and an optional media file; at least one must be present.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := s.userID(c)

	form, err := c.MultipartForm()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Multipart form data required"))
	}

	text := formText(form, "text")
	media, err := formMedia(c, form, service.MaxPostMediaBytes, fiber.StatusBadRequest)
	if err != nil {
		return nil
	}

	post, err := s.postService.CreatePost(ctx, userID, nil, text, media)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishPostEvent(c, notifications.EventPostCreated, post)

	return c.JSON(models.NewPostView(post, &userID))
}

// GetPost handles GET /posts/:id. Replies are not addressable here.
func (s *Server) GetPost(c *fiber.Ctx) error {
	viewer := s.viewer(c)
	post, err := s.postService.GetPost(c.Context(), c.Params("id"), viewer)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(models.NewPostView(post, viewer))
}

// ReplacePost handles PUT /posts/:id. The whole content is swapped out;
// existing media is removed even when no new media is supplied.
func (s *Server) ReplacePost(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := s.userID(c)

	form, err := c.MultipartForm()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Multipart form data required"))
	}

	text := formText(form, "text")
	media, err := formMedia(c, form, service.MaxPostMediaBytes, fiber.StatusBadRequest)
	if err != nil {
		return nil
	}

	post, err := s.postService.ReplacePost(ctx, userID, c.Params("id"), text, media)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishPostEvent(c, notifications.EventPostUpdated, post)

	return c.JSON(models.NewPostView(post, &userID))
}

// UpdatePostText handles PATCH /posts/:id. An omitted text leaves the post
// untouched; a blank text clears it while media remains.
func (s *Server) UpdatePostText(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := s.userID(c)

	var req struct {
		Text *string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Text == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}

	post, err := s.postService.UpdatePostText(ctx, userID, c.Params("id"), *req.Text)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishPostEvent(c, notifications.EventPostUpdated, post)

	return c.SendStatus(fiber.StatusNoContent)
}

// DeletePost handles DELETE /posts/:id.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := s.userID(c)
	postID := c.Params("id")

	if err := s.postService.DeletePost(ctx, userID, postID); err != nil {
		return respondServiceError(c, err)
	}

	s.dispatcher.Publish(c.UserContext(), notifications.EventPostDeleted,
		notifications.DeleteInfo{ID: postID})

	return c.SendStatus(fiber.StatusNoContent)
}

// UpdatePostMedia handles PUT /posts/:id/media and returns the new media URL.
func (s *Server) UpdatePostMedia(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := s.userID(c)

	form, err := c.MultipartForm()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Multipart form data required"))
	}

	media, err := formMedia(c, form, service.MaxPostMediaBytes, fiber.StatusBadRequest)
	if err != nil {
		return nil
	}
	if media == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("A media file is required"))
	}

	post, err := s.postService.UpdatePostMedia(ctx, userID, c.Params("id"), media)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishPostEvent(c, notifications.EventPostUpdated, post)

	return c.JSON(post.MediaURL)
}

// RemovePostMedia handles DELETE /posts/:id/media. Removal is only allowed
// while text remains.
func (s *Server) RemovePostMedia(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := s.userID(c)

	post, err := s.postService.UpdatePostMedia(ctx, userID, c.Params("id"), nil)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishPostEvent(c, notifications.EventPostUpdated, post)

	return c.SendStatus(fiber.StatusNoContent)
}

// GetReplies handles GET /posts/:id/replies.
func (s *Server) GetReplies(c *fiber.Ctx) error {
	ctx := c.Context()
	page := parsePagination(c)
	viewer := s.viewer(c)

	replies, count, err := s.postService.Replies(ctx, c.Params("id"), page.Offset, page.Limit, viewer)
	if err != nil {
		return respondServiceError(c, err)
	}

	views := make([]models.ReplyView, 0, len(replies))
	for _, reply := range replies {
		views = append(views, models.NewReplyView(reply, viewer))
	}
	return c.JSON(newPage(c, page, count, views))
}

// CreateReply handles POST /posts/:id/replies. Replies nest one level only.
func (s *Server) CreateReply(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := s.userID(c)
	parentID := c.Params("id")

	form, err := c.MultipartForm()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Multipart form data required"))
	}

	text := formText(form, "text")
	media, err := formMedia(c, form, service.MaxPostMediaBytes, fiber.StatusBadRequest)
	if err != nil {
		return nil
	}

	reply, err := s.postService.CreatePost(ctx, userID, &parentID, text, media)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishPostEvent(c, notifications.EventPostCreated, reply)

	return c.JSON(models.NewReplyView(reply, &userID))
}

// LikePost handles PUT /posts/:id/likes. Liking twice is a no-op and emits
// no second event.
func (s *Server) LikePost(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := s.userID(c)
	postID := c.Params("id")

	created, err := s.postService.LikePost(ctx, userID, postID)
	if err != nil {
		return respondServiceError(c, err)
	}

	if created {
		s.dispatcher.Publish(c.UserContext(), notifications.EventPostLiked,
			notifications.LikeInfo{UserID: userID, PostID: postID})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// UnlikePost handles DELETE /posts/:id/likes.
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := s.userID(c)
	postID := c.Params("id")

	removed, err := s.postService.UnlikePost(ctx, userID, postID)
	if err != nil {
		return respondServiceError(c, err)
	}

	if removed {
		s.dispatcher.Publish(c.UserContext(), notifications.EventPostUnliked,
			notifications.LikeInfo{UserID: userID, PostID: postID})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// queryList collects repeated occurrences of a query parameter.
func queryList(c *fiber.Ctx, key string) []string {
	var values []string
	for _, v := range c.Context().QueryArgs().PeekMulti(key) {
		if len(v) > 0 {
			values = append(values, string(v))
		}
	}
	return values
}
