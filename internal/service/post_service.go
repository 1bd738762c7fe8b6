package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"mumble/internal/models"
	"mumble/internal/repository"
	"mumble/internal/storage"
)

// PostService implements posts, replies and likes.
type PostService struct {
	posts   repository.PostRepository
	storage storage.Storage
}

// SearchPostsInput narrows a post search; see repository.PostSearchParams.
type SearchPostsInput struct {
	NewerThan string
	OlderThan string
	Text      string
	Tags      []string
	Creators  []string
	LikedBy   []string
	Offset    int
	Limit     int
	Viewer    *string
}

// NewPostService creates a new PostService.
func NewPostService(posts repository.PostRepository, store storage.Storage) *PostService {
	return &PostService{posts: posts, storage: store}
}

// SearchPosts returns a page of top-level posts plus the total match count.
func (s *PostService) SearchPosts(ctx context.Context, in SearchPostsInput) ([]*models.Post, int64, error) {
	return s.posts.Search(ctx, repository.PostSearchParams{
		NewerThan: in.NewerThan,
		OlderThan: in.OlderThan,
		Text:      in.Text,
		Tags:      in.Tags,
		Creators:  in.Creators,
		LikedBy:   in.LikedBy,
		Offset:    in.Offset,
		Limit:     in.Limit,
		Viewer:    in.Viewer,
	})
}

// GetPost returns the top-level post with the given id. Replies are not
// addressable here.
func (s *PostService) GetPost(ctx context.Context, id string, viewer *string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id, viewer)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewPostNotFoundError()
	}
	if err != nil {
		return nil, err
	}
	return post, nil
}

// CreatePost creates a post, or a reply when parentID is set. Replies to
// replies are rejected.
func (s *PostService) CreatePost(ctx context.Context, userID string, parentID, text *string, media *MediaUpload) (*models.Post, error) {
	if text == nil && media == nil {
		return nil, models.NewPostInvalidError()
	}

	if parentID != nil {
		parent, err := s.posts.Get(ctx, *parentID, nil)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewPostNotFoundError()
		}
		if err != nil {
			return nil, err
		}
		if parent.ParentID != nil {
			// Replies only nest one level.
			return nil, models.NewPostIsAReplyError()
		}
	}

	post := &models.Post{
		CreatorID: userID,
		Text:      text,
		ParentID:  parentID,
	}
	if media != nil {
		url, err := uploadMedia(ctx, s.storage, media)
		if err != nil {
			return nil, err
		}
		post.MediaURL = &url
		post.MediaType = &media.ContentType
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	// Reload to pick up the creator and the computed columns.
	return s.posts.Get(ctx, post.ID, &userID)
}

// ReplacePost swaps out the whole content of a post. Existing media is
// removed even when no new media is supplied.
func (s *PostService) ReplacePost(ctx context.Context, userID, postID string, text *string, media *MediaUpload) (*models.Post, error) {
	if text == nil && media == nil {
		return nil, models.NewPostInvalidError()
	}

	post, err := s.getOwnPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	post.Text = text
	if err := deleteMediaIfPresent(ctx, s.storage, post.MediaID()); err != nil {
		return nil, err
	}
	post.MediaURL = nil
	post.MediaType = nil

	if media != nil {
		url, err := uploadMedia(ctx, s.storage, media)
		if err != nil {
			return nil, err
		}
		post.MediaURL = &url
		post.MediaType = &media.ContentType
	}

	if err := s.posts.Save(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePostText sets the text of a post. Blank text clears it, which is
// only allowed while media remains.
func (s *PostService) UpdatePostText(ctx context.Context, userID, postID, text string) (*models.Post, error) {
	post, err := s.getOwnPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		post.Text = nil
	} else {
		post.Text = &text
	}
	if !post.Valid() {
		return nil, models.NewPostInvalidError()
	}

	if err := s.posts.Save(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePostMedia replaces the media of a post. A nil media removes it,
// which is only allowed while text remains.
func (s *PostService) UpdatePostMedia(ctx context.Context, userID, postID string, media *MediaUpload) (*models.Post, error) {
	post, err := s.getOwnPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	if media == nil && post.Text == nil {
		return nil, models.NewPostInvalidError()
	}

	if err := deleteMediaIfPresent(ctx, s.storage, post.MediaID()); err != nil {
		return nil, err
	}
	post.MediaURL = nil
	post.MediaType = nil

	if media != nil {
		url, err := uploadMedia(ctx, s.storage, media)
		if err != nil {
			return nil, err
		}
		post.MediaURL = &url
		post.MediaType = &media.ContentType
	}

	if err := s.posts.Save(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// DeletePost soft-deletes a post. The stored media outlives the post.
func (s *PostService) DeletePost(ctx context.Context, userID, postID string) error {
	post, err := s.getOwnPost(ctx, userID, postID)
	if err != nil {
		return err
	}
	return s.posts.Delete(ctx, post)
}

// LikePost records a like and reports whether it is new.
func (s *PostService) LikePost(ctx context.Context, userID, postID string) (bool, error) {
	if err := s.ensurePostExists(ctx, postID); err != nil {
		return false, err
	}
	return s.posts.Like(ctx, userID, postID)
}

// UnlikePost removes a like and reports whether it existed.
func (s *PostService) UnlikePost(ctx context.Context, userID, postID string) (bool, error) {
	if err := s.ensurePostExists(ctx, postID); err != nil {
		return false, err
	}
	return s.posts.Unlike(ctx, userID, postID)
}

// Replies returns a page of replies of a top-level post.
func (s *PostService) Replies(ctx context.Context, parentID string, offset, limit int, viewer *string) ([]*models.Post, int64, error) {
	parent, err := s.posts.Get(ctx, parentID, nil)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, models.NewPostNotFoundError()
	}
	if err != nil {
		return nil, 0, err
	}
	if parent.ParentID != nil {
		return nil, 0, models.NewPostIsAReplyError()
	}
	return s.posts.Replies(ctx, parentID, offset, limit, viewer)
}

// getOwnPost loads the post or reply and enforces that userID created it.
func (s *PostService) getOwnPost(ctx context.Context, userID, postID string) (*models.Post, error) {
	post, err := s.posts.Get(ctx, postID, &userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewPostNotFoundError()
	}
	if err != nil {
		return nil, err
	}
	if post.CreatorID != userID {
		return nil, models.NewForbiddenError()
	}
	return post, nil
}

func (s *PostService) ensurePostExists(ctx context.Context, postID string) error {
	_, err := s.posts.Get(ctx, postID, nil)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewPostNotFoundError()
	}
	return err
}
