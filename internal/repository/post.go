// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mumble/internal/models"
)

// maxPageSize caps the page size of every paginated query.
const maxPageSize = 1000

// PostSearchParams narrows a post search. Zero values mean "no filter".
// NewerThan and OlderThan compare against the ULID primary key, which
// orders posts by creation time.
type PostSearchParams struct {
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

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	// GetByID returns the top-level post with the given id, or
	// gorm.ErrRecordNotFound. Replies are not returned here.
	GetByID(ctx context.Context, id string, viewer *string) (*models.Post, error)
	// Get returns the post or reply with the given id, or gorm.ErrRecordNotFound.
	Get(ctx context.Context, id string, viewer *string) (*models.Post, error)
	Search(ctx context.Context, params PostSearchParams) ([]*models.Post, int64, error)
	Replies(ctx context.Context, parentID string, offset, limit int, viewer *string) ([]*models.Post, int64, error)
	Save(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, post *models.Post) error
	// Like records the like edge and reports whether it was newly created.
	Like(ctx context.Context, userID, postID string) (bool, error)
	// Unlike removes the like edge and reports whether it existed.
	Unlike(ctx context.Context, userID, postID string) (bool, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id string, viewer *string) (*models.Post, error) {
	var post models.Post
	err := applyPostDetails(r.db.WithContext(ctx).Model(&models.Post{}), viewer).
		Preload("Creator").
		Where("posts.id = ?", id).
		Where("posts.parent_id IS NULL").
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Get(ctx context.Context, id string, viewer *string) (*models.Post, error) {
	var post models.Post
	err := applyPostDetails(r.db.WithContext(ctx).Model(&models.Post{}), viewer).
		Preload("Creator").
		Where("posts.id = ?", id).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Search(ctx context.Context, params PostSearchParams) ([]*models.Post, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("posts.parent_id IS NULL")

	if params.NewerThan != "" {
		query = query.Where("posts.id > ?", params.NewerThan)
	}
	if params.OlderThan != "" {
		query = query.Where("posts.id < ?", params.OlderThan)
	}
	if params.Text != "" {
		query = query.Where("posts.text IS NOT NULL AND LOWER(posts.text) LIKE ?", containsPattern(params.Text))
	}
	if len(params.Creators) > 0 {
		query = query.Where("posts.creator_id IN ?", params.Creators)
	}
	if len(params.Tags) > 0 {
		// A post matches when it contains any of the tags.
		tags := r.db.Where("LOWER(posts.text) LIKE ?", containsPattern("#"+params.Tags[0]))
		for _, tag := range params.Tags[1:] {
			tags = tags.Or("LOWER(posts.text) LIKE ?", containsPattern("#"+tag))
		}
		query = query.Where(tags)
	}
	if len(params.LikedBy) > 0 {
		query = query.Where(
			"EXISTS (SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id IN ?)",
			params.LikedBy,
		)
	}

	var count int64
	if err := query.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var posts []*models.Post
	err := applyPostDetails(query, params.Viewer).
		Preload("Creator").
		Order("posts.id DESC").
		Offset(params.Offset).
		Limit(clampLimit(params.Limit)).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, count, nil
}

func (r *postRepository) Replies(ctx context.Context, parentID string, offset, limit int, viewer *string) ([]*models.Post, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("posts.parent_id = ?", parentID)

	var count int64
	if err := query.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var replies []*models.Post
	err := applyPostDetails(query, viewer).
		Preload("Creator").
		Order("posts.id DESC").
		Offset(offset).
		Limit(clampLimit(limit)).
		Find(&replies).Error
	if err != nil {
		return nil, 0, err
	}
	return replies, count, nil
}

func (r *postRepository) Save(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(post).Error
}

func (r *postRepository) Delete(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Delete(post).Error
}

func (r *postRepository) Like(ctx context.Context, userID, postID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Like{PostID: postID, UserID: userID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *postRepository) Unlike(ctx context.Context, userID, postID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.Like{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// applyPostDetails selects the computed like count, reply count and, for a
// known viewer, whether the viewer liked each post.
func applyPostDetails(db *gorm.DB, viewer *string) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS likes_count, " +
		"(SELECT COUNT(*) FROM posts replies WHERE replies.parent_id = posts.id AND replies.deleted_at IS NULL) AS replies_count"

	if viewer != nil {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) AS liked", *viewer)
	}

	return db.Select(selectQuery + ", FALSE AS liked")
}

func containsPattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}

func clampLimit(limit int) int {
	if limit < 0 {
		return 0
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
