package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mumble/internal/models"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// EnsureExists inserts the user if the id is not yet known. Existing
	// rows are left untouched.
	EnsureExists(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, offset, limit int) ([]*models.User, int64, error)
	Save(ctx context.Context, user *models.User) error
	Followers(ctx context.Context, userID string, offset, limit int) ([]*models.User, int64, error)
	Followees(ctx context.Context, userID string, offset, limit int) ([]*models.User, int64, error)
	// Follow records the follow edge; following twice is a no-op.
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
}

// userRepository implements UserRepository
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) EnsureExists(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *userRepository) List(ctx context.Context, offset, limit int) ([]*models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})

	var count int64
	if err := query.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var users []*models.User
	err := query.
		Order("users.id").
		Offset(offset).
		Limit(clampLimit(limit)).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, count, nil
}

func (r *userRepository) Save(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error
}

func (r *userRepository) Followers(ctx context.Context, userID string, offset, limit int) ([]*models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.followee_id = ?", userID)
	return paginateUsers(query, offset, limit)
}

func (r *userRepository) Followees(ctx context.Context, userID string, offset, limit int) ([]*models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN follows ON follows.followee_id = users.id").
		Where("follows.follower_id = ?", userID)
	return paginateUsers(query, offset, limit)
}

func (r *userRepository) Follow(ctx context.Context, followerID, followeeID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID}).Error
}

func (r *userRepository) Unfollow(ctx context.Context, followerID, followeeID string) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{}).Error
}

func paginateUsers(query *gorm.DB, offset, limit int) ([]*models.User, int64, error) {
	var count int64
	if err := query.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var users []*models.User
	err := query.
		Order("users.id").
		Offset(offset).
		Limit(clampLimit(limit)).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, count, nil
}
