package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"mumble/internal/auth"
	"mumble/internal/models"
	"mumble/internal/repository"
	"mumble/internal/storage"
)

// UserService implements user profiles, avatars and the follow graph.
type UserService struct {
	users   repository.UserRepository
	storage storage.Storage
}

// UpdateProfileInput carries the changed profile fields; nil means keep.
type UpdateProfileInput struct {
	Firstname *string
	Lastname  *string
	Username  *string
}

// NewUserService creates a new UserService.
func NewUserService(users repository.UserRepository, store storage.Storage) *UserService {
	return &UserService{users: users, storage: store}
}

// ListUsers returns a page of users plus the total count.
func (s *UserService) ListUsers(ctx context.Context, offset, limit int) ([]*models.User, int64, error) {
	return s.users.List(ctx, offset, limit)
}

// GetUser returns the user with the given id.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewUserNotFoundError()
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// EnsureUser records the authenticated identity on first sight. Already
// known users keep their locally edited profile.
func (s *UserService) EnsureUser(ctx context.Context, id *auth.Identity) error {
	username := id.Username
	if username == "" {
		username = id.Subject
	}
	return s.users.EnsureExists(ctx, &models.User{
		ID:        id.Subject,
		Username:  username,
		Firstname: id.Firstname,
		Lastname:  id.Lastname,
	})
}

// UpdateProfile patches the user's own profile.
func (s *UserService) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Firstname != nil {
		user.Firstname = *in.Firstname
	}
	if in.Lastname != nil {
		user.Lastname = *in.Lastname
	}
	if in.Username != nil {
		user.Username = *in.Username
	}

	if err := s.users.Save(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, models.NewUsernameTakenError(user.Username)
		}
		return nil, err
	}
	return user, nil
}

// UpdateAvatar replaces the user's avatar and returns the new URL. A nil
// avatar removes it; the returned URL is then nil.
func (s *UserService) UpdateAvatar(ctx context.Context, id string, avatar *MediaUpload) (*string, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := deleteMediaIfPresent(ctx, s.storage, user.AvatarID()); err != nil {
		return nil, err
	}
	user.AvatarURL = nil
	user.AvatarMediaType = nil

	if avatar != nil {
		url, err := uploadMedia(ctx, s.storage, avatar)
		if err != nil {
			return nil, err
		}
		user.AvatarURL = &url
		user.AvatarMediaType = &avatar.ContentType
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user.AvatarURL, nil
}

// Followers returns a page of the user's followers.
func (s *UserService) Followers(ctx context.Context, id string, offset, limit int) ([]*models.User, int64, error) {
	return s.users.Followers(ctx, id, offset, limit)
}

// Followees returns a page of the users the user follows.
func (s *UserService) Followees(ctx context.Context, id string, offset, limit int) ([]*models.User, int64, error) {
	return s.users.Followees(ctx, id, offset, limit)
}

// Follow records a follow edge. Following an unknown user is a not-found
// error; following twice is a no-op.
func (s *UserService) Follow(ctx context.Context, followerID, followeeID string) error {
	if err := s.users.Follow(ctx, followerID, followeeID); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return models.NewUserNotFoundError()
		}
		return err
	}
	return nil
}

// Unfollow removes a follow edge. Only the followee's existence is checked;
// unfollowing someone never followed is a no-op.
func (s *UserService) Unfollow(ctx context.Context, followerID, followeeID string) error {
	exists, err := s.users.Exists(ctx, followeeID)
	if err != nil {
		return err
	}
	if !exists {
		return models.NewUserNotFoundError()
	}
	return s.users.Unfollow(ctx, followerID, followeeID)
}
