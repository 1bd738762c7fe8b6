package service

import (
	"context"
	"fmt"
	"io"
	"sync"

	"gorm.io/gorm"

	"mumble/internal/models"
	"mumble/internal/repository"
)

// postRepoStub implements repository.PostRepository with overridable
// function fields. Unset fields behave like an empty database.
type postRepoStub struct {
	createFn  func(ctx context.Context, post *models.Post) error
	getByIDFn func(ctx context.Context, id string, viewer *string) (*models.Post, error)
	getFn     func(ctx context.Context, id string, viewer *string) (*models.Post, error)
	searchFn  func(ctx context.Context, params repository.PostSearchParams) ([]*models.Post, int64, error)
	repliesFn func(ctx context.Context, parentID string, offset, limit int, viewer *string) ([]*models.Post, int64, error)
	saveFn    func(ctx context.Context, post *models.Post) error
	deleteFn  func(ctx context.Context, post *models.Post) error
	likeFn    func(ctx context.Context, userID, postID string) (bool, error)
	unlikeFn  func(ctx context.Context, userID, postID string) (bool, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	if s.createFn != nil {
		return s.createFn(ctx, post)
	}
	return nil
}

func (s *postRepoStub) GetByID(ctx context.Context, id string, viewer *string) (*models.Post, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id, viewer)
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *postRepoStub) Get(ctx context.Context, id string, viewer *string) (*models.Post, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id, viewer)
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *postRepoStub) Search(ctx context.Context, params repository.PostSearchParams) ([]*models.Post, int64, error) {
	if s.searchFn != nil {
		return s.searchFn(ctx, params)
	}
	return nil, 0, nil
}

func (s *postRepoStub) Replies(ctx context.Context, parentID string, offset, limit int, viewer *string) ([]*models.Post, int64, error) {
	if s.repliesFn != nil {
		return s.repliesFn(ctx, parentID, offset, limit, viewer)
	}
	return nil, 0, nil
}

func (s *postRepoStub) Save(ctx context.Context, post *models.Post) error {
	if s.saveFn != nil {
		return s.saveFn(ctx, post)
	}
	return nil
}

func (s *postRepoStub) Delete(ctx context.Context, post *models.Post) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, post)
	}
	return nil
}

func (s *postRepoStub) Like(ctx context.Context, userID, postID string) (bool, error) {
	if s.likeFn != nil {
		return s.likeFn(ctx, userID, postID)
	}
	return true, nil
}

func (s *postRepoStub) Unlike(ctx context.Context, userID, postID string) (bool, error) {
	if s.unlikeFn != nil {
		return s.unlikeFn(ctx, userID, postID)
	}
	return true, nil
}

// userRepoStub implements repository.UserRepository the same way.
type userRepoStub struct {
	ensureFn    func(ctx context.Context, user *models.User) error
	getByIDFn   func(ctx context.Context, id string) (*models.User, error)
	existsFn    func(ctx context.Context, id string) (bool, error)
	listFn      func(ctx context.Context, offset, limit int) ([]*models.User, int64, error)
	saveFn      func(ctx context.Context, user *models.User) error
	followersFn func(ctx context.Context, userID string, offset, limit int) ([]*models.User, int64, error)
	followeesFn func(ctx context.Context, userID string, offset, limit int) ([]*models.User, int64, error)
	followFn    func(ctx context.Context, followerID, followeeID string) error
	unfollowFn  func(ctx context.Context, followerID, followeeID string) error
}

func (s *userRepoStub) EnsureExists(ctx context.Context, user *models.User) error {
	if s.ensureFn != nil {
		return s.ensureFn(ctx, user)
	}
	return nil
}

func (s *userRepoStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *userRepoStub) Exists(ctx context.Context, id string) (bool, error) {
	if s.existsFn != nil {
		return s.existsFn(ctx, id)
	}
	return false, nil
}

func (s *userRepoStub) List(ctx context.Context, offset, limit int) ([]*models.User, int64, error) {
	if s.listFn != nil {
		return s.listFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

func (s *userRepoStub) Save(ctx context.Context, user *models.User) error {
	if s.saveFn != nil {
		return s.saveFn(ctx, user)
	}
	return nil
}

func (s *userRepoStub) Followers(ctx context.Context, userID string, offset, limit int) ([]*models.User, int64, error) {
	if s.followersFn != nil {
		return s.followersFn(ctx, userID, offset, limit)
	}
	return nil, 0, nil
}

func (s *userRepoStub) Followees(ctx context.Context, userID string, offset, limit int) ([]*models.User, int64, error) {
	if s.followeesFn != nil {
		return s.followeesFn(ctx, userID, offset, limit)
	}
	return nil, 0, nil
}

func (s *userRepoStub) Follow(ctx context.Context, followerID, followeeID string) error {
	if s.followFn != nil {
		return s.followFn(ctx, followerID, followeeID)
	}
	return nil
}

func (s *userRepoStub) Unfollow(ctx context.Context, followerID, followeeID string) error {
	if s.unfollowFn != nil {
		return s.unfollowFn(ctx, followerID, followeeID)
	}
	return nil
}

// storageStub records uploads and deletes in memory.
type storageStub struct {
	mu        sync.Mutex
	uploads   []string
	deletes   []string
	uploadErr error
}

func (s *storageStub) Upload(_ context.Context, name, _ string, r io.Reader) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	_, _ = io.Copy(io.Discard, r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, name)
	return fmt.Sprintf("https://storage.googleapis.com/test-bucket/%s", name), nil
}

func (s *storageStub) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, name)
	return nil
}
