package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"mumble/internal/models"
)

func TestUserRepository_EnsureExistsKeepsExistingRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	require.NoError(t, repo.EnsureExists(context.Background(), &models.User{
		ID:        "user-1",
		Username:  "alice",
		Firstname: "Alice",
		Lastname:  "Muster",
	}))

	// A second login with changed claims must not clobber local edits.
	require.NoError(t, repo.EnsureExists(context.Background(), &models.User{
		ID:        "user-1",
		Username:  "renamed",
		Firstname: "Other",
		Lastname:  "Name",
	}))

	user, err := repo.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Alice", user.Firstname)
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	_, err := repo.GetByID(context.Background(), newULID())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_ListOrdersByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	createTestUser(t, db, "user-2", "bob")
	createTestUser(t, db, "user-1", "alice")
	createTestUser(t, db, "user-3", "carol")

	users, count, err := repo.List(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
	require.Len(t, users, 2)
	assert.Equal(t, "user-1", users[0].ID)
	assert.Equal(t, "user-2", users[1].ID)

	users, _, err = repo.List(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "user-3", users[0].ID)
}

func TestUserRepository_FollowIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	alice := createTestUser(t, db, "user-1", "alice")
	bob := createTestUser(t, db, "user-2", "bob")

	require.NoError(t, repo.Follow(context.Background(), alice.ID, bob.ID))
	require.NoError(t, repo.Follow(context.Background(), alice.ID, bob.ID))

	followers, count, err := repo.Followers(context.Background(), bob.ID, 0, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	require.Len(t, followers, 1)
	assert.Equal(t, alice.ID, followers[0].ID)
}

func TestUserRepository_FollowUnknownFolloweeViolatesForeignKey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	alice := createTestUser(t, db, "user-1", "alice")

	err := repo.Follow(context.Background(), alice.ID, "nobody")
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
}

func TestUserRepository_FollowersAndFollowees(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	alice := createTestUser(t, db, "user-1", "alice")
	bob := createTestUser(t, db, "user-2", "bob")
	carol := createTestUser(t, db, "user-3", "carol")

	require.NoError(t, repo.Follow(context.Background(), alice.ID, bob.ID))
	require.NoError(t, repo.Follow(context.Background(), carol.ID, bob.ID))
	require.NoError(t, repo.Follow(context.Background(), bob.ID, alice.ID))

	followers, count, err := repo.Followers(context.Background(), bob.ID, 0, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	require.Len(t, followers, 2)
	assert.Equal(t, alice.ID, followers[0].ID)
	assert.Equal(t, carol.ID, followers[1].ID)

	followees, count, err := repo.Followees(context.Background(), bob.ID, 0, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	require.Len(t, followees, 1)
	assert.Equal(t, alice.ID, followees[0].ID)
}

func TestUserRepository_Unfollow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	alice := createTestUser(t, db, "user-1", "alice")
	bob := createTestUser(t, db, "user-2", "bob")

	require.NoError(t, repo.Follow(context.Background(), alice.ID, bob.ID))
	require.NoError(t, repo.Unfollow(context.Background(), alice.ID, bob.ID))
	// Unfollowing again is a no-op.
	require.NoError(t, repo.Unfollow(context.Background(), alice.ID, bob.ID))

	_, count, err := repo.Followers(context.Background(), bob.ID, 0, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestUserRepository_SaveUpdatesProfile(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	user := createTestUser(t, db, "user-1", "alice")

	user.Username = "alice2"
	user.AvatarURL = strptr("https://storage.googleapis.com/bucket/abc")
	user.AvatarMediaType = strptr("image/png")
	require.NoError(t, repo.Save(context.Background(), user))

	found, err := repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice2", found.Username)
	require.NotNil(t, found.AvatarURL)
	assert.Equal(t, "https://storage.googleapis.com/bucket/abc", *found.AvatarURL)
}
