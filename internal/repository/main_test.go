package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mumble/internal/database"
	"mumble/internal/models"
)

// setupTestDB opens a throwaway sqlite database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, id, username string) *models.User {
	t.Helper()

	user := &models.User{
		ID:        id,
		Username:  username,
		Firstname: "Test",
		Lastname:  "User",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestPost(t *testing.T, db *gorm.DB, creatorID, text string) *models.Post {
	t.Helper()

	post := &models.Post{
		CreatorID: creatorID,
		Text:      &text,
	}
	require.NoError(t, NewPostRepository(db).Create(context.Background(), post))
	return post
}

func createTestReply(t *testing.T, db *gorm.DB, creatorID, parentID, text string) *models.Post {
	t.Helper()

	reply := &models.Post{
		CreatorID: creatorID,
		Text:      &text,
		ParentID:  &parentID,
	}
	require.NoError(t, NewPostRepository(db).Create(context.Background(), reply))
	return reply
}

func strptr(s string) *string {
	return &s
}

func newULID() string {
	return ulid.Make().String()
}
