package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mumble/internal/models"
)

func assertAppCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func strptr(s string) *string {
	return &s
}

func testMedia() *MediaUpload {
	return &MediaUpload{
		File:        strings.NewReader("fake-image-bytes"),
		ContentType: "image/png",
		Size:        16,
	}
}

func TestPostService_CreatePost_RequiresContent(t *testing.T) {
	t.Parallel()

	svc := NewPostService(&postRepoStub{}, &storageStub{})
	_, err := svc.CreatePost(context.Background(), "user-1", nil, nil, nil)
	assertAppCode(t, err, models.CodeInvalidPost)
}

func TestPostService_CreatePost_UnknownParent(t *testing.T) {
	t.Parallel()

	svc := NewPostService(&postRepoStub{}, &storageStub{})
	_, err := svc.CreatePost(context.Background(), "user-1", strptr("missing"), strptr("hi"), nil)
	assertAppCode(t, err, models.CodeNotFound)
}

func TestPostService_CreatePost_RejectsReplyToReply(t *testing.T) {
	t.Parallel()

	repo := &postRepoStub{
		getFn: func(_ context.Context, id string, _ *string) (*models.Post, error) {
			return &models.Post{ID: id, ParentID: strptr("grandparent")}, nil
		},
	}
	svc := NewPostService(repo, &storageStub{})
	_, err := svc.CreatePost(context.Background(), "user-1", strptr("a-reply"), strptr("hi"), nil)
	assertAppCode(t, err, models.CodeIsAReply)
}

func TestPostService_CreatePost_UploadsMedia(t *testing.T) {
	t.Parallel()

	var created *models.Post
	repo := &postRepoStub{
		createFn: func(_ context.Context, post *models.Post) error {
			post.ID = "new-post"
			created = post
			return nil
		},
		getFn: func(_ context.Context, id string, _ *string) (*models.Post, error) {
			return created, nil
		},
	}
	store := &storageStub{}
	svc := NewPostService(repo, store)

	post, err := svc.CreatePost(context.Background(), "user-1", nil, nil, testMedia())
	require.NoError(t, err)
	require.NotNil(t, post.MediaURL)
	assert.Contains(t, *post.MediaURL, "https://storage.googleapis.com/test-bucket/")
	require.NotNil(t, post.MediaType)
	assert.Equal(t, "image/png", *post.MediaType)
	assert.Len(t, store.uploads, 1)
}

func TestPostService_ReplacePost_ChecksOwnership(t *testing.T) {
	t.Parallel()

	repo := &postRepoStub{
		getFn: func(_ context.Context, id string, _ *string) (*models.Post, error) {
			return &models.Post{ID: id, CreatorID: "someone-else", Text: strptr("hi")}, nil
		},
	}
	svc := NewPostService(repo, &storageStub{})
	_, err := svc.ReplacePost(context.Background(), "user-1", "post-1", strptr("new"), nil)
	assertAppCode(t, err, models.CodeForbidden)
}

func TestPostService_ReplacePost_RemovesOldMedia(t *testing.T) {
	t.Parallel()

	repo := &postRepoStub{
		getFn: func(_ context.Context, id string, _ *string) (*models.Post, error) {
			return &models.Post{
				ID:        id,
				CreatorID: "user-1",
				Text:      strptr("old"),
				MediaURL:  strptr("https://storage.googleapis.com/test-bucket/old-object"),
				MediaType: strptr("image/jpeg"),
			}, nil
		},
	}
	store := &storageStub{}
	svc := NewPostService(repo, store)

	post, err := svc.ReplacePost(context.Background(), "user-1", "post-1", strptr("new"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"old-object"}, store.deletes)
	assert.Nil(t, post.MediaURL, "media is dropped when the replacement has none")
	assert.Nil(t, post.MediaType)
	require.NotNil(t, post.Text)
	assert.Equal(t, "new", *post.Text)
}

func TestPostService_UpdatePostText_BlankClearsText(t *testing.T) {
	t.Parallel()

	repo := &postRepoStub{
		getFn: func(_ context.Context, id string, _ *string) (*models.Post, error) {
			return &models.Post{
				ID:        id,
				CreatorID: "user-1",
				Text:      strptr("old"),
				MediaURL:  strptr("https://storage.googleapis.com/test-bucket/obj"),
				MediaType: strptr("image/png"),
			}, nil
		},
	}
	svc := NewPostService(repo, &storageStub{})

	post, err := svc.UpdatePostText(context.Background(), "user-1", "post-1", "   ")
	require.NoError(t, err)
	assert.Nil(t, post.Text)
}

func TestPostService_UpdatePostText_CannotLeavePostEmpty(t *testing.T) {
	t.Parallel()

	repo := &postRepoStub{
		getFn: func(_ context.Context, id string, _ *string) (*models.Post, error) {
			return &models.Post{ID: id, CreatorID: "user-1", Text: strptr("only text")}, nil
		},
	}
	svc := NewPostService(repo, &storageStub{})

	_, err := svc.UpdatePostText(context.Background(), "user-1", "post-1", "")
	assertAppCode(t, err, models.CodeInvalidPost)
}

func TestPostService_UpdatePostMedia_RemovalNeedsText(t *testing.T) {
	t.Parallel()

	repo := &postRepoStub{
		getFn: func(_ context.Context, id string, _ *string) (*models.Post, error) {
			return &models.Post{
				ID:        id,
				CreatorID: "user-1",
				MediaURL:  strptr("https://storage.googleapis.com/test-bucket/obj"),
				MediaType: strptr("image/png"),
			}, nil
		},
	}
	svc := NewPostService(repo, &storageStub{})

	_, err := svc.UpdatePostMedia(context.Background(), "user-1", "post-1", nil)
	assertAppCode(t, err, models.CodeInvalidPost)
}

func TestPostService_DeletePost(t *testing.T) {
	t.Parallel()

	deleted := false
	repo := &postRepoStub{
		getFn: func(_ context.Context, id string, _ *string) (*models.Post, error) {
			return &models.Post{ID: id, CreatorID: "user-1", Text: strptr("hi")}, nil
		},
		deleteFn: func(_ context.Context, post *models.Post) error {
			deleted = true
			return nil
		},
	}
	svc := NewPostService(repo, &storageStub{})

	require.NoError(t, svc.DeletePost(context.Background(), "user-1", "post-1"))
	assert.True(t, deleted)

	err := svc.DeletePost(context.Background(), "other", "post-1")
	assertAppCode(t, err, models.CodeForbidden)
}

func TestPostService_LikePost_UnknownPost(t *testing.T) {
	t.Parallel()

	svc := NewPostService(&postRepoStub{}, &storageStub{})
	_, err := svc.LikePost(context.Background(), "user-1", "missing")
	assertAppCode(t, err, models.CodeNotFound)
}

func TestPostService_LikePost_ReportsNewness(t *testing.T) {
	t.Parallel()

	likes := 0
	repo := &postRepoStub{
		getFn: func(_ context.Context, id string, _ *string) (*models.Post, error) {
			return &models.Post{ID: id, CreatorID: "other", Text: strptr("hi")}, nil
		},
		likeFn: func(_ context.Context, _, _ string) (bool, error) {
			likes++
			return likes == 1, nil
		},
	}
	svc := NewPostService(repo, &storageStub{})

	created, err := svc.LikePost(context.Background(), "user-1", "post-1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.LikePost(context.Background(), "user-1", "post-1")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestPostService_Replies_ParentMustBeTopLevel(t *testing.T) {
	t.Parallel()

	repo := &postRepoStub{
		getFn: func(_ context.Context, id string, _ *string) (*models.Post, error) {
			return &models.Post{ID: id, ParentID: strptr("parent")}, nil
		},
	}
	svc := NewPostService(repo, &storageStub{})

	_, _, err := svc.Replies(context.Background(), "a-reply", 0, 100, nil)
	assertAppCode(t, err, models.CodeIsAReply)
}
