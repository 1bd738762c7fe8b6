// Package service implements the application's business logic on top of the
// repositories and object storage.
package service

import (
	"context"
	"image"
	"io"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"mumble/internal/models"
	"mumble/internal/observability"
	"mumble/internal/storage"
)

// Upload size limits.
const (
	MaxPostMediaBytes = 2 << 20   // 2 MiB
	MaxAvatarBytes    = 512 << 10 // 512 KiB
)

// MediaUpload is a file received via multipart upload, pending storage.
type MediaUpload struct {
	File        io.ReadSeeker
	ContentType string
	Size        int64
}

// IsImage reports whether the upload declares an image content type.
func (m *MediaUpload) IsImage() bool {
	return strings.HasPrefix(m.ContentType, "image/")
}

// DecodesAsImage sniffs the payload and reports whether it decodes as a
// known image format (GIF, JPEG, PNG or WebP). The reader is rewound so the
// full payload can still be uploaded afterwards.
func (m *MediaUpload) DecodesAsImage() bool {
	if _, _, err := image.DecodeConfig(m.File); err != nil {
		return false
	}
	_, err := m.File.Seek(0, io.SeekStart)
	return err == nil
}

// uploadMedia stores the file under a fresh object name and returns its
// public URL.
func uploadMedia(ctx context.Context, store storage.Storage, media *MediaUpload) (string, error) {
	url, err := store.Upload(ctx, storage.NewObjectName(), media.ContentType, media.File)
	if err != nil {
		return "", models.NewStorageError(err)
	}
	observability.MediaUploadBytes.Observe(float64(media.Size))
	return url, nil
}

// deleteMediaIfPresent removes the object behind the given id, if any.
func deleteMediaIfPresent(ctx context.Context, store storage.Storage, id *string) error {
	if id == nil {
		return nil
	}
	if err := store.Delete(ctx, *id); err != nil {
		return models.NewStorageError(err)
	}
	return nil
}
