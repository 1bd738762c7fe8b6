// Package storage persists uploaded media objects and hands out their
// public URLs.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"mumble/internal/config"
)

// Storage uploads and deletes media objects. Implementations return the
// publicly reachable URL of an uploaded object.
type Storage interface {
	// Upload stores the object under the given name and returns its public URL.
	Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, name string) error
}

// NewObjectName returns a fresh name for an uploaded object.
func NewObjectName() string {
	return uuid.New().String()
}

// New builds the storage backend selected by the configuration.
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverGCS:
		return NewGCSStorage(ctx, cfg.StorageBucket, cfg.StorageCredentials)
	case config.StorageDriverFS:
		return NewFSStorage(cfg.MediaDir, cfg.MediaBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.StorageDriver)
	}
}
