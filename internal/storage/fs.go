package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FSStorage stores objects as files in a local directory. It backs local
// development and tests, where no cloud bucket is available. The server
// exposes the directory under baseURL.
type FSStorage struct {
	dir     string
	baseURL string
}

// NewFSStorage creates the media directory if needed.
func NewFSStorage(dir, baseURL string) (*FSStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory %s: %w", dir, err)
	}
	return &FSStorage{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Dir returns the directory objects are stored in.
func (s *FSStorage) Dir() string {
	return s.dir
}

func (s *FSStorage) Upload(_ context.Context, name, contentType string, r io.Reader) (string, error) {
	path, err := s.objectPath(name)
	if err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create object file %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write object %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close object %s: %w", name, err)
	}
	if err := os.WriteFile(path+".type", []byte(contentType), 0o644); err != nil {
		return "", fmt.Errorf("failed to record content type for %s: %w", name, err)
	}
	return s.baseURL + "/" + name, nil
}

func (s *FSStorage) Delete(_ context.Context, name string) error {
	path, err := s.objectPath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object %s: %w", name, err)
	}
	_ = os.Remove(path + ".type")
	return nil
}

// Open returns the object's content and recorded content type.
func (s *FSStorage) Open(name string) (io.ReadCloser, string, error) {
	path, err := s.objectPath(name)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	contentType := "application/octet-stream"
	if meta, err := os.ReadFile(path + ".type"); err == nil {
		contentType = string(meta)
	}
	return f, contentType, nil
}

// objectPath rejects names that would escape the media directory.
func (s *FSStorage) objectPath(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return "", fmt.Errorf("invalid object name: %q", name)
	}
	return filepath.Join(s.dir, name), nil
}
