package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Logical buckets under the upload base directory.
const (
	BucketEvidence    = "evidence"
	BucketProfilePics = "profile_pics"
)

// LocalStorage persists uploaded files on disk under a base directory.
// Evidence attachments and profile pictures live in separate buckets.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory and buckets exist.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	for _, bucket := range []string{BucketEvidence, BucketProfilePics} {
		if err := os.MkdirAll(filepath.Join(baseDir, bucket), 0o755); err != nil {
			return nil, fmt.Errorf("create upload directory: %w", err)
		}
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// SaveStream copies from reader into bucket/filename and returns the relative
// path persisted on the owning record.
func (s *LocalStorage) SaveStream(bucket, filename string, r io.Reader) (string, error) {
	rel := filepath.Join(bucket, filename)
	path := s.resolve(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare upload directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write upload stream: %w", err)
	}
	return rel, nil
}

// Open returns a read-only handle for a stored file.
func (s *LocalStorage) Open(relPath string) (*os.File, error) {
	file, err := os.Open(s.resolve(relPath))
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(relPath string) error {
	if err := os.Remove(s.resolve(relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// Path exposes the underlying absolute path (useful for debugging).
func (s *LocalStorage) Path(relPath string) string {
	return s.resolve(relPath)
}

func (s *LocalStorage) resolve(relPath string) string {
	if filepath.IsAbs(relPath) {
		return relPath
	}
	return filepath.Join(s.baseDir, relPath)
}
