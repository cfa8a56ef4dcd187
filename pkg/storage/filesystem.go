package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage persists uploaded attachments on disk under a base directory.
type LocalStorage struct {
	baseDir      string
	maxSizeBytes int64
	allowedMIMEs map[string]struct{}
}

// NewLocalStorage ensures the base directory exists and returns a handle.
// An empty MIME allowlist accepts any content type.
func NewLocalStorage(baseDir string, maxSizeBytes int64, allowedMIMEs []string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}

	allowed := make(map[string]struct{}, len(allowedMIMEs))
	for _, m := range allowedMIMEs {
		allowed[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}

	return &LocalStorage{
		baseDir:      baseDir,
		maxSizeBytes: maxSizeBytes,
		allowedMIMEs: allowed,
	}, nil
}

// Allowed reports whether the content type passes the configured allowlist.
func (s *LocalStorage) Allowed(contentType string) bool {
	if len(s.allowedMIMEs) == 0 {
		return true
	}
	// Strip any charset or boundary parameters before matching.
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	_, ok := s.allowedMIMEs[base]
	return ok
}

// MaxSizeBytes returns the configured per-file upload limit.
func (s *LocalStorage) MaxSizeBytes() int64 {
	return s.maxSizeBytes
}

// Save writes the given bytes to the provided relative path under the base dir.
func (s *LocalStorage) Save(filename string, data []byte) (string, error) {
	if s.maxSizeBytes > 0 && int64(len(data)) > s.maxSizeBytes {
		return "", fmt.Errorf("file exceeds maximum size of %d bytes", s.maxSizeBytes)
	}
	path := s.resolve(filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare attachment directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return filename, nil
}

// SaveStream copies from reader into the target file path, enforcing the size limit.
func (s *LocalStorage) SaveStream(filename string, r io.Reader) (string, error) {
	path := s.resolve(filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare attachment directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create attachment: %w", err)
	}
	defer file.Close() //nolint:errcheck

	src := r
	if s.maxSizeBytes > 0 {
		src = io.LimitReader(r, s.maxSizeBytes+1)
	}
	written, err := io.Copy(file, src)
	if err != nil {
		return "", fmt.Errorf("write attachment stream: %w", err)
	}
	if s.maxSizeBytes > 0 && written > s.maxSizeBytes {
		_ = os.Remove(path)
		return "", fmt.Errorf("file exceeds maximum size of %d bytes", s.maxSizeBytes)
	}
	return filename, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(filename string) (*os.File, error) {
	file, err := os.Open(s.resolve(filename))
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(filename string) error {
	if err := os.Remove(s.resolve(filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}

// Path exposes the underlying absolute path (useful for debugging).
func (s *LocalStorage) Path(filename string) string {
	return s.resolve(filename)
}

func (s *LocalStorage) resolve(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(s.baseDir, filename)
}
