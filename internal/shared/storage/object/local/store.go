package local

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"resume-export/internal/shared/storage/object"
)

// Store implements ObjectStore using the local filesystem.
type Store struct {
	baseDir string
	baseURL string
}

var _ object.ObjectStore = (*Store)(nil)

// New creates a local object store rooted at baseDir. URLs are built from
// publicBaseURL, which should be where baseDir is served.
func New(baseDir, publicBaseURL string) *Store {
	return &Store{baseDir: baseDir, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

// SanitizeKey strips leading separators and any "." or ".." segments so the key
// always resolves inside the store root.
func SanitizeKey(key string) string {
	key = strings.ReplaceAll(key, "\\", "/")
	parts := strings.Split(key, "/")
	kept := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == "." || p == ".." {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "/")
}

// Upload writes data under the sanitized key.
func (s *Store) Upload(ctx context.Context, data []byte, key string, opts object.UploadOptions) (object.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return object.Artifact{}, err
	}
	clean := SanitizeKey(key)
	if clean == "" {
		return object.Artifact{}, fmt.Errorf("invalid storage key %q", key)
	}

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return object.Artifact{}, fmt.Errorf("mkdir: %w", err)
	}
	if err := writeAtomic(fullPath, data); err != nil {
		return object.Artifact{}, err
	}

	return object.Artifact{Key: clean, URL: s.url(clean), SizeBytes: int64(len(data))}, nil
}

// writeAtomic writes data to a private temp file next to fullPath and renames
// it into place, so concurrent writers never share a temp file and readers
// never see a partial object.
func writeAtomic(fullPath string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), "."+filepath.Base(fullPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

// SignedDownloadURL returns the plain local reference; local links do not expire.
func (s *Store) SignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := SanitizeKey(key)
	if clean == "" {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return s.url(clean), nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean := SanitizeKey(key)
	if clean == "" {
		return nil, fmt.Errorf("invalid storage key %q", key)
	}
	return os.Open(filepath.Join(s.baseDir, filepath.FromSlash(clean)))
}

func (s *Store) url(clean string) string {
	escaped := make([]string, 0)
	for _, seg := range strings.Split(clean, "/") {
		escaped = append(escaped, url.PathEscape(seg))
	}
	rel := path.Join(escaped...)
	if s.baseURL == "" {
		return "file://" + filepath.ToSlash(filepath.Join(s.baseDir, filepath.FromSlash(clean)))
	}
	return s.baseURL + "/" + rel
}
