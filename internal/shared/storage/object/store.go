package object

import (
	"context"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// UploadOptions are per-object HTTP metadata.
type UploadOptions struct {
	ContentType        string
	ContentDisposition string
}

// Artifact is the result of an upload.
type Artifact struct {
	Key       string
	URL       string
	SizeBytes int64
}

// ObjectStore is the storage capability used by exports. Backends differ in
// URL expiry: local references never expire, S3 links may.
type ObjectStore interface {
	Upload(ctx context.Context, data []byte, key string, opts UploadOptions) (Artifact, error)
	SignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ContentType returns opts.ContentType, or a sniffed type when unset.
func ContentType(opts UploadOptions, data []byte) string {
	if opts.ContentType != "" {
		return opts.ContentType
	}
	return mimetype.Detect(data).String()
}
