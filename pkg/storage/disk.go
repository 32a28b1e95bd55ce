// Package storage keeps product photo bytes out of the document store.
//
// Two drivers are available:
//   - "local": a directory on the local filesystem (default)
//   - "s3":    S3-compatible object storage (AWS S3, MinIO, R2, Spaces)
//
// Documents only keep the object key, content type and size:
//
//	disk, _ := storage.Open(ctx, config.StorageDefault())
//	_ = disk.Put(ctx, "products/ab12.jpg", file, size, "image/jpeg")
//	rc, _ := disk.Get(ctx, "products/ab12.jpg")
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotExist is returned by Get for a missing key.
var ErrNotExist = errors.New("storage: object does not exist")

// Disk is an object store addressed by slash-separated keys.
type Disk interface {
	// Put stores r under key. size may be -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get opens the object. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Open builds the named disk from configuration.
func Open(ctx context.Context, name string) (Disk, error) {
	switch name {
	case "", "local":
		return NewLocalDiskFromEnv()
	case "s3":
		return NewS3DiskFromEnv(ctx)
	default:
		return nil, fmt.Errorf("storage: unknown disk %q (supported: local, s3)", name)
	}
}

// NewKey returns a fresh key under dir, keeping a known image extension.
func NewKey(dir, contentType string) string {
	return path.Join(dir, uuid.NewString()+extensionFor(contentType))
}

func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

// cleanKey rejects keys that could escape the disk root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return k, nil
}
