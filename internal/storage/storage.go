// Package storage hosts product images in an S3-compatible object store.
// Content is streamed straight through and never touches local disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProductImagePrefix is the key namespace for catalog images. Only keys under
// it are served publicly.
const ProductImagePrefix = "products/"

var (
	// ErrObjectNotFound is returned by Get when the key does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrUnsupportedImage is returned by ImageKey for content types the storefront does not serve.
	ErrUnsupportedImage = errors.New("unsupported image type")
)

// imageExt maps accepted upload types to the extension stored in the key.
var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// PutObjectOptions describe an upload. Size is -1 when unknown.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the image host used by the catalog.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get streams an object. Callers close the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	// URL returns the address clients use to fetch the object.
	URL(key string) string
}

// ImageKey returns a fresh object key for a product image. Keys never repeat,
// so stored objects are immutable and can be cached forever.
func ImageKey(productID, contentType string) (string, error) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, contentType)
	}
	ext, ok := imageExt[mt]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, mt)
	}
	return ProductImagePrefix + path.Join(productID, uuid.NewString()+ext), nil
}

// IsProductImageKey reports whether key names an object under the product
// image namespace without escaping it.
func IsProductImageKey(key string) bool {
	if !strings.HasPrefix(key, ProductImagePrefix) || len(key) == len(ProductImagePrefix) {
		return false
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." || seg == "." {
			return false
		}
	}
	return path.Clean(key) == key
}
