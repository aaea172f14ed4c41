package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"furnistore/internal/config"
	"furnistore/internal/logging"
)

// ImageProxyPrefix is the API path that streams images when no public base URL is configured.
const ImageProxyPrefix = "/images/"

const immutableCache = "public, max-age=31536000, immutable"

// minioStorage keeps product images in a single bucket. Safe for concurrent use.
type minioStorage struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMinIO connects to the image bucket, creating it if missing. When a public
// base URL is configured the bucket also gets an anonymous read policy for
// product images so browsers can fetch them directly.
func NewMinIO(ctx context.Context, cfg config.MinIOConfig, loc *time.Location) (Storage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
		logging.JSON(loc, map[string]any{
			"component": "storage",
			"event":     "bucket_created",
			"bucket":    cfg.Bucket,
		})
	}

	if cfg.PublicBaseURL != "" {
		if err := cli.SetBucketPolicy(ctx, cfg.Bucket, publicReadPolicy(cfg.Bucket)); err != nil {
			return nil, fmt.Errorf("set bucket policy: %w", err)
		}
	}

	return &minioStorage{
		client:  cli,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// publicReadPolicy allows anonymous GetObject on the product image prefix only.
func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/%s*"]}]}`,
		bucket, ProductImagePrefix)
}

func (m *minioStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	size := opt.Size
	if size <= 0 {
		size = -1
	}
	info, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  opt.ContentType,
		UserMetadata: opt.Metadata,
		CacheControl: immutableCache,
	})
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{
		Key:          key,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  opt.ContentType,
		LastModified: info.LastModified,
		Metadata:     opt.Metadata,
	}, nil
}

func (m *minioStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, translate(err)
	}
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, ObjectInfo{}, translate(err)
	}
	return obj, ObjectInfo{
		Key:          key,
		Size:         st.Size,
		ETag:         st.ETag,
		ContentType:  st.ContentType,
		LastModified: st.LastModified,
		Metadata:     st.UserMetadata,
	}, nil
}

// Delete is idempotent: S3 reports success for missing keys.
func (m *minioStorage) Delete(ctx context.Context, key string) error {
	return translate(m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}))
}

func (m *minioStorage) URL(key string) string {
	return PublicURL(m.baseURL, key)
}

// translate maps S3 "no such key" responses to ErrObjectNotFound.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && (resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound) {
		return ErrObjectNotFound
	}
	return err
}

// PublicURL joins a base URL and object key. With an empty base the API image proxy path is used.
func PublicURL(baseURL, key string) string {
	key = strings.TrimPrefix(key, "/")
	if baseURL == "" {
		return ImageProxyPrefix + key
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + key
}
