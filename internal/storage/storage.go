// Package storage publishes rendered documents to an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"eventflow/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrNotConfigured = errors.New("storage: no object store configured")

// Publisher persists a blob under path and resolves its public locator.
// Publishing twice to the same path overwrites.
type Publisher interface {
	Publish(ctx context.Context, path string, data []byte, contentType string) error
	Locator(path string) (string, error)
}

type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader *bytes.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type minioPutter struct{ c *minio.Client }

func (p minioPutter) PutObject(ctx context.Context, bucket, name string, r *bytes.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return p.c.PutObject(ctx, bucket, name, r, size, opts)
}

type ObjectStore struct {
	putter     objectPutter
	bucket     string
	publicBase string
}

func New(cfg config.StorageConfig) (*ObjectStore, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return newObjectStore(minioPutter{c: client}, cfg.Bucket, cfg.PublicBaseURL)
}

func newObjectStore(p objectPutter, bucket, publicBase string) (*ObjectStore, error) {
	if bucket == "" {
		return nil, errors.New("storage: bucket is empty")
	}
	if _, err := url.Parse(publicBase); err != nil || publicBase == "" {
		return nil, fmt.Errorf("storage: invalid public base url %q", publicBase)
	}
	return &ObjectStore{putter: p, bucket: bucket, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

func (s *ObjectStore) Publish(ctx context.Context, path string, data []byte, contentType string) error {
	if len(data) == 0 {
		return errors.New("storage: empty document")
	}
	_, err := s.putter.PutObject(ctx, s.bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", s.bucket, path, err)
	}
	return nil
}

func (s *ObjectStore) Locator(path string) (string, error) {
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return "", errors.New("storage: empty path")
	}
	u, err := url.Parse(s.publicBase + "/" + path)
	if err != nil {
		return "", fmt.Errorf("locator %s: %w", path, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("locator %s: not an http url", path)
	}
	return u.String(), nil
}

// Unconfigured is used when no object store is set up; every publish fails,
// which leaves invoices without a document link.
type Unconfigured struct{}

func (Unconfigured) Publish(context.Context, string, []byte, string) error { return ErrNotConfigured }

func (Unconfigured) Locator(string) (string, error) { return "", ErrNotConfigured }
