package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"eventflow/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (f *fakePutter) PutObject(_ context.Context, bucket, name string, r *bytes.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	b, _ := io.ReadAll(r)
	f.objects[bucket+"/"+name] = b
	f.types[bucket+"/"+name] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: name, Size: int64(len(b))}, nil
}

func TestPublishOverwrites(t *testing.T) {
	p := &fakePutter{objects: map[string][]byte{}, types: map[string]string{}}
	s, err := newObjectStore(p, "invoices", "https://cdn.eventflow.test/invoices/")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Publish(ctx, "2024/02/a.pdf", []byte("v1"), "application/pdf"))
	require.NoError(t, s.Publish(ctx, "2024/02/a.pdf", []byte("v2"), "application/pdf"))
	require.Len(t, p.objects, 1)
	require.Equal(t, []byte("v2"), p.objects["invoices/2024/02/a.pdf"])
	require.Equal(t, "application/pdf", p.types["invoices/2024/02/a.pdf"])

	loc, err := s.Locator("2024/02/a.pdf")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.eventflow.test/invoices/2024/02/a.pdf", loc)
}

func TestPublishErrors(t *testing.T) {
	p := &fakePutter{objects: map[string][]byte{}, types: map[string]string{}, err: errors.New("403 forbidden")}
	s, err := newObjectStore(p, "invoices", "https://cdn.eventflow.test")
	require.NoError(t, err)

	require.ErrorContains(t, s.Publish(context.Background(), "x.pdf", []byte("pdf"), "application/pdf"), "403")
	require.Error(t, s.Publish(context.Background(), "x.pdf", nil, "application/pdf"))
	_, err = s.Locator("")
	require.Error(t, err)
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New(config.StorageConfig{})
	require.ErrorIs(t, err, ErrNotConfigured)

	_, err = Unconfigured{}.Locator("a")
	require.ErrorIs(t, err, ErrNotConfigured)
}
