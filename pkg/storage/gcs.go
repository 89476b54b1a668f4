package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"

	appErrors "github.com/pjecz/hercules/pkg/errors"
)

const gcsPublicHost = "https://storage.googleapis.com"

// GCSBucket stores blobs in Google Cloud Storage.
type GCSBucket struct {
	name   string
	handle *gcs.BucketHandle
}

func NewGCSBucket(client *gcs.Client, name string) *GCSBucket {
	return &GCSBucket{name: name, handle: client.Bucket(name)}
}

func (b *GCSBucket) Name() string { return b.name }

func (b *GCSBucket) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	w := b.handle.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", translateGCS(err, key)
	}
	if err := w.Close(); err != nil {
		return "", translateGCS(err, key)
	}
	return fmt.Sprintf("%s/%s/%s", gcsPublicHost, b.name, key), nil
}

func (b *GCSBucket) Download(ctx context.Context, key string) ([]byte, error) {
	r, err := b.handle.Object(key).NewReader(ctx)
	if err != nil {
		return nil, translateGCS(err, key)
	}
	defer r.Close() //nolint:errcheck
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}
	return data, nil
}

func (b *GCSBucket) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	signed, err := b.handle.SignedURL(key, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("sign blob %s: %w", key, err)
	}
	return signed, nil
}

func (b *GCSBucket) Delete(ctx context.Context, key string) error {
	if err := b.handle.Object(key).Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return translateGCS(err, key)
	}
	return nil
}

func translateGCS(err error, key string) error {
	switch {
	case errors.Is(err, gcs.ErrBucketNotExist):
		return appErrors.Wrap(err, appErrors.ErrBucketNotFound.Code, appErrors.ErrBucketNotFound.Status, appErrors.ErrBucketNotFound.Message)
	case errors.Is(err, gcs.ErrObjectNotExist):
		return appErrors.Wrap(err, appErrors.ErrFileNotFound.Code, appErrors.ErrFileNotFound.Status, "no se encontro "+key)
	default:
		return fmt.Errorf("gcs %s: %w", key, err)
	}
}
