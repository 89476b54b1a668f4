// Package storage wraps the object-store buckets that keep attachment bytes.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/pjecz/hercules/pkg/config"
	appErrors "github.com/pjecz/hercules/pkg/errors"
)

// Bucket is an object store addressed by blob key.
type Bucket interface {
	Name() string
	// Upload stores data under key and returns its public URL.
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
	// Download returns the stored bytes, translating driver errors into
	// ErrBucketNotFound, ErrFileNotFound or ErrNotValidParam.
	Download(ctx context.Context, key string) ([]byte, error)
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Registry maps attachment families to their bucket.
type Registry struct {
	buckets map[string]Bucket
	ttl     time.Duration
	client  *gcs.Client
}

// NewRegistry opens one bucket per configured family using the configured driver.
func NewRegistry(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	families := []string{config.BucketSoportes, config.BucketExhExhortos, config.BucketTareas}
	reg := &Registry{buckets: make(map[string]Bucket, len(families)), ttl: cfg.SignedURLTTL}

	switch cfg.Driver {
	case config.StorageDriverGCS:
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		reg.client = client
		for _, family := range families {
			name := cfg.BucketFor(family)
			if name == "" {
				logger.Warn("bucket not configured", zap.String("family", family))
				continue
			}
			reg.buckets[family] = NewGCSBucket(client, name)
		}
	default:
		signer := NewSignedURLSigner(cfg.SignedURLSecret, cfg.SignedURLTTL)
		for _, family := range families {
			name := cfg.BucketFor(family)
			if name == "" {
				name = family
			}
			bucket, err := NewLocalBucket(cfg.LocalDir, name, cfg.LocalPublicURL, signer)
			if err != nil {
				return nil, err
			}
			reg.buckets[family] = bucket
		}
	}

	return reg, nil
}

// NewStaticRegistry wires fixed buckets, mostly for tests and the CLI.
func NewStaticRegistry(buckets map[string]Bucket, ttl time.Duration) *Registry {
	return &Registry{buckets: buckets, ttl: ttl}
}

// Bucket returns the bucket for a family or ErrMissingConfiguration.
func (r *Registry) Bucket(family string) (Bucket, error) {
	if r != nil {
		if b, ok := r.buckets[family]; ok && b != nil {
			return b, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrMissingConfiguration, "falta el deposito para "+family)
}

// SignedURLTTL is the lifetime handed to SignedURL by callers that do not pick one.
func (r *Registry) SignedURLTTL() time.Duration {
	if r == nil || r.ttl <= 0 {
		return 15 * time.Minute
	}
	return r.ttl
}

// Close releases the cloud client, if any.
func (r *Registry) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

// Download reads blob from bucket after validating the key.
func Download(ctx context.Context, bucket Bucket, blob string) ([]byte, error) {
	if bucket == nil {
		return nil, appErrors.Clone(appErrors.ErrBucketNotFound, "deposito no configurado")
	}
	blob = strings.TrimSpace(blob)
	if blob == "" || strings.Contains(blob, "..") || strings.HasPrefix(blob, "/") {
		return nil, appErrors.Clone(appErrors.ErrNotValidParam, "clave de archivo no valida")
	}
	return bucket.Download(ctx, blob)
}

// BlobNameFromURL extracts the blob key from a public URL of the named bucket.
func BlobNameFromURL(rawURL, bucketName string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Path == "" {
		return "", appErrors.Clone(appErrors.ErrNotValidParam, "url de archivo no valida")
	}
	marker := "/" + bucketName + "/"
	idx := strings.Index(u.Path, marker)
	if bucketName == "" || idx < 0 {
		return "", appErrors.Clone(appErrors.ErrNotValidParam, "la url no pertenece al deposito")
	}
	blob := u.Path[idx+len(marker):]
	if blob == "" {
		return "", appErrors.Clone(appErrors.ErrNotValidParam, "url sin archivo")
	}
	return blob, nil
}

// ResolveSigned finds the local bucket that issued token and returns it with the blob key.
func (r *Registry) ResolveSigned(token string) (Bucket, string, error) {
	if r != nil {
		for _, b := range r.buckets {
			local, ok := b.(*LocalBucket)
			if !ok {
				continue
			}
			if key, err := local.Resolve(token); err == nil {
				return local, key, nil
			}
		}
	}
	return nil, "", appErrors.Clone(appErrors.ErrNotValidParam, "enlace no valido o vencido")
}
