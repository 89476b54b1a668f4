package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	appErrors "github.com/pjecz/hercules/pkg/errors"
)

// LocalBucket persists blobs on disk under <baseDir>/<name>.
type LocalBucket struct {
	name      string
	root      string
	publicURL string
	signer    *SignedURLSigner
}

// NewLocalBucket ensures the bucket directory exists and returns a handle.
func NewLocalBucket(baseDir, name, publicURL string, signer *SignedURLSigner) (*LocalBucket, error) {
	if baseDir == "" {
		baseDir = "./deposito"
	}
	root := filepath.Join(baseDir, name)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create bucket directory: %w", err)
	}
	return &LocalBucket{name: name, root: root, publicURL: strings.TrimRight(publicURL, "/"), signer: signer}, nil
}

func (b *LocalBucket) Name() string { return b.name }

// Upload writes data under key.
func (b *LocalBucket) Upload(_ context.Context, key, _ string, data []byte) (string, error) {
	path, err := b.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare blob directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return b.publicURL + "/" + b.name + "/" + key, nil
}

// Download reads the bytes stored under key.
func (b *LocalBucket) Download(_ context.Context, key string) ([]byte, error) {
	if _, err := os.Stat(b.root); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBucketNotFound.Code, appErrors.ErrBucketNotFound.Status, appErrors.ErrBucketNotFound.Message)
	}
	path, err := b.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Wrap(err, appErrors.ErrFileNotFound.Code, appErrors.ErrFileNotFound.Status, "no se encontro "+key)
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// SignedURL returns a link served by the application itself, valid for ttl.
func (b *LocalBucket) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if b.signer == nil {
		return "", appErrors.Clone(appErrors.ErrMissingConfiguration, "falta el firmador de urls")
	}
	token, _, err := b.signer.GenerateWithTTL(b.name, key, ttl)
	if err != nil {
		return "", err
	}
	return b.publicURL + "/firmado/" + url.PathEscape(token), nil
}

// Resolve validates a signed token issued by this bucket and returns its blob key.
func (b *LocalBucket) Resolve(token string) (string, error) {
	if b.signer == nil {
		return "", appErrors.Clone(appErrors.ErrMissingConfiguration, "falta el firmador de urls")
	}
	scope, key, _, err := b.signer.Parse(token, false)
	if err != nil || scope != b.name {
		return "", appErrors.Clone(appErrors.ErrNotValidParam, "enlace no valido o vencido")
	}
	return key, nil
}

// Delete removes a stored blob if present.
func (b *LocalBucket) Delete(_ context.Context, key string) error {
	path, err := b.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (b *LocalBucket) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if key == "" || strings.Contains(key, "..") || clean == "/" {
		return "", appErrors.Clone(appErrors.ErrNotValidParam, "clave de archivo no valida")
	}
	return filepath.Join(b.root, clean), nil
}
