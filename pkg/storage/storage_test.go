package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/pjecz/hercules/pkg/errors"
)

func newLocal(t *testing.T) *LocalBucket {
	t.Helper()
	b, err := NewLocalBucket(t.TempDir(), "soportes", "http://localhost:8080/deposito", NewSignedURLSigner("s", time.Minute))
	require.NoError(t, err)
	return b
}

func TestScopeBuildsDatedKey(t *testing.T) {
	scope := &Scope{
		BaseDirectory:     "soportes_adjuntos",
		UploadDate:        time.Date(2024, time.May, 2, 10, 0, 0, 0, time.UTC),
		AllowedExtensions: []string{"pdf"},
	}
	require.NoError(t, scope.SetContentType("Acuerdo Final.PDF"))
	assert.Equal(t, "application/pdf", scope.ContentType())

	key, err := scope.SetFilename("aB3kX9zQ", "Acuerdo de admisión")
	require.NoError(t, err)
	assert.Equal(t, "soportes_adjuntos/2024/05/02/aB3kX9zQ-acuerdo-de-admision.pdf", key)

	scope.MonthInWord = true
	key, err = scope.SetFilename("aB3kX9zQ", "")
	require.NoError(t, err)
	assert.Equal(t, "soportes_adjuntos/2024/mayo/02/aB3kX9zQ-archivo.pdf", key)
}

func TestScopeContentTypeErrors(t *testing.T) {
	scope := &Scope{AllowedExtensions: []string{"pdf"}}

	err := scope.SetContentType("virus.exe")
	assert.True(t, errors.Is(err, appErrors.ErrNotAllowedExtension))

	err = scope.SetContentType("raro.qqq")
	assert.True(t, errors.Is(err, appErrors.ErrUnknownExtension))

	err = scope.SetContentType("sin_extension")
	assert.True(t, errors.Is(err, appErrors.ErrFilename))

	_, err = scope.SetFilename("abc", "x")
	assert.True(t, errors.Is(err, appErrors.ErrFilename))
}

func TestLocalBucketRoundTrip(t *testing.T) {
	ctx := context.Background()
	bucket := newLocal(t)
	scope := &Scope{Bucket: bucket, UploadDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, scope.SetContentType("nota.txt"))
	_, err := scope.SetFilename("h1", "nota")
	require.NoError(t, err)

	publicURL, err := scope.Upload(ctx, []byte("hola"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/deposito/soportes/2024/01/15/h1-nota.txt", publicURL)

	blob, err := BlobNameFromURL(publicURL, bucket.Name())
	require.NoError(t, err)
	assert.Equal(t, scope.Key(), blob)

	data, err := Download(ctx, bucket, blob)
	require.NoError(t, err)
	assert.Equal(t, "hola", string(data))

	signed, err := bucket.SignedURL(ctx, blob, time.Minute)
	require.NoError(t, err)
	token := signed[strings.LastIndex(signed, "/")+1:]
	reg := NewStaticRegistry(map[string]Bucket{"soportes": bucket}, time.Minute)
	resolved, key, err := reg.ResolveSigned(token)
	require.NoError(t, err)
	assert.Equal(t, bucket, resolved)
	assert.Equal(t, blob, key)
}

func TestDownloadTranslatesErrors(t *testing.T) {
	ctx := context.Background()
	bucket := newLocal(t)

	_, err := Download(ctx, bucket, "")
	assert.True(t, errors.Is(err, appErrors.ErrNotValidParam))

	_, err = Download(ctx, bucket, "../etc/passwd")
	assert.True(t, errors.Is(err, appErrors.ErrNotValidParam))

	_, err = Download(ctx, bucket, "2024/01/01/nada.pdf")
	assert.True(t, errors.Is(err, appErrors.ErrFileNotFound))

	_, err = Download(ctx, nil, "x.pdf")
	assert.True(t, errors.Is(err, appErrors.ErrBucketNotFound))
}

func TestBlobNameFromURL(t *testing.T) {
	blob, err := BlobNameFromURL("https://storage.googleapis.com/pjecz-soportes/a/2024/05/02/x-y.pdf", "pjecz-soportes")
	require.NoError(t, err)
	assert.Equal(t, "a/2024/05/02/x-y.pdf", blob)

	_, err = BlobNameFromURL("https://storage.googleapis.com/otro/a.pdf", "pjecz-soportes")
	assert.True(t, errors.Is(err, appErrors.ErrNotValidParam))
}

func TestRegistryMissingFamily(t *testing.T) {
	reg := NewStaticRegistry(map[string]Bucket{}, 0)
	_, err := reg.Bucket("tareas")
	assert.True(t, errors.Is(err, appErrors.ErrMissingConfiguration))
	assert.Equal(t, 15*time.Minute, reg.SignedURLTTL())
}
