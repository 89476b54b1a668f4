package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidationFamily(t *testing.T) {
	assert.True(t, IsValidationFamily(Clone(ErrNotAllowedExtension, "solo pdf")))
	assert.True(t, IsValidationFamily(fmt.Errorf("subir: %w", ErrUpload)))
	assert.False(t, IsValidationFamily(ErrInternal))
	assert.False(t, IsValidationFamily(sql.ErrNoRows))
	assert.False(t, IsValidationFamily(nil))
}

func TestCloneMatchesSentinel(t *testing.T) {
	err := Wrap(errors.New("boom"), ErrFileNotFound.Code, ErrFileNotFound.Status, "no hay blob")
	assert.True(t, errors.Is(err, ErrFileNotFound))
	assert.False(t, errors.Is(err, ErrBucketNotFound))
	assert.Equal(t, http.StatusNotFound, FromError(err).Status)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	err := FromError(errors.New("unexpected"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Nil(t, FromError(nil))
}
