package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	appErrors "github.com/pjecz/hercules/pkg/errors"
	"github.com/pjecz/hercules/pkg/safe"
)

var monthWords = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

const slugMaxLen = 64

// Scope builds the dated blob key of one upload and sends the bytes to its bucket.
// Call SetContentType, then SetFilename, then Upload.
type Scope struct {
	Bucket            Bucket
	BaseDirectory     string
	UploadDate        time.Time
	AllowedExtensions []string
	MonthInWord       bool

	extension   string
	contentType string
	key         string
}

// SetContentType validates filename's extension against the whitelist.
func (s *Scope) SetContentType(filename string) error {
	ext, ct, err := MediaType(filename, s.AllowedExtensions)
	if err != nil {
		return err
	}
	s.extension, s.contentType = ext, ct
	return nil
}

// SetFilename computes <base>/YYYY/MM/DD/<hashedID>-<slug>.<ext>.
func (s *Scope) SetFilename(hashedID, description string) (string, error) {
	if s.extension == "" {
		return "", appErrors.Clone(appErrors.ErrFilename, "primero defina el tipo de contenido")
	}
	if strings.TrimSpace(hashedID) == "" {
		return "", appErrors.Clone(appErrors.ErrNotValidParam, "falta el identificador del archivo")
	}
	date := s.UploadDate
	if date.IsZero() {
		date = time.Now()
	}
	month := fmt.Sprintf("%02d", int(date.Month()))
	if s.MonthInWord {
		month = monthWords[date.Month()-1]
	}

	parts := make([]string, 0, 5)
	if base := strings.Trim(s.BaseDirectory, "/"); base != "" {
		parts = append(parts, base)
	}
	parts = append(parts,
		fmt.Sprintf("%04d", date.Year()),
		month,
		fmt.Sprintf("%02d", date.Day()),
		fmt.Sprintf("%s-%s.%s", hashedID, Slug(description), s.extension),
	)
	s.key = strings.Join(parts, "/")
	return s.key, nil
}

// Upload stores data under the computed key and returns the public URL.
func (s *Scope) Upload(ctx context.Context, data []byte) (string, error) {
	if s.Bucket == nil {
		return "", appErrors.Clone(appErrors.ErrMissingConfiguration, "deposito no configurado")
	}
	if s.key == "" {
		return "", appErrors.Clone(appErrors.ErrFilename, "primero defina el nombre del archivo")
	}
	if len(data) == 0 {
		return "", appErrors.Clone(appErrors.ErrEmpty, "el archivo esta vacio")
	}
	return s.Bucket.Upload(ctx, s.key, s.contentType, data)
}

func (s *Scope) Key() string         { return s.key }
func (s *Scope) Extension() string   { return s.extension }
func (s *Scope) ContentType() string { return s.contentType }

// Slug turns a description into a lowercase ASCII fragment safe for blob keys.
func Slug(description string) string {
	clean := strings.ToLower(safe.String(description, safe.StringOptions{MaxLen: slugMaxLen}))
	var b strings.Builder
	dash := false
	for _, r := range clean {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return "archivo"
	}
	return b.String()
}
