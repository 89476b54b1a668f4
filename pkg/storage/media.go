package storage

import (
	"path/filepath"
	"strings"

	appErrors "github.com/pjecz/hercules/pkg/errors"
)

// mediaTypes lists every extension the platform recognizes.
var mediaTypes = map[string]string{
	"csv":  "text/csv",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"exe":  "application/vnd.microsoft.portable-executable",
	"gif":  "image/gif",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"json": "application/json",
	"mp3":  "audio/mpeg",
	"mp4":  "video/mp4",
	"ods":  "application/vnd.oasis.opendocument.spreadsheet",
	"odt":  "application/vnd.oasis.opendocument.text",
	"pdf":  "application/pdf",
	"png":  "image/png",
	"txt":  "text/plain",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"xml":  "application/xml",
	"zip":  "application/zip",
}

// Extension returns the lowercase extension of filename without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(strings.TrimSpace(filename)), "."))
}

// MediaType infers the content type of filename and checks it against allowed.
// An empty allowed list accepts every known extension.
func MediaType(filename string, allowed []string) (string, string, error) {
	name := strings.TrimSpace(filename)
	if name == "" || strings.HasPrefix(filepath.Base(name), ".") {
		return "", "", appErrors.Clone(appErrors.ErrFilename, "nombre de archivo vacio o no valido")
	}
	ext := Extension(name)
	if ext == "" {
		return "", "", appErrors.Clone(appErrors.ErrFilename, "el archivo no tiene extension")
	}
	contentType, ok := mediaTypes[ext]
	if !ok {
		return "", "", appErrors.Clone(appErrors.ErrUnknownExtension, "extension desconocida: "+ext)
	}
	if len(allowed) > 0 && !contains(allowed, ext) {
		return "", "", appErrors.Clone(appErrors.ErrNotAllowedExtension, "solo se permiten: "+strings.Join(allowed, ", "))
	}
	return ext, contentType, nil
}

// ContentTypeFor returns the registered type of an extension, or a generic binary type.
func ContentTypeFor(ext string) string {
	if ct, ok := mediaTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}
