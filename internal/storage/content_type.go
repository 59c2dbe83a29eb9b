package storage

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// DetectContentType picks a MIME type for a blob. An explicit type wins,
// then the key's extension, then sniffing the leading bytes.
func DetectContentType(provided, key string, head []byte) string {
	if provided != "" {
		return provided
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(key))); ct != "" {
		return ct
	}
	if len(head) > 0 {
		return http.DetectContentType(head)
	}
	return "application/octet-stream"
}

// uploadImageTypes are the formats accepted for injury photos. Each is
// decodable by the photo pipeline.
var uploadImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
}

func baseType(contentType string) string {
	t, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(strings.ToLower(t))
}

// IsAllowedImageType reports whether an uploaded photo can be processed.
func IsAllowedImageType(contentType string) bool {
	return uploadImageTypes[baseType(contentType)]
}

// IsImage reports whether the content type is any image format.
func IsImage(contentType string) bool {
	return strings.HasPrefix(baseType(contentType), "image/")
}
