package media

import (
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// AllowedUploadTypes are the sniffed content types accepted for upload.
var AllowedUploadTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// DetectContentType sniffs the MIME type from the content itself, ignoring
// file names and client supplied headers.
func DetectContentType(r io.Reader) (string, error) {
	mtype, err := mimetype.DetectReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to detect content type: %w", err)
	}
	return mtype.String(), nil
}

// IsAllowedUploadType reports whether a sniffed MIME type may be uploaded.
func IsAllowedUploadType(contentType string) bool {
	return AllowedUploadTypes[contentType]
}
