package constants

import "strings"

const (
	MediaTypePDF         = "application/pdf"
	MediaTypeOctetStream = "application/octet-stream"
	mediaTypeImagePrefix = "image/"
)

// AllowedExtensions holds the file extensions picked up by directory batch intake.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"tif":  {},
	"tiff": {},
	"bmp":  {},
	"gif":  {},
	"webp": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt checks a (possibly dotted) extension against AllowedExtensions.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// NormalizeMediaType strips parameters and lowercases a media type.
func NormalizeMediaType(mt string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mt, ";")[0]))
}

// IsAcceptedMediaType reports whether intake accepts mt: PDF documents or any image.
func IsAcceptedMediaType(mt string) bool {
	mt = NormalizeMediaType(mt)
	return mt == MediaTypePDF || (strings.HasPrefix(mt, mediaTypeImagePrefix) && len(mt) > len(mediaTypeImagePrefix))
}

// IsPDF reports whether mt names a PDF document.
func IsPDF(mt string) bool {
	return NormalizeMediaType(mt) == MediaTypePDF
}
