package constants

import "strings"

// Document formats understood by the text extractor.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
	DOCX  = "DOCX"
	TXT   = "TXT"
)

// FileTypes holds the formats a document can be routed to.
var FileTypes = []string{PDF, IMAGE, DOCX, TXT}

// ImageExtensions are OCR'd directly, with no text-layer attempt.
var ImageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"bmp":  {},
	"tiff": {},
	"tif":  {},
}

// AllowedExtensions holds every extension the extractor accepts.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"docx": {},
	"txt":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"bmp":  {},
	"tiff": {},
	"tif":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToFormat returns the format for a normalized or raw extension, or "" when unsupported.
func MapExtToFormat(ext string) string {
	ext = NormalizeExt(ext)
	switch ext {
	case "pdf":
		return PDF
	case "docx":
		return DOCX
	case "txt":
		return TXT
	}
	if _, ok := ImageExtensions[ext]; ok {
		return IMAGE
	}
	return ""
}
