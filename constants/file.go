package constants

import "strings"

// AllowedExtensions holds the document extensions accepted for upload and inbox ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// XLSXContentType is served with downloaded artifacts.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// AllowedExt reports whether ext (with or without the dot) may be ingested.
func AllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
