package constants

import "strings"

// PDFExtension is the only accepted input extension.
const PDFExtension = "pdf"

// PDFMimeType is the sniffed content type required for non-empty inputs.
const PDFMimeType = "application/pdf"

// MaxPDFSizeMBDefault caps input size.
const MaxPDFSizeMBDefault = 100

// PageMarkerFormat introduces each page in extracted document text.
const PageMarkerFormat = "--- Page %d ---"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
