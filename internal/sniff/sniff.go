// Package sniff classifies downloaded content by inspecting its leading
// bytes. Classification is signature based; file extensions are never
// consulted.
package sniff

import "bytes"

// Format is the immutable type tag assigned to a downloaded content blob.
type Format int

const (
	// FormatUnknown is a legitimate terminal classification, not an error.
	FormatUnknown Format = iota
	// FormatEPUB is the archive container format (ZIP local file header).
	FormatEPUB
	// FormatPDF is the read-only document format.
	FormatPDF
)

var (
	zipMagic = []byte("PK")
	pdfMagic = []byte("%PDF")
)

// PrefixLen is the number of bytes Classify needs to make a decision.
const PrefixLen = 4

// Classify inspects a byte prefix and returns the content format. It is
// pure and deterministic; callers should pass at least PrefixLen bytes.
func Classify(prefix []byte) Format {
	switch {
	case bytes.HasPrefix(prefix, zipMagic):
		return FormatEPUB
	case bytes.HasPrefix(prefix, pdfMagic):
		return FormatPDF
	default:
		return FormatUnknown
	}
}

// Ext returns the file extension used when naming content of this format.
func (f Format) Ext() string {
	switch f {
	case FormatEPUB:
		return ".epub"
	case FormatPDF:
		return ".pdf"
	default:
		return ".bin"
	}
}

// String implements fmt.Stringer for log output.
func (f Format) String() string {
	switch f {
	case FormatEPUB:
		return "epub"
	case FormatPDF:
		return "pdf"
	default:
		return "unknown"
	}
}
