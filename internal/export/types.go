// Package export renders case registers as CSV, XLSX, or PDF downloads.
package export

import "errors"

// Format represents the export output format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrUnsupportedFormat indicates the requested format is not one of csv, xlsx, pdf.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
