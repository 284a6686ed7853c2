package pdfvalidation

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

var (
	ErrNotPDF     = errors.New("invalid PDF file: missing PDF header")
	ErrNoPages    = errors.New("PDF has no pages")
	ErrTooMany    = errors.New("PDF exceeds the page limit")
	ErrUnreadable = errors.New("failed to read PDF")
)

// PDFLimits defines the validation limits for PDF uploads
type PDFLimits struct {
	MaxPages         int    // 0 means unlimited
	DocumentTypeName string // For error messages (e.g., "file item")
}

// FileItemLimits applies to PDFs uploaded as file items
var FileItemLimits = PDFLimits{
	MaxPages:         2000,
	DocumentTypeName: "file item",
}

// ValidatePDFBytes checks the header and page count of a PDF and returns
// the number of pages
func ValidatePDFBytes(content []byte, limits PDFLimits) (int, error) {
	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return 0, ErrNotPDF
	}

	pageCount, err := PageCount(content)
	if err != nil {
		return 0, err
	}
	if pageCount == 0 {
		return 0, ErrNoPages
	}
	if limits.MaxPages > 0 && pageCount > limits.MaxPages {
		return pageCount, fmt.Errorf("%w: %d pages, the maximum for a %s is %d",
			ErrTooMany, pageCount, limits.DocumentTypeName, limits.MaxPages)
	}
	return pageCount, nil
}

// PageCount returns the number of pages in a PDF
func PageCount(content []byte) (pages int, err error) {
	// the pdf reader panics on some malformed documents
	defer func() {
		if r := recover(); r != nil {
			pages, err = 0, fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	content = sanitizePDF(content)
	pdfReader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return pdfReader.NumPage(), nil
}

// sanitizePDF removes trailing garbage after the last %%EOF marker
func sanitizePDF(content []byte) []byte {
	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return content
	}

	eofMarker := []byte("%%EOF")
	lastEOF := bytes.LastIndex(content, eofMarker)
	if lastEOF == -1 {
		return content
	}

	pdfEnd := lastEOF + len(eofMarker)
	for pdfEnd < len(content) && (content[pdfEnd] == '\n' || content[pdfEnd] == '\r') {
		pdfEnd++
	}
	return content[:pdfEnd]
}
