package pdfvalidation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizePDFTrimsTrailingGarbage(t *testing.T) {
	in := []byte("%PDF-1.4\nbody\n%%EOF\r\n<html>proxy junk</html>")
	assert.Equal(t, "%PDF-1.4\nbody\n%%EOF\r\n", string(sanitizePDF(in)))

	plain := []byte("not a pdf %%EOF junk")
	assert.Equal(t, plain, sanitizePDF(plain))
}

func TestValidatePDFBytesRejectsNonPDF(t *testing.T) {
	_, err := ValidatePDFBytes([]byte("hello"), FileItemLimits)
	assert.ErrorIs(t, err, ErrNotPDF)
}

func TestPageCountUnreadable(t *testing.T) {
	_, err := PageCount([]byte("%PDF-1.4\nthis is not really a pdf\n%%EOF"))
	assert.ErrorIs(t, err, ErrUnreadable)
}
