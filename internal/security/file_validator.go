package security

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

// DefaultMaxSourceKB bounds the files the reducer will load
const DefaultMaxSourceKB = 2048

// SourceValidator rejects inputs that are not C# source text before they
// reach the parser: oversized files, binaries saved with a code extension
// and text in encodings the parser cannot read.
type SourceValidator struct {
	MaxBytes   int64 // zero disables the size check
	HeaderSize int   // bytes inspected for binary content
}

// NewSourceValidator creates a validator with a size limit in KB
func NewSourceValidator(maxKB int64) *SourceValidator {
	return &SourceValidator{
		MaxBytes:   maxKB * 1024,
		HeaderSize: 64 * 1024,
	}
}

// ValidateSize checks a file size before it is read
func (sv *SourceValidator) ValidateSize(path string, size int64) error {
	if sv.MaxBytes > 0 && size > sv.MaxBytes {
		return fmt.Errorf("%s is %d KB, over the %d KB limit", path, size/1024, sv.MaxBytes/1024)
	}
	return nil
}

// Validate checks that data looks like C# source text
func (sv *SourceValidator) Validate(path string, data []byte) error {
	if err := sv.ValidateSize(path, int64(len(data))); err != nil {
		return err
	}
	header := data
	if sv.HeaderSize > 0 && len(header) > sv.HeaderSize {
		header = header[:sv.HeaderSize]
	}
	if err := sv.checkMagicBytes(path, header); err != nil {
		return err
	}
	if bytes.HasPrefix(header, []byte{0xFF, 0xFE}) || bytes.HasPrefix(header, []byte{0xFE, 0xFF}) {
		return fmt.Errorf("%s is UTF-16 encoded; convert it to UTF-8 first", path)
	}
	if sv.isBinaryData(header) {
		return fmt.Errorf("%s appears to be binary", path)
	}
	if !utf8.Valid(bytes.TrimPrefix(header[:lastRuneBoundary(header)], utf8BOM)) {
		return fmt.Errorf("%s is not valid UTF-8", path)
	}
	return nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// lastRuneBoundary trims a rune cut off by the header limit
func lastRuneBoundary(b []byte) int {
	for i := len(b); i > 0 && i > len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i-1]) {
			if utf8.FullRune(b[i-1:]) {
				return len(b)
			}
			return i - 1
		}
	}
	return len(b)
}

// signatures of binaries that sometimes end up with a .cs name
var magicBytes = []struct {
	kind  string
	magic []byte
}{
	{"PE executable", []byte{0x4D, 0x5A}},
	{"zip archive", []byte{0x50, 0x4B, 0x03, 0x04}},
	{"PNG image", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	{"PDF document", []byte{0x25, 0x50, 0x44, 0x46, 0x2D}},
	{"gzip archive", []byte{0x1F, 0x8B}},
}

// checkMagicBytes rejects known binary file signatures
func (sv *SourceValidator) checkMagicBytes(path string, header []byte) error {
	for _, m := range magicBytes {
		if bytes.HasPrefix(header, m.magic) {
			return fmt.Errorf("%s is a %s, not source text", path, m.kind)
		}
	}
	return nil
}

// isBinaryData reports data with NUL bytes or more than 30% control
// characters
func (sv *SourceValidator) isBinaryData(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return true
	}
	nonPrintable := 0
	for _, b := range data {
		// control characters other than tab, LF, VT, FF and CR
		if b < 9 || (b > 13 && b < 32) || b == 127 {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len(data)) > 0.3
}
