package security

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	sv := NewSourceValidator(1)

	tests := []struct {
		name    string
		data    []byte
		wantErr string
	}{
		{"source", []byte("using System;\nclass C { }\n"), ""},
		{"bom", append([]byte{0xEF, 0xBB, 0xBF}, "class C { }"...), ""},
		{"unicode identifiers", []byte("class Café { string naïve; }"), ""},
		{"empty", nil, ""},
		{"executable", []byte("MZ\x90\x00\x03"), "PE executable"},
		{"zip", []byte("PK\x03\x04rest"), "zip archive"},
		{"nul bytes", []byte("class C {\x00}"), "binary"},
		{"utf16", []byte{0xFF, 0xFE, 'c', 0, 'l', 0}, "UTF-16"},
		{"latin1", []byte("class Caf\xe9 { }"), "not valid UTF-8"},
		{"too large", bytes.Repeat([]byte("a"), 2048), "over the 1 KB limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sv.Validate("C.cs", tt.data)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateHeaderCutsRune(t *testing.T) {
	sv := &SourceValidator{HeaderSize: 4}
	// "é" straddles the header limit
	assert.NoError(t, sv.Validate("C.cs", []byte("abc\xc3\xa9def")))
}

func TestValidateSize(t *testing.T) {
	sv := NewSourceValidator(0)
	assert.NoError(t, sv.ValidateSize("C.cs", 1<<40), "zero disables the limit")
	assert.Error(t, NewSourceValidator(DefaultMaxSourceKB).ValidateSize("C.cs", (DefaultMaxSourceKB+1)*1024))
}

func TestIsBinaryData(t *testing.T) {
	sv := NewSourceValidator(DefaultMaxSourceKB)
	assert.False(t, sv.isBinaryData([]byte("\tint x;\r\n")))
	assert.True(t, sv.isBinaryData([]byte{1, 2, 3, 'a'}))
}
