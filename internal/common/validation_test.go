package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalPDFHeader = "%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestPDFInputRules(t *testing.T) {
	dir := t.TempDir()
	pdf := writeFile(t, dir, "report.PDF", minimalPDFHeader)
	empty := writeFile(t, dir, "empty.pdf", "")
	text := writeFile(t, dir, "notes.pdf", "just some plain text, not a pdf at all\n")
	wrongExt := writeFile(t, dir, "report.txt", minimalPDFHeader)
	big := writeFile(t, dir, "big.pdf", minimalPDFHeader+string(make([]byte, 2*1024*1024)))
	folder := filepath.Join(dir, "folder.pdf")
	require.NoError(t, os.Mkdir(folder, 0o755))

	tests := []struct {
		name    string
		path    string
		wantMsg string
	}{
		{"valid pdf with upper-case extension", pdf, ""},
		{"empty pdf passes sniffing", empty, ""},
		{"missing path", "", "is required"},
		{"wrong extension", wrongExt, "extension"},
		{"does not exist", filepath.Join(dir, "nope.pdf"), "does not exist"},
		{"directory", folder, "is not a regular file"},
		{"too large", big, "limit is"},
		{"not a pdf", text, "expected application/pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator().Field("inspection", tt.path, PDFInputRules(1)...)
			if tt.wantMsg == "" {
				assert.False(t, v.HasErrors(), v.ErrorMessage())
				return
			}
			require.True(t, v.HasErrors())
			assert.Contains(t, v.ErrorMessage(), tt.wantMsg)
		})
	}
}

func TestValidateAndReturnError(t *testing.T) {
	assert.NoError(t, ValidateAndReturnError(NewValidator()))

	v := NewValidator().Field("thermal", "", Required)
	err := ValidateAndReturnError(v)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInputValidation)
	assert.Contains(t, err.Error(), "thermal")
}

func TestMaxLength(t *testing.T) {
	rule := MaxLength(3)
	assert.Nil(t, rule("f", "abc"))
	assert.NotNil(t, rule("f", "abcd"))
	assert.Nil(t, rule("f", 42))
}
