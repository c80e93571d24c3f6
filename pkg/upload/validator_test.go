package upload

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/cybercell/cybercell-api/pkg/errors"
)

func pngBytes(extra int) []byte {
	header := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	return append(header, bytes.Repeat([]byte{0x00}, extra)...)
}

func pngFile(size int64, content []byte) File {
	return File{Filename: "photo.png", Size: size, MimeType: "image/png", Content: bytes.NewReader(content)}
}

func TestValidateAcceptsCleanPNG(t *testing.T) {
	v := NewValidator(EvidenceExtensions, DefaultMaxSize, nil)

	errs := v.Validate(pngFile(1024, pngBytes(64)))
	assert.Empty(t, errs)
}

func TestValidateRejectsUnsupportedExtension(t *testing.T) {
	v := NewValidator(EvidenceExtensions, DefaultMaxSize, nil)

	file := File{Filename: "malware.exe", Size: 100, MimeType: "image/png", Content: bytes.NewReader(pngBytes(16))}
	errs := v.Validate(file)
	require.Len(t, errs, 1)
	assert.Equal(t, appErrors.ErrUnsupportedExtension.Code, errs[0].Code)
}

func TestValidateExtensionCaseInsensitive(t *testing.T) {
	v := NewValidator(EvidenceExtensions, DefaultMaxSize, nil)

	file := File{Filename: "PHOTO.JPG", Size: 100, MimeType: "image/jpeg", Content: bytes.NewReader([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10})}
	errs := v.Validate(file)
	assert.Empty(t, errs)
}

func TestValidateSizeBoundary(t *testing.T) {
	v := NewValidator(EvidenceExtensions, DefaultMaxSize, nil)

	atLimit := pngFile(DefaultMaxSize, pngBytes(16))
	assert.Empty(t, v.Validate(atLimit))

	overLimit := pngFile(DefaultMaxSize+1, pngBytes(16))
	errs := v.Validate(overLimit)
	require.Len(t, errs, 1)
	assert.Equal(t, appErrors.ErrFileTooLarge.Code, errs[0].Code)
}

func TestValidateRejectsMismatchedMagicBytes(t *testing.T) {
	v := NewValidator(EvidenceExtensions, DefaultMaxSize, nil)

	// Declared PNG, actual content is an executable-looking blob.
	file := File{Filename: "evidence.png", Size: 64, MimeType: "image/png", Content: bytes.NewReader([]byte("MZ\x90\x00 not an image"))}
	errs := v.Validate(file)
	require.Len(t, errs, 1)
	assert.Equal(t, appErrors.ErrInvalidFileContent.Code, errs[0].Code)
}

func TestValidateRejectsUnlistedMIME(t *testing.T) {
	v := NewValidator(EvidenceExtensions, DefaultMaxSize, nil)

	file := File{Filename: "page.jpg", Size: 64, MimeType: "text/html", Content: bytes.NewReader([]byte("<html>"))}
	errs := v.Validate(file)
	require.Len(t, errs, 1)
	assert.Equal(t, appErrors.ErrInvalidFileContent.Code, errs[0].Code)
}

func TestValidateDOCXRequiresZipContainer(t *testing.T) {
	v := NewValidator(EvidenceExtensions, DefaultMaxSize, nil)
	const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	good := File{Filename: "statement.docx", Size: 64, MimeType: docxMIME,
		Content: bytes.NewReader(append([]byte{0x50, 0x4B, 0x03, 0x04}, bytes.Repeat([]byte{0x00}, 16)...))}
	assert.Empty(t, v.Validate(good))

	bad := File{Filename: "statement.docx", Size: 64, MimeType: docxMIME, Content: bytes.NewReader([]byte("plain text pretending"))}
	errs := v.Validate(bad)
	require.Len(t, errs, 1)
	assert.Equal(t, appErrors.ErrInvalidFileContent.Code, errs[0].Code)
}

func TestValidateDOCRequiresOLEContainer(t *testing.T) {
	v := NewValidator(EvidenceExtensions, DefaultMaxSize, nil)

	good := File{Filename: "statement.doc", Size: 64, MimeType: "application/msword",
		Content: bytes.NewReader(append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, 0x00, 0x00))}
	assert.Empty(t, v.Validate(good))

	bad := File{Filename: "statement.doc", Size: 64, MimeType: "application/msword", Content: bytes.NewReader([]byte("not an ole file"))}
	errs := v.Validate(bad)
	require.Len(t, errs, 1)
	assert.Equal(t, appErrors.ErrInvalidFileContent.Code, errs[0].Code)
}

func TestValidateMIMEParametersIgnored(t *testing.T) {
	v := NewValidator(EvidenceExtensions, DefaultMaxSize, nil)

	file := File{Filename: "photo.png", Size: 64, MimeType: "image/PNG; charset=binary", Content: bytes.NewReader(pngBytes(16))}
	assert.Empty(t, v.Validate(file))
}

func TestValidateAggregatesAllFailures(t *testing.T) {
	v := NewValidator(ImageExtensions, 1024, []string{"image/jpeg", "image/png"})

	file := File{Filename: "huge.pdf", Size: 4096, MimeType: "application/pdf", Content: bytes.NewReader([]byte("%PDF-1.7"))}
	errs := v.Validate(file)
	require.Len(t, errs, 3)
	codes := make(map[string]bool)
	for _, e := range errs {
		codes[e.Code] = true
	}
	assert.True(t, codes[appErrors.ErrUnsupportedExtension.Code])
	assert.True(t, codes[appErrors.ErrFileTooLarge.Code])
	assert.True(t, codes[appErrors.ErrInvalidFileContent.Code])
}

func TestValidateRewindsStream(t *testing.T) {
	v := NewValidator(EvidenceExtensions, DefaultMaxSize, nil)
	content := pngBytes(64)
	reader := bytes.NewReader(content)

	errs := v.Validate(File{Filename: "photo.png", Size: int64(len(content)), MimeType: "image/png", Content: reader})
	require.Empty(t, errs)

	rest, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, rest)
}

func TestValidateFailsClosedOnNilStream(t *testing.T) {
	v := NewValidator(EvidenceExtensions, DefaultMaxSize, nil)

	errs := v.Validate(File{Filename: "photo.png", Size: 64, MimeType: "image/png", Content: nil})
	require.Len(t, errs, 1)
	assert.Equal(t, appErrors.ErrContentVerificationFailed.Code, errs[0].Code)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "5.0 MiB", FormatSize(5*1024*1024))
}
