package upload

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	appErrors "github.com/cybercell/cybercell-api/pkg/errors"
)

// File carries upload metadata and the content stream. MimeType is the
// declared content type from the request; the sniffing stage verifies it
// against the actual leading bytes.
type File struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// Validator screens uploaded files before they are trusted. The three stages
// (extension, size, content) run independently so a single submission can
// report every problem at once.
type Validator struct {
	allowedExts map[string]struct{}
	extList     []string
	maxSize     int64
	allowedMIMEs map[string]struct{}
}

// EvidenceExtensions is the allow-list for evidence attachments.
var EvidenceExtensions = []string{".jpg", ".jpeg", ".png", ".pdf", ".doc", ".docx"}

// ImageExtensions is the narrower allow-list for profile pictures.
var ImageExtensions = []string{".jpg", ".jpeg", ".png"}

// DefaultMaxSize is the upload ceiling applied when none is configured.
const DefaultMaxSize = 5 * 1024 * 1024

var defaultMIMEs = []string{
	"image/jpeg",
	"image/png",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Magic signatures checked against the first bytes of the stream.
var (
	jpegSignatures = [][]byte{{0xFF, 0xD8, 0xFF, 0xE0}, {0xFF, 0xD8, 0xFF, 0xE1}}
	pngSignature   = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	pdfSignature   = []byte("%PDF-")
	zipSignature   = []byte{0x50, 0x4B, 0x03, 0x04}
	oleSignature   = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// NewValidator builds a validator for the given extension allow-list and size
// ceiling. A non-positive ceiling falls back to DefaultMaxSize; a nil MIME
// list falls back to the system-wide allow-list.
func NewValidator(extensions []string, maxSize int64, mimes []string) *Validator {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if len(mimes) == 0 {
		mimes = defaultMIMEs
	}
	extSet := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = struct{}{}
	}
	mimeSet := make(map[string]struct{}, len(mimes))
	for _, mt := range mimes {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &Validator{
		allowedExts:  extSet,
		extList:      extensions,
		maxSize:      maxSize,
		allowedMIMEs: mimeSet,
	}
}

// Validate runs every stage and returns all failures. An empty slice means
// the file may be trusted. The content stream is rewound to the start before
// returning so later consumers see the complete bytes.
func (v *Validator) Validate(f File) []*appErrors.Error {
	var errs []*appErrors.Error
	if err := v.checkExtension(f.Filename); err != nil {
		errs = append(errs, err)
	}
	if err := v.checkSize(f.Size); err != nil {
		errs = append(errs, err)
	}
	if err := v.checkContent(f); err != nil {
		errs = append(errs, err)
	}
	return errs
}

func (v *Validator) checkExtension(filename string) *appErrors.Error {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := v.allowedExts[ext]; !ok {
		return appErrors.Clone(appErrors.ErrUnsupportedExtension,
			fmt.Sprintf("unsupported file extension; allowed extensions are: %s", strings.Join(v.extList, ", ")))
	}
	return nil
}

func (v *Validator) checkSize(size int64) *appErrors.Error {
	if size > v.maxSize {
		return appErrors.Clone(appErrors.ErrFileTooLarge,
			fmt.Sprintf("please keep filesize under %s; current filesize %s", FormatSize(v.maxSize), FormatSize(size)))
	}
	return nil
}

// checkContent verifies the declared MIME type against the allow-list and the
// actual leading bytes. It fails closed on read errors and rewinds the stream
// on every path.
func (v *Validator) checkContent(f File) *appErrors.Error {
	mime := strings.ToLower(strings.TrimSpace(f.MimeType))
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if _, ok := v.allowedMIMEs[mime]; !ok {
		return appErrors.Clone(appErrors.ErrInvalidFileContent, "unsupported file type")
	}
	if f.Content == nil {
		return appErrors.Clone(appErrors.ErrContentVerificationFailed, "unable to verify file content")
	}

	header := make([]byte, 10)
	n, err := io.ReadFull(f.Content, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return appErrors.Clone(appErrors.ErrContentVerificationFailed, "unable to verify file content")
	}
	header = header[:n]
	if _, err := f.Content.Seek(0, io.SeekStart); err != nil {
		return appErrors.Clone(appErrors.ErrContentVerificationFailed, "unable to verify file content")
	}

	switch mime {
	case "image/jpeg":
		for _, sig := range jpegSignatures {
			if hasPrefix(header, sig) {
				return nil
			}
		}
		return appErrors.Clone(appErrors.ErrInvalidFileContent, "invalid JPEG file")
	case "image/png":
		if !hasPrefix(header, pngSignature) {
			return appErrors.Clone(appErrors.ErrInvalidFileContent, "invalid PNG file")
		}
	case "application/pdf":
		if !hasPrefix(header, pdfSignature) {
			return appErrors.Clone(appErrors.ErrInvalidFileContent, "invalid PDF file")
		}
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		// DOCX is a ZIP container; verify the local-file-header signature.
		if !hasPrefix(header, zipSignature) {
			return appErrors.Clone(appErrors.ErrInvalidFileContent, "invalid DOCX file")
		}
	case "application/msword":
		// Legacy DOC is an OLE compound file.
		if !hasPrefix(header, oleSignature) {
			return appErrors.Clone(appErrors.ErrInvalidFileContent, "invalid DOC file")
		}
	}
	return nil
}

func hasPrefix(data, sig []byte) bool {
	if len(data) < len(sig) {
		return false
	}
	for i := range sig {
		if data[i] != sig[i] {
			return false
		}
	}
	return true
}

// FormatSize renders a byte count in human-readable units.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
