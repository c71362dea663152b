package validation

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/nikogura/resume-analyzer/pkg/config"
	"github.com/pkg/errors"
)

// ErrInvalidSignature means the file content does not start with its format's magic bytes.
var ErrInvalidSignature = errors.New("invalid file signature")

// Result is the outcome of the upload gate.
type Result struct {
	Valid  bool
	Reason string
	// FileType is the extension without the dot, set when Valid.
	FileType string
	Size     int64
}

// Validator applies the size, extension, and upload prefix rules.
type Validator struct {
	maxFileSize int64
	extensions  []string
	prefixes    []string
}

// New creates a validator from the processing settings.
func New(cfg config.ProcessingConfig) (v *Validator) {
	v = &Validator{
		maxFileSize: cfg.MaxFileSize,
		extensions:  cfg.SupportedExtensions,
		prefixes:    cfg.UploadPrefixes,
	}
	return v
}

// Validate checks an object key and its reported size. Checks run in order and the first
// failing rule gives the reason.
func (v *Validator) Validate(key string, size int64) (result Result) {
	result.Size = size

	if size > v.maxFileSize {
		result.Reason = fmt.Sprintf("File size %d bytes exceeds maximum %d bytes", size, v.maxFileSize)
		return result
	}

	if size <= 0 {
		result.Reason = "File is empty"
		return result
	}

	lower := strings.ToLower(key)
	var ext string
	for _, candidate := range v.extensions {
		if strings.HasSuffix(lower, strings.ToLower(candidate)) {
			ext = candidate
			break
		}
	}
	if ext == "" {
		result.Reason = "Unsupported file type. Supported types: " + strings.Join(v.extensions, ", ")
		return result
	}

	inPath := false
	for _, prefix := range v.prefixes {
		if strings.HasPrefix(key, prefix) {
			inPath = true
			break
		}
	}
	if !inPath {
		result.Reason = "File not in resume upload path. Expected prefixes: " + strings.Join(v.prefixes, ", ")
		return result
	}

	result.Valid = true
	result.FileType = strings.TrimPrefix(strings.ToLower(ext), ".")

	return result
}

// CheckSignature verifies the magic bytes for fileType: "%PDF" for pdf, "PK" for docx.
// Other types are not checked.
func CheckSignature(content []byte, fileType string) (err error) {
	if len(content) == 0 {
		err = errors.New("file content is empty")
		return err
	}

	switch fileType {
	case "pdf":
		if !bytes.HasPrefix(content, []byte("%PDF")) {
			err = errors.Wrap(ErrInvalidSignature, "Invalid PDF file signature")
		}
	case "docx":
		if !bytes.HasPrefix(content, []byte("PK")) {
			err = errors.Wrap(ErrInvalidSignature, "Invalid DOCX file signature")
		}
	}

	return err
}
