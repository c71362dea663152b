package extractor

import (
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nikogura/resume-analyzer/pkg/logging"
	"github.com/nikogura/resume-analyzer/pkg/procerr"
	"github.com/pkg/errors"
)

// Source formats.
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
)

// Extraction methods reported in Result.ExtractionMethod.
const (
	MethodPDFLayout = "pdf-layout"
	MethodPDFBasic  = "pdf-basic"
	MethodDOCX      = "docx-xml"
)

// Terminal extraction failures. They are returned wrapped in a *procerr.Error of kind text_extraction_error.
var (
	ErrEmptyFile           = errors.New("file is empty")
	ErrFileTooLarge        = errors.New("file exceeds maximum size")
	ErrUnsupportedFormat   = errors.New("unsupported file format")
	ErrPasswordProtected   = errors.New("cannot extract text from password-protected PDF")
	ErrAllMethodsExhausted = errors.New("all PDF extraction methods failed")
	ErrNoExtractableText   = errors.New("no text content found in document")
	ErrUnreadableDocument  = errors.New("document could not be opened")
)

// Result is the outcome of a successful extraction.
type Result struct {
	ExtractedText             string    `json:"extracted_text"`
	RawText                   string    `json:"raw_text"`
	SourceFormat              string    `json:"source_format"`
	ExtractionMethod          string    `json:"extraction_method"`
	StructuralUnitsProcessed  int       `json:"structural_units_processed"`
	TotalStructuralUnits      int       `json:"total_structural_units"`
	PagesProcessed            int       `json:"pages_processed,omitempty"`
	ParagraphsProcessed       int       `json:"paragraphs_processed,omitempty"`
	TablesProcessed           int       `json:"tables_processed,omitempty"`
	SectionsDetected          []Section `json:"sections_detected"`
	Warnings                  []string  `json:"warnings"`
	TextLength                int       `json:"text_length"`
	FileSizeBytes             int       `json:"file_size_bytes"`
	ExtractionDurationSeconds float64   `json:"extraction_duration_seconds"`
	ExtractedAt               time.Time `json:"extracted_at"`
}

// Metadata returns the result without the text bodies, for publishing alongside an analysis.
func (r Result) Metadata() (meta map[string]interface{}) {
	meta = map[string]interface{}{
		"source_format":               r.SourceFormat,
		"extraction_method":           r.ExtractionMethod,
		"structural_units_processed":  r.StructuralUnitsProcessed,
		"total_structural_units":      r.TotalStructuralUnits,
		"sections_detected":           r.SectionsDetected,
		"warnings":                    r.Warnings,
		"text_length":                 r.TextLength,
		"file_size_bytes":             r.FileSizeBytes,
		"extraction_duration_seconds": r.ExtractionDurationSeconds,
		"extracted_at":                r.ExtractedAt.UTC().Format(time.RFC3339),
	}
	if r.SourceFormat == FormatPDF {
		meta["pages_processed"] = r.PagesProcessed
	} else {
		meta["paragraphs_processed"] = r.ParagraphsProcessed
		meta["tables_processed"] = r.TablesProcessed
	}
	return meta
}

// Extractor turns document bytes into normalized text.
type Extractor struct {
	maxFileSize   int64
	pdfStrategies []pdfStrategy
	logger        *slog.Logger
	now           func() time.Time
}

// New creates an Extractor. A nil logger discards output.
func New(maxFileSize int64, logger *slog.Logger) (e *Extractor) {
	if logger == nil {
		logger = logging.Discard()
	}
	e = &Extractor{
		maxFileSize: maxFileSize,
		pdfStrategies: []pdfStrategy{
			{method: MethodPDFLayout, open: openLayoutPDF},
			{method: MethodPDFBasic, open: openBasicPDF, checksEncryption: true},
		},
		logger: logger,
		now:    time.Now,
	}
	return e
}

// FormatFromKey derives the source format from a file name or object key.
func FormatFromKey(key string) (format string) {
	format = strings.TrimPrefix(strings.ToLower(path.Ext(key)), ".")
	return format
}

// Extract pulls text from content in the given format.
func (e *Extractor) Extract(content []byte, format string) (result Result, err error) {
	start := e.now()
	format = strings.TrimPrefix(strings.ToLower(format), ".")

	ctx := map[string]string{
		"file_type": format,
		"file_size": strconv.Itoa(len(content)),
	}

	if len(content) == 0 {
		err = procerr.Wrap(procerr.KindTextExtraction, ErrEmptyFile, "File is empty", ctx)
		return result, err
	}

	if e.maxFileSize > 0 && int64(len(content)) > e.maxFileSize {
		msg := fmt.Sprintf("File size %d bytes exceeds maximum %d bytes", len(content), e.maxFileSize)
		err = procerr.Wrap(procerr.KindTextExtraction, ErrFileTooLarge, msg, ctx)
		return result, err
	}

	switch format {
	case FormatPDF:
		result, err = e.extractPDF(content)
	case FormatDOCX:
		result, err = e.extractDOCX(content)
	default:
		msg := fmt.Sprintf("Unsupported file type: %s", format)
		err = procerr.Wrap(procerr.KindTextExtraction, ErrUnsupportedFormat, msg, ctx)
		return result, err
	}
	if err != nil {
		return result, err
	}

	result.SourceFormat = format
	result.ExtractedText = Normalize(result.RawText)
	if result.ExtractedText == "" {
		reason := ErrNoExtractableText
		if format == FormatPDF {
			reason = ErrAllMethodsExhausted
		}
		ctx["methods_tried"] = result.ExtractionMethod
		err = procerr.Wrap(procerr.KindTextExtraction, reason, "No text content found after normalization", ctx)
		return result, err
	}

	result.SectionsDetected = DetectSections(result.ExtractedText)
	result.TextLength = utf8.RuneCountInString(result.ExtractedText)
	result.FileSizeBytes = len(content)
	result.ExtractedAt = e.now().UTC()
	result.ExtractionDurationSeconds = result.ExtractedAt.Sub(start).Seconds()
	if result.Warnings == nil {
		result.Warnings = []string{}
	}

	e.logger.Info("text extraction complete",
		"method", result.ExtractionMethod,
		"text_length", result.TextLength,
		"units_processed", result.StructuralUnitsProcessed,
		"units_total", result.TotalStructuralUnits,
		"sections", len(result.SectionsDetected),
		"warnings", len(result.Warnings),
	)

	return result, err
}
