package extractor

import (
	"strings"
	"testing"

	"github.com/nikogura/resume-analyzer/pkg/procerr"
	"github.com/pkg/errors"
)

// fakePDF serves canned page texts; a page with an error fails.
type fakePDF struct {
	pages      []string
	errs       map[int]error
	panicCount bool
	panicPage  int
}

func (f *fakePDF) PageCount() int {
	if f.panicCount {
		panic("missing endobj after indirect object definition")
	}
	return len(f.pages)
}

func (f *fakePDF) PageText(pageNr int) (string, error) {
	if pageNr == f.panicPage {
		panic("bad font dictionary")
	}
	if err, ok := f.errs[pageNr]; ok {
		return "", err
	}
	return f.pages[pageNr-1], nil
}

type openCounter struct {
	calls   int
	doc     pdfDocument
	err     error
	panicky bool
}

func (o *openCounter) open(_ []byte) (pdfDocument, error) {
	o.calls++
	if o.panicky {
		panic("malformed xref")
	}
	return o.doc, o.err
}

func newTestExtractor(primary, fallback *openCounter) *Extractor {
	e := New(2*1024*1024, nil)
	e.pdfStrategies = []pdfStrategy{
		{method: MethodPDFLayout, open: primary.open},
		{method: MethodPDFBasic, open: fallback.open, checksEncryption: true},
	}
	return e
}

func TestExtractPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		format  string
		wantErr error
	}{
		{name: "empty content", content: []byte{}, format: FormatPDF, wantErr: ErrEmptyFile},
		{name: "nil content", content: nil, format: FormatDOCX, wantErr: ErrEmptyFile},
		{name: "too large", content: make([]byte, 2*1024*1024+1), format: FormatPDF, wantErr: ErrFileTooLarge},
		{name: "unsupported", content: []byte("hello"), format: "txt", wantErr: ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &openCounter{doc: &fakePDF{pages: []string{"text"}}}
			fallback := &openCounter{doc: &fakePDF{pages: []string{"text"}}}
			e := newTestExtractor(primary, fallback)

			_, err := e.Extract(tt.content, tt.format)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			if procerr.KindOf(err) != procerr.KindTextExtraction {
				t.Errorf("Expected kind '%s', got '%s'", procerr.KindTextExtraction, procerr.KindOf(err))
			}
			if primary.calls != 0 || fallback.calls != 0 {
				t.Errorf("No strategy should run, got primary=%d fallback=%d", primary.calls, fallback.calls)
			}
		})
	}
}

func TestExtractPDFSkipsFailingPage(t *testing.T) {
	primary := &openCounter{doc: &fakePDF{
		pages: []string{"Jane Doe\nWork Experience", "", "Education\nState University"},
		errs:  map[int]error{2: errors.New("bad font")},
	}}
	fallback := &openCounter{}
	e := newTestExtractor(primary, fallback)

	result, err := e.Extract([]byte("%PDF-1.7"), "pdf")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.RawText != "Jane Doe\nWork Experience\n\nEducation\nState University" {
		t.Errorf("Unexpected raw text: %q", result.RawText)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "page 2") {
		t.Errorf("Expected exactly one warning about page 2, got %v", result.Warnings)
	}
	if result.ExtractionMethod != MethodPDFLayout {
		t.Errorf("Expected method '%s', got '%s'", MethodPDFLayout, result.ExtractionMethod)
	}
	if result.StructuralUnitsProcessed != 2 || result.TotalStructuralUnits != 3 {
		t.Errorf("Expected 2 of 3 pages, got %d of %d", result.StructuralUnitsProcessed, result.TotalStructuralUnits)
	}
	if fallback.calls != 0 {
		t.Errorf("Fallback should not run when primary yields text")
	}
	if len(result.SectionsDetected) == 0 {
		t.Errorf("Expected sections to be detected")
	}
	if result.SourceFormat != FormatPDF {
		t.Errorf("Expected format '%s', got '%s'", FormatPDF, result.SourceFormat)
	}
}

func TestExtractPDFFallsBack(t *testing.T) {
	primary := &openCounter{err: errors.New("xref table broken")}
	fallback := &openCounter{doc: &fakePDF{pages: []string{"Skills: Go"}}}
	e := newTestExtractor(primary, fallback)

	result, err := e.Extract([]byte("%PDF-1.4"), FormatPDF)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.ExtractionMethod != MethodPDFBasic {
		t.Errorf("Expected method '%s', got '%s'", MethodPDFBasic, result.ExtractionMethod)
	}
	if result.ExtractedText != "Skills: Go" {
		t.Errorf("Unexpected text %q", result.ExtractedText)
	}
	if len(result.Warnings) != 1 || result.Warnings[0] != "pdf-layout failed: xref table broken" {
		t.Errorf("Expected the primary failure to be kept as a warning, got %v", result.Warnings)
	}
}

func TestExtractPDFRecoversFromReaderPanics(t *testing.T) {
	tests := []struct {
		name        string
		primary     *openCounter
		wantWarning string
	}{
		{
			name:        "open panics",
			primary:     &openCounter{panicky: true},
			wantWarning: "pdf-layout failed: malformed PDF: malformed xref",
		},
		{
			name:        "page count panics",
			primary:     &openCounter{doc: &fakePDF{pages: []string{"x"}, panicCount: true}},
			wantWarning: "pdf-layout failed: malformed page tree: missing endobj",
		},
		{
			name:        "page text panics",
			primary:     &openCounter{doc: &fakePDF{pages: []string{"x"}, panicPage: 1}},
			wantWarning: "Failed to extract page 1: malformed page content: bad font dictionary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fallback := &openCounter{doc: &fakePDF{pages: []string{"Work Experience"}}}
			e := newTestExtractor(tt.primary, fallback)

			result, err := e.Extract([]byte("%PDF-1.4"), FormatPDF)
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if result.ExtractionMethod != MethodPDFBasic {
				t.Errorf("Expected method '%s', got '%s'", MethodPDFBasic, result.ExtractionMethod)
			}
			if len(result.Warnings) == 0 || !strings.HasPrefix(result.Warnings[0], tt.wantWarning) {
				t.Errorf("Expected first warning to start with '%s', got %v", tt.wantWarning, result.Warnings)
			}
		})
	}
}

func TestExtractPDFAllStrategiesPanic(t *testing.T) {
	primary := &openCounter{panicky: true}
	fallback := &openCounter{doc: &fakePDF{pages: []string{"x"}, panicCount: true}}
	e := newTestExtractor(primary, fallback)

	_, err := e.Extract([]byte("%PDF-1.4"), FormatPDF)
	if !errors.Is(err, ErrAllMethodsExhausted) {
		t.Fatalf("Expected ErrAllMethodsExhausted, got %v", err)
	}
}

func TestExtractPDFEmptyPrimaryFallsBack(t *testing.T) {
	primary := &openCounter{doc: &fakePDF{pages: []string{"", "  "}}}
	fallback := &openCounter{doc: &fakePDF{pages: []string{"Education"}}}
	e := newTestExtractor(primary, fallback)

	result, err := e.Extract([]byte("%PDF-1.4"), FormatPDF)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.ExtractionMethod != MethodPDFBasic {
		t.Errorf("Expected method '%s', got '%s'", MethodPDFBasic, result.ExtractionMethod)
	}
	if fallback.calls != 1 {
		t.Errorf("Expected fallback to run once, got %d", fallback.calls)
	}
}

func TestExtractPDFPasswordProtected(t *testing.T) {
	primary := &openCounter{err: errors.New("encrypted")}
	fallback := &openCounter{err: ErrPasswordProtected}
	e := newTestExtractor(primary, fallback)

	_, err := e.Extract([]byte("%PDF-1.4"), FormatPDF)
	if !errors.Is(err, ErrPasswordProtected) {
		t.Fatalf("Expected ErrPasswordProtected, got %v", err)
	}
	d := procerr.Describe(err)
	if d.Context["methods_tried"] != "pdf-layout,pdf-basic" {
		t.Errorf("Expected methods tried 'pdf-layout,pdf-basic', got '%s'", d.Context["methods_tried"])
	}
}

func TestExtractPDFAllMethodsExhausted(t *testing.T) {
	primary := &openCounter{doc: &fakePDF{pages: []string{""}}}
	fallback := &openCounter{doc: &fakePDF{pages: []string{"x"}, errs: map[int]error{1: errors.New("boom")}}}
	e := newTestExtractor(primary, fallback)

	_, err := e.Extract([]byte("%PDF-1.4"), FormatPDF)
	if !errors.Is(err, ErrAllMethodsExhausted) {
		t.Fatalf("Expected ErrAllMethodsExhausted, got %v", err)
	}

	d := procerr.Describe(err)
	if !strings.Contains(d.Context["warnings"], "No text found on page 1") {
		t.Errorf("Expected primary warning in context, got %q", d.Context["warnings"])
	}
	if !strings.Contains(d.Context["warnings"], "Failed to extract page 1: boom") {
		t.Errorf("Expected fallback warning in context, got %q", d.Context["warnings"])
	}
}

func TestOpenersRejectGarbage(t *testing.T) {
	garbage := []byte("definitely not a pdf")

	_, err := openLayoutPDF(garbage)
	if err == nil {
		t.Error("Expected layout opener to fail on garbage")
	}

	_, err = openBasicPDF(garbage)
	if err == nil {
		t.Error("Expected basic opener to fail on garbage")
	}
	if errors.Is(err, ErrPasswordProtected) {
		t.Error("Garbage should not be reported as password protected")
	}
}

func TestTextFromContentStream(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{
			name: "one operator per line",
			stream: `BT
/F1 12 Tf
72 720 Td
(Jane Doe) Tj
0 -14 Td
[(Senior ) -20 (Engineer)] TJ
T*
(Led \(core\) team\0402019) Tj
ET`,
			want: "Jane Doe\nSenior Engineer\nLed (core) team 2019",
		},
		{
			name:   "single line stream",
			stream: "BT /F1 12 Tf 72 720 Td (Work Experience) Tj ET",
			want:   "Work Experience",
		},
		{
			name:   "consecutive show operators",
			stream: "BT (Work) Tj (Experience) Tj ET",
			want:   "Work Experience",
		},
		{
			name:   "kerned word gap",
			stream: "BT [(Work) -300 (Experience)] TJ ET",
			want:   "Work Experience",
		},
		{
			name:   "horizontal move",
			stream: "BT (Technical) Tj 60 0 Td (Skills) Tj 0 -14 Td (Go) Tj ET",
			want:   "Technical Skills\nGo",
		},
		{
			name:   "hex strings",
			stream: "BT <4A616E65> Tj [<446F> -20 <65>] TJ ET",
			want:   "Jane Doe",
		},
		{
			name:   "text matrix baselines",
			stream: "BT 1 0 0 1 72 700 Tm (Education) Tj 1 0 0 1 150 700 Tm (BSc) Tj 1 0 0 1 72 680 Tm (2017) Tj ET",
			want:   "Education BSc\n2017",
		},
		{
			name:   "quote operators",
			stream: "BT 14 TL (Skills) Tj (Go, SQL) ' 0 0 (AWS) \" ET",
			want:   "Skills\nGo, SQL\nAWS",
		},
		{
			name:   "comments and nested parentheses",
			stream: "% generated\nBT (Go (Golang\\)) Tj ET",
			want:   "Go (Golang)",
		},
		{
			name:   "inline image skipped",
			stream: "BI /W 1 /H 1 ID \x00(Tj)\xff EI BT (Education) Tj ET",
			want:   "Education",
		},
		{
			name:   "no text operators",
			stream: "q 1 0 0 1 0 0 cm 0 0 612 792 re f Q",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := textFromContentStream([]byte(tt.stream))
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFormatFromKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"uploads/resume.PDF", "pdf"},
		{"uploads/cv.docx", "docx"},
		{"uploads/noext", ""},
	}
	for _, tt := range tests {
		if got := FormatFromKey(tt.key); got != tt.want {
			t.Errorf("FormatFromKey(%q): expected '%s', got '%s'", tt.key, tt.want, got)
		}
	}
}
