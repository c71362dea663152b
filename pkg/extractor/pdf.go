package extractor

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"

	pdf "github.com/ledongthuc/pdf"
	"github.com/nikogura/resume-analyzer/pkg/procerr"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pkg/errors"
)

// pdfDocument is an opened PDF that yields text one page at a time. Pages are 1-based.
type pdfDocument interface {
	PageCount() int
	PageText(pageNr int) (string, error)
}

type pdfStrategy struct {
	method           string
	open             func(content []byte) (pdfDocument, error)
	checksEncryption bool
}

func (e *Extractor) extractPDF(content []byte) (result Result, err error) {
	warnings := []string{}
	tried := []string{}

	for _, strategy := range e.pdfStrategies {
		tried = append(tried, strategy.method)

		doc, openErr := openGuarded(strategy, content)
		if openErr != nil {
			if strategy.checksEncryption && errors.Is(openErr, ErrPasswordProtected) {
				err = procerr.Wrap(procerr.KindTextExtraction, ErrPasswordProtected,
					"Cannot extract text from password-protected PDF",
					map[string]string{"methods_tried": strings.Join(tried, ",")})
				return result, err
			}
			warnings = append(warnings, fmt.Sprintf("%s failed: %v", strategy.method, openErr))
			e.logger.Warn("pdf strategy failed", "method", strategy.method, "error", openErr.Error())
			continue
		}

		total, countErr := pageCount(doc)
		if countErr != nil {
			warnings = append(warnings, fmt.Sprintf("%s failed: %v", strategy.method, countErr))
			e.logger.Warn("pdf strategy failed", "method", strategy.method, "error", countErr.Error())
			continue
		}

		pages, pageWarnings := readPages(doc, total)
		warnings = append(warnings, pageWarnings...)

		if len(pages) > 0 {
			result = Result{
				RawText:                  strings.Join(pages, "\n\n"),
				ExtractionMethod:         strategy.method,
				StructuralUnitsProcessed: len(pages),
				TotalStructuralUnits:     total,
				PagesProcessed:           len(pages),
				Warnings:                 warnings,
			}
			return result, err
		}

		e.logger.Warn("pdf strategy produced no text", "method", strategy.method, "pages", total)
	}

	err = procerr.Wrap(procerr.KindTextExtraction, ErrAllMethodsExhausted,
		fmt.Sprintf("All PDF extraction methods failed. Warnings: %s", strings.Join(warnings, "; ")),
		map[string]string{
			"methods_tried": strings.Join(tried, ","),
			"warnings":      strings.Join(warnings, "; "),
		})
	return result, err
}

// The PDF readers panic on some malformed input instead of returning errors. Each call into
// a reader goes through one of these guards so a bad file fails only the current strategy.

func openGuarded(strategy pdfStrategy, content []byte) (doc pdfDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = errors.Errorf("malformed PDF: %v", r)
		}
	}()

	doc, err = strategy.open(content)
	return doc, err
}

func pageCount(doc pdfDocument) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n = 0
			err = errors.Errorf("malformed page tree: %v", r)
		}
	}()

	n = doc.PageCount()
	return n, err
}

func pageText(doc pdfDocument, pageNr int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = errors.Errorf("malformed page content: %v", r)
		}
	}()

	text, err = doc.PageText(pageNr)
	return text, err
}

// readPages collects non-empty page texts. A failing or empty page becomes a warning.
func readPages(doc pdfDocument, total int) (pages []string, warnings []string) {
	warnings = []string{}
	for pageNr := 1; pageNr <= total; pageNr++ {
		text, err := pageText(doc, pageNr)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to extract page %d: %v", pageNr, err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			warnings = append(warnings, fmt.Sprintf("No text found on page %d", pageNr))
			continue
		}
		pages = append(pages, text)
	}
	return pages, warnings
}

// layoutPDF rebuilds visual lines from positioned glyphs.
type layoutPDF struct {
	reader *pdf.Reader
}

func openLayoutPDF(content []byte) (doc pdfDocument, err error) {
	var reader *pdf.Reader
	reader, err = pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		err = errors.Wrap(err, "failed to open PDF")
		return doc, err
	}
	doc = &layoutPDF{reader: reader}
	return doc, err
}

func (l *layoutPDF) PageCount() (n int) {
	n = l.reader.NumPage()
	return n
}

func (l *layoutPDF) PageText(pageNr int) (text string, err error) {
	page := l.reader.Page(pageNr)
	if page.V.IsNull() {
		return text, err
	}

	text = layoutText(page.Content().Text)
	return text, err
}

const (
	// A horizontal gap wider than this fraction of the font size separates two words.
	wordGapRatio = 0.2
	// Glyphs whose baselines differ by less than this fraction of the font size share a row.
	rowToleranceRatio = 0.5
)

type glyphRow struct {
	y      float64
	glyphs []pdf.Text
}

// layoutText groups glyphs into rows top to bottom, orders each row left to right and
// puts a space wherever the gap between two glyphs is wider than a word gap.
func layoutText(glyphs []pdf.Text) (text string) {
	var rows []*glyphRow
	for _, g := range glyphs {
		if g.S != " " && strings.TrimSpace(g.S) == "" {
			continue
		}
		row := findRow(rows, g)
		if row == nil {
			row = &glyphRow{y: g.Y}
			rows = append(rows, row)
		}
		row.glyphs = append(row.glyphs, g)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].y > rows[j].y
	})

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		sort.SliceStable(row.glyphs, func(i, j int) bool {
			return row.glyphs[i].X < row.glyphs[j].X
		})
		lines = append(lines, joinGlyphs(row.glyphs))
	}

	text = strings.Join(lines, "\n")
	return text
}

func findRow(rows []*glyphRow, g pdf.Text) (row *glyphRow) {
	tolerance := math.Max(math.Abs(g.FontSize)*rowToleranceRatio, 1)
	for _, r := range rows {
		if math.Abs(r.y-g.Y) < tolerance {
			row = r
			return row
		}
	}
	return row
}

func joinGlyphs(glyphs []pdf.Text) (line string) {
	var b strings.Builder
	for i, g := range glyphs {
		if i > 0 && wordGap(glyphs[i-1], g) {
			b.WriteByte(' ')
		}
		b.WriteString(g.S)
	}
	line = strings.TrimSpace(b.String())
	return line
}

func wordGap(prev, next pdf.Text) (gap bool) {
	if strings.HasSuffix(prev.S, " ") || strings.HasPrefix(next.S, " ") {
		return gap
	}
	gap = next.X-(prev.X+prev.W) > math.Abs(next.FontSize)*wordGapRatio
	return gap
}

//nolint:gochecknoglobals // pdfcpu reads its configuration from a package variable
var disablePDFCPUConfigDir sync.Once

// basicPDF scans raw content streams for text-showing operators.
type basicPDF struct {
	ctx *model.Context
}

func openBasicPDF(content []byte) (doc pdfDocument, err error) {
	disablePDFCPUConfigDir.Do(func() {
		model.ConfigPath = "disable"
	})

	conf := model.NewDefaultConfiguration()

	var ctx *model.Context
	ctx, err = api.ReadValidateAndOptimize(bytes.NewReader(content), conf)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "password") {
			err = ErrPasswordProtected
			return doc, err
		}
		err = errors.Wrap(err, "failed to read PDF")
		return doc, err
	}

	if ctx.Encrypt != nil {
		err = ErrPasswordProtected
		return doc, err
	}

	doc = &basicPDF{ctx: ctx}
	return doc, err
}

func (b *basicPDF) PageCount() (n int) {
	n = b.ctx.PageCount
	return n
}

func (b *basicPDF) PageText(pageNr int) (text string, err error) {
	var r io.Reader
	r, err = pdfcpu.ExtractPageContent(b.ctx, pageNr)
	if err != nil {
		err = errors.Wrap(err, "failed to read content stream")
		return text, err
	}
	if r == nil {
		return text, err
	}

	var data []byte
	data, err = io.ReadAll(r)
	if err != nil {
		err = errors.Wrap(err, "failed to read content stream")
		return text, err
	}

	text = textFromContentStream(data)
	return text, err
}
