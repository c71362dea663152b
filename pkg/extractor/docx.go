package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/nikogura/resume-analyzer/pkg/procerr"
	"github.com/pkg/errors"
)

const docxBodyPart = "word/document.xml"

//nolint:gochecknoglobals // compiled once, read-only
var headerFooterPart = regexp.MustCompile(`^word/(header|footer)\d*\.xml$`)

func (e *Extractor) extractDOCX(content []byte) (result Result, err error) {
	failure := func(cause error, msg string) error {
		return procerr.Wrap(procerr.KindTextExtraction, cause, msg,
			map[string]string{"methods_tried": MethodDOCX})
	}

	var archive *zip.Reader
	archive, err = zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		err = failure(ErrUnreadableDocument, fmt.Sprintf("DOCX extraction failed: %v", err))
		return result, err
	}

	var body *zip.File
	var headers, footers []*zip.File
	for _, f := range archive.File {
		if f.Name == docxBodyPart {
			body = f
			continue
		}
		if m := headerFooterPart.FindStringSubmatch(f.Name); m != nil {
			if m[1] == "header" {
				headers = append(headers, f)
			} else {
				footers = append(footers, f)
			}
		}
	}
	if body == nil {
		err = failure(ErrUnreadableDocument, "DOCX extraction failed: word/document.xml not found in archive")
		return result, err
	}

	var doc docxBody
	doc, err = readBody(body)
	if err != nil {
		err = failure(ErrUnreadableDocument, fmt.Sprintf("DOCX extraction failed: %v", err))
		return result, err
	}

	parts := make([]string, 0, len(doc.paragraphs)+len(doc.tables)+1)

	if hf := e.headerFooterText(headers, footers); hf != "" {
		parts = append(parts, hf)
	}

	paragraphsProcessed := 0
	for _, p := range doc.paragraphs {
		if p != "" {
			parts = append(parts, p)
			paragraphsProcessed++
		}
	}

	tablesProcessed := 0
	for i, rows := range doc.tables {
		if len(rows) == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("[Table %d]\n%s", i+1, strings.Join(rows, "\n")))
		tablesProcessed++
	}

	raw := strings.Join(parts, "\n\n")
	if Normalize(raw) == "" {
		err = failure(ErrNoExtractableText, "No text content found in DOCX file")
		return result, err
	}

	result = Result{
		RawText:                  raw,
		ExtractionMethod:         MethodDOCX,
		StructuralUnitsProcessed: paragraphsProcessed + tablesProcessed,
		TotalStructuralUnits:     len(doc.paragraphs) + len(doc.tables) + doc.failedUnits,
		ParagraphsProcessed:      paragraphsProcessed,
		TablesProcessed:          tablesProcessed,
		Warnings:                 doc.warnings,
	}
	return result, err
}

// headerFooterText returns de-duplicated header lines then footer lines. Unreadable parts are skipped.
func (e *Extractor) headerFooterText(headers, footers []*zip.File) (text string) {
	byName := func(files []*zip.File) {
		sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	}
	byName(headers)
	byName(footers)

	seen := map[string]bool{}
	lines := []string{}

	collect := func(files []*zip.File, prefix string) {
		for _, f := range files {
			paragraphs, err := readPartParagraphs(f)
			if err != nil {
				e.logger.Debug("skipping header/footer part", "part", f.Name, "error", err.Error())
				continue
			}
			for _, p := range paragraphs {
				line := prefix + p
				if p == "" || seen[line] {
					continue
				}
				seen[line] = true
				lines = append(lines, line)
			}
		}
	}

	collect(headers, "[Header] ")
	collect(footers, "[Footer] ")

	text = strings.Join(lines, "\n")
	return text
}

type docxBody struct {
	paragraphs  []string
	tables      [][]string
	warnings    []string
	failedUnits int
}

// readBody walks the top-level paragraphs and tables of the document body.
// A unit that fails to decode is recorded as a warning and reading stops there,
// since the XML stream cannot be resynchronized.
func readBody(f *zip.File) (doc docxBody, err error) {
	doc.warnings = []string{}

	var rc io.ReadCloser
	rc, err = f.Open()
	if err != nil {
		err = errors.Wrapf(err, "failed to open %s", f.Name)
		return doc, err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	inBody := false

	for {
		tok, tokErr := dec.Token()
		if tokErr == io.EOF {
			break
		}
		if tokErr != nil {
			if !inBody {
				err = errors.Wrap(tokErr, "failed to parse document")
				return doc, err
			}
			doc.warnings = append(doc.warnings, fmt.Sprintf("Stopped reading document body: %v", tokErr))
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "body":
				inBody = true
			case inBody && t.Name.Local == "p":
				text, pErr := readParagraph(dec)
				if pErr != nil {
					doc.failedUnits++
					doc.warnings = append(doc.warnings, fmt.Sprintf("Failed to extract paragraph %d: %v", len(doc.paragraphs)+doc.failedUnits, pErr))
					return doc, err
				}
				doc.paragraphs = append(doc.paragraphs, strings.TrimSpace(text))
			case inBody && t.Name.Local == "tbl":
				rows, tErr := readTable(dec)
				if tErr != nil {
					doc.failedUnits++
					doc.warnings = append(doc.warnings, fmt.Sprintf("Failed to extract table %d: %v", len(doc.tables)+1, tErr))
					return doc, err
				}
				doc.tables = append(doc.tables, rows)
			case inBody && t.Name.Local == "sectPr":
				err = dec.Skip()
				if err != nil {
					err = errors.Wrap(err, "failed to skip section properties")
					return doc, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "body" {
				inBody = false
			}
		}
	}

	return doc, err
}

// readParagraph consumes tokens up to the end of the current w:p and returns its text.
func readParagraph(dec *xml.Decoder) (text string, err error) {
	var sb strings.Builder
	depth := 0
	inText := false

	for {
		var tok xml.Token
		tok, err = dec.Token()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return text, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				depth++
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if depth == 0 {
					text = sb.String()
					return text, err
				}
				depth--
			}
		}
	}
}

// readTable consumes tokens up to the end of the current w:tbl. Each row is its
// non-empty cell texts joined with " | ".
func readTable(dec *xml.Decoder) (rows []string, err error) {
	rows = []string{}
	var cells []string
	var cellParts []string

	for {
		var tok xml.Token
		tok, err = dec.Token()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return rows, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tr":
				cells = []string{}
			case "tc":
				cellParts = []string{}
			case "p":
				var p string
				p, err = readParagraph(dec)
				if err != nil {
					return rows, err
				}
				if p = strings.TrimSpace(p); p != "" {
					cellParts = append(cellParts, p)
				}
			case "tbl":
				// Nested table text is folded into the enclosing cell.
				var nested []string
				nested, err = readTable(dec)
				if err != nil {
					return rows, err
				}
				cellParts = append(cellParts, nested...)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tc":
				if cell := strings.TrimSpace(strings.Join(cellParts, "\n")); cell != "" {
					cells = append(cells, cell)
				}
			case "tr":
				if len(cells) > 0 {
					rows = append(rows, strings.Join(cells, " | "))
				}
			case "tbl":
				return rows, err
			}
		}
	}
}

// readPartParagraphs returns the trimmed text of every paragraph in a header or footer part.
func readPartParagraphs(f *zip.File) (paragraphs []string, err error) {
	var rc io.ReadCloser
	rc, err = f.Open()
	if err != nil {
		return paragraphs, err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	for {
		tok, tokErr := dec.Token()
		if tokErr == io.EOF {
			return paragraphs, err
		}
		if tokErr != nil {
			err = tokErr
			return paragraphs, err
		}
		if start, ok := tok.(xml.StartElement); ok && start.Name.Local == "p" {
			var text string
			text, err = readParagraph(dec)
			if err != nil {
				return paragraphs, err
			}
			paragraphs = append(paragraphs, strings.TrimSpace(text))
		}
	}
}
