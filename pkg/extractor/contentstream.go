package extractor

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"
)

// TJ adjustments at or below this (thousandths of an em, negative moves right) read as a word gap.
const tjWordGap = -200

type csKind int

const (
	csNumber csKind = iota
	csString
	csName
	csArray
	csOperator
	csOther
)

type csToken struct {
	kind  csKind
	num   float64
	str   string
	items []csToken
}

// contentLexer splits a page content stream into operands and operators.
type contentLexer struct {
	data []byte
	pos  int
}

func isPDFSpace(c byte) (space bool) {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		space = true
	}
	return space
}

func isPDFDelimiter(c byte) (delim bool) {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		delim = true
	}
	return delim
}

func (l *contentLexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		if !isPDFSpace(c) {
			return
		}
		l.pos++
	}
}

func (l *contentLexer) peek(offset int) (c byte) {
	if l.pos+offset < len(l.data) {
		c = l.data[l.pos+offset]
	}
	return c
}

func (l *contentLexer) next() (tok csToken, ok bool) {
	l.skipSpace()
	if l.pos >= len(l.data) {
		return tok, ok
	}
	ok = true

	c := l.data[l.pos]
	switch {
	case c == '(':
		tok = csToken{kind: csString, str: l.literal()}
	case c == '<' && l.peek(1) == '<', c == '>' && l.peek(1) == '>':
		l.pos += 2
		tok = csToken{kind: csOther}
	case c == '<':
		tok = csToken{kind: csString, str: l.hexString()}
	case c == '[':
		l.pos++
		tok = csToken{kind: csArray}
		for {
			l.skipSpace()
			if l.pos >= len(l.data) {
				break
			}
			if l.data[l.pos] == ']' {
				l.pos++
				break
			}
			item, more := l.next()
			if !more {
				break
			}
			tok.items = append(tok.items, item)
		}
	case c == '/':
		l.pos++
		tok = csToken{kind: csName, str: l.regular()}
	case isPDFDelimiter(c):
		l.pos++
		tok = csToken{kind: csOther}
	default:
		word := l.regular()
		if n, err := strconv.ParseFloat(word, 64); err == nil {
			tok = csToken{kind: csNumber, num: n}
		} else {
			tok = csToken{kind: csOperator, str: word}
		}
	}
	return tok, ok
}

func (l *contentLexer) regular() (word string) {
	start := l.pos
	for l.pos < len(l.data) && !isPDFSpace(l.data[l.pos]) && !isPDFDelimiter(l.data[l.pos]) {
		l.pos++
	}
	word = string(l.data[start:l.pos])
	return word
}

// literal reads a parenthesized string, honoring escapes and balanced nested parentheses.
func (l *contentLexer) literal() (s string) {
	l.pos++
	start := l.pos
	depth := 1
	for l.pos < len(l.data) {
		switch l.data[l.pos] {
		case '\\':
			l.pos++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				s = decodePDFString(l.data[start:l.pos])
				l.pos++
				return s
			}
		}
		l.pos++
	}
	if start > len(l.data) {
		start = len(l.data)
	}
	s = decodePDFString(l.data[start:])
	return s
}

// hexString reads <...>. Whitespace is ignored and an odd final digit is padded with 0.
func (l *contentLexer) hexString() (s string) {
	l.pos++
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		c := l.data[l.pos]
		if !isPDFSpace(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++

	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	decoded := make([]byte, hex.DecodedLen(len(digits)))
	if _, err := hex.Decode(decoded, digits); err != nil {
		return s
	}
	s = string(decoded)
	return s
}

// skipInlineImage moves past the binary data of an inline image, up to its EI operator.
func (l *contentLexer) skipInlineImage() {
	for {
		i := bytes.Index(l.data[l.pos:], []byte("EI"))
		if i < 0 {
			l.pos = len(l.data)
			return
		}
		at := l.pos + i
		l.pos = at + 2
		if at > 0 && isPDFSpace(l.data[at-1]) && (l.pos >= len(l.data) || isPDFSpace(l.data[l.pos])) {
			return
		}
	}
}

// streamText accumulates shown text with single separators.
type streamText struct {
	b         strings.Builder
	last      byte
	afterText bool
}

func (t *streamText) write(s string) {
	if s == "" {
		return
	}
	t.b.WriteString(s)
	t.last = s[len(s)-1]
}

func (t *streamText) space() {
	if t.b.Len() == 0 || t.last == ' ' || t.last == '\n' {
		return
	}
	t.write(" ")
}

func (t *streamText) newline() {
	t.afterText = false
	if t.b.Len() == 0 || t.last == '\n' {
		return
	}
	t.write("\n")
}

func (t *streamText) show(s string) {
	if t.afterText {
		t.space()
	}
	t.write(s)
	t.afterText = true
}

// textFromContentStream interprets the text operators of a content stream. Tj, TJ, ' and "
// show text. Vertical moves (Td, TD, T*, a new Tm baseline) and ET break lines; horizontal
// moves, wide TJ adjustments and back-to-back show operators separate words.
func textFromContentStream(data []byte) (text string) {
	lex := &contentLexer{data: data}
	out := &streamText{}

	var operands []csToken
	var tmY float64
	tmSet := false

	for {
		tok, ok := lex.next()
		if !ok {
			break
		}
		if tok.kind != csOperator {
			operands = append(operands, tok)
			continue
		}

		switch tok.str {
		case "Tj":
			if s, found := lastString(operands); found {
				out.show(s)
			}
		case "'", `"`:
			out.newline()
			if s, found := lastString(operands); found {
				out.show(s)
			}
		case "TJ":
			showArray(out, operands)
		case "Td", "TD":
			tx, ty := lastPair(operands)
			switch {
			case ty != 0:
				out.newline()
			case tx != 0:
				out.space()
			}
			out.afterText = false
		case "T*", "ET":
			out.newline()
		case "Tm":
			if len(operands) >= 6 {
				y := operands[len(operands)-1].num
				if tmSet && y == tmY {
					out.space()
				} else {
					out.newline()
				}
				tmY, tmSet = y, true
			}
			out.afterText = false
		case "ID":
			lex.skipInlineImage()
		}
		operands = operands[:0]
	}

	text = strings.TrimSpace(out.b.String())
	return text
}

func showArray(out *streamText, operands []csToken) {
	for i := len(operands) - 1; i >= 0; i-- {
		if operands[i].kind != csArray {
			continue
		}
		if out.afterText {
			out.space()
		}
		for _, item := range operands[i].items {
			switch {
			case item.kind == csString:
				out.write(item.str)
			case item.kind == csNumber && item.num <= tjWordGap:
				out.space()
			}
		}
		out.afterText = true
		return
	}
}

func lastString(operands []csToken) (s string, found bool) {
	for i := len(operands) - 1; i >= 0; i-- {
		if operands[i].kind == csString {
			s, found = operands[i].str, true
			return s, found
		}
	}
	return s, found
}

func lastPair(operands []csToken) (x, y float64) {
	if len(operands) >= 2 {
		x, y = operands[len(operands)-2].num, operands[len(operands)-1].num
	}
	return x, y
}

// decodePDFString resolves backslash escapes in a PDF string literal.
func decodePDFString(raw []byte) (s string) {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b', 'f':
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		case '\r', '\n':
			// Line continuation.
			if raw[i] == '\r' && i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
		default:
			if raw[i] < '0' || raw[i] > '7' {
				sb.WriteByte(raw[i])
				continue
			}
			val := int(raw[i] - '0')
			for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	s = sb.String()
	return s
}
