package extractor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// MaxTextLength is the longest normalized text kept, in characters.
	MaxTextLength = 50000
	// TruncationMarker is appended when normalized text exceeds MaxTextLength.
	TruncationMarker = "... [Text truncated for processing]"
)

//nolint:gochecknoglobals // compiled once, read-only
var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	horizontalRuns = regexp.MustCompile(`[ \t]+`)
	glyphReplacer  = strings.NewReplacer(
		// bullets
		"·", "•", "▪", "•", "▫", "•", "◦", "•", "‣", "•", "⁃", "•",
		// quotes
		"“", `"`, "”", `"`, "„", `"`, "‟", `"`,
		"‘", `"`, "’", `"`, "‚", `"`, "‛", `"`,
		// dashes
		"–", "-", "—", "-", "−", "-",
	)
)

// Normalize canonicalizes raw extracted text and bounds its length.
func Normalize(raw string) (text string) {
	if raw == "" {
		return text
	}

	text = norm.NFKD.String(raw)
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	text = horizontalRuns.ReplaceAllString(text, " ")
	text = glyphReplacer.Replace(text)

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	prevEmpty := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r\f\v")
		if line == "" {
			if prevEmpty {
				continue
			}
			prevEmpty = true
		} else {
			prevEmpty = false
		}
		kept = append(kept, line)
	}

	text = strings.TrimSpace(strings.Join(kept, "\n"))

	if utf8.RuneCountInString(text) > MaxTextLength {
		text = string([]rune(text)[:MaxTextLength]) + TruncationMarker
	}

	return text
}
