// Package pdftext cleans text extracted from paginated documents.
//
// Extracted text carries layout noise: hyphenated line wraps, bare page
// numbers, running headers and footers, and ragged whitespace. Normalise
// removes it without reordering content. Every rule is line- or
// pattern-local.
package pdftext

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/kbingest/internal/core/domain"
	"github.com/custodia-labs/kbingest/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Header and footer detection limits.
const (
	maxHeaderChars = 60
	maxHeaderWords = 6
)

var (
	// hyphenWrap matches a word broken across lines by justified layout.
	hyphenWrap = regexp.MustCompile(`([\p{L}\p{N}_])-\n([\p{L}\p{N}_])`)

	// pageNumber matches a line holding only a page number.
	pageNumber = regexp.MustCompile(`(?m)^[ \t]*[0-9]{1,4}[ \t]*$`)

	// blankRuns matches three or more consecutive newlines.
	blankRuns = regexp.MustCompile(`\n{3,}`)

	// spaceRuns matches runs of horizontal whitespace.
	spaceRuns = regexp.MustCompile(`[ \t]{2,}`)
)

// Normaliser cleans extracted pages into a single document.
type Normaliser struct{}

// New creates a new normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Normalise joins the pages with paragraph breaks and cleans the result.
func (n *Normaliser) Normalise(_ context.Context, doc *domain.SourceDocument) (*domain.Document, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}
	return &domain.Document{
		Source:  doc.Source,
		Content: Normalise(doc.RawText()),
	}, nil
}

// Normalise removes layout artifacts from raw extracted text.
//
// Dropping a line can expose a pattern an earlier rule would have caught
// (a blank run, a hyphen wrap), so the rules are applied until the text
// stops changing. After the first pass every rule that fires shortens the
// text, which bounds the loop. The result satisfies
// Normalise(Normalise(x)) == Normalise(x).
func Normalise(raw string) string {
	text := clean(raw)
	for {
		next := clean(text)
		if next == text {
			return text
		}
		text = next
	}
}

// clean applies each rule once, in order.
func clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\f", "\n\n")
	text = hyphenWrap.ReplaceAllString(text, "$1$2")
	text = pageNumber.ReplaceAllString(text, "")
	text = blankRuns.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if isRunningHeader(strings.TrimSpace(line)) {
			continue
		}
		kept = append(kept, line)
	}
	text = strings.Join(kept, "\n")

	text = spaceRuns.ReplaceAllString(text, " ")
	lines = strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// isRunningHeader reports whether a trimmed line looks like a page header
// or footer: short, few words, and all upper-case.
func isRunningHeader(line string) bool {
	if line == "" || utf8.RuneCountInString(line) >= maxHeaderChars {
		return false
	}
	if len(strings.Fields(line)) > maxHeaderWords {
		return false
	}
	return isUpper(line)
}

// isUpper reports whether s has at least one upper-case letter and no
// lower- or title-case letters. Lines without letters are never headers.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r), unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		}
	}
	return cased
}
