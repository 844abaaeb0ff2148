// Package placeholder shields structured content (fenced code, inline code,
// HTML tags) inside block text from being rewritten. Before a prompt is
// built each block is protected with numbered markers ([PH0], [PH1], …)
// that the model is told to keep; rewrites are checked for the markers and
// restored afterwards.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	// fenced code blocks: ```...``` (non-greedy, may span lines)
	reFencedCode = regexp.MustCompile("(?s)```.*?```")

	// inline code spans: `...`
	reInlineCode = regexp.MustCompile("`[^`\n]+`")

	// HTML/XML tags: opening, closing, and self-closing
	reHTMLTag = regexp.MustCompile(`</?[a-zA-Z][^>\n]*>`)

	rePlaceholder = regexp.MustCompile(`\[PH(\d+)\]`)
)

// Set numbers markers across every block of one prompt so ids stay unique
// within it. The zero value is ready to use. A Set belongs to a single gate
// call and is not safe for concurrent use.
type Set struct {
	originals []string
}

// Protect replaces markup in text with markers. Fenced code is handled first
// so that backticks inside it are not matched as inline code.
func (s *Set) Protect(text string) string {
	replace := func(match string) string {
		id := fmt.Sprintf("[PH%d]", len(s.originals))
		s.originals = append(s.originals, match)
		return id
	}
	text = reFencedCode.ReplaceAllStringFunc(text, replace)
	text = reInlineCode.ReplaceAllStringFunc(text, replace)
	text = reHTMLTag.ReplaceAllStringFunc(text, replace)
	return text
}

// Len returns the number of markers issued.
func (s *Set) Len() int {
	return len(s.originals)
}

// Restore substitutes markers back with their originals. Unknown markers are
// left untouched.
func (s *Set) Restore(text string) string {
	return rePlaceholder.ReplaceAllStringFunc(text, func(match string) string {
		idx, ok := index(match)
		if !ok || idx >= len(s.originals) {
			return match
		}
		return s.originals[idx]
	})
}

// Check compares the markers of a rewrite with those of the protected
// original. It returns the markers the rewrite dropped and the markers it
// introduced that the original did not contain.
func Check(protected, rewritten string) (missing, foreign []string) {
	want := markerSet(protected)
	got := markerSet(rewritten)
	for m := range want {
		if !got[m] {
			missing = append(missing, m)
		}
	}
	for m := range got {
		if !want[m] {
			foreign = append(foreign, m)
		}
	}
	return missing, foreign
}

// InstructionHint is appended to prompts that carry protected text.
func InstructionHint() string {
	return "Keep every [PHn] marker exactly as written; do not move, translate or remove them."
}

func markerSet(text string) map[string]bool {
	out := make(map[string]bool)
	for _, m := range rePlaceholder.FindAllString(text, -1) {
		out[m] = true
	}
	return out
}

func index(marker string) (int, bool) {
	sub := rePlaceholder.FindStringSubmatch(marker)
	if len(sub) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(sub[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
