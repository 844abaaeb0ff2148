// Package chunker measures and splits block text by words and sentences.
// The gates use it for length rules, answer-evidence-context checks and
// split suggestions, and ExtractContext supplies the preceding-text snippet
// that keeps a rewrite consistent with what comes before it.
package chunker

import (
	"strings"
	"unicode"
)

const (
	// DefaultContextWords is the default number of words extracted by
	// ExtractContext.
	DefaultContextWords = 25
)

// Words returns the number of whitespace-separated words in text.
func Words(text string) int {
	return len(strings.Fields(text))
}

// Sentences splits text at sentence-ending punctuation (. ! ?) followed by
// whitespace or the end of text. Runs of terminators ("?!", "...") and
// closing quotes or brackets stay with their sentence.
func Sentences(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	var out []string
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		end := i + 1
		for end < len(runes) && (isTerminator(runes[end]) || isCloser(runes[end])) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			i = end - 1
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
		i = end - 1
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '»':
		return true
	}
	return false
}

// Chunk groups the sentences of text into pieces of at most maxWords words.
// A sentence longer than maxWords is cut at word boundaries. If maxWords ≤ 0
// or the text fits, a single-element slice is returned. Empty text yields
// no chunks.
func Chunk(text string, maxWords int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxWords <= 0 || Words(text) <= maxWords {
		return []string{text}
	}

	var chunks []string
	var cur []string
	curWords := 0

	flush := func() {
		if len(cur) > 0 {
			chunks = append(chunks, strings.Join(cur, " "))
			cur, curWords = nil, 0
		}
	}

	for _, s := range Sentences(text) {
		n := Words(s)
		if n > maxWords {
			flush()
			words := strings.Fields(s)
			for len(words) > maxWords {
				chunks = append(chunks, strings.Join(words[:maxWords], " "))
				words = words[maxWords:]
			}
			cur, curWords = []string{strings.Join(words, " ")}, len(words)
			continue
		}
		if curWords+n > maxWords {
			flush()
		}
		cur = append(cur, s)
		curWords += n
	}
	flush()
	return chunks
}

// ExtractContext returns the last wordCount words of text, joined by a single
// space. If text has fewer words than wordCount, the entire text is returned.
// If wordCount ≤ 0, DefaultContextWords is used.
func ExtractContext(text string, wordCount int) string {
	if wordCount <= 0 {
		wordCount = DefaultContextWords
	}
	words := strings.Fields(text)
	if len(words) <= wordCount {
		return strings.TrimSpace(text)
	}
	return strings.Join(words[len(words)-wordCount:], " ")
}
