// Package document turns raw text into an ordered sequence of typed blocks
// and tracks the per-run state the gates rewrite.
package document

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

type BlockType string

const (
	Heading        BlockType = "heading"
	Paragraph      BlockType = "paragraph"
	List           BlockType = "list"
	FAQ            BlockType = "faq"
	MetadataMarker BlockType = "metadata-marker"
)

// Block is one segmented unit of the source. ID is the position in source
// order. Level is the heading depth for headings and heading-shaped FAQ
// entries, zero otherwise. Section is the text of the nearest preceding H2.
type Block struct {
	ID           int       `json:"id" yaml:"id"`
	Type         BlockType `json:"type" yaml:"type"`
	Level        int       `json:"level,omitempty" yaml:"level,omitempty"`
	Section      string    `json:"section,omitempty" yaml:"section,omitempty"`
	OriginalText string    `json:"original_text" yaml:"original_text"`
	CurrentText  string    `json:"current_text" yaml:"current_text"`
}

// Changed reports whether a gate rewrote the block.
func (b Block) Changed() bool {
	return b.CurrentText != b.OriginalText
}

var (
	reHeading  = regexp.MustCompile(`^(#{1,6})[ \t]+(.*?)(?:[ \t]+#+)?[ \t]*$`)
	reListItem = regexp.MustCompile(`^[ \t]*(?:[-*+]|\d{1,3}[.)])[ \t]+\S`)
	reMetadata = regexp.MustCompile(`(?i)^(?:meta[ \t]+title|title|meta[ \t]+description|description|primary[ \t]+keyword|keyword|faq)[ \t]*:`)
	reFAQTitle = regexp.MustCompile(`(?i)^(?:faqs?|frequently[ \t]+asked[ \t]+questions)\b`)
	reFence    = regexp.MustCompile("^[ \t]*(?:```|~~~)")
)

// Normalize applies NFC and converts line endings to LF. Segment calls it
// first, so normalised and raw input segment identically.
func Normalize(raw string) string {
	s := norm.NFC.String(raw)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

type segmenter struct {
	blocks  []Block
	para    []string
	list    []string
	section string

	inFAQ    bool
	faqLevel int
}

// Segment splits raw into blocks. Empty or whitespace-only input yields an
// empty slice; callers treat that as a precondition failure.
func Segment(raw string) []Block {
	text := Normalize(raw)
	if strings.TrimSpace(text) == "" {
		return []Block{}
	}

	s := &segmenter{}
	lines := strings.Split(text, "\n")
	lines = s.frontMatter(lines)

	inFence := false
	for _, line := range lines {
		if inFence {
			s.para = append(s.para, line)
			if reFence.MatchString(line) {
				inFence = false
			}
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case reFence.MatchString(line):
			s.flushList()
			s.para = append(s.para, line)
			inFence = true
		case trimmed == "":
			s.flushParagraph()
			s.flushList()
		case reHeading.MatchString(trimmed):
			s.flushParagraph()
			s.flushList()
			m := reHeading.FindStringSubmatch(trimmed)
			s.heading(len(m[1]), m[2])
		case reMetadata.MatchString(trimmed) && len(s.para) == 0:
			s.flushList()
			s.emit(MetadataMarker, 0, trimmed)
			if strings.HasPrefix(strings.ToLower(trimmed), "faq") {
				// Only a new H1 or H2 closes a marker-opened FAQ.
				s.inFAQ, s.faqLevel = true, 2
			}
		case reListItem.MatchString(line) && len(s.para) == 0:
			s.list = append(s.list, strings.TrimRight(line, " \t"))
		case len(s.list) > 0 && (line[0] == ' ' || line[0] == '\t'):
			s.list = append(s.list, strings.TrimRight(line, " \t"))
		default:
			s.flushList()
			s.para = append(s.para, strings.TrimRight(line, " \t"))
		}
	}
	s.flushParagraph()
	s.flushList()

	return s.blocks
}

// frontMatter consumes a leading YAML front matter block delimited by
// "---" lines and emits it as a single metadata marker.
func (s *segmenter) frontMatter(lines []string) []string {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	if start >= len(lines) || strings.TrimSpace(lines[start]) != "---" {
		return lines
	}
	for end := start + 1; end < len(lines); end++ {
		if strings.TrimSpace(lines[end]) == "---" {
			s.emit(MetadataMarker, 0, strings.Join(lines[start:end+1], "\n"))
			return lines[end+1:]
		}
	}
	return lines
}

func (s *segmenter) heading(level int, text string) {
	if s.inFAQ && level <= s.faqLevel {
		s.inFAQ = false
	}
	if s.inFAQ {
		s.emit(FAQ, level, text)
		return
	}
	if level <= 2 {
		s.section = ""
		if level == 2 {
			s.section = text
		}
	}
	s.emit(Heading, level, text)
	if reFAQTitle.MatchString(text) {
		s.inFAQ, s.faqLevel = true, level
	}
}

func (s *segmenter) flushParagraph() {
	if len(s.para) == 0 {
		return
	}
	text := strings.Join(s.para, "\n")
	s.para = nil

	kind := Paragraph
	if s.inFAQ && isQuestion(text) {
		kind = FAQ
	}
	s.emit(kind, 0, text)
}

func (s *segmenter) flushList() {
	if len(s.list) == 0 {
		return
	}
	text := strings.Join(s.list, "\n")
	s.list = nil
	s.emit(List, 0, text)
}

func (s *segmenter) emit(kind BlockType, level int, text string) {
	s.blocks = append(s.blocks, Block{
		ID:           len(s.blocks),
		Type:         kind,
		Level:        level,
		Section:      s.section,
		OriginalText: text,
		CurrentText:  text,
	})
}

func isQuestion(text string) bool {
	first, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	first = strings.TrimSpace(first)
	if strings.HasPrefix(strings.ToUpper(first), "Q:") {
		return true
	}
	return strings.HasSuffix(first, "?")
}
