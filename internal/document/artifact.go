package document

import (
	"encoding/json"
	"strings"

	"github.com/valpere/contentgate/internal/config"
	"github.com/valpere/contentgate/internal/markdown"
)

// FAQEntry is one question/answer pair.
type FAQEntry struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// Artifact is the auxiliary metadata produced at the end of a run.
// Derived is set when it was computed locally from the document rather
// than returned by the metadata gate's model.
type Artifact struct {
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	FAQ         []FAQEntry `json:"faq,omitempty" yaml:"faq,omitempty"`
	Schema      string     `json:"schema,omitempty" yaml:"schema,omitempty"`
	Derived     bool       `json:"derived" yaml:"derived"`
}

// DeriveArtifact builds an artifact from the current document state: the H1
// (or declared title), the declared description or the first paragraph, and
// the FAQ entries found in the document.
func DeriveArtifact(d *Document, t config.Thresholds) *Artifact {
	a := &Artifact{Derived: true}

	a.Title = Truncate(PlainText(d.Title()), t.TitleMaxChars)

	desc := d.Metadata.Description
	if desc == "" {
		if intro, ok := d.Intro(); ok {
			desc = intro.CurrentText
		} else if ps := d.Select(func(b Block) bool { return b.Type == Paragraph }); len(ps) > 0 {
			desc = ps[0].CurrentText
		}
	}
	a.Description = Truncate(PlainText(desc), t.MetaMaxChars)

	a.FAQ = FAQEntries(d)
	a.Schema = FAQSchema(a.FAQ)
	return a
}

// FAQEntries pairs every FAQ block with its answer: an inline "A:" line, or
// the paragraph or list that follows it.
func FAQEntries(d *Document) []FAQEntry {
	var out []FAQEntry
	for i, b := range d.Blocks {
		if b.Type != FAQ {
			continue
		}
		q, a := splitQA(b.CurrentText)
		if a == "" && i+1 < len(d.Blocks) {
			next := d.Blocks[i+1]
			if next.Type == Paragraph || next.Type == List {
				a = PlainText(next.CurrentText)
			}
		}
		if q == "" || a == "" {
			continue
		}
		out = append(out, FAQEntry{Question: q, Answer: a})
	}
	return out
}

func splitQA(text string) (string, string) {
	var q, a []string
	inAnswer := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "Q:"):
			q = append(q, strings.TrimSpace(line[2:]))
		case strings.HasPrefix(upper, "A:"):
			inAnswer = true
			a = append(a, strings.TrimSpace(line[2:]))
		case inAnswer:
			a = append(a, line)
		default:
			q = append(q, line)
		}
	}
	return PlainText(strings.Join(q, " ")), PlainText(strings.Join(a, " "))
}

type schemaAnswer struct {
	Type string `json:"@type"`
	Text string `json:"text"`
}

type schemaQuestion struct {
	Type           string       `json:"@type"`
	Name           string       `json:"name"`
	AcceptedAnswer schemaAnswer `json:"acceptedAnswer"`
}

type faqPage struct {
	Context    string           `json:"@context"`
	Type       string           `json:"@type"`
	MainEntity []schemaQuestion `json:"mainEntity"`
}

// FAQSchema renders entries as a schema.org FAQPage JSON-LD document. It
// returns "" when there are no entries.
func FAQSchema(entries []FAQEntry) string {
	if len(entries) == 0 {
		return ""
	}
	page := faqPage{Context: "https://schema.org", Type: "FAQPage"}
	for _, e := range entries {
		page.MainEntity = append(page.MainEntity, schemaQuestion{
			Type:           "Question",
			Name:           e.Question,
			AcceptedAnswer: schemaAnswer{Type: "Answer", Text: e.Answer},
		})
	}
	out, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return ""
	}
	return string(out)
}

// PlainText strips markdown and collapses whitespace.
func PlainText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return strings.Join(strings.Fields(markdown.ToPlainText([]byte(s))), " ")
}

// Truncate shortens s to at most max runes, cutting at a word boundary when
// one exists. A non-positive max leaves s unchanged.
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	cut := string(r[:max])
	if i := strings.LastIndexAny(cut, " \t"); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:-")
}
