package gate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/valpere/contentgate/internal/chunker"
	"github.com/valpere/contentgate/internal/config"
	"github.com/valpere/contentgate/internal/document"
)

var (
	rePreview      = regexp.MustCompile(`(?i)\b(we['’]ll|we will|this guide|you['’]ll|you will|in this (article|post|guide))\b`)
	reQuestionWord = regexp.MustCompile(`(?i)^(how|what|why|when|where|who|which|should|can|is|are|does|do)\b`)
)

// NewStrategist returns the gate that checks page structure: one H1, an
// answer-first intro, question-form H2s and an FAQ section. It owns the
// headings, the FAQ entries and the intro paragraphs.
func NewStrategist(d Deps) Stage {
	return &gate{deps: d, variant: variant{
		stage:    config.StageStrategist,
		template: "strategist.tmpl",
		expect:   Expect{Rewrites: true},
		owns: func(b document.Block) bool {
			switch b.Type {
			case document.Heading, document.FAQ:
				return true
			case document.Paragraph:
				return b.Section == ""
			}
			return false
		},
		check: strategistChecks,
	}}
}

func strategistChecks(doc *document.Document, cfg config.Config) []Finding {
	t := cfg.Thresholds
	var out []Finding

	var h1s []int
	for _, b := range doc.Blocks {
		if b.Type == document.Heading && b.Level == 1 {
			h1s = append(h1s, b.ID)
		}
	}
	if len(h1s) != 1 {
		out = append(out, Finding{
			Rule:       "single-h1",
			Severity:   SeverityHigh,
			Message:    fmt.Sprintf("page has %d H1 headings, want exactly one", len(h1s)),
			Element:    "H1",
			Suggestion: "Use a single H1 that states the topic as the reader's question or promise.",
			Blocks:     h1s,
			Source:     SourceRule,
		})
	}

	if t.RequireAnswerFirstIntro {
		if f, ok := introFinding(doc, t); ok {
			out = append(out, f)
		}
	}

	if t.RequireH2Questions {
		for _, b := range doc.Blocks {
			if b.Type != document.Heading || b.Level != 2 {
				continue
			}
			text := strings.TrimSpace(b.CurrentText)
			if strings.HasSuffix(text, "?") {
				continue
			}
			out = append(out, Finding{
				Rule:       "question-h2",
				Severity:   SeverityMedium,
				Message:    fmt.Sprintf("H2 %q is not phrased as a question", text),
				Element:    "H2",
				Suggestion: questionize(text),
				Blocks:     []int{b.ID},
				Source:     SourceRule,
			})
		}
	}

	if t.RequireFAQ {
		faq := doc.Select(func(b document.Block) bool { return b.Type == document.FAQ })
		if len(faq) < t.MinFAQEntries {
			out = append(out, Finding{
				Rule:       "faq-section",
				Severity:   SeverityMedium,
				Message:    fmt.Sprintf("FAQ has %d entries, want at least %d", len(faq), t.MinFAQEntries),
				Element:    "FAQ",
				Suggestion: "Add an FAQ section that answers the follow-up questions readers ask.",
				Source:     SourceRule,
			})
		}
	}
	return out
}

func introFinding(doc *document.Document, t config.Thresholds) (Finding, bool) {
	intro, ok := doc.Intro()
	if !ok {
		return Finding{
			Rule:       "answer-first-intro",
			Severity:   SeverityHigh,
			Message:    "page has no introduction before the first section",
			Element:    "Intro",
			Suggestion: "Open with a short paragraph that answers the main question.",
			Source:     SourceRule,
		}, true
	}

	text := document.PlainText(intro.CurrentText)
	words := chunker.Words(text)
	var problems []string
	if words < t.IntroMinWords || words > t.IntroMaxWords {
		problems = append(problems, fmt.Sprintf("%d words, want %d-%d", words, t.IntroMinWords, t.IntroMaxWords))
	}
	if !rePreview.MatchString(text) {
		problems = append(problems, "no preview of what the page covers")
	}
	if len(problems) == 0 {
		return Finding{}, false
	}
	return Finding{
		Rule:       "answer-first-intro",
		Severity:   SeverityHigh,
		Message:    "introduction is not answer-first: " + strings.Join(problems, "; "),
		Element:    "Intro",
		Suggestion: "Answer the question in the first sentence, then say what the reader will learn.",
		Blocks:     []int{intro.ID},
		Source:     SourceRule,
	}, true
}

// questionize turns a heading into a question.
func questionize(text string) string {
	text = strings.TrimSpace(strings.TrimRight(text, "?.:! "))
	if text == "" {
		return ""
	}
	if !reQuestionWord.MatchString(text) {
		r := []rune(text)
		r[0] = unicode.ToLower(r[0])
		text = "How does " + string(r) + " work"
	}
	return text + "?"
}
