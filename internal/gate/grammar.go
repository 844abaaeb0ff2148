package gate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/valpere/contentgate/internal/document"
)

// GrammarVersion is the response format every gate prompt asks for:
//
//	@@GATE v1
//	@@VERDICT pass|fail
//	@@FINDING <rule> | <severity> | <message>      (zero or more)
//	@@REWRITE <block-id>                            (rewriting gates)
//	<new block text>
//	@@TITLE / @@DESCRIPTION / @@FAQ                 (metadata gate)
//	<body; FAQ bodies are "Q: …" / "A: …" lines>
//	@@END
//
// Anything else is rejected with a ParseError.
const GrammarVersion = "v1"

// ParseError reports a response that does not follow the grammar.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed response at line %d: %s", e.Line, e.Msg)
	}
	return "malformed response: " + e.Msg
}

// Expect selects which body sections a gate accepts.
type Expect struct {
	Rewrites bool
	Metadata bool
}

// Parsed is a response that passed the grammar.
type Parsed struct {
	Verdict     Verdict
	Findings    []Finding
	Rewrites    map[int]string
	Title       string
	Description string
	FAQ         []document.FAQEntry
}

type section struct {
	kind string
	id   int
	line int
	body []string
}

type parser struct {
	expect  Expect
	out     *Parsed
	cur     *section
	seen    map[string]bool
	verdict bool
	ended   bool
}

// Parse validates text against the grammar. It never guesses: ambiguous or
// partial output fails closed.
func Parse(text string, expect Expect) (*Parsed, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	first := 0
	for first < len(lines) && strings.TrimSpace(lines[first]) == "" {
		first++
	}
	if first == len(lines) {
		return nil, &ParseError{Msg: "empty response"}
	}
	header := strings.Fields(lines[first])
	if len(header) == 0 || header[0] != "@@GATE" {
		return nil, &ParseError{Line: first + 1, Msg: "missing @@GATE header"}
	}
	if len(header) != 2 || header[1] != GrammarVersion {
		return nil, &ParseError{Line: first + 1, Msg: fmt.Sprintf("unsupported grammar version %q", strings.Join(header[1:], " "))}
	}

	p := &parser{
		expect: expect,
		out:    &Parsed{Rewrites: make(map[int]string)},
		seen:   make(map[string]bool),
	}

	for i := first + 1; i < len(lines); i++ {
		if err := p.line(i+1, strings.TrimRight(lines[i], " \t")); err != nil {
			return nil, err
		}
	}

	if !p.ended {
		return nil, &ParseError{Msg: "missing @@END"}
	}
	if !p.verdict {
		return nil, &ParseError{Msg: "missing @@VERDICT"}
	}
	return p.out, nil
}

func (p *parser) line(n int, line string) error {
	trimmed := strings.TrimSpace(line)

	if p.ended {
		if trimmed != "" {
			return &ParseError{Line: n, Msg: "text after @@END"}
		}
		return nil
	}

	if !strings.HasPrefix(trimmed, "@@") {
		if p.cur != nil {
			p.cur.body = append(p.cur.body, line)
			return nil
		}
		if trimmed == "" {
			return nil
		}
		return &ParseError{Line: n, Msg: "text outside a section"}
	}

	if err := p.close(); err != nil {
		return err
	}

	name, arg, _ := strings.Cut(trimmed[2:], " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "VERDICT":
		if p.verdict {
			return &ParseError{Line: n, Msg: "duplicate @@VERDICT"}
		}
		switch Verdict(arg) {
		case VerdictPass, VerdictFail:
			p.out.Verdict = Verdict(arg)
			p.verdict = true
		default:
			return &ParseError{Line: n, Msg: fmt.Sprintf("unknown verdict %q", arg)}
		}
	case "FINDING":
		f, err := parseFinding(arg)
		if err != nil {
			return &ParseError{Line: n, Msg: err.Error()}
		}
		p.out.Findings = append(p.out.Findings, f)
	case "REWRITE":
		if !p.expect.Rewrites {
			return &ParseError{Line: n, Msg: "@@REWRITE not allowed for this gate"}
		}
		id, err := strconv.Atoi(arg)
		if err != nil || id < 0 {
			return &ParseError{Line: n, Msg: fmt.Sprintf("invalid block id %q", arg)}
		}
		if _, dup := p.out.Rewrites[id]; dup || p.seen["REWRITE "+arg] {
			return &ParseError{Line: n, Msg: fmt.Sprintf("duplicate rewrite for block %d", id)}
		}
		p.seen["REWRITE "+arg] = true
		p.cur = &section{kind: name, id: id, line: n}
	case "TITLE", "DESCRIPTION", "FAQ":
		if !p.expect.Metadata {
			return &ParseError{Line: n, Msg: fmt.Sprintf("@@%s not allowed for this gate", name)}
		}
		if arg != "" {
			return &ParseError{Line: n, Msg: fmt.Sprintf("@@%s takes no argument", name)}
		}
		if p.seen[name] {
			return &ParseError{Line: n, Msg: fmt.Sprintf("duplicate @@%s", name)}
		}
		p.seen[name] = true
		p.cur = &section{kind: name, line: n}
	case "END":
		if arg != "" {
			return &ParseError{Line: n, Msg: "@@END takes no argument"}
		}
		p.ended = true
	case "GATE":
		return &ParseError{Line: n, Msg: "repeated @@GATE header"}
	default:
		return &ParseError{Line: n, Msg: fmt.Sprintf("unknown directive @@%s", name)}
	}
	return nil
}

// close finishes the open section, if any.
func (p *parser) close() error {
	s := p.cur
	if s == nil {
		return nil
	}
	p.cur = nil

	body := strings.TrimSpace(strings.Join(s.body, "\n"))
	if body == "" {
		return &ParseError{Line: s.line, Msg: fmt.Sprintf("empty @@%s section", s.kind)}
	}

	switch s.kind {
	case "REWRITE":
		p.out.Rewrites[s.id] = body
	case "TITLE":
		p.out.Title = strings.Join(strings.Fields(body), " ")
	case "DESCRIPTION":
		p.out.Description = strings.Join(strings.Fields(body), " ")
	case "FAQ":
		faq, err := parseFAQ(body)
		if err != nil {
			return &ParseError{Line: s.line, Msg: err.Error()}
		}
		p.out.FAQ = faq
	}
	return nil
}

func parseFinding(arg string) (Finding, error) {
	parts := strings.Split(arg, "|")
	if len(parts) != 3 {
		return Finding{}, fmt.Errorf("finding needs 3 fields, got %d", len(parts))
	}
	rule := strings.TrimSpace(parts[0])
	sev := Severity(strings.ToLower(strings.TrimSpace(parts[1])))
	msg := strings.TrimSpace(parts[2])
	if rule == "" || msg == "" {
		return Finding{}, fmt.Errorf("finding has an empty field")
	}
	if !sev.valid() {
		return Finding{}, fmt.Errorf("unknown severity %q", parts[1])
	}
	return Finding{Rule: rule, Severity: sev, Message: msg, Source: SourceModel}, nil
}

func parseFAQ(body string) ([]document.FAQEntry, error) {
	var out []document.FAQEntry
	var cur *document.FAQEntry
	answering := false

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "Q:"):
			if cur != nil && cur.Answer == "" {
				return nil, fmt.Errorf("question %q has no answer", cur.Question)
			}
			out = append(out, document.FAQEntry{Question: strings.TrimSpace(line[2:])})
			cur = &out[len(out)-1]
			answering = false
		case strings.HasPrefix(line, "A:"):
			if cur == nil || answering {
				return nil, fmt.Errorf("answer without a question")
			}
			cur.Answer = strings.TrimSpace(line[2:])
			answering = true
		case answering:
			cur.Answer += " " + line
		default:
			return nil, fmt.Errorf("unexpected FAQ line %q", line)
		}
	}
	if cur != nil && cur.Answer == "" {
		return nil, fmt.Errorf("question %q has no answer", cur.Question)
	}
	for _, e := range out {
		if e.Question == "" || e.Answer == "" {
			return nil, fmt.Errorf("empty question or answer")
		}
	}
	return out, nil
}
