// Package markdown renders block text to HTML and reduces it to plain text
// for word, sentence and length checks.
package markdown

import (
	"bytes"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	nethtml "golang.org/x/net/html"
)

// ToHTML renders md using the common extensions.
func ToHTML(md []byte) string {
	opts := html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	}
	renderer := html.NewRenderer(opts)
	ext := parser.CommonExtensions | parser.Attributes
	p := parser.NewWithExtensions(ext)
	doc := p.Parse(md)
	return string(markdown.Render(doc, renderer))
}

// ToPlainText renders md and drops all markup.
func ToPlainText(md []byte) string {
	return StripHTMLTags(ToHTML(md))
}

// StripHTMLTags returns the text content of htmlContent with entities
// decoded. Script and style bodies are dropped.
func StripHTMLTags(htmlContent string) string {
	var result bytes.Buffer
	z := nethtml.NewTokenizer(strings.NewReader(htmlContent))
	skip := 0

	for {
		switch z.Next() {
		case nethtml.ErrorToken:
			return result.String()
		case nethtml.StartTagToken:
			name, _ := z.TagName()
			if isRawTag(name) {
				skip++
			}
		case nethtml.EndTagToken:
			name, _ := z.TagName()
			if isRawTag(name) && skip > 0 {
				skip--
			}
		case nethtml.TextToken:
			if skip == 0 {
				result.Write(z.Text())
			}
		}
	}
}

func isRawTag(name []byte) bool {
	n := string(name)
	return n == "script" || n == "style"
}
