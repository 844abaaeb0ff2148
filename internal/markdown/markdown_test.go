package markdown

import (
	"strings"
	"testing"
)

func TestToHTML_Heading(t *testing.T) {
	out := ToHTML([]byte("## What is AEO?"))
	if !strings.Contains(out, "<h2") || !strings.Contains(out, "What is AEO?") {
		t.Errorf("unexpected HTML: %q", out)
	}
}

func TestToPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"emphasis", "Use **bold** and _italic_.", "Use bold and italic."},
		{"link", "See [the report](https://example.com/r).", "See the report."},
		{"entities", "Fish & chips", "Fish & chips"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.TrimSpace(ToPlainText([]byte(tt.in)))
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStripHTMLTags_DropsScript(t *testing.T) {
	got := StripHTMLTags(`<p>keep</p><script>var x = 1;</script><style>p{}</style>`)
	if got != "keep" {
		t.Errorf("got %q, want %q", got, "keep")
	}
}
