// Package render writes a pipeline report as JSON, YAML, Markdown or HTML.
package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"

	"github.com/valpere/contentgate/internal/markdown"
	"github.com/valpere/contentgate/internal/orchestrator"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

var Formats = []Format{FormatJSON, FormatYAML, FormatMarkdown, FormatHTML}

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown format %q (want json, yaml, markdown or html)", s)
}

// Ext returns the file extension for f.
func (f Format) Ext() string {
	switch f {
	case FormatYAML:
		return ".yaml"
	case FormatMarkdown:
		return ".md"
	case FormatHTML:
		return ".html"
	}
	return ".json"
}

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("render").
	Funcs(sprig.TxtFuncMap()).
	ParseFS(templateFS, "templates/*.tmpl"))

// Write renders rep to w.
func Write(w io.Writer, rep *orchestrator.Report, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	case FormatMarkdown:
		return templates.ExecuteTemplate(w, "report.md.tmpl", rep)
	case FormatHTML:
		var md bytes.Buffer
		if err := templates.ExecuteTemplate(&md, "report.md.tmpl", rep); err != nil {
			return err
		}
		return templates.ExecuteTemplate(w, "page.html.tmpl", map[string]string{
			"Title": pageTitle(rep),
			"Body":  markdown.ToHTML(md.Bytes()),
		})
	}
	return fmt.Errorf("unknown format %q", f)
}

// String renders rep in f.
func String(rep *orchestrator.Report, f Format) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, rep, f); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func pageTitle(rep *orchestrator.Report) string {
	if rep.Artifact != nil && rep.Artifact.Title != "" {
		return rep.Artifact.Title
	}
	return "Content report " + rep.RunID
}
