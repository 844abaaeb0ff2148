package gate

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/valpere/contentgate/internal/config"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	templatesOnce sync.Once
	templates     *template.Template
	templatesErr  error
)

// promptBlock is a target block as shown to the model.
type promptBlock struct {
	ID      int
	Type    string
	Level   int
	Section string
	Words   int
	Context string
	Text    string
}

type promptData struct {
	Stage           string
	Grammar         string
	Profile         string
	Mode            string
	Keyword         string
	Language        string
	Thresholds      config.Thresholds
	Findings        []Finding
	Targets         []promptBlock
	Outline         []string
	Title           string
	Intro           string
	Description     string
	Body            string
	PlaceholderHint string
	Rewrites        bool
	Metadata        bool
}

func loadTemplates() (*template.Template, error) {
	templatesOnce.Do(func() {
		templates, templatesErr = template.New("gate").
			Option("missingkey=error").
			Funcs(sprig.TxtFuncMap()).
			ParseFS(templateFS, "templates/*.tmpl")
	})
	return templates, templatesErr
}

// render executes the shared system template and the stage template.
func render(name string, data promptData) (system, prompt string, err error) {
	tmpl, err := loadTemplates()
	if err != nil {
		return "", "", fmt.Errorf("load templates: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "system.tmpl", data); err != nil {
		return "", "", fmt.Errorf("render system prompt: %w", err)
	}
	system = strings.TrimSpace(buf.String())

	buf.Reset()
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", name, err)
	}
	return system, strings.TrimSpace(buf.String()), nil
}
