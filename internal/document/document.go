package document

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/valpere/contentgate/internal/config"
)

// ErrEmptyDocument is returned when the input has no content to segment.
var ErrEmptyDocument = errors.New("document is empty")

// ErrNotOwned is returned by Apply when a rewrite targets a block the caller
// does not own or that does not exist.
var ErrNotOwned = errors.New("block not owned by stage")

// Metadata collects the title, description and keyword declared in the source
// through metadata markers or front matter.
type Metadata struct {
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Keyword     string `json:"keyword,omitempty" yaml:"keyword,omitempty"`
}

// Document is the run-scoped state threaded through the gates.
type Document struct {
	Blocks   []Block
	Profile  config.Profile
	Mode     config.Mode
	Metadata Metadata
}

// New segments raw into a Document.
func New(raw string, profile config.Profile, mode config.Mode) (*Document, error) {
	blocks := Segment(raw)
	if len(blocks) == 0 {
		return nil, ErrEmptyDocument
	}
	d := &Document{Blocks: blocks, Profile: profile, Mode: mode}
	d.Metadata = extractMetadata(blocks)
	return d, nil
}

// Block returns the block with id.
func (d *Document) Block(id int) (Block, bool) {
	if id < 0 || id >= len(d.Blocks) {
		return Block{}, false
	}
	return d.Blocks[id], true
}

// Select returns copies of the blocks accepted by keep, in order.
func (d *Document) Select(keep func(Block) bool) []Block {
	var out []Block
	for _, b := range d.Blocks {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

// Apply writes rewrites into CurrentText. Every id must exist and satisfy
// owns; otherwise nothing is written.
func (d *Document) Apply(owns func(Block) bool, rewrites map[int]string) error {
	ids := make([]int, 0, len(rewrites))
	for id := range rewrites {
		b, ok := d.Block(id)
		if !ok || !owns(b) {
			return fmt.Errorf("%w: block %d", ErrNotOwned, id)
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		d.Blocks[id].CurrentText = rewrites[id]
	}
	return nil
}

// Snapshot returns a copy of the current blocks.
func (d *Document) Snapshot() []Block {
	out := make([]Block, len(d.Blocks))
	copy(out, d.Blocks)
	return out
}

// Title returns the first H1, falling back to the declared metadata title.
func (d *Document) Title() string {
	for _, b := range d.Blocks {
		if b.Type == Heading && b.Level == 1 {
			return strings.TrimSpace(b.CurrentText)
		}
	}
	return d.Metadata.Title
}

// Intro returns the first paragraph that appears before any H2.
func (d *Document) Intro() (Block, bool) {
	for _, b := range d.Blocks {
		if b.Type == Heading && b.Level >= 2 {
			return Block{}, false
		}
		if b.Type == Paragraph {
			return b, true
		}
	}
	return Block{}, false
}

// Markdown renders the current state back to text.
func (d *Document) Markdown() string {
	parts := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		text := b.CurrentText
		if b.Level > 0 && (b.Type == Heading || b.Type == FAQ) {
			text = strings.Repeat("#", b.Level) + " " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n") + "\n"
}

func extractMetadata(blocks []Block) Metadata {
	var m Metadata
	for _, b := range blocks {
		if b.Type != MetadataMarker {
			continue
		}
		if strings.HasPrefix(b.OriginalText, "---") {
			mergeFrontMatter(&m, b.OriginalText)
			continue
		}
		key, value, ok := strings.Cut(b.OriginalText, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.Join(strings.Fields(strings.ToLower(key)), " ") {
		case "title", "meta title":
			m.Title = value
		case "description", "meta description":
			m.Description = value
		case "keyword", "primary keyword":
			m.Keyword = value
		}
	}
	return m
}

func mergeFrontMatter(m *Metadata, raw string) {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "---")
	body = strings.TrimSuffix(body, "---")

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(body), &fm); err != nil {
		return
	}
	str := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := fm[k].(string); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}
	if v := str("title", "meta_title"); v != "" {
		m.Title = v
	}
	if v := str("description", "meta_description"); v != "" {
		m.Description = v
	}
	if v := str("keyword", "primary_keyword"); v != "" {
		m.Keyword = v
	}
}
