package document

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/contentgate/internal/config"
)

func paragraphsOnly(b Block) bool { return b.Type == Paragraph }

func TestNew_Empty(t *testing.T) {
	_, err := New(" \n ", config.ProfileBlog, config.ModeStrict)
	assert.True(t, errors.Is(err, ErrEmptyDocument))
}

func TestNew_Metadata(t *testing.T) {
	d, err := New(sample, config.ProfileBlog, config.ModeLite)
	require.NoError(t, err)

	assert.Equal(t, "Answer Engine Optimization", d.Metadata.Title)
	assert.Equal(t, "answer engine optimization", d.Metadata.Keyword)
	assert.Equal(t, "A practical guide to AEO.", d.Metadata.Description)
	assert.Equal(t, "Answer Engine Optimization Guide", d.Title())
}

func TestApply(t *testing.T) {
	d, err := New("# Title\n\nFirst.\n\nSecond.", config.ProfileBlog, config.ModeStrict)
	require.NoError(t, err)

	require.NoError(t, d.Apply(paragraphsOnly, map[int]string{2: "Second, rewritten."}))
	assert.Equal(t, "Second, rewritten.", d.Blocks[2].CurrentText)
	assert.Equal(t, "Second.", d.Blocks[2].OriginalText)
	assert.True(t, d.Blocks[2].Changed())
	assert.False(t, d.Blocks[1].Changed())
}

func TestApply_RejectsUnownedAtomically(t *testing.T) {
	d, err := New("# Title\n\nFirst.", config.ProfileBlog, config.ModeStrict)
	require.NoError(t, err)

	err = d.Apply(paragraphsOnly, map[int]string{0: "New title", 1: "New first."})
	assert.ErrorIs(t, err, ErrNotOwned)
	assert.Equal(t, "Title", d.Blocks[0].CurrentText)
	assert.Equal(t, "First.", d.Blocks[1].CurrentText)

	err = d.Apply(paragraphsOnly, map[int]string{7: "missing"})
	assert.ErrorIs(t, err, ErrNotOwned)
}

func TestMarkdown_RoundTrip(t *testing.T) {
	in := "# Title\n\nShort paragraph.\n\n## Why?\n\n- a\n- b\n"
	d, err := New(in, config.ProfileBlog, config.ModeStrict)
	require.NoError(t, err)
	assert.Equal(t, in, d.Markdown())

	again, err := New(d.Markdown(), config.ProfileBlog, config.ModeStrict)
	require.NoError(t, err)
	assert.Equal(t, d.Blocks, again.Blocks)
}

func TestIntro(t *testing.T) {
	d, err := New("# T\n\nIntro here.\n\n## H\n\nBody.", config.ProfileBlog, config.ModeStrict)
	require.NoError(t, err)
	intro, ok := d.Intro()
	require.True(t, ok)
	assert.Equal(t, 1, intro.ID)

	d, err = New("# T\n\n## H\n\nBody.", config.ProfileBlog, config.ModeStrict)
	require.NoError(t, err)
	_, ok = d.Intro()
	assert.False(t, ok)
}

func TestDeriveArtifact_Simple(t *testing.T) {
	d, err := New("# Title\n\nShort paragraph.", config.ProfileBlog, config.ModeLite)
	require.NoError(t, err)

	a := DeriveArtifact(d, config.DefaultThresholds())
	assert.Equal(t, "Title", a.Title)
	assert.Equal(t, "Short paragraph.", a.Description)
	assert.True(t, a.Derived)
	assert.Empty(t, a.FAQ)
	assert.Empty(t, a.Schema)
}

func TestDeriveArtifact_FAQSchema(t *testing.T) {
	d, err := New(sample, config.ProfileBlog, config.ModeLite)
	require.NoError(t, err)

	a := DeriveArtifact(d, config.DefaultThresholds())
	assert.Equal(t, "A practical guide to AEO.", a.Description)
	require.Len(t, a.FAQ, 2)
	assert.Equal(t, FAQEntry{Question: "Is AEO different from SEO?", Answer: "Yes. It targets answer boxes."}, a.FAQ[0])
	assert.Equal(t, FAQEntry{Question: "Does AEO need schema?", Answer: "It helps."}, a.FAQ[1])

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(a.Schema), &schema))
	assert.Equal(t, "FAQPage", schema["@type"])
	assert.Len(t, schema["mainEntity"], 2)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "one two", Truncate("one two three", 9))
	assert.Equal(t, "abcdefghij", Truncate("abcdefghijklmno", 10))
	assert.Equal(t, "anything", Truncate("anything", 0))
}
