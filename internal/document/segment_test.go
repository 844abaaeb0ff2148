package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `---
title: Answer Engine Optimization
keyword: answer engine optimization
---

# Answer Engine Optimization Guide

In this guide you'll learn what answer engine optimization is.

## What is AEO?

AEO structures content so answer engines can quote it.
It favours short, factual chunks.

- Lead with the answer
- Back it with evidence
  and a source
1. Add context

` + "```go\nfmt.Println(\"# not a heading\")\n\n- not a list\n```" + `

Meta Description: A practical guide to AEO.

## FAQ

### Is AEO different from SEO?

Yes. It targets answer boxes.

Q: Does AEO need schema?
A: It helps.
`

func TestSegment_Types(t *testing.T) {
	blocks := Segment(sample)

	var types []BlockType
	for _, b := range blocks {
		types = append(types, b.Type)
	}
	want := []BlockType{
		MetadataMarker, // front matter
		Heading,
		Paragraph,
		Heading,
		Paragraph,
		List,
		Paragraph, // fenced code
		MetadataMarker,
		Heading,
		FAQ,
		Paragraph,
		FAQ,
	}
	require.Equal(t, want, types)

	assert.Equal(t, 1, blocks[1].Level)
	assert.Equal(t, "Answer Engine Optimization Guide", blocks[1].CurrentText)
	assert.Equal(t, "What is AEO?", blocks[4].Section)
	assert.Contains(t, blocks[5].CurrentText, "  and a source")
	assert.Contains(t, blocks[5].CurrentText, "1. Add context")
	assert.Contains(t, blocks[6].CurrentText, "- not a list")
	assert.Equal(t, 3, blocks[9].Level)
}

func TestSegment_ContiguousIDs(t *testing.T) {
	blocks := Segment(sample)
	for i, b := range blocks {
		assert.Equal(t, i, b.ID)
		assert.Equal(t, b.OriginalText, b.CurrentText)
	}
}

func TestSegment_Idempotent(t *testing.T) {
	first := Segment(sample)
	second := Segment(sample)
	assert.Equal(t, first, second)

	crlf := strings.ReplaceAll(sample, "\n", "\r\n")
	assert.Equal(t, first, Segment(crlf))
}

func TestSegment_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n\t\n"} {
		blocks := Segment(in)
		assert.NotNil(t, blocks)
		assert.Empty(t, blocks)
	}
}

func TestSegment_SimpleExample(t *testing.T) {
	blocks := Segment("# Title\n\nShort paragraph.")
	require.Len(t, blocks, 2)
	assert.Equal(t, Heading, blocks[0].Type)
	assert.Equal(t, "Title", blocks[0].CurrentText)
	assert.Equal(t, Paragraph, blocks[1].Type)
	assert.Equal(t, "Short paragraph.", blocks[1].CurrentText)
}

func TestSegment_ClosingHashes(t *testing.T) {
	blocks := Segment("## Why it matters ##")
	require.Len(t, blocks, 1)
	assert.Equal(t, "Why it matters", blocks[0].CurrentText)
	assert.Equal(t, 2, blocks[0].Level)
}

func TestSegment_TrailingHashInText(t *testing.T) {
	doc := &Document{Blocks: Segment("# Learn C#\n\nBody text.")}
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, "Learn C#", doc.Blocks[0].OriginalText)
	assert.Equal(t, "# Learn C#\n\nBody text.\n", doc.Markdown())

	blocks := Segment("### F# and C# ###")
	require.Len(t, blocks, 1)
	assert.Equal(t, "F# and C#", blocks[0].CurrentText)
}

func TestSegment_NotAHeadingWithoutSpace(t *testing.T) {
	blocks := Segment("#hashtag text")
	require.Len(t, blocks, 1)
	assert.Equal(t, Paragraph, blocks[0].Type)
}

func TestSegment_FAQMarkerLine(t *testing.T) {
	blocks := Segment("FAQ:\n\nWhat does it cost?\n\nNothing.\n\n## Next section\n\nDone?")
	require.Len(t, blocks, 5)
	assert.Equal(t, MetadataMarker, blocks[0].Type)
	assert.Equal(t, FAQ, blocks[1].Type)
	assert.Equal(t, Paragraph, blocks[2].Type)
	assert.Equal(t, Heading, blocks[3].Type)
	assert.Equal(t, Paragraph, blocks[4].Type)

	blocks = Segment("FAQ:\n\n### What does it cost?\n\nNothing.\n\n### Is it safe?\n\nYes.")
	require.Len(t, blocks, 5)
	assert.Equal(t, FAQ, blocks[1].Type)
	assert.Equal(t, 3, blocks[1].Level)
	assert.Equal(t, FAQ, blocks[3].Type)
	assert.Equal(t, "Is it safe?", blocks[3].CurrentText)
}
