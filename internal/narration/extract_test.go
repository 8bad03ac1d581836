package narration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_Frontmatter(t *testing.T) {
	raw := "---\ntitle: Hello\ndate: 2025-01-01\n---\nBody text."
	got := Extract(raw)
	assert.Equal(t, "Body text.", got)
}

func TestExtract_Imports(t *testing.T) {
	raw := "import { Demo } from \"@/components/demo\";\n\nReal prose."
	got := Extract(raw)
	assert.Equal(t, "Real prose.", got)
}

func TestExtract_Components(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "self-closing",
			raw:  "Before.\n\n<Spectrogram src=\"/demo\" />\n\nAfter.",
			want: "Before.\n\nAfter.",
		},
		{
			name: "paired",
			raw:  "Before.\n\n<Video>\n  <source src=\"clip.mp4\" />\n</Video>\n\nAfter.",
			want: "Before.\n\nAfter.",
		},
		{
			name: "lowercase html is kept",
			raw:  "An <em>inline</em> tag.",
			want: "An <em>inline</em> tag.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.raw))
		})
	}
}

func TestExtract_Code(t *testing.T) {
	raw := "Look:\n\n```go\nfmt.Println(\"hi\")\n```\n\nand `inline()` too."
	got := Extract(raw)
	// Inline code leaves its surrounding spaces behind; collapsing those is
	// the alignment normalizer's job, not the extractor's.
	assert.Equal(t, "Look:\n\nand  too.", got)
}

func TestExtract_ImagesAndLinks(t *testing.T) {
	raw := "![alt text](/img.png)\n\nSee [the docs](https://example.com) here."
	got := Extract(raw)
	assert.Equal(t, "See the docs here.", got)
}

func TestExtract_HeadingBreaks(t *testing.T) {
	// Levels 1-2 get a medium break before; 3-6 a short one. All get a short
	// break after, with the hash markers removed.
	got := Extract("## Heading Two")
	assert.Equal(t, BreakMedium+"Heading Two"+BreakShort, got)

	got = Extract("### Heading Three")
	assert.Equal(t, BreakShort+"Heading Three"+BreakShort, got)

	assert.NotContains(t, got, "#")
}

func TestExtract_MarkdownDecorations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bold", "This is **bold** text.", "This is bold text."},
		{"italic", "This is *italic* text.", "This is italic text."},
		{"underscores", "Some __bold__ and _italic_.", "Some bold and italic."},
		{"strikethrough", "It was ~~wrong~~ fine.", "It was wrong fine."},
		{"blockquote", "> Quoted wisdom.", "Quoted wisdom."},
		{"unordered list", "- first\n- second", "first\n\nsecond"},
		{"ordered list", "1. first\n2. second", "first\n\nsecond"},
		{"horizontal rule", "Above.\n\n---\n\nBelow.", "Above.\n\nBelow."},
		{"html comment", "Keep <!-- secret note --> this.", "Keep  this."},
		{"empty link", "Dangling []( /nowhere ) gone.", "Dangling  gone."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.raw))
		})
	}
}

func TestExtract_PauseDirectives(t *testing.T) {
	got := Extract("One. [pause] Two. [pause:short] Three. [PAUSE:LONG] Four.")
	want := "One. " + BreakMedium + " Two. " + BreakShort + " Three. " + BreakLong + " Four."
	assert.Equal(t, want, got)
}

func TestExtract_BlankLineJoining(t *testing.T) {
	raw := "  First paragraph.  \n\n\n\nSecond paragraph.\n"
	got := Extract(raw)
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", got)
	assert.False(t, strings.HasSuffix(got, "\n"))
}

func TestExtract_FullDocument(t *testing.T) {
	raw := `---
title: On Sound
---
import { Player } from "@/components/player";

# On Sound

Sound is **vibration**. See [the primer](https://example.com/primer).

<Player track="intro.mp3" />

## Details

- it travels
- it decays

` + "```\ncode that should vanish\n```" + `

Done.`

	got := Extract(raw)

	assert.NotContains(t, got, "import")
	assert.NotContains(t, got, "Player")
	assert.NotContains(t, got, "vanish")
	assert.NotContains(t, got, "#")
	assert.NotContains(t, got, "**")
	assert.Contains(t, got, BreakMedium+"On Sound"+BreakShort)
	assert.Contains(t, got, "Sound is vibration. See the primer.")
	assert.Contains(t, got, "it travels\n\nit decays")
	assert.True(t, strings.HasSuffix(got, "Done."))
}

func TestContentHash(t *testing.T) {
	a := ContentHash("hello world")
	b := ContentHash("hello world")
	c := ContentHash("hello worlds")

	assert.Equal(t, a, b, "hash must be deterministic")
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 8)
}
