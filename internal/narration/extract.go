package narration

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Prosody break markers understood by the TTS provider. They are synthesis
// directives only: the alignment normalizer strips them back out before the
// alignment is used for text matching.
const (
	BreakShort  = `<break time="0.5s" />`
	BreakMedium = `<break time="1.0s" />`
	BreakLong   = `<break time="1.5s" />`
)

var (
	frontmatterRe    = regexp.MustCompile(`(?s)\A---.*?---\n`)
	importRe         = regexp.MustCompile(`(?m)^import\s+.*?(?:from\s+['"].*?['"])?;?\s*$`)
	jsxSelfClosingRe = regexp.MustCompile(`<[A-Z][^>]*/>`)
	jsxPairedRe      = regexp.MustCompile(`(?s)<[A-Z][^>]*>.*?</[A-Z][^>]*>`)
	codeBlockRe      = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe     = regexp.MustCompile("`[^`]+`")
	imageRe          = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
	linkRe           = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headingRe        = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	boldStarRe       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicStarRe     = regexp.MustCompile(`\*([^*]+)\*`)
	boldUnderRe      = regexp.MustCompile(`__([^_]+)__`)
	italicUnderRe    = regexp.MustCompile(`_([^_]+)_`)
	htmlCommentRe    = regexp.MustCompile(`(?s)<!--.*?-->`)
	horizontalRuleRe = regexp.MustCompile(`(?m)^[-_*]{3,}\s*$`)
	blockquoteRe     = regexp.MustCompile(`(?m)^>\s*`)
	unorderedListRe  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	orderedListRe    = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	strikethroughRe  = regexp.MustCompile(`~~([^~]+)~~`)
	emptyLinkRe      = regexp.MustCompile(`\[\]\([^)]*\)`)
	pauseRe          = regexp.MustCompile(`(?i)\[pause\]`)
	pauseShortRe     = regexp.MustCompile(`(?i)\[pause:short\]`)
	pauseLongRe      = regexp.MustCompile(`(?i)\[pause:long\]`)
)

// Extract converts a raw MDX document into TTS-ready plain text: markdown
// syntax and embedded components are stripped, prosody breaks are inserted at
// heading boundaries and on explicit [pause] directives. The output is not
// valid markdown and not the rendered text; it exists purely as TTS input.
//
// The transforms are order-sensitive: each operates on the previous output.
//
// Component stripping is a best-effort, non-greedy pattern match. Nested
// same-named components can make it over- or under-strip; a full MDX parser
// is deliberately out of scope since an imperfect narration script degrades
// narration fidelity, nothing else.
func Extract(raw string) string {
	text := frontmatterRe.ReplaceAllString(raw, "")
	text = importRe.ReplaceAllString(text, "")

	// Embedded components carry no linear prose (demos, embeds, players).
	text = jsxSelfClosingRe.ReplaceAllString(text, "")
	text = jsxPairedRe.ReplaceAllString(text, "")

	text = codeBlockRe.ReplaceAllString(text, "")
	text = inlineCodeRe.ReplaceAllString(text, "")

	text = imageRe.ReplaceAllString(text, "")
	text = linkRe.ReplaceAllString(text, "$1")

	text = headingRe.ReplaceAllStringFunc(text, func(line string) string {
		m := headingRe.FindStringSubmatch(line)
		level := len(m[1])
		breakBefore := BreakShort
		if level <= 2 {
			breakBefore = BreakMedium
		}
		return breakBefore + m[2] + BreakShort
	})

	text = boldStarRe.ReplaceAllString(text, "$1")
	text = italicStarRe.ReplaceAllString(text, "$1")
	text = boldUnderRe.ReplaceAllString(text, "$1")
	text = italicUnderRe.ReplaceAllString(text, "$1")

	text = htmlCommentRe.ReplaceAllString(text, "")
	text = horizontalRuleRe.ReplaceAllString(text, "")
	text = blockquoteRe.ReplaceAllString(text, "")
	text = unorderedListRe.ReplaceAllString(text, "")
	text = orderedListRe.ReplaceAllString(text, "")
	text = strikethroughRe.ReplaceAllString(text, "$1")
	text = emptyLinkRe.ReplaceAllString(text, "")

	text = pauseRe.ReplaceAllString(text, BreakMedium)
	text = pauseShortRe.ReplaceAllString(text, BreakShort)
	text = pauseLongRe.ReplaceAllString(text, BreakLong)

	lines := make([]string, 0, 64)
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	// NFC so the hash and the synthesized character stream are stable across
	// differently-composed source files.
	return norm.NFC.String(strings.TrimSpace(strings.Join(lines, "\n\n")))
}
