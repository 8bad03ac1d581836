package narration

import "unicode"

// Collapser implements the whitespace-run-collapsing rule shared by alignment
// normalization and the highlighter's text index. Both sides must agree on
// exactly which characters survive, or character offsets between the stored
// alignment and the rendered text drift apart and highlighting desyncs
// silently. Keeping a single implementation makes the agreement structural
// instead of a convention.
//
// The rule: a whitespace character is dropped when the previously kept
// character was also whitespace. Everything else is kept.
type Collapser struct {
	prevWasSpace bool
}

// NewCollapser returns a collapser with no prior character.
func NewCollapser() *Collapser {
	return &Collapser{}
}

// Keep reports whether r survives collapsing and advances the scan state.
func (c *Collapser) Keep(r rune) bool {
	isSpace := unicode.IsSpace(r)
	if isSpace && c.prevWasSpace {
		return false
	}
	c.prevWasSpace = isSpace
	return true
}

// Reset clears the scan state, as if no character had been seen.
func (c *Collapser) Reset() {
	c.prevWasSpace = false
}

// CollapseString applies the collapsing rule to a whole string.
// Mainly useful in tests asserting the cross-consistency law.
func CollapseString(s string) string {
	c := NewCollapser()
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if c.Keep(r) {
			out = append(out, r)
		}
	}
	return string(out)
}
