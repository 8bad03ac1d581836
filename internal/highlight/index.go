package highlight

import (
	"github.com/emots/narrate-server/internal/narration"
)

// highlightableTags is the allow-list of block elements eligible to receive a
// status marker. A text node's nearest enclosing element from this set is its
// highlightable ancestor.
var highlightableTags = map[string]bool{
	"p": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true,
}

// codeTags mark subtrees whose text never reaches the narration script.
var codeTags = map[string]bool{
	"pre":  true,
	"code": true,
}

// TextSpan locates one retained text node inside the global character index
// space shared with the normalized alignment. Start is inclusive, End
// exclusive. Ancestor is the node's highlightable ancestor, nil if none.
type TextSpan struct {
	Node     Node
	Start    int
	End      int
	Ancestor Node
}

// Index is the precomputed text-node index for one article root. Ephemeral:
// rebuilt whenever the root identity changes, never persisted.
type Index struct {
	Spans    []TextSpan
	Elements []Node // distinct highlightable ancestors, document order
	total    int
}

// BuildIndex walks all text nodes under root in document order, skipping code
// blocks and subtrees carrying the narration-skip marker, and accumulates a
// running character count using the same collapsing rule the alignment
// normalizer applies. Offsets therefore line up with normalized alignment
// indices by construction.
func BuildIndex(root Node) *Index {
	idx := &Index{}
	collapser := narration.NewCollapser()
	seen := make(map[Node]bool)

	var walk func(n Node, insideCode, skipped bool, ancestor Node)
	walk = func(n Node, insideCode, skipped bool, ancestor Node) {
		if tag := n.Tag(); tag != "" {
			if codeTags[tag] {
				insideCode = true
			}
			if n.HasSkipMarker() {
				skipped = true
			}
			if highlightableTags[tag] {
				ancestor = n
			}
			for _, child := range n.Children() {
				walk(child, insideCode, skipped, ancestor)
			}
			return
		}

		if insideCode || skipped {
			return
		}

		start := idx.total
		for _, r := range n.Text() {
			if collapser.Keep(r) {
				idx.total++
			}
		}

		idx.Spans = append(idx.Spans, TextSpan{
			Node:     n,
			Start:    start,
			End:      idx.total,
			Ancestor: ancestor,
		})
		if ancestor != nil && !seen[ancestor] {
			seen[ancestor] = true
			idx.Elements = append(idx.Elements, ancestor)
		}
	}

	walk(root, false, false, nil)
	return idx
}

// Len returns the total number of indexed characters.
func (idx *Index) Len() int {
	return idx.total
}

// SpanAt returns the text span whose [Start, End) range contains charIndex.
func (idx *Index) SpanAt(charIndex int) (TextSpan, bool) {
	for _, span := range idx.Spans {
		if charIndex >= span.Start && charIndex < span.End {
			return span, true
		}
	}
	return TextSpan{}, false
}

// VisibleText reconstructs the character stream BuildIndex counts: retained
// text nodes in document order, whitespace runs collapsed. Equals the indexed
// offsets by construction; used to cross-check against normalized alignments.
func VisibleText(root Node) string {
	var out []rune
	collapser := narration.NewCollapser()

	var walk func(n Node, insideCode, skipped bool)
	walk = func(n Node, insideCode, skipped bool) {
		if tag := n.Tag(); tag != "" {
			if codeTags[tag] {
				insideCode = true
			}
			if n.HasSkipMarker() {
				skipped = true
			}
			for _, child := range n.Children() {
				walk(child, insideCode, skipped)
			}
			return
		}
		if insideCode || skipped {
			return
		}
		for _, r := range n.Text() {
			if collapser.Keep(r) {
				out = append(out, r)
			}
		}
	}

	walk(root, false, false)
	return string(out)
}
