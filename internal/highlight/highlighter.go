package highlight

import (
	"github.com/emots/narrate-server/internal/narration"
)

// Viewport band margins in pixels. The band excludes the fixed header at the
// top and the docked player at the bottom, each padded a little.
const (
	HeaderHeight = 48
	PlayerHeight = 72
	bandPadding  = 32

	// scrollAnchor places the scrolled-to element roughly a third down the
	// viewport rather than flush at the top.
	scrollAnchor = 0.35
)

// Geometry supplies element layout to the scroll decision. Implementations
// wrap whatever runtime renders the tree; tests use a fixture.
type Geometry interface {
	// Bounds returns the element's top and bottom edges relative to the
	// viewport origin, and the absolute document offset of its top edge.
	Bounds(el Node) (top, bottom, documentTop float64)
	// ViewportHeight returns the visible height in pixels.
	ViewportHeight() float64
}

// ScrollRequest asks the host to smoothly scroll the current element into the
// visible band.
type ScrollRequest struct {
	Element Node
	// Offset is the target document scroll position.
	Offset float64
}

// Highlighter drives follow-along highlighting for one article. It caches the
// text-node index until the article root identity changes and tracks the last
// current element so auto-scroll fires once per element change, not on every
// tick.
type Highlighter struct {
	marker Marker
	geo    Geometry

	root  Node
	index *Index

	marked      map[Node]Status
	lastCurrent Node
}

// NewHighlighter creates a highlighter that reports statuses through marker.
// geo may be nil, which disables scroll requests.
func NewHighlighter(marker Marker, geo Geometry) *Highlighter {
	return &Highlighter{
		marker: marker,
		geo:    geo,
		marked: make(map[Node]Status),
	}
}

// SetRoot points the highlighter at a (possibly new) article root. The index
// is rebuilt only when the root identity actually changed, guarding against
// re-entrant rebuilds from repeated renders of the same article.
func (h *Highlighter) SetRoot(root Node) {
	if root == h.root {
		return
	}
	h.root = root
	h.index = BuildIndex(root)
	h.marked = make(map[Node]Status)
	h.lastCurrent = nil
}

// Sync recomputes element statuses for the given playback position. When
// followAlong is false or the alignment is empty, all markers are cleared.
// The returned request is non-nil when the current element changed, autoScroll
// is on, and the element sits outside the visible band.
func (h *Highlighter) Sync(alignment narration.Alignment, currentTime float64, followAlong, autoScroll bool) *ScrollRequest {
	if !followAlong || alignment.Len() == 0 || h.index == nil {
		h.Clear()
		return nil
	}
	if len(h.index.Spans) == 0 {
		return nil
	}

	charIndex := alignment.FindCharIndex(currentTime)

	var currentElement Node
	if span, ok := h.index.SpanAt(charIndex); ok {
		currentElement = span.Ancestor
	}

	// Walk every span once. The current element always wins; otherwise an
	// element is spoken only when its last text node has been passed, so a
	// block straddling the char index stays unmarked rather than half-spoken.
	next := make(map[Node]Status, len(h.marked))
	for _, span := range h.index.Spans {
		if span.Ancestor == nil {
			continue
		}
		if span.Ancestor == currentElement {
			next[span.Ancestor] = StatusCurrent
			continue
		}
		if span.End <= charIndex {
			next[span.Ancestor] = StatusSpoken
		} else {
			delete(next, span.Ancestor)
		}
	}

	h.applyDiff(next)

	if currentElement == nil || currentElement == h.lastCurrent {
		return nil
	}
	h.lastCurrent = currentElement

	if !autoScroll || h.geo == nil {
		return nil
	}
	return h.scrollRequest(currentElement)
}

// Clear removes every status marker immediately. Called on teardown: follow
// along disabled, narration closed, or no alignment loaded.
func (h *Highlighter) Clear() {
	for el := range h.marked {
		h.marker.ClearStatus(el)
	}
	h.marked = make(map[Node]Status)
	h.lastCurrent = nil
}

// applyDiff reconciles the previous marker state with the next one, touching
// only elements whose status changed.
func (h *Highlighter) applyDiff(next map[Node]Status) {
	for el := range h.marked {
		if _, keep := next[el]; !keep {
			h.marker.ClearStatus(el)
		}
	}
	for el, status := range next {
		if h.marked[el] != status {
			h.marker.SetStatus(el, status)
		}
	}
	h.marked = next
}

// scrollRequest returns a request when el is outside the visible band.
func (h *Highlighter) scrollRequest(el Node) *ScrollRequest {
	top, bottom, documentTop := h.geo.Bounds(el)
	viewport := h.geo.ViewportHeight()

	inBand := top >= HeaderHeight+bandPadding && bottom <= viewport-PlayerHeight-bandPadding
	if inBand {
		return nil
	}

	return &ScrollRequest{
		Element: el,
		Offset:  documentTop - viewport*scrollAnchor,
	}
}
