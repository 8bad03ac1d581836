// Package highlight implements the follow-along engine: it maps a playback
// position to a character offset in the normalized alignment, resolves that
// offset to a block element in the rendered article, and marks elements as
// spoken or current. The engine works against an abstract renderable text
// tree so it can drive a real DOM, a server-rendered document, or a test
// fixture equally.
package highlight

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Node is one node of a renderable text tree. Implementations must be
// comparable: the engine uses node identity to track the current element
// across ticks and to key status bookkeeping.
type Node interface {
	// Tag returns the lowercase element tag, or "" for text nodes.
	Tag() string
	// Text returns the text content of a text node, "" for elements.
	Text() string
	// Children returns child nodes in document order.
	Children() []Node
	// HasSkipMarker reports whether the element is explicitly excluded from
	// narration. Must match the content the text extractor already strips
	// (demos, embeds, video players).
	HasSkipMarker() bool
}

// Marker receives status assignments from the engine. Statuses are markers on
// elements, not styling, so presentation layers can style freely.
type Marker interface {
	SetStatus(el Node, status Status)
	ClearStatus(el Node)
}

// StatusAttr is the marker attribute written onto highlighted elements.
const StatusAttr = "data-narration-status"

// SkipAttr excludes an element subtree from narration indexing.
const SkipAttr = "data-narration-skip"

// Status of a rendered block element relative to playback position.
type Status string

const (
	StatusSpoken  Status = "spoken"
	StatusCurrent Status = "current"
)

// Document adapts a parsed HTML document to the engine's tree interfaces.
type Document struct {
	root *html.Node
}

// ParseDocument parses rendered article HTML.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Document{root: root}, nil
}

// Article returns the narration root: the first <article> element, falling
// back to <body>, falling back to the document root.
func (d *Document) Article() Node {
	if n := findElement(d.root, "article"); n != nil {
		return htmlNode{n}
	}
	if n := findElement(d.root, "body"); n != nil {
		return htmlNode{n}
	}
	return htmlNode{d.root}
}

// SetStatus implements Marker.
func (d *Document) SetStatus(el Node, status Status) {
	hn, ok := el.(htmlNode)
	if !ok {
		return
	}
	setAttr(hn.n, StatusAttr, string(status))
}

// ClearStatus implements Marker.
func (d *Document) ClearStatus(el Node) {
	hn, ok := el.(htmlNode)
	if !ok {
		return
	}
	removeAttr(hn.n, StatusAttr)
}

// htmlNode wraps *html.Node. The wrapper is a comparable value so node
// identity survives round trips through the Node interface.
type htmlNode struct {
	n *html.Node
}

func (h htmlNode) Tag() string {
	if h.n.Type == html.ElementNode {
		return strings.ToLower(h.n.Data)
	}
	return ""
}

func (h htmlNode) Text() string {
	if h.n.Type == html.TextNode {
		return h.n.Data
	}
	return ""
}

func (h htmlNode) Children() []Node {
	var out []Node
	for c := h.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode || c.Type == html.TextNode {
			out = append(out, htmlNode{c})
		}
	}
	return out
}

func (h htmlNode) HasSkipMarker() bool {
	for _, a := range h.n.Attr {
		if a.Key == SkipAttr {
			return true
		}
	}
	return false
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func setAttr(n *html.Node, key, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

func removeAttr(n *html.Node, key string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}
