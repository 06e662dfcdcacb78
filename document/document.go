// Package document wraps HTML tree handling for the conversion pipeline:
// parsing raw input into a DOM, one-time normalization, collection of
// stylesheet sources in document order, and serialization back to HTML.
package document

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Document is a parsed HTML document together with the stylesheet sources
// discovered in it.
type Document struct {
	SrcName string
	Root    *html.Node // document node, never nil after Parse
	Sheets  []Sheet    // CSS sources in cascade order
}

// Sheet is a single CSS source: an embedded <style> block, a linked file or
// an @import pulled in while resolving either.
type Sheet struct {
	Source string // origin description for logs and warnings
	Data   []byte
}

// Decode reads the whole input converting it to UTF-8. The encoding is
// detected from byte order marks and meta tags. Decoding happens once,
// before any text-level preprocessing, so later stages always see UTF-8.
func Decode(r io.Reader) ([]byte, error) {
	cr, err := charset.NewReader(r, "text/html")
	if err != nil {
		return nil, fmt.Errorf("unable to detect input encoding: %w", err)
	}
	data, err := io.ReadAll(cr)
	if err != nil {
		return nil, fmt.Errorf("unable to read input: %w", err)
	}
	return data, nil
}

// Parse parses an already UTF-8 HTML document. Malformed markup never fails
// the parse - the parser recovers the way browsers do.
func Parse(r io.Reader, srcName string, log *zap.Logger) (*Document, error) {
	if log == nil {
		log = zap.NewNop()
	}

	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("unable to parse HTML: %w", err)
	}

	d := &Document{SrcName: srcName, Root: root}
	if err := d.checkStructure(); err != nil {
		// construction bug, not input variance - do not try to continue
		return nil, err
	}

	d.normalize()
	log.Debug("Parsed HTML document", zap.String("source", srcName))
	return d, nil
}

// Body returns the document's body element, or the root when the parser did
// not synthesize one.
func (d *Document) Body() *html.Node {
	var body *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "body" {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(d.Root)
	if body == nil {
		return d.Root
	}
	return body
}

// WriteTo serializes the document back to HTML text.
func (d *Document) WriteTo(w io.Writer) error {
	return html.Render(w, d.Root)
}

// checkStructure verifies tree invariants: parent back-references agree with
// child links and no node is reachable twice. A violation means the tree was
// constructed incorrectly and the conversion for this document must abort.
func (d *Document) checkStructure() error {
	seen := make(map[*html.Node]bool)
	var walk func(n *html.Node) error
	walk = func(n *html.Node) error {
		if seen[n] {
			return fmt.Errorf("document tree is not acyclic: node %q reachable twice", n.Data)
		}
		seen[n] = true
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Parent != n {
				return fmt.Errorf("document tree corrupt: child %q does not point back to parent %q", c.Data, n.Data)
			}
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(d.Root)
}

// normalize applies the one-time tree cleanup: comments and doctype nodes are
// dropped, whitespace runs in text collapse to a single space (except inside
// pre/code), and whitespace-only text directly inside structural containers
// is removed.
func (d *Document) normalize() {
	var doomed []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.CommentNode, html.DoctypeNode:
				doomed = append(doomed, c)
			case html.TextNode:
				if inPreformatted(c) {
					continue
				}
				c.Data = collapseWhitespace(c.Data, keepLeadingSpace(c))
				if c.Data == "" || (strings.TrimSpace(c.Data) == "" && isStructuralContainer(n)) {
					doomed = append(doomed, c)
				}
			case html.ElementNode:
				walk(c)
			}
		}
	}
	walk(d.Root)

	for _, n := range doomed {
		n.Parent.RemoveChild(n)
	}
}

// collapseWhitespace replaces every run of whitespace with a single space. A
// leading run is kept only when keepLeading says the separation still matters
// after collapsing.
func collapseWhitespace(s string, keepLeading bool) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			space = true
		default:
			if space && (b.Len() > 0 || keepLeading) {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	if space && (b.Len() > 0 || keepLeading) {
		b.WriteByte(' ')
	}
	return b.String()
}

// keepLeadingSpace reports whether a leading whitespace run in the text node
// still separates words: only when the output immediately before it neither
// ends in whitespace nor breaks the line anyway.
func keepLeadingSpace(n *html.Node) bool {
	prev := prevRendered(n)
	if prev == nil {
		return false
	}
	if prev.Type == html.TextNode {
		return !endsInSpace(prev.Data)
	}
	return !isBlockBoundary(prev.Data)
}

// prevRendered finds the node rendered immediately before n on the same line:
// the last leaf of the nearest preceding sibling, ascending through inline
// ancestors when n starts its parent. Nil means a block edge precedes n.
func prevRendered(n *html.Node) *html.Node {
	for cur := n; cur != nil; {
		for prev := cur.PrevSibling; prev != nil; prev = prev.PrevSibling {
			if prev.Type == html.CommentNode || prev.Type == html.DoctypeNode {
				continue
			}
			return lastLeaf(prev)
		}
		p := cur.Parent
		if p == nil || p.Type != html.ElementNode || isBlockBoundary(p.Data) {
			return nil
		}
		cur = p
	}
	return nil
}

// lastLeaf descends through inline elements to the node that produced the
// last output of the subtree.
func lastLeaf(n *html.Node) *html.Node {
	for n.Type == html.ElementNode && !isBlockBoundary(n.Data) && n.LastChild != nil {
		n = n.LastChild
	}
	return n
}

func endsInSpace(s string) bool {
	return s != "" && strings.IndexByte(" \t\n\r\f", s[len(s)-1]) >= 0
}

var blockBoundaryTags = map[string]bool{
	"html": true, "head": true, "body": true, "title": true,
	"script": true, "style": true,
	"p": true, "div": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "blockquote": true, "center": true,
	"ul": true, "ol": true, "li": true, "pre": true, "hr": true, "br": true,
	"table": true, "thead": true, "tbody": true, "tfoot": true,
	"tr": true, "td": true, "th": true,
}

// isBlockBoundary reports whether the tag starts output on a new line, making
// an adjacent space redundant.
func isBlockBoundary(tag string) bool { return blockBoundaryTags[tag] }

// inPreformatted reports whether a node sits inside pre or code, where
// whitespace is significant.
func inPreformatted(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && (p.Data == "pre" || p.Data == "code") {
			return true
		}
	}
	return false
}

// isStructuralContainer reports whether direct whitespace-only text children
// of the node carry no meaning.
func isStructuralContainer(n *html.Node) bool {
	if n.Type == html.DocumentNode {
		return true
	}
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "html", "head", "body", "ul", "ol", "table", "thead", "tbody", "tfoot", "tr":
		return true
	}
	return false
}

// GetAttr returns the value of the named attribute, or "" when absent.
func GetAttr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

// SetAttr sets the named attribute, replacing an existing value.
func SetAttr(n *html.Node, name, value string) {
	for i := range n.Attr {
		if strings.EqualFold(n.Attr[i].Key, name) {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}
