package style

import (
	"strings"

	"golang.org/x/net/html"

	"forumfmt/document"
)

// InlineResolved rewrites the style attribute of every resolved element to
// its full resolved declaration set, in a fixed property order. Stylesheets
// have already been folded in, so the output document renders identically
// without them.
func InlineResolved(root *html.Node, styles Styles) {
	for n := root; n != nil; n = nextNode(n, root) {
		if n.Type != html.ElementNode {
			continue
		}
		st, ok := styles[n]
		if !ok {
			continue
		}
		document.SetAttr(n, "style", st.declarations())
	}
}

func (st *Style) declarations() string {
	var sb strings.Builder
	put := func(prop, val string) {
		if sb.Len() > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(prop)
		sb.WriteString(": ")
		sb.WriteString(val)
	}
	put(PropDisplay, st.Display)
	put(PropVisibility, st.Visibility)
	put(PropFontWeight, st.FontWeight)
	put(PropFontStyle, st.FontStyle)
	put(PropTextDecoration, st.TextDecoration)
	put(PropFontSize, st.FontSize.Raw)
	put(PropColor, st.Color)
	put(PropTextAlign, st.TextAlign)
	return sb.String()
}

// nextNode advances a pre-order walk rooted at root.
func nextNode(n, root *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for n != nil && n != root {
		if n.NextSibling != nil {
			return n.NextSibling
		}
		n = n.Parent
	}
	return nil
}
