package style

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"forumfmt/utils/debug"
)

// DumpTree renders the document tree with each element's resolved style,
// one node per line, for diagnostics and reports.
func DumpTree(root *html.Node, styles Styles) string {
	tw := debug.NewTreeWriter()
	dumpNode(tw, root, styles, 0)
	return tw.String()
}

func dumpNode(tw *debug.TreeWriter, n *html.Node, styles Styles, depth int) {
	switch n.Type {
	case html.DocumentNode:
		tw.Line(depth, "#document")
	case html.ElementNode:
		var attrs strings.Builder
		for _, a := range n.Attr {
			fmt.Fprintf(&attrs, " %s=%q", a.Key, a.Val)
		}
		tw.Line(depth, "<%s%s>", n.Data, attrs.String())
		if st, ok := styles[n]; ok {
			tw.Line(depth+1, "= %s", st.declarations())
		}
	case html.TextNode:
		if strings.TrimSpace(n.Data) == "" {
			return
		}
		tw.TextBlock(depth, "#text", n.Data)
		return
	default:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		dumpNode(tw, c, styles, depth+1)
	}
}
