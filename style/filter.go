package style

import (
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// RemoveHidden detaches every subtree whose root element resolved to
// display:none or visibility:hidden. The walk is top-down and does not
// descend into detached subtrees, so a visible element inside a hidden one
// is removed with it. Returns the number of detached subtrees.
func RemoveHidden(root *html.Node, styles Styles, log *zap.Logger) int {
	if log == nil {
		log = zap.NewNop()
	}

	var removed int
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			if c.Type == html.ElementNode && styles.Get(c).Hidden() {
				n.RemoveChild(c)
				removed++
				log.Debug("Removing hidden subtree", zap.String("tag", c.Data))
			} else {
				walk(c)
			}
			c = next
		}
	}
	walk(root)
	return removed
}
