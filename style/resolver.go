package style

import (
	"sort"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"forumfmt/css"
	"forumfmt/document"
)

// Styles maps each element node to its resolved style. Nodes that are not
// elements have no entry.
type Styles map[*html.Node]*Style

// Get returns the resolved style for n, or the tag's defaults when n was
// never resolved. The returned style must not be modified.
func (s Styles) Get(n *html.Node) *Style {
	if st, ok := s[n]; ok {
		return st
	}
	def := Default(nodeTag(n))
	return &def
}

// Resolver applies a fixed set of stylesheets to documents. It flattens the
// sheets into a single rule list ordered by ascending precedence, so that
// resolution is a simple in-order walk over matching rules.
type Resolver struct {
	rules  []css.Rule
	parser *css.Parser
	log    *zap.Logger
}

// NewResolver builds a resolver from stylesheets in ascending precedence
// order (earlier sheets are overridden by later ones on specificity ties).
func NewResolver(sheets []*css.Stylesheet, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}

	var rules []css.Rule
	for _, sheet := range sheets {
		for _, rule := range sheet.Rules {
			rule.Order = len(rules)
			rules = append(rules, rule)
		}
	}
	// Ascending precedence: lowest specificity first, source order breaks
	// ties. Applying rules in this order makes the last write win.
	sort.Slice(rules, func(i, j int) bool {
		si, sj := rules[i].Selector.Specificity(), rules[j].Selector.Specificity()
		if si == sj {
			return rules[i].Order < rules[j].Order
		}
		return si.Less(sj)
	})

	return &Resolver{
		rules:  rules,
		parser: css.NewParser(log),
		log:    log.Named("cascade"),
	}
}

// Resolve walks the tree ancestor-first and computes the resolved style of
// every element: inherited values, then matching rules in ascending
// precedence, then the element's own style attribute.
func (r *Resolver) Resolve(root *html.Node) Styles {
	styles := make(Styles)
	r.resolveNode(root, nil, styles)
	return styles
}

func (r *Resolver) resolveNode(n *html.Node, parent *Style, styles Styles) {
	cur := parent
	if n.Type == html.ElementNode {
		st := Inherited(parent, n.Data)
		for _, rule := range r.rules {
			if !rule.Selector.Match(n) {
				continue
			}
			for prop, v := range rule.Properties {
				st.apply(prop, v, r.log)
			}
		}
		if attr := document.GetAttr(n, "style"); attr != "" {
			for _, decl := range r.parser.ParseInline(attr) {
				st.apply(decl.Property, decl.Value, r.log)
			}
		}
		styles[n] = &st
		cur = &st
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.resolveNode(c, cur, styles)
	}
}

func nodeTag(n *html.Node) string {
	if n != nil && n.Type == html.ElementNode {
		return n.Data
	}
	return ""
}
