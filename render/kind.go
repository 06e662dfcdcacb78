// Package render turns a prepared, style-annotated HTML tree into BBCode or
// Markdown text. Both renderers walk the same tree and derive character
// styling purely from resolved styles, so presentational tags and
// stylesheet-driven styling come out identically.
package render

import (
	"forumfmt/style"
)

// Kind identifies one character-style wrapper. The declaration order is the
// canonical nesting order: wrappers open in ascending Kind order and close
// in reverse, so combined styles always nest without crossing.
type Kind int

const (
	KindSize Kind = iota
	KindColor
	KindBold
	KindItalic
	KindUnderline
	KindStrike
)

// kindOrder lists every kind in canonical (outermost first) order.
var kindOrder = []Kind{KindSize, KindColor, KindBold, KindItalic, KindUnderline, KindStrike}

// diffKinds returns the wrappers an element introduces relative to its
// parent, in canonical order. A style already in effect on the parent is
// never re-opened, so `<b><b>x</b></b>` emits a single wrapper.
func diffKinds(st, parent *style.Style) []Kind {
	var kinds []Kind
	for _, k := range kindOrder {
		if kindApplies(k, st, parent) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func kindApplies(k Kind, st, parent *style.Style) bool {
	switch k {
	case KindSize:
		cur, ok := sizePoints(st.FontSize)
		if !ok {
			return false
		}
		par, ok := sizePoints(parent.FontSize)
		return !ok || cur != par
	case KindColor:
		cur, ok := normalizeColor(st.Color)
		if !ok {
			return false
		}
		par, _ := normalizeColor(parent.Color)
		return cur != par
	case KindBold:
		return st.Bold() && !parent.Bold()
	case KindItalic:
		return st.Italic() && !parent.Italic()
	case KindUnderline:
		return st.Underline() && !parent.Underline()
	case KindStrike:
		return st.Strike() && !parent.Strike()
	}
	return false
}
