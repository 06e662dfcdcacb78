// Package style implements the cascade: it merges stylesheet rules, inline
// declarations and inherited values into one resolved style per element, and
// prunes subtrees the resolved styles hide.
package style

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"forumfmt/css"
)

// Property names of the supported closed set.
const (
	PropDisplay        = "display"
	PropVisibility     = "visibility"
	PropFontWeight     = "font-weight"
	PropFontStyle      = "font-style"
	PropTextDecoration = "text-decoration"
	PropFontSize       = "font-size"
	PropColor          = "color"
	PropTextAlign      = "text-align"
)

// Style is the fully resolved declaration set of one element. Every field is
// always populated after resolution: explicitly declared, inherited, or the
// default. Values are kept close to their CSS spelling; interpretation
// happens in the accessors.
type Style struct {
	Display        string
	Visibility     string
	FontWeight     string
	FontStyle      string
	TextDecoration string
	FontSize       css.Value
	Color          string
	TextAlign      string
}

// Default returns the style an element of the given tag has before any rule
// applies. Display follows the conventional browser default for the tag;
// everything else starts from the CSS initial value.
func Default(tag string) Style {
	return Style{
		Display:        defaultDisplay(tag),
		Visibility:     "visible",
		FontWeight:     "normal",
		FontStyle:      "normal",
		TextDecoration: "none",
		FontSize:       css.Value{Raw: "medium", Keyword: "medium"},
		Color:          "black",
		TextAlign:      "left",
	}
}

// Inherited returns the starting style for an element below parent: the
// inheritable properties (font-style, font-weight, text-decoration, color,
// text-align) are taken from the parent's resolved style, the rest reset to
// the tag's defaults. Display, visibility and font-size do not inherit.
func Inherited(parent *Style, tag string) Style {
	st := Default(tag)
	if parent == nil {
		return st
	}
	st.FontStyle = parent.FontStyle
	st.FontWeight = parent.FontWeight
	st.TextDecoration = parent.TextDecoration
	st.Color = parent.Color
	st.TextAlign = parent.TextAlign
	return st
}

// apply merges one declaration into the style. Properties outside the
// supported set are noted and dropped; they are not an error.
func (st *Style) apply(prop string, v css.Value, log *zap.Logger) {
	switch prop {
	case PropDisplay:
		st.Display = keywordOf(v)
	case PropVisibility:
		st.Visibility = keywordOf(v)
	case PropFontWeight:
		st.FontWeight = keywordOrRaw(v)
	case PropFontStyle:
		st.FontStyle = keywordOf(v)
	case PropTextDecoration:
		st.TextDecoration = strings.ToLower(keywordOrRaw(v))
	case PropFontSize:
		st.FontSize = v
	case PropColor:
		st.Color = keywordOrRaw(v)
	case PropTextAlign:
		st.TextAlign = keywordOf(v)
	default:
		log.Debug("Ignoring unsupported style property", zap.String("property", prop), zap.String("value", v.Raw))
	}
}

// Hidden reports whether the element is not rendered at all. Only
// display:none and visibility:hidden hide content; everything else renders.
func (st *Style) Hidden() bool {
	return st.Display == "none" || st.Visibility == "hidden"
}

// Bold reports whether the resolved font weight renders bold.
func (st *Style) Bold() bool {
	switch st.FontWeight {
	case "bold", "bolder":
		return true
	}
	if n, err := strconv.Atoi(st.FontWeight); err == nil {
		return n >= 600
	}
	return false
}

// Italic reports whether the resolved font style renders slanted.
func (st *Style) Italic() bool {
	return st.FontStyle == "italic" || st.FontStyle == "oblique"
}

// Underline reports whether the text decoration includes an underline.
func (st *Style) Underline() bool {
	return strings.Contains(st.TextDecoration, "underline")
}

// Strike reports whether the text decoration includes a line-through.
func (st *Style) Strike() bool {
	return strings.Contains(st.TextDecoration, "line-through")
}

func keywordOf(v css.Value) string {
	return strings.ToLower(strings.TrimSpace(v.Keyword))
}

func keywordOrRaw(v css.Value) string {
	if v.Keyword != "" {
		return v.Keyword
	}
	return strings.TrimSpace(v.Raw)
}

var blockDisplayTags = map[string]string{
	"html": "block", "body": "block", "div": "block", "p": "block",
	"h1": "block", "h2": "block", "h3": "block", "h4": "block",
	"h5": "block", "h6": "block", "blockquote": "block", "pre": "block",
	"ul": "block", "ol": "block", "li": "list-item",
	"table": "table", "thead": "table-header-group", "tbody": "table-row-group",
	"tfoot": "table-footer-group", "tr": "table-row", "td": "table-cell", "th": "table-cell",
	"hr": "block",
}

func defaultDisplay(tag string) string {
	if d, ok := blockDisplayTags[tag]; ok {
		return d
	}
	return "inline"
}
