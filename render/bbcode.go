package render

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"forumfmt/document"
	"forumfmt/style"
)

// DefaultMediaTemplate is the embed template used when the configuration
// does not override it. The {url} placeholder receives the source URL
// verbatim.
const DefaultMediaTemplate = "[media]{url}[/media]"

// BBCode renders a prepared tree as BBCode. Character styling comes from
// resolved styles only; tags contribute structure (paragraph breaks, lists,
// tables, links) while b/i/u and friends are picked up through the default
// stylesheet during the cascade.
type BBCode struct {
	mediaTemplate string
	log           *zap.Logger
}

// NewBBCode returns a BBCode renderer. An empty mediaTemplate selects
// DefaultMediaTemplate.
func NewBBCode(mediaTemplate string, log *zap.Logger) *BBCode {
	if mediaTemplate == "" {
		mediaTemplate = DefaultMediaTemplate
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BBCode{
		mediaTemplate: mediaTemplate,
		log:           log.Named("bbcode"),
	}
}

// Render writes the BBCode document for the children of root, normally the
// body element. The tree and styles are not modified.
func (r *BBCode) Render(w io.Writer, root *html.Node, styles style.Styles) error {
	lw := newLineWriter()
	r.children(lw, root, styles, styles.Get(root))
	_, err := io.WriteString(w, lw.String())
	return err
}

func (r *BBCode) children(w *lineWriter, n *html.Node, styles style.Styles, parent *style.Style) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.node(w, c, styles, parent)
	}
}

func (r *BBCode) node(w *lineWriter, n *html.Node, styles style.Styles, parent *style.Style) {
	if n.Type == html.TextNode {
		w.text(n.Data)
		return
	}
	if n.Type != html.ElementNode {
		return
	}

	st := styles.Get(n)
	kinds := diffKinds(st, parent)

	switch n.Data {
	case "script", "style", "head", "title":
		return

	case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6":
		w.blankLine()
		r.openKinds(w, kinds, st)
		r.children(w, n, styles, st)
		r.closeKinds(w, kinds)
		w.blankLine()

	case "blockquote":
		outer, inner := splitKinds(kinds)
		w.blankLine()
		r.openKinds(w, outer, st)
		w.freshLine()
		w.write("[quote]")
		w.endLine()
		w.afterOpen()
		r.openKinds(w, inner, st)
		r.children(w, n, styles, st)
		r.closeKinds(w, inner)
		w.closeLine()
		w.write("[/quote]")
		r.closeKinds(w, outer)
		w.blankLine()

	case "ul", "ol":
		outer, _ := splitKinds(kinds)
		w.blankLine()
		r.openKinds(w, outer, st)
		w.freshLine()
		if n.Data == "ol" {
			w.write("[list=1]")
		} else {
			w.write("[list]")
		}
		// Character styling cannot wrap [list] itself; each [*] reopens it by
		// diffing against the context outside the list.
		r.children(w, n, styles, contextAfterOuter(st, parent))
		w.closeLine()
		w.write("[/list]")
		r.closeKinds(w, outer)
		w.blankLine()

	case "li":
		w.freshLine()
		w.write("[*]")
		r.openKinds(w, kinds, st)
		r.children(w, n, styles, st)
		r.closeKinds(w, kinds)

	case "a":
		href := document.GetAttr(n, "href")
		if href == "" {
			r.openKinds(w, kinds, st)
			r.children(w, n, styles, st)
			r.closeKinds(w, kinds)
			return
		}
		r.openKinds(w, kinds, st)
		w.write("[url=" + href + "]")
		r.children(w, n, styles, st)
		w.write("[/url]")
		r.closeKinds(w, kinds)

	case "img":
		src := document.GetAttr(n, "src")
		if src == "" {
			return
		}
		w.write("[img]" + src + "[/img]")

	case "br":
		w.endLine()

	case "hr":
		w.blankLine()
		w.write("-----")
		w.blankLine()

	case "pre":
		w.blankLine()
		w.freshLine()
		w.write("[code]")
		w.endLine()
		w.afterOpen()
		w.text(escapeCodeContent(strings.TrimRight(rawText(n), "\n")))
		w.closeLine()
		w.write("[/code]")
		w.blankLine()

	case "code":
		r.openKinds(w, kinds, st)
		w.write("[icode]")
		r.children(w, n, styles, st)
		w.write("[/icode]")
		r.closeKinds(w, kinds)

	case "table":
		outer, _ := splitKinds(kinds)
		w.blankLine()
		r.openKinds(w, outer, st)
		w.freshLine()
		w.write("[table]")
		r.children(w, n, styles, contextAfterOuter(st, parent))
		w.closeLine()
		w.write("[/table]")
		r.closeKinds(w, outer)
		w.blankLine()

	case "thead", "tbody", "tfoot":
		r.children(w, n, styles, parent)

	case "tr":
		w.freshLine()
		w.write("[tr]")
		r.children(w, n, styles, parent)
		w.write("[/tr]")

	case "td", "th":
		tag := n.Data
		w.write("[" + tag + "]")
		r.openKinds(w, kinds, st)
		r.children(w, n, styles, st)
		r.closeKinds(w, kinds)
		w.write("[/" + tag + "]")

	case "embed", "iframe", "video":
		src := document.GetAttr(n, "src")
		if src == "" {
			r.log.Debug("Skipping embed without source", zap.String("tag", n.Data))
			return
		}
		w.blankLine()
		w.write(strings.ReplaceAll(r.mediaTemplate, "{url}", src))
		w.blankLine()

	default:
		// Unknown tags contribute nothing structurally, only their styled
		// content.
		r.openKinds(w, kinds, st)
		r.children(w, n, styles, st)
		r.closeKinds(w, kinds)
	}
}

func (r *BBCode) openKinds(w *lineWriter, kinds []Kind, st *style.Style) {
	for _, k := range kinds {
		w.write(bbOpenTag(k, st))
	}
}

func (r *BBCode) closeKinds(w *lineWriter, kinds []Kind) {
	for i := len(kinds) - 1; i >= 0; i-- {
		w.write(bbCloseTag(kinds[i]))
	}
}

// contextAfterOuter is the style in effect for descendants once only the
// outer wrappers of st have been emitted around a structural tag: size and
// color are taken from st, character styling is still the enclosing one, so
// inner content reopens it where tags are allowed.
func contextAfterOuter(st, parent *style.Style) *style.Style {
	ctx := *parent
	ctx.FontSize = st.FontSize
	ctx.Color = st.Color
	return &ctx
}

// splitKinds separates block-level wrappers (size, color) that belong
// outside structural tags from character wrappers that belong inside.
func splitKinds(kinds []Kind) (outer, inner []Kind) {
	for _, k := range kinds {
		if k == KindSize || k == KindColor {
			outer = append(outer, k)
		} else {
			inner = append(inner, k)
		}
	}
	return outer, inner
}

func bbOpenTag(k Kind, st *style.Style) string {
	switch k {
	case KindSize:
		pts, _ := sizePoints(st.FontSize)
		return fmt.Sprintf("[size=%d]", pts)
	case KindColor:
		hex, _ := normalizeColor(st.Color)
		return "[color=" + hex + "]"
	case KindBold:
		return "[b]"
	case KindItalic:
		return "[i]"
	case KindUnderline:
		return "[u]"
	case KindStrike:
		return "[s]"
	}
	return ""
}

func bbCloseTag(k Kind) string {
	switch k {
	case KindSize:
		return "[/size]"
	case KindColor:
		return "[/color]"
	case KindBold:
		return "[/b]"
	case KindItalic:
		return "[/i]"
	case KindUnderline:
		return "[/u]"
	case KindStrike:
		return "[/s]"
	}
	return ""
}

// escapeCodeContent breaks up a literal closing code tag inside code
// content so it cannot terminate the enclosing block early. Everything else
// passes through unescaped.
func escapeCodeContent(s string) string {
	return strings.ReplaceAll(s, "[/code]", "[/code ]")
}

// rawText concatenates the text content of a subtree, dropping markup.
func rawText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
