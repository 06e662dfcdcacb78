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

// Markdown renders a prepared tree as Markdown. Styles Markdown cannot
// express (underline, colors, sizes, alignment) are dropped while the text
// content is kept. Bold and italic on the same element collapse into the
// triple-marker form so emphasis markers stay balanced.
type Markdown struct {
	log *zap.Logger
}

func NewMarkdown(log *zap.Logger) *Markdown {
	if log == nil {
		log = zap.NewNop()
	}
	return &Markdown{log: log.Named("markdown")}
}

// Render writes the Markdown document for the children of root, normally
// the body element. The tree and styles are not modified.
func (r *Markdown) Render(w io.Writer, root *html.Node, styles style.Styles) error {
	lw := newLineWriter()
	r.flow(lw, root, styles, styles.Get(root))
	_, err := io.WriteString(w, lw.String())
	return err
}

// flow renders mixed content: block children get block handling, anything
// else is rendered inline onto the current line.
func (r *Markdown) flow(w *lineWriter, n *html.Node, styles style.Styles, parent *style.Style) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && isBlockTag(c.Data) {
			r.block(w, c, styles, parent)
		} else {
			w.text(r.inlineNode(c, styles, parent))
		}
	}
}

var blockTags = map[string]bool{
	"p": true, "div": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "blockquote": true,
	"ul": true, "ol": true, "pre": true, "hr": true, "table": true,
	"embed": true, "iframe": true, "video": true,
	"script": true, "style": true, "head": true, "title": true,
}

func isBlockTag(tag string) bool { return blockTags[tag] }

func (r *Markdown) block(w *lineWriter, n *html.Node, styles style.Styles, parent *style.Style) {
	st := styles.Get(n)

	switch n.Data {
	case "script", "style", "head", "title":
		return

	case "p", "div":
		w.blankLine()
		r.styledFlow(w, n, styles, st, parent)
		w.blankLine()

	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(n.Data[1] - '0')
		text := strings.TrimSpace(oneLine(r.inlineChildren(n, styles, st)))
		if text == "" {
			return
		}
		w.blankLine()
		w.write(strings.Repeat("#", level) + " " + text)
		w.blankLine()

	case "blockquote":
		w.blankLine()
		w.pushPrefix("> ")
		r.styledFlow(w, n, styles, st, parent)
		w.popPrefix()
		w.blankLine()

	case "ul", "ol":
		nested := len(w.prefixes) > 0
		if nested {
			w.freshLine()
		} else {
			w.blankLine()
		}
		idx := 0
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || c.Data != "li" {
				continue
			}
			idx++
			marker := "- "
			if n.Data == "ol" {
				marker = fmt.Sprintf("%d. ", idx)
			}
			w.freshLine()
			w.write(marker)
			w.pushPrefix(strings.Repeat(" ", len(marker)))
			// Items diff against the context outside the list, so emphasis
			// set on the list itself reappears inside each item.
			r.styledFlow(w, c, styles, styles.Get(c), parent)
			w.popPrefix()
		}
		if nested {
			w.freshLine()
		} else {
			w.blankLine()
		}

	case "pre":
		content := strings.TrimRight(rawText(n), "\n")
		fence := codeFence(content)
		w.blankLine()
		w.write(fence + codeLanguage(n))
		w.endLine()
		w.text(content)
		w.freshLine()
		w.write(fence)
		w.blankLine()

	case "hr":
		w.blankLine()
		w.write("---")
		w.blankLine()

	case "table":
		r.table(w, n, styles, parent)

	case "embed", "iframe", "video":
		src := document.GetAttr(n, "src")
		if src == "" {
			return
		}
		w.blankLine()
		w.write(src)
		w.blankLine()

	default:
		r.styledFlow(w, n, styles, st, parent)
	}
}

// styledFlow renders the content of a structural element whose own style may
// carry emphasis that cannot wrap the block syntax itself. Inline-only
// content is emphasized as a whole against ctx; mixed content falls back to
// plain flow.
func (r *Markdown) styledFlow(w *lineWriter, n *html.Node, styles style.Styles, st, ctx *style.Style) {
	if hasEmphasis(st, ctx) && !containsBlock(n) {
		w.text(emphasize(r.inlineChildren(n, styles, st), st, ctx))
		return
	}
	r.flow(w, n, styles, st)
}

func (r *Markdown) table(w *lineWriter, n *html.Node, styles style.Styles, parent *style.Style) {
	var rows []*html.Node
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.Data == "tr" {
				rows = append(rows, c)
			} else {
				collect(c)
			}
		}
	}
	collect(n)
	if len(rows) == 0 {
		return
	}

	w.blankLine()
	for i, row := range rows {
		var cells []string
		for c := row.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
				cellSt := styles.Get(c)
				cell := oneLine(emphasize(r.inlineChildren(c, styles, cellSt), cellSt, parent))
				cells = append(cells, strings.ReplaceAll(strings.TrimSpace(cell), "|", `\|`))
			}
		}
		w.freshLine()
		w.write("| " + strings.Join(cells, " | ") + " |")
		if i == 0 {
			w.freshLine()
			w.write("|" + strings.Repeat(" --- |", len(cells)))
		}
	}
	w.blankLine()
}

// inlineChildren renders the children of n as one inline string.
func (r *Markdown) inlineChildren(n *html.Node, styles style.Styles, parent *style.Style) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(r.inlineNode(c, styles, parent))
	}
	return sb.String()
}

func (r *Markdown) inlineNode(n *html.Node, styles style.Styles, parent *style.Style) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	if n.Type != html.ElementNode {
		return ""
	}

	st := styles.Get(n)

	switch n.Data {
	case "br":
		return "\\\n"
	case "img":
		src := document.GetAttr(n, "src")
		if src == "" {
			return ""
		}
		return "![" + document.GetAttr(n, "alt") + "](" + src + ")"
	case "code":
		return inlineCode(rawText(n))
	}

	content := r.inlineChildren(n, styles, st)
	if n.Data == "a" {
		if href := document.GetAttr(n, "href"); href != "" {
			content = "[" + content + "](" + href + ")"
		}
	}
	return emphasize(content, st, parent)
}

func hasEmphasis(st, parent *style.Style) bool {
	return (st.Bold() && !parent.Bold()) ||
		(st.Italic() && !parent.Italic()) ||
		(st.Strike() && !parent.Strike())
}

func containsBlock(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && isBlockTag(c.Data) {
			return true
		}
	}
	return false
}

// emphasize wraps content in the emphasis markers the element introduces
// relative to its parent. Leading and trailing whitespace stays outside the
// markers so they keep their meaning.
func emphasize(content string, st, parent *style.Style) string {
	bold := st.Bold() && !parent.Bold()
	italic := st.Italic() && !parent.Italic()
	strike := st.Strike() && !parent.Strike()
	if !bold && !italic && !strike {
		return content
	}

	core := strings.TrimSpace(content)
	if core == "" {
		return content
	}
	lead := content[:strings.Index(content, core)]
	trail := content[len(lead)+len(core):]

	if strike {
		core = "~~" + core + "~~"
	}
	switch {
	case bold && italic:
		core = "***" + core + "***"
	case bold:
		core = "**" + core + "**"
	case italic:
		core = "*" + core + "*"
	}
	return lead + core + trail
}

// inlineCode wraps s in backticks, lengthening the run when s itself
// contains backticks.
func inlineCode(s string) string {
	fence := "`"
	for strings.Contains(s, fence) {
		fence += "`"
	}
	if len(fence) > 1 {
		return fence + " " + s + " " + fence
	}
	return fence + s + fence
}

// codeFence picks a fence longer than any backtick run in the content.
func codeFence(content string) string {
	fence := "```"
	for strings.Contains(content, fence) {
		fence += "`"
	}
	return fence
}

// codeLanguage extracts a language hint from a nested <code class="language-x">.
func codeLanguage(pre *html.Node) string {
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "code" {
			continue
		}
		for _, cls := range strings.Fields(document.GetAttr(c, "class")) {
			if lang, ok := strings.CutPrefix(cls, "language-"); ok {
				return lang
			}
		}
	}
	return ""
}

// oneLine collapses newlines so the text fits a single-line construct.
func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\\\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
