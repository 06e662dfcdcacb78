// Package content assembles the conversion pipeline for one document: text
// preprocessing, HTML parsing, stylesheet collection, the cascade, the
// visibility filter, and finally rendering into the requested formats.
package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"forumfmt/common"
	"forumfmt/css"
	"forumfmt/document"
	"forumfmt/macro"
	"forumfmt/render"
	"forumfmt/state"
	"forumfmt/style"
)

// Content is a fully prepared document: parsed, styled and filtered, ready
// to be rendered any number of times.
type Content struct {
	SrcName string
	Doc     *document.Document
	Sheets  []*css.Stylesheet
	Styles  style.Styles

	// Removed counts subtrees dropped by the visibility filter.
	Removed int
}

// Prepare runs the preparation pipeline over a single document. Which
// preprocessing phases run is controlled by env.Filters; the cascade always
// runs since both renderers are driven by resolved styles.
func Prepare(ctx context.Context, r io.Reader, srcName string, log *zap.Logger) (*Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	env := state.EnvFromContext(ctx)
	filters := env.Filters

	raw, err := document.Decode(r)
	if err != nil {
		return nil, err
	}

	if filters.RegexMacro {
		raw = []byte(macro.New(log).Process(string(raw)))
	}

	doc, err := document.Parse(bytes.NewReader(raw), srcName, log)
	if err != nil {
		return nil, err
	}

	// Stylesheet sources in cascade order: built-in defaults, then the
	// document's own sheets. External files resolve against the source
	// file's directory only when the link-css phase is on.
	baseDir := filepath.Dir(srcName)
	doc.CollectSheets(baseDir, filters.LinkCSS, log)

	parser := css.NewParser(log)
	sheets := []*css.Stylesheet{parser.Parse(defaultStyle(env), "builtin")}
	for _, src := range doc.Sheets {
		sheet := parser.Parse(src.Data, src.Source)
		for _, warn := range sheet.Warnings {
			log.Info("Stylesheet degraded", zap.String("source", src.Source), zap.String("reason", warn))
		}
		sheets = append(sheets, sheet)
	}

	c := &Content{
		SrcName: srcName,
		Doc:     doc,
		Sheets:  sheets,
		Styles:  style.NewResolver(sheets, log).Resolve(doc.Root),
	}

	if filters.RemoveInvisible {
		c.Removed = style.RemoveHidden(doc.Root, c.Styles, log)
		if c.Removed > 0 {
			log.Debug("Removed hidden subtrees", zap.Int("count", c.Removed))
		}
	}

	if env.Rpt != nil {
		env.Rpt.StoreData(reportName(srcName, "tree.txt"), []byte(style.DumpTree(doc.Root, c.Styles)))
	}

	return c, nil
}

func defaultStyle(env *state.LocalEnv) []byte {
	if len(env.DefaultStyle) > 0 {
		return env.DefaultStyle
	}
	return []byte(style.DefaultCSS)
}

// WriteTo renders the prepared document into w in the given format. The
// prepared tree is read-only here except for the HTML format, which inlines
// resolved styles into the serialized copy when the inline-css phase is on.
func (c *Content) WriteTo(ctx context.Context, w io.Writer, format common.OutputFmt, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)

	switch format {
	case common.OutputFmtBBCode:
		r := render.NewBBCode(env.Cfg.Document.BBCode.MediaTemplate, log)
		return r.Render(w, c.Doc.Body(), c.Styles)
	case common.OutputFmtMarkdown:
		return render.NewMarkdown(log).Render(w, c.Doc.Body(), c.Styles)
	case common.OutputFmtHTML:
		if env.Filters.InlineCSS {
			style.InlineResolved(c.Doc.Root, c.Styles)
		}
		return c.Doc.WriteTo(w)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func reportName(srcName, suffix string) string {
	base := strings.ReplaceAll(filepath.ToSlash(srcName), "/", "_")
	return fmt.Sprintf("content/%s_%s", base, suffix)
}
