package document

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"forumfmt/css"
)

// importBudget caps how many external CSS files one document may pull in
// through links and nested @import chains.
const importBudget = 16

// CollectSheets walks the document, gathers every stylesheet source in
// document order and detaches the <style> and <link rel="stylesheet"> nodes
// it consumed. External references are resolved relative to baseDir through
// os.DirFS, which refuses absolute paths and ".." escapes, so a hostile
// href cannot read outside the source directory. When loadExternal is false
// linked files are left unresolved (and logged), only embedded blocks are
// used. A missing external file is a warning, never a failure - the cascade
// proceeds with the sheets that did resolve.
func (d *Document) CollectSheets(baseDir string, loadExternal bool, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}

	budget := importBudget
	visited := make(map[string]bool)
	baseFS := os.DirFS(baseDir)

	var consumed []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "style":
				var sb strings.Builder
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.TextNode {
						sb.WriteString(c.Data)
					}
				}
				if text := strings.TrimSpace(sb.String()); text != "" {
					d.addSheet(Sheet{Source: "embedded <style>", Data: []byte(text)}, baseFS, visited, &budget, log)
				}
				consumed = append(consumed, n)
				return
			case "link":
				rel := strings.ToLower(GetAttr(n, "rel"))
				if !strings.Contains(rel, "stylesheet") {
					break
				}
				href := strings.TrimSpace(GetAttr(n, "href"))
				if href == "" {
					log.Warn("Stylesheet link without href, ignoring")
					consumed = append(consumed, n)
					return
				}
				if !loadExternal {
					log.Debug("External stylesheet loading disabled, skipping", zap.String("href", href))
					consumed = append(consumed, n)
					return
				}
				d.loadExternalSheet(href, baseFS, visited, &budget, log)
				consumed = append(consumed, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.Root)

	for _, n := range consumed {
		n.Parent.RemoveChild(n)
	}

	log.Debug("Collected stylesheet sources", zap.Int("sheets", len(d.Sheets)))
}

// loadExternalSheet reads a linked CSS file and registers it, resolving its
// imports first.
func (d *Document) loadExternalSheet(href string, baseFS fs.FS, visited map[string]bool, budget *int, log *zap.Logger) {
	if *budget <= 0 {
		log.Warn("Stylesheet budget exhausted, skipping", zap.String("href", href))
		return
	}
	*budget--

	name := filepath.ToSlash(href)
	if visited[name] {
		log.Debug("Stylesheet already loaded, skipping", zap.String("href", href))
		return
	}
	visited[name] = true

	data, err := fs.ReadFile(baseFS, name)
	if err != nil {
		log.Warn("Unable to load linked stylesheet, continuing without it",
			zap.String("href", href), zap.Error(err))
		return
	}

	log.Debug("Loaded linked stylesheet", zap.String("href", href), zap.Int("bytes", len(data)))
	d.addSheet(Sheet{Source: href, Data: data}, baseFS, visited, budget, log)
}

// addSheet registers a CSS source, first pulling in anything it @imports so
// that imported rules precede the importing sheet's own, per CSS semantics.
func (d *Document) addSheet(sheet Sheet, baseFS fs.FS, visited map[string]bool, budget *int, log *zap.Logger) {
	for _, imp := range css.NewParser(log).Parse(sheet.Data, sheet.Source).Imports {
		if strings.Contains(imp, "://") {
			log.Warn("Remote @import cannot be resolved, skipping", zap.String("url", imp), zap.String("sheet", sheet.Source))
			continue
		}
		d.loadExternalSheet(imp, baseFS, visited, budget, log)
	}
	d.Sheets = append(d.Sheets, sheet)
}
