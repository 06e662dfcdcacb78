package style

import (
	"strings"
	"testing"

	"golang.org/x/net/html"

	"forumfmt/css"
)

func parseHTML(t *testing.T, src string) *html.Node {
	t.Helper()
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parsing html: %v", err)
	}
	return root
}

func findTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func parseSheets(t *testing.T, srcs ...string) []*css.Stylesheet {
	t.Helper()
	p := css.NewParser(nil)
	var sheets []*css.Stylesheet
	for _, src := range srcs {
		sheets = append(sheets, p.Parse([]byte(src), "test.css"))
	}
	return sheets
}

func resolveOne(t *testing.T, htmlSrc, tag string, cssSrcs ...string) *Style {
	t.Helper()
	root := parseHTML(t, htmlSrc)
	styles := NewResolver(parseSheets(t, cssSrcs...), nil).Resolve(root)
	n := findTag(root, tag)
	if n == nil {
		t.Fatalf("no <%s> in document", tag)
	}
	st, ok := styles[n]
	if !ok {
		t.Fatalf("no resolved style for <%s>", tag)
	}
	return st
}

func TestResolverSpecificity(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		css       string
		wantColor string
	}{
		{
			name:      "id beats class",
			html:      `<p id="x" class="a">hi</p>`,
			css:       `#x { color: red; } .a { color: blue; }`,
			wantColor: "red",
		},
		{
			name:      "class beats tag",
			html:      `<p class="a">hi</p>`,
			css:       `.a { color: blue; } p { color: green; }`,
			wantColor: "blue",
		},
		{
			name:      "equal specificity later wins",
			html:      `<p class="a b">hi</p>`,
			css:       `.a { color: red; } .b { color: blue; }`,
			wantColor: "blue",
		},
		{
			name:      "equal specificity later wins across sheets order",
			html:      `<p>hi</p>`,
			css:       `p { color: red; } p { color: blue; }`,
			wantColor: "blue",
		},
		{
			name:      "compound selector outranks single class",
			html:      `<p class="a">hi</p>`,
			css:       `p.a { color: red; } .a { color: blue; }`,
			wantColor: "red",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := resolveOne(t, tt.html, "p", tt.css)
			if st.Color != tt.wantColor {
				t.Errorf("color = %q, want %q", st.Color, tt.wantColor)
			}
		})
	}
}

func TestResolverLaterSheetWins(t *testing.T) {
	st := resolveOne(t, `<p>hi</p>`, "p",
		`p { color: red; }`,
		`p { color: blue; }`)
	if st.Color != "blue" {
		t.Errorf("color = %q, want %q", st.Color, "blue")
	}
}

func TestResolverInheritance(t *testing.T) {
	root := parseHTML(t, `<div><p><span>hi</span></p></div>`)
	styles := NewResolver(parseSheets(t,
		`div { color: red; font-size: 20px; font-weight: bold; text-align: center; }`), nil).Resolve(root)

	span := styles[findTag(root, "span")]
	if span == nil {
		t.Fatal("no resolved style for <span>")
	}
	if span.Color != "red" {
		t.Errorf("color = %q, want inherited %q", span.Color, "red")
	}
	if !span.Bold() {
		t.Error("font-weight did not inherit")
	}
	if span.TextAlign != "center" {
		t.Errorf("text-align = %q, want inherited %q", span.TextAlign, "center")
	}
	if span.FontSize.Raw != "medium" {
		t.Errorf("font-size = %q, want non-inherited default %q", span.FontSize.Raw, "medium")
	}
}

func TestResolverDisplayNotInherited(t *testing.T) {
	root := parseHTML(t, `<div><span>hi</span></div>`)
	styles := NewResolver(parseSheets(t, `div { display: none; }`), nil).Resolve(root)

	span := styles[findTag(root, "span")]
	if span.Display != "inline" {
		t.Errorf("display = %q, want %q", span.Display, "inline")
	}
	// The span still disappears: the filter detaches the whole div subtree.
	if !styles[findTag(root, "div")].Hidden() {
		t.Error("div should be hidden")
	}
}

func TestResolverDuplicateProperty(t *testing.T) {
	st := resolveOne(t, `<p>hi</p>`, "p", `p { color: red; color: blue; }`)
	if st.Color != "blue" {
		t.Errorf("color = %q, want later declaration %q", st.Color, "blue")
	}
}

func TestResolverInlineStyleWins(t *testing.T) {
	st := resolveOne(t, `<p id="x" style="color: green">hi</p>`, "p",
		`#x { color: red; }`)
	if st.Color != "green" {
		t.Errorf("color = %q, want inline %q", st.Color, "green")
	}
}

func TestResolverUnknownPropertyIgnored(t *testing.T) {
	st := resolveOne(t, `<p>hi</p>`, "p", `p { margin: 10px; color: red; }`)
	if st.Color != "red" {
		t.Errorf("color = %q, want %q", st.Color, "red")
	}
}

func TestStyleAccessors(t *testing.T) {
	tests := []struct {
		name  string
		st    Style
		check func(*Style) bool
		want  bool
	}{
		{"bold keyword", Style{FontWeight: "bold"}, (*Style).Bold, true},
		{"bold numeric", Style{FontWeight: "700"}, (*Style).Bold, true},
		{"normal numeric", Style{FontWeight: "400"}, (*Style).Bold, false},
		{"italic", Style{FontStyle: "italic"}, (*Style).Italic, true},
		{"oblique", Style{FontStyle: "oblique"}, (*Style).Italic, true},
		{"underline", Style{TextDecoration: "underline"}, (*Style).Underline, true},
		{"strike", Style{TextDecoration: "line-through"}, (*Style).Strike, true},
		{"combined decoration", Style{TextDecoration: "underline line-through"}, (*Style).Strike, true},
		{"hidden display", Style{Display: "none"}, (*Style).Hidden, true},
		{"hidden visibility", Style{Visibility: "hidden"}, (*Style).Hidden, true},
		{"visible", Style{Display: "block", Visibility: "visible"}, (*Style).Hidden, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(&tt.st); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolverRepeatable(t *testing.T) {
	root := parseHTML(t, `<html><body><p class="x"><b>a</b></p><p id="y">b</p></body></html>`)
	sheets := parseSheets(t,
		`p { color: #111111; } .x { color: #222222; font-weight: bold; }`,
		`#y { color: #333333; } p { text-align: center; }`,
	)

	first := NewResolver(sheets, nil).Resolve(root)
	second := NewResolver(sheets, nil).Resolve(root)

	if len(first) != len(second) {
		t.Fatalf("resolved %d nodes, then %d", len(first), len(second))
	}
	for n, st := range first {
		other, ok := second[n]
		if !ok {
			t.Fatalf("<%s> missing from second resolution", n.Data)
		}
		if *st != *other {
			t.Errorf("<%s>: %+v != %+v", n.Data, *st, *other)
		}
	}
}
