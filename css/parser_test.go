package css

import (
	"strings"
	"testing"
)

func parseSheet(t *testing.T, src string) *Stylesheet {
	t.Helper()
	return NewParser(nil).Parse([]byte(src), "test.css")
}

func TestParseBasicRule(t *testing.T) {
	sheet := parseSheet(t, `p { color: red; }`)

	if len(sheet.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(sheet.Rules))
	}
	rule := sheet.Rules[0]
	if rule.Selector.Raw != "p" {
		t.Errorf("selector = %q, want %q", rule.Selector.Raw, "p")
	}
	v, ok := rule.GetProperty("color")
	if !ok {
		t.Fatal("color property not found")
	}
	if v.Keyword != "red" {
		t.Errorf("color = %q, want %q", v.Keyword, "red")
	}
}

func TestParseGroupedSelectors(t *testing.T) {
	sheet := parseSheet(t, `h1, h2, .title { font-weight: bold; }`)

	if len(sheet.Rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(sheet.Rules))
	}
	for i, want := range []string{"h1", "h2", ".title"} {
		if sheet.Rules[i].Selector.Raw != want {
			t.Errorf("rule %d selector = %q, want %q", i, sheet.Rules[i].Selector.Raw, want)
		}
		if sheet.Rules[i].Order != i {
			t.Errorf("rule %d order = %d, want %d", i, sheet.Rules[i].Order, i)
		}
		v, ok := sheet.Rules[i].GetProperty("font-weight")
		if !ok || v.Keyword != "bold" {
			t.Errorf("rule %d font-weight = %+v, want bold", i, v)
		}
	}
}

func TestParseDuplicatePropertyLastWins(t *testing.T) {
	sheet := parseSheet(t, `p { color: red; color: blue; }`)

	if len(sheet.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(sheet.Rules))
	}
	v, _ := sheet.Rules[0].GetProperty("color")
	if v.Keyword != "blue" {
		t.Errorf("color = %q, want %q", v.Keyword, "blue")
	}
}

func TestParseValues(t *testing.T) {
	tests := []struct {
		name string
		css  string
		prop string
		want Value
	}{
		{
			name: "dimension",
			css:  `p { font-size: 12pt; }`,
			prop: "font-size",
			want: Value{Raw: "12pt", Value: 12, Unit: "pt"},
		},
		{
			name: "pixels",
			css:  `p { font-size: 16px; }`,
			prop: "font-size",
			want: Value{Raw: "16px", Value: 16, Unit: "px"},
		},
		{
			name: "percentage",
			css:  `p { font-size: 150%; }`,
			prop: "font-size",
			want: Value{Raw: "150%", Value: 150, Unit: "%"},
		},
		{
			name: "bare number",
			css:  `p { font-weight: 700; }`,
			prop: "font-weight",
			want: Value{Raw: "700", Value: 700},
		},
		{
			name: "keyword",
			css:  `p { text-align: center; }`,
			prop: "text-align",
			want: Value{Raw: "center", Keyword: "center"},
		},
		{
			name: "hex color",
			css:  `p { color: #ff0000; }`,
			prop: "color",
			want: Value{Raw: "#ff0000", Keyword: "#ff0000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := parseSheet(t, tt.css)
			if len(sheet.Rules) != 1 {
				t.Fatalf("expected 1 rule, got %d", len(sheet.Rules))
			}
			got, ok := sheet.Rules[0].GetProperty(tt.prop)
			if !ok {
				t.Fatalf("property %q not found", tt.prop)
			}
			if got != tt.want {
				t.Errorf("value = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseUnsupportedSelectors(t *testing.T) {
	tests := []struct {
		name string
		css  string
		warn string
	}{
		{"child combinator", `div > p { color: red; }`, "combinator"},
		{"sibling combinator", `h1 + p { color: red; }`, "combinator"},
		{"pseudo class", `a:hover { color: red; }`, "pseudo"},
		{"attribute", `input[type="text"] { color: red; }`, "attribute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := parseSheet(t, tt.css)
			if len(sheet.Rules) != 0 {
				t.Errorf("expected no rules, got %d", len(sheet.Rules))
			}
			if len(sheet.Warnings) == 0 {
				t.Fatal("expected a warning")
			}
			if !strings.Contains(sheet.Warnings[0], tt.warn) {
				t.Errorf("warning = %q, want mention of %q", sheet.Warnings[0], tt.warn)
			}
		})
	}
}

func TestParseSkipsAtRuleBlocks(t *testing.T) {
	sheet := parseSheet(t, `
@media screen and (max-width: 600px) {
	p { color: red; }
}
em { font-style: italic; }
`)

	if len(sheet.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(sheet.Rules))
	}
	if sheet.Rules[0].Selector.Raw != "em" {
		t.Errorf("selector = %q, want %q", sheet.Rules[0].Selector.Raw, "em")
	}
	if len(sheet.Warnings) == 0 || !strings.Contains(sheet.Warnings[0], "at-rule") {
		t.Errorf("expected at-rule warning, got %v", sheet.Warnings)
	}
}

func TestParseImports(t *testing.T) {
	sheet := parseSheet(t, `
@import "extra.css";
@import url(more.css);
p { color: red; }
`)

	want := []string{"extra.css", "more.css"}
	if len(sheet.Imports) != len(want) {
		t.Fatalf("imports = %v, want %v", sheet.Imports, want)
	}
	for i := range want {
		if sheet.Imports[i] != want[i] {
			t.Errorf("import %d = %q, want %q", i, sheet.Imports[i], want[i])
		}
	}
	if len(sheet.Rules) != 1 {
		t.Errorf("expected 1 rule after imports, got %d", len(sheet.Rules))
	}
}

func TestRulesBySelector(t *testing.T) {
	sheet := parseSheet(t, `
p { color: red; }
em { font-style: italic; }
p { text-align: center; }
`)

	matches := sheet.RulesBySelector("p")
	if len(matches) != 2 {
		t.Fatalf("expected 2 rules for p, got %d", len(matches))
	}
}

func TestParseInline(t *testing.T) {
	tests := []struct {
		name  string
		style string
		want  []InlineDeclaration
	}{
		{
			name:  "ordered declarations",
			style: "color: red; font-weight: bold",
			want: []InlineDeclaration{
				{Property: "color", Value: Value{Raw: "red", Keyword: "red"}},
				{Property: "font-weight", Value: Value{Raw: "bold", Keyword: "bold"}},
			},
		},
		{
			name:  "duplicate property keeps both in order",
			style: "color: red; color: blue",
			want: []InlineDeclaration{
				{Property: "color", Value: Value{Raw: "red", Keyword: "red"}},
				{Property: "color", Value: Value{Raw: "blue", Keyword: "blue"}},
			},
		},
		{
			name:  "dimension value",
			style: "font-size: 14pt",
			want: []InlineDeclaration{
				{Property: "font-size", Value: Value{Raw: "14pt", Value: 14, Unit: "pt"}},
			},
		},
		{
			name:  "property case folded",
			style: "COLOR: red",
			want: []InlineDeclaration{
				{Property: "color", Value: Value{Raw: "red", Keyword: "red"}},
			},
		},
		{
			name:  "empty",
			style: "  ",
			want:  nil,
		},
	}

	p := NewParser(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.ParseInline(tt.style)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d declarations, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("declaration %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestValuePredicates(t *testing.T) {
	if !(Value{Raw: "12pt", Value: 12, Unit: "pt"}).IsNumeric() {
		t.Error("dimension should be numeric")
	}
	if !(Value{Raw: "0", Value: 0}).IsNumeric() {
		t.Error("explicit zero should be numeric")
	}
	if (Value{Raw: "bold", Keyword: "bold"}).IsNumeric() {
		t.Error("keyword should not be numeric")
	}
	if !(Value{Raw: "bold", Keyword: "bold"}).IsKeyword() {
		t.Error("keyword should be keyword")
	}
	if (Value{Raw: "12pt", Value: 12, Unit: "pt"}).IsKeyword() {
		t.Error("dimension should not be keyword")
	}
}
