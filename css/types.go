package css

import (
	"strings"
	"unicode"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Value represents a parsed CSS property value.
type Value struct {
	Raw     string  // Original CSS value string (e.g., "1.2em", "bold", "#ff0000")
	Value   float64 // Numeric value if applicable
	Unit    string  // Unit if applicable: "em", "px", "%", "pt", etc.
	Keyword string  // Keyword if applicable: "bold", "italic", "center", etc.
}

// IsNumeric returns true if the value has a numeric component.
// This includes explicit zero values like "0" or "0px".
func (v Value) IsNumeric() bool {
	// If there's a unit, it's definitely numeric
	if v.Unit != "" {
		return true
	}
	// Non-zero value with no keyword is numeric
	if v.Value != 0 && v.Keyword == "" {
		return true
	}
	// Check if Raw looks like a numeric value (handles "0" case)
	if v.Raw != "" && v.Keyword == "" {
		firstChar := rune(v.Raw[0])
		if unicode.IsDigit(firstChar) || firstChar == '.' || firstChar == '-' || firstChar == '+' {
			return true
		}
	}
	return false
}

// IsKeyword returns true if the value is a keyword (no numeric component).
func (v Value) IsKeyword() bool {
	return v.Keyword != "" && v.Unit == ""
}

// Selector is a compiled CSS selector. Only tag, class, id and descendant
// forms survive parsing; anything else is rejected by the parser before a
// Selector is built.
type Selector struct {
	Raw string       // Original selector string
	Sel cascadia.Sel // Compiled matcher
}

// Specificity returns the (id, class, tag) precedence tuple of the selector.
func (s Selector) Specificity() cascadia.Specificity {
	if s.Sel == nil {
		return cascadia.Specificity{}
	}
	return s.Sel.Specificity()
}

// Match reports whether the selector matches the given element node.
func (s Selector) Match(n *html.Node) bool {
	return s.Sel != nil && s.Sel.Match(n)
}

// Rule represents a single CSS rule (selector + properties).
type Rule struct {
	Selector   Selector         // Compiled selector
	Properties map[string]Value // Property name -> value, later duplicates win
	Order      int              // Position within the stylesheet, for tie-breaks
}

// GetProperty returns the value for a property, or empty Value if not found.
func (r Rule) GetProperty(name string) (Value, bool) {
	v, ok := r.Properties[name]
	return v, ok
}

// Stylesheet represents a parsed CSS stylesheet.
type Stylesheet struct {
	Rules    []Rule   // Supported rules in source order
	Imports  []string // @import URLs in source order, resolved by the caller
	Warnings []string // Warnings for skipped/unsupported constructs
}

// RulesBySelector returns all rules matching the given selector string.
func (s *Stylesheet) RulesBySelector(selector string) []Rule {
	var matches []Rule
	for _, rule := range s.Rules {
		if rule.Selector.Raw == selector {
			matches = append(matches, rule)
		}
	}
	return matches
}

// InlineDeclaration is a single property/value pair from an element's style
// attribute. Order matters: within one attribute a later declaration for the
// same property overrides an earlier one.
type InlineDeclaration struct {
	Property string
	Value    Value
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
