// Package css parses stylesheet text into ordered rule lists for the cascade.
// Only the selector forms the converter understands survive parsing: tag,
// class, id and simple descendant combinations. Everything else is skipped
// with a warning so a single exotic rule never aborts a whole sheet.
package css

import (
	"bytes"
	"strconv"
	"strings"
	"unicode"

	"github.com/andybalholm/cascadia"
	douceur "github.com/aymerick/douceur/parser"
	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS stylesheets into structured rules.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet. The optional source parameter
// identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	sheet := &Stylesheet{
		Rules:    make([]Rule, 0),
		Warnings: make([]string, 0),
	}

	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	input := parse.NewInput(bytes.NewReader(data))
	parser := css.NewParser(input, false)

	// Selectors of a comma-separated group arrive one by one before the
	// ruleset block opens.
	var pendingSelectors []string

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			// End of input or error
			if parser.Err() != nil && parser.Err().Error() != "EOF" {
				p.log.Debug("CSS parse error", zap.Error(parser.Err()))
			}
			return sheet

		case css.BeginAtRuleGrammar:
			// Block @-rules (@media, @font-face, ...) are outside the
			// supported subset - skip the whole block.
			atRule := string(data)
			p.skipAtRuleBlock(parser)
			sheet.Warnings = append(sheet.Warnings, "unsupported at-rule: "+atRule)
			p.log.Debug("Skipping @-rule", zap.String("rule", atRule))

		case css.AtRuleGrammar:
			// Simple @-rule without block
			atRule := string(data)
			if atRule == "@import" {
				if url := extractImportURL(parser.Values()); url != "" {
					sheet.Imports = append(sheet.Imports, url)
					p.log.Debug("Parsed @import", zap.String("url", url))
				}
			} else {
				p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			}

		case css.QualifiedRuleGrammar:
			pendingSelectors = append(pendingSelectors, p.parseSelectors(data, parser.Values())...)

		case css.BeginRulesetGrammar:
			selectors := append(pendingSelectors, p.parseSelectors(data, parser.Values())...)
			pendingSelectors = nil
			props := p.parseDeclarations(parser)
			if len(props) == 0 {
				continue
			}
			for _, selStr := range selectors {
				sel, ok := p.compileSelector(selStr, sheet)
				if !ok {
					continue
				}
				// Clone properties for each selector of a grouped rule
				propsCopy := make(map[string]Value, len(props))
				for k, v := range props {
					propsCopy[k] = v
				}
				sheet.Rules = append(sheet.Rules, Rule{
					Selector:   sel,
					Properties: propsCopy,
					Order:      len(sheet.Rules),
				})
			}
		}
	}
}

// ParseInline parses the contents of an element's style attribute into an
// ordered declaration list. Malformed attributes degrade to a best-effort
// manual split instead of failing - inline styles have the highest cascade
// precedence and dropping them entirely would be far more surprising than
// keeping the parseable part.
func (p *Parser) ParseInline(style string) []InlineDeclaration {
	style = strings.TrimSpace(style)
	if style == "" {
		return nil
	}

	if decls, err := douceur.ParseDeclarations(style); err == nil {
		out := make([]InlineDeclaration, 0, len(decls))
		for _, d := range decls {
			if d == nil {
				continue
			}
			prop := strings.ToLower(strings.TrimSpace(d.Property))
			if prop == "" {
				continue
			}
			out = append(out, InlineDeclaration{Property: prop, Value: parseValueString(d.Value)})
		}
		return out
	}

	p.log.Debug("Inline style not parseable as CSS, splitting manually", zap.String("style", style))

	var out []InlineDeclaration
	for part := range strings.SplitSeq(style, ";") {
		name, value, found := strings.Cut(part, ":")
		if !found {
			continue
		}
		prop := strings.ToLower(strings.TrimSpace(name))
		if prop == "" {
			continue
		}
		out = append(out, InlineDeclaration{Property: prop, Value: parseValueString(value)})
	}
	return out
}

// extractImportURL extracts the URL from @import tokens.
// Handles: @import "url"; @import url("url"); @import url(url);
func extractImportURL(tokens []css.Token) string {
	for _, t := range tokens {
		switch t.TokenType {
		case css.StringToken:
			return unquote(string(t.Data))
		case css.URLToken:
			// url(something) - the token data is the full url(...) string
			s := string(t.Data)
			s = strings.TrimPrefix(s, "url(")
			s = strings.TrimSuffix(s, ")")
			return unquote(strings.TrimSpace(s))
		}
	}
	return ""
}

// parseSelectors extracts selector strings from token data, splitting grouped
// selectors on commas.
func (p *Parser) parseSelectors(data []byte, values []css.Token) []string {
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}

	var selectors []string
	for s := range strings.SplitSeq(sb.String(), ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			selectors = append(selectors, s)
		}
	}
	return selectors
}

// compileSelector validates a selector string against the supported subset and
// compiles it. Unsupported forms record a warning and are skipped.
func (p *Parser) compileSelector(selStr string, sheet *Stylesheet) (Selector, bool) {
	switch {
	case strings.ContainsAny(selStr, "+~>"):
		sheet.Warnings = append(sheet.Warnings, "unsupported combinator selector: "+selStr)
		p.log.Debug("Skipping combinator selector", zap.String("selector", selStr))
		return Selector{}, false
	case strings.Contains(selStr, "["):
		sheet.Warnings = append(sheet.Warnings, "unsupported attribute selector: "+selStr)
		p.log.Debug("Skipping attribute selector", zap.String("selector", selStr))
		return Selector{}, false
	case strings.Contains(selStr, ":"):
		sheet.Warnings = append(sheet.Warnings, "unsupported pseudo selector: "+selStr)
		p.log.Debug("Skipping pseudo selector", zap.String("selector", selStr))
		return Selector{}, false
	}

	sel, err := cascadia.Parse(selStr)
	if err != nil {
		sheet.Warnings = append(sheet.Warnings, "unparseable selector: "+selStr)
		p.log.Debug("Skipping unparseable selector", zap.String("selector", selStr), zap.Error(err))
		return Selector{}, false
	}
	return Selector{Raw: selStr, Sel: sel}, true
}

// parseDeclarations parses property declarations until EndRulesetGrammar.
// A property repeated within one block keeps its last value.
func (p *Parser) parseDeclarations(parser *css.Parser) map[string]Value {
	props := make(map[string]Value)

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar, css.EndRulesetGrammar:
			return props

		case css.DeclarationGrammar:
			propName := strings.ToLower(string(data))
			values := parser.Values()
			if len(values) > 0 {
				props[propName] = p.parsePropertyValue(values)
			}

		case css.CustomPropertyGrammar:
			// CSS custom properties (--var) are not supported
			continue
		}
	}
}

// parsePropertyValue converts CSS tokens to a Value.
func (p *Parser) parsePropertyValue(tokens []css.Token) Value {
	if len(tokens) == 0 {
		return Value{}
	}

	// Build raw value string
	var rawParts []string
	for _, t := range tokens {
		if t.TokenType != css.WhitespaceToken {
			rawParts = append(rawParts, string(t.Data))
		} else if len(rawParts) > 0 {
			rawParts = append(rawParts, " ")
		}
	}
	raw := strings.TrimSpace(strings.Join(rawParts, ""))

	val := Value{Raw: raw}

	// Handle single token cases
	if len(tokens) == 1 || (len(tokens) == 2 && tokens[1].TokenType == css.WhitespaceToken) {
		t := tokens[0]
		switch t.TokenType {
		case css.DimensionToken:
			val.Value, val.Unit = parseDimension(string(t.Data))
		case css.PercentageToken:
			val.Value, _ = strconv.ParseFloat(strings.TrimSuffix(string(t.Data), "%"), 64)
			val.Unit = "%"
		case css.NumberToken:
			val.Value, _ = strconv.ParseFloat(string(t.Data), 64)
		case css.IdentToken:
			val.Keyword = strings.ToLower(string(t.Data))
		case css.StringToken:
			val.Keyword = unquote(string(t.Data))
		case css.HashToken:
			// Color value
			val.Keyword = string(t.Data)
		}
		return val
	}

	// Function tokens (rgb(), url(), ...) and multi-value properties are kept
	// whole; consumers interested in their structure parse Raw themselves.
	val.Keyword = raw
	return val
}

// parseValueString converts a raw CSS value string (from an inline style
// declaration) to a Value, mirroring parsePropertyValue for token input.
func parseValueString(raw string) Value {
	raw = strings.TrimSpace(raw)
	val := Value{Raw: raw}
	if raw == "" {
		return val
	}

	first := rune(raw[0])
	switch {
	case raw[0] == '#':
		val.Keyword = raw
	case unicode.IsDigit(first) || first == '.' || first == '-' || first == '+':
		if num, unit := parseDimension(raw); unit != "" || num != 0 || raw == "0" {
			val.Value, val.Unit = num, unit
		} else {
			val.Keyword = strings.ToLower(raw)
		}
	case strings.Contains(raw, "("):
		val.Keyword = raw
	default:
		val.Keyword = strings.ToLower(unquote(raw))
	}
	return val
}

// parseDimension extracts numeric value and unit from dimension token.
func parseDimension(s string) (float64, string) {
	// Find where number ends
	numEnd := 0
	for i, r := range s {
		if unicode.IsDigit(r) || r == '.' || r == '-' || r == '+' {
			numEnd = i + 1
		} else {
			break
		}
	}

	if numEnd == 0 {
		return 0, ""
	}

	num, _ := strconv.ParseFloat(s[:numEnd], 64)
	unit := strings.ToLower(strings.TrimSpace(s[numEnd:]))
	return num, unit
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (p *Parser) skipAtRuleBlock(parser *css.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			return
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}
