// Package macro implements the regex macro preprocessing phase. It runs on
// raw text before HTML parsing; the rest of the pipeline treats its output
// as opaque input.
//
// Rules are declared inline with a C-like syntax:
//
//	#define /pattern/replacement/
//	#define(flags) /pattern/replacement/
//	#undef name
//
// The character right after the (optional) flag list acts as the separator,
// so patterns containing slashes can pick another one. Supported flags:
//
//	recursive    - repeat the rule until its target stops changing
//	end          - apply after the whole document is assembled, not per line
//	linestogether - with end, match across line boundaries
//	literal      - quote pattern and replacement shell-style, no separator
//	id:NAME      - name the rule so a later #undef NAME removes it
//
// Patterns are RE2 regular expressions; replacements use $1-style group
// references.
package macro

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Directive lines are consumed, rules apply only to lines after their
// definition. A runaway recursive rule is cut off after maxRounds passes.
const maxRounds = 1000

type ruleFlags struct {
	recursive     bool
	end           bool
	linesTogether bool
}

type rule struct {
	id        string
	re        *regexp.Regexp
	repl      string
	flags     ruleFlags
	isLiteral bool
}

// Processor expands macro directives in raw text.
type Processor struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{log: log.Named("macro")}
}

// Process scans src line by line, collecting #define/#undef directives and
// applying the accumulated rules to every following line. Rules flagged
// "end" run once the whole document is assembled. Malformed directives are
// dropped with a warning; they never abort the run.
func (p *Processor) Process(src string) string {
	src = strings.ReplaceAll(src, "\r\n", "\n")

	var rules []*rule
	var out []string
	for _, line := range strings.Split(src, "\n") {
		switch {
		case strings.HasPrefix(line, "#define"):
			r, err := p.parseDefine(line)
			if err != nil {
				p.log.Warn("Dropping malformed macro directive", zap.String("line", line), zap.Error(err))
				continue
			}
			rules = append(rules, r)
		case strings.HasPrefix(line, "#undef"):
			id := strings.TrimSpace(strings.TrimPrefix(line, "#undef"))
			rules = undefine(rules, id)
		default:
			out = append(out, p.applyLine(line, rules))
		}
	}

	return p.applyEnd(strings.Join(out, "\n"), rules)
}

func undefine(rules []*rule, id string) []*rule {
	kept := rules[:0]
	for _, r := range rules {
		if r.id == "" || r.id != id {
			kept = append(kept, r)
		}
	}
	return kept
}

// applyLine runs the per-line rules over one line until a full pass changes
// nothing. Non-recursive rules fire in the first pass only.
func (p *Processor) applyLine(line string, rules []*rule) string {
	for round := 0; round < maxRounds; round++ {
		changed := false
		for _, r := range rules {
			if r.flags.end || (round > 0 && !r.flags.recursive) {
				continue
			}
			replaced := r.re.ReplaceAllString(line, r.repl)
			changed = changed || replaced != line
			line = replaced
		}
		if !changed {
			return line
		}
	}
	p.log.Warn("Recursive macro did not converge", zap.String("line", line))
	return line
}

// applyEnd runs the end-phase rules over the assembled document.
func (p *Processor) applyEnd(text string, rules []*rule) string {
	for round := 0; round < maxRounds; round++ {
		changed := false
		for _, r := range rules {
			if !r.flags.end || (round > 0 && !r.flags.recursive) {
				continue
			}
			var replaced string
			if r.flags.linesTogether {
				replaced = r.re.ReplaceAllString(text, r.repl)
			} else {
				lines := strings.Split(text, "\n")
				for i, line := range lines {
					lines[i] = r.re.ReplaceAllString(line, r.repl)
				}
				replaced = strings.Join(lines, "\n")
			}
			changed = changed || replaced != text
			text = replaced
		}
		if !changed {
			return text
		}
	}
	p.log.Warn("Recursive end macro did not converge")
	return text
}

func (p *Processor) parseDefine(line string) (*rule, error) {
	body := strings.TrimPrefix(line, "#define")

	r := &rule{}
	if m := flagListRE.FindStringSubmatch(body); m != nil {
		for _, f := range strings.Split(m[1], ",") {
			f = strings.TrimSpace(f)
			switch {
			case f == "recursive":
				r.flags.recursive = true
			case f == "end":
				r.flags.end = true
			case f == "linestogether":
				r.flags.linesTogether = true
			case f == "literal":
				r.isLiteral = true
			case strings.HasPrefix(f, "id:"):
				r.id = f[len("id:"):]
			default:
				return nil, fmt.Errorf("unknown macro flag %q", f)
			}
		}
		body = body[len(m[0]):]
	}
	if body == "" {
		return nil, fmt.Errorf("incomplete directive")
	}

	var pat, repl string
	var err error
	if r.isLiteral {
		pat, repl, err = splitQuoted(body)
	} else {
		pat, repl, err = splitSeparated(body)
	}
	if err != nil {
		return nil, err
	}

	if r.re, err = regexp.Compile(pat); err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", pat, err)
	}
	r.repl = repl
	return r, nil
}

var flagListRE = regexp.MustCompile(`^\(([\w:]+(?:,\s*[\w:]+)*)\)`)

// splitSeparated parses the /pattern/replacement/ form: the first character
// after the directive is the separator, and exactly three fields must
// result.
func splitSeparated(body string) (string, string, error) {
	sep := string(body[0])
	parts := strings.Split(body, sep)
	if len(parts) != 3 {
		return "", "", fmt.Errorf("expected pattern%sreplacement, got %q", sep, body)
	}
	return parts[1], parts[2], nil
}

// splitQuoted parses the literal form: two shell-style quoted words.
func splitQuoted(body string) (string, string, error) {
	words, err := shellSplit(body)
	if err != nil {
		return "", "", err
	}
	if len(words) != 2 {
		return "", "", fmt.Errorf("expected two quoted words, got %d", len(words))
	}
	return words[0], words[1], nil
}

func shellSplit(s string) ([]string, error) {
	var words []string
	var cur strings.Builder
	inWord := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		case c == '\'' || c == '"':
			quote := c
			inWord = true
			for i++; ; i++ {
				if i >= len(s) {
					return nil, fmt.Errorf("unterminated quote")
				}
				if s[i] == quote {
					break
				}
				if quote == '"' && s[i] == '\\' && i+1 < len(s) {
					i++
				}
				cur.WriteByte(s[i])
			}
		case c == '\\' && i+1 < len(s):
			inWord = true
			i++
			cur.WriteByte(s[i])
		default:
			inWord = true
			cur.WriteByte(c)
		}
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words, nil
}
