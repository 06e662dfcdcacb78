// Package common holds small shared enumerations. Both configuration and the
// convert subcommand need output format types and keeping them here avoids
// import cycles between those packages.
package common

import (
	"fmt"
	"strings"
)

// Specification of requested output dialect.
type OutputFmt int

const (
	OutputFmtBBCode OutputFmt = iota
	OutputFmtMarkdown
	OutputFmtHTML
)

var outputFmtNames = []string{
	OutputFmtBBCode:   "bbcode",
	OutputFmtMarkdown: "markdown",
	OutputFmtHTML:     "html",
}

func (o OutputFmt) String() string {
	if o >= 0 && int(o) < len(outputFmtNames) {
		return outputFmtNames[o]
	}
	// this should never happen
	panic("unsupported format requested")
}

// Ext returns output file suffix for the format. Suffixes follow the naming
// scheme the forum tooling expects: converted artifacts live next to the
// source with an ".out" marker.
func (o OutputFmt) Ext() string {
	switch o {
	case OutputFmtBBCode:
		return ".out.bbcode.html"
	case OutputFmtMarkdown:
		return ".out.md"
	case OutputFmtHTML:
		return ".out.html"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}

// OutputFmtNames returns known format names in declaration order.
func OutputFmtNames() []string {
	out := make([]string, len(outputFmtNames))
	copy(out, outputFmtNames)
	return out
}

// ParseOutputFmt converts format name to OutputFmt.
func ParseOutputFmt(name string) (OutputFmt, error) {
	for i, n := range outputFmtNames {
		if strings.EqualFold(name, n) {
			return OutputFmt(i), nil
		}
	}
	return OutputFmtBBCode, fmt.Errorf("unknown output format name: %s", name)
}

// ParseOutputFmts converts comma separated list of format names, dropping
// duplicates but preserving first-seen order.
func ParseOutputFmts(list string) ([]OutputFmt, error) {
	var out []OutputFmt
	seen := make(map[OutputFmt]bool)
	for part := range strings.SplitSeq(list, ",") {
		part = strings.TrimSpace(part)
		if len(part) == 0 {
			continue
		}
		f, err := ParseOutputFmt(part)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no output formats in %q", list)
	}
	return out, nil
}
