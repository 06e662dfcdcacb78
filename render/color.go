package render

import (
	"fmt"
	"strconv"
	"strings"

	"forumfmt/css"
)

// namedColors covers the CSS basic palette plus the handful of extended
// names that show up in forum posts. Anything missing is passed through
// untranslated only if it already looks like a hex color.
var namedColors = map[string]string{
	"black":   "#000000",
	"silver":  "#c0c0c0",
	"gray":    "#808080",
	"grey":    "#808080",
	"white":   "#ffffff",
	"maroon":  "#800000",
	"red":     "#ff0000",
	"purple":  "#800080",
	"fuchsia": "#ff00ff",
	"magenta": "#ff00ff",
	"green":   "#008000",
	"lime":    "#00ff00",
	"olive":   "#808000",
	"yellow":  "#ffff00",
	"navy":    "#000080",
	"blue":    "#0000ff",
	"teal":    "#008080",
	"aqua":    "#00ffff",
	"cyan":    "#00ffff",
	"orange":  "#ffa500",
	"brown":   "#a52a2a",
	"pink":    "#ffc0cb",
	"gold":    "#ffd700",
}

// normalizeColor converts a CSS color spelling (named, #rgb, #rrggbb, or
// rgb(r,g,b)) to canonical lowercase #rrggbb form.
func normalizeColor(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", false
	}
	if hex, ok := namedColors[s]; ok {
		return hex, true
	}
	if strings.HasPrefix(s, "#") {
		return normalizeHex(s[1:])
	}
	if strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")") {
		return normalizeRGB(s[4 : len(s)-1])
	}
	return "", false
}

func normalizeHex(s string) (string, bool) {
	switch len(s) {
	case 3:
		var sb strings.Builder
		sb.WriteByte('#')
		for i := range 3 {
			if !isHexDigit(s[i]) {
				return "", false
			}
			sb.WriteByte(s[i])
			sb.WriteByte(s[i])
		}
		return sb.String(), true
	case 6:
		for i := range 6 {
			if !isHexDigit(s[i]) {
				return "", false
			}
		}
		return "#" + s, true
	}
	return "", false
}

func normalizeRGB(args string) (string, bool) {
	parts := strings.Split(args, ",")
	if len(parts) != 3 {
		return "", false
	}
	var vals [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return "", false
		}
		vals[i] = n
	}
	return fmt.Sprintf("#%02x%02x%02x", vals[0], vals[1], vals[2]), true
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f')
}

// sizeKeywords maps CSS absolute size keywords to point values.
var sizeKeywords = map[string]int{
	"xx-small": 8,
	"x-small":  9,
	"small":    10,
	"medium":   12,
	"large":    14,
	"x-large":  18,
	"xx-large": 24,
}

// sizePoints converts a resolved font-size value to whole points. Pixels
// are converted at the CSS reference ratio (1px = 0.75pt), relative units
// resolve against the 12pt default.
func sizePoints(v css.Value) (int, bool) {
	if v.Keyword != "" {
		pt, ok := sizeKeywords[strings.ToLower(v.Keyword)]
		return pt, ok
	}
	if !v.IsNumeric() || v.Value <= 0 {
		return 0, false
	}
	var pt float64
	switch strings.ToLower(v.Unit) {
	case "pt":
		pt = v.Value
	case "px", "":
		pt = v.Value * 0.75
	case "em", "rem":
		pt = v.Value * 12
	case "%":
		pt = v.Value * 12 / 100
	default:
		return 0, false
	}
	n := int(pt + 0.5)
	if n < 1 {
		n = 1
	}
	return n, true
}
