package style

import (
	_ "embed"
)

// DefaultCSS is the built-in stylesheet mapping presentational HTML tags to
// their conventional styles. It participates in the cascade below all
// document sheets, so any document rule overrides it.
//
//go:embed default.css
var DefaultCSS string
