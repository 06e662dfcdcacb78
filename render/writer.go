package render

import (
	"strings"
)

// lineWriter accumulates output while tracking line boundaries, so block
// elements can request separation ("start on a fresh line", "leave a blank
// line") without producing runs of stray empty lines. Separation is queued
// and only materialized by the next write, which lets structural closers
// retract a pending blank and sit directly under their content. A prefix
// stack supports nested quoting and list indentation: the current prefix
// opens every new line.
type lineWriter struct {
	sb       strings.Builder
	prefixes []string
	pending  int  // queued newlines, not yet emitted
	newlines int  // trailing newlines already emitted
	atStart  bool // current line has no content yet
	empty    bool // nothing written at all
	capBlank bool // next separation request is capped to one line
}

func newLineWriter() *lineWriter {
	return &lineWriter{atStart: true, empty: true}
}

// pushPrefix materializes any queued separation under the old prefix, then
// extends the line prefix.
func (w *lineWriter) pushPrefix(p string) {
	w.flush()
	w.prefixes = append(w.prefixes, p)
}

func (w *lineWriter) popPrefix() { w.prefixes = w.prefixes[:len(w.prefixes)-1] }

func (w *lineWriter) prefix() string {
	return strings.Join(w.prefixes, "")
}

func (w *lineWriter) flush() {
	if w.empty {
		w.pending = 0
		return
	}
	for w.pending > 0 {
		if !w.atStart {
			w.sb.WriteByte('\n')
			w.atStart = true
		} else {
			// Separator lines keep continuation prefixes (quote markers) so
			// the enclosing block does not terminate early.
			if p := strings.TrimRight(w.prefix(), " "); p != "" {
				w.sb.WriteString(p)
			}
			w.sb.WriteByte('\n')
		}
		w.newlines++
		w.pending--
	}
}

// write emits s on the current line after materializing queued separation.
// s must not contain newlines.
func (w *lineWriter) write(s string) {
	if s == "" {
		return
	}
	w.flush()
	if w.atStart {
		w.sb.WriteString(w.prefix())
		w.atStart = false
	}
	w.sb.WriteString(s)
	w.newlines = 0
	w.empty = false
	w.capBlank = false
}

// text emits s, translating embedded newlines into fresh prefixed lines.
func (w *lineWriter) text(s string) {
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			w.endLine()
		}
		w.write(line)
	}
}

// endLine queues one unconditional line break.
func (w *lineWriter) endLine() {
	w.pending++
}

// separation is the break between the last content and the next write.
func (w *lineWriter) separation() int {
	return w.newlines + w.pending
}

// freshLine makes sure the next write starts a new line.
func (w *lineWriter) freshLine() {
	if w.separation() < 1 {
		w.pending++
	}
}

// blankLine makes sure the next write is separated from previous output by
// an empty line; right after a structural opener it degrades to a fresh
// line. At the very beginning of the document it is a no-op.
func (w *lineWriter) blankLine() {
	if w.empty {
		return
	}
	want := 2
	if w.capBlank {
		want = 1
	}
	if s := w.separation(); s < want {
		w.pending += want - s
	}
}

// afterOpen marks that a structural opener was just written, capping the
// next block's leading separation to a single line break.
func (w *lineWriter) afterOpen() {
	w.capBlank = true
}

// closeLine reduces any queued separation so the next write lands on the
// line directly below the content.
func (w *lineWriter) closeLine() {
	if w.newlines == 0 {
		w.pending = 1
	} else {
		w.pending = 0
	}
}

// String returns the accumulated document with exactly one trailing newline.
func (w *lineWriter) String() string {
	s := strings.TrimRight(w.sb.String(), " \t\n")
	if s == "" {
		return ""
	}
	return s + "\n"
}
