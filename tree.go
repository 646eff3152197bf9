package searchql

import "strings"

// IndentUnit is prepended once per nesting level by Tree.
const IndentUnit = "  "

// TreeWriter collects the lines of a rendered tree.
type TreeWriter struct {
	b     strings.Builder
	lines int
}

// Line writes text indented for depth.
func (w *TreeWriter) Line(depth int, text string) {
	if w.lines > 0 {
		w.b.WriteByte('\n')
	}
	w.b.WriteString(strings.Repeat(IndentUnit, depth))
	w.b.WriteString(text)
	w.lines++
}

// String returns the rendered tree.
func (w *TreeWriter) String() string {
	return w.b.String()
}

// Tree renders n as an indented multi-line string.
func Tree(n Node) string {
	if n == nil {
		return ""
	}
	var w TreeWriter
	n.WriteTree(&w, 0)
	return w.String()
}
