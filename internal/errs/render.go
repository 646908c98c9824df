package errs

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Render writes a rustc-style annotated diagnostic for err to w, using
// source to recover the offending line when err carries a Span. Errors
// without a Span fall back to a bare message line; a Span without a Path
// is located as "<config>".
func Render(w io.Writer, err *Error, source string) {
	caret := color.New(color.FgRed, color.Bold)

	if err.Span == nil {
		fmt.Fprintf(w, "error: %s\n", err.Error())
		return
	}

	path := err.Path
	if path == "" {
		path = "<config>"
	}

	fmt.Fprintf(w, "error: %s\n", err.Error())
	fmt.Fprintf(w, "  --> %s:%d:%d\n", path, err.Span.StartLine, err.Span.StartCol)

	lines := strings.Split(source, "\n")
	lineIdx := err.Span.StartLine - 1
	if lineIdx < 0 || lineIdx >= len(lines) {
		return
	}
	line := lines[lineIdx]

	gutter := fmt.Sprintf("%d", err.Span.StartLine)
	fmt.Fprintf(w, "%s | %s\n", gutter, line)

	col := err.Span.StartCol - 1
	if col < 0 {
		col = 0
	}
	width := err.Span.EndCol - err.Span.StartCol
	if width < 1 {
		width = 1
	}
	pad := strings.Repeat(" ", len(gutter)) + " | " + strings.Repeat(" ", col)
	fmt.Fprintf(w, "%s%s\n", pad, caret.Sprint(strings.Repeat("^", width)))
}
