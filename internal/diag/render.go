package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Render formats err against the source text it points into, producing a
// numbered snippet with a caret under the offending column. Errors without
// a source location render as their message alone.
//
//	policy error in main.polar at 2:15: Duplicate declaration of "egg" in the roles list.
//
//	   1 | resource Org {
//	   2 |   roles = ["egg","egg"];
//	     |               ^
//	   3 | }
func Render(err error, src, filename string) string {
	var loc int
	var header string

	var policyErr *PolicyError
	var validationErr *ValidationError
	switch {
	case errors.As(err, &policyErr):
		header = "policy error"
		loc = policyErr.Loc
	case errors.As(err, &validationErr):
		header = "validation error"
		loc = validationErr.Loc
	default:
		return err.Error()
	}

	line, col := locate(src, loc)
	return snippet(src, header, filename, line, col, err.Error())
}

// locate converts a byte offset into 1-based line and column coordinates.
func locate(src string, offset int) (line, col int) {
	if offset > len(src) {
		offset = len(src)
	}
	line, col = 1, 1
	for _, r := range src[:offset] {
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// snippet builds the caret-pointer block: up to one line of context before
// and after, numbered lines, caret under the 1-based column.
func snippet(src, header, name string, line, col int, msg string) string {
	lines := strings.Split(src, "\n")
	if len(lines) == 0 {
		lines = []string{""}
	}
	if line < 1 {
		line = 1
	}
	if line > len(lines) {
		line = len(lines)
	}
	if col < 1 {
		col = 1
	}

	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "%s in %s at %d:%d: %s\n\n", header, name, line, col, msg)
	} else {
		fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", header, line, col, msg)
	}
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lines[line-1])
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
