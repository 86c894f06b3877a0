package parser

import "fmt"

// ParseError reports input the parser refuses: oversized or not valid UTF-8.
type ParseError struct {
	// Filename is the document being parsed, if known.
	Filename string
	// Line is the 1-based offending line, or 0 when no line applies.
	Line int
	// Message describes the problem.
	Message string
}

func (e *ParseError) Error() string {
	loc := e.Filename
	if loc == "" {
		loc = "input"
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse %s:%d: %s", loc, e.Line, e.Message)
	}
	return fmt.Sprintf("parse %s: %s", loc, e.Message)
}
