package templates

import (
	"fmt"
	"strings"
)

// TemplateError reports a template that cannot be parsed or that references
// variables the data does not provide.
type TemplateError struct {
	// Template is the template name, when known.
	Template string
	// Line is the 1-based template line, when known.
	Line int
	// Missing lists absent variables.
	Missing []string
	Message string
}

func (e *TemplateError) Error() string {
	name := e.Template
	if name == "" {
		name = "template"
	} else {
		name = "template " + name
	}

	msg := e.Message
	if len(e.Missing) > 0 {
		missing := "missing variables: " + strings.Join(e.Missing, ", ")
		if msg == "" {
			msg = missing
		} else {
			msg += "; " + missing
		}
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", name, e.Line, msg)
	}
	return fmt.Sprintf("%s: %s", name, msg)
}
