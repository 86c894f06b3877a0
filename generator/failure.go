package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/c360studio/specgen/extract"
	"github.com/c360studio/specgen/security"
	"github.com/c360studio/specgen/source/parser"
	"github.com/c360studio/specgen/storage"
	"github.com/c360studio/specgen/templates"
)

// Category classifies a failed run.
type Category string

// Failure categories.
const (
	CategoryParse      Category = "parse"
	CategoryExtraction Category = "extraction"
	CategoryTemplate   Category = "template"
	CategorySecurity   Category = "security"
	CategoryFileSystem Category = "filesystem"
	CategoryState      Category = "state"
	CategoryCanceled   Category = "canceled"
	CategoryInternal   Category = "internal"
)

// Failure is the user-facing form of a run error.
type Failure struct {
	Category Category `json:"category"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	// Line is the source line of a parse error, when known.
	Line int `json:"line,omitempty"`
	// MissingVariables lists template variables the data lacked.
	MissingVariables []string `json:"missing_variables,omitempty"`
	Path             string   `json:"path,omitempty"`
	Guidance         string   `json:"guidance"`
}

// Classify translates an error returned by Run into a Failure. It returns
// nil for a nil error.
func Classify(err error) *Failure {
	if err == nil {
		return nil
	}
	f := &Failure{Message: err.Error()}

	var (
		parseErr    *parser.ParseError
		extractErr  *extract.ExtractionError
		templateErr *templates.TemplateError
		securityErr *security.SecurityError
		fsErr       *storage.FileSystemError
	)

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		f.Category = CategoryCanceled
		f.Title = "Generation canceled"
		f.Guidance = "The run was interrupted before anything was written. Run it again."

	case errors.As(err, &securityErr):
		f.Category = CategorySecurity
		f.Title = "Path rejected"
		f.Path = securityErr.Path
		f.Guidance = "Use a path inside the configured workspace roots, without shell metacharacters or a leading ~."

	case errors.As(err, &parseErr):
		f.Category = CategoryParse
		f.Title = "Input document could not be parsed"
		f.Line = parseErr.Line
		f.Path = parseErr.Filename
		f.Guidance = "Make sure the input is UTF-8 text within parser.max_bytes."
		if parseErr.Line > 0 {
			f.Guidance = fmt.Sprintf("Fix the invalid text on line %d of the input and run again.", parseErr.Line)
		}

	case errors.As(err, &extractErr):
		f.Category = CategoryExtraction
		f.Title = fmt.Sprintf("No usable %s structure found", extractErr.Phase)
		f.Guidance = extractErr.Remediation

	case errors.As(err, &templateErr):
		f.Category = CategoryTemplate
		f.Title = "Template could not be rendered"
		f.MissingVariables = templateErr.Missing
		f.Line = templateErr.Line
		f.Guidance = "Fix the template override in .semspec/templates or delete it to use the built-in template."
		if len(templateErr.Missing) > 0 {
			f.Guidance = "Remove the unknown variables from the template override, or delete the override to use the built-in template."
		}

	case errors.Is(err, storage.ErrStateNotFound):
		f.Category = CategoryState
		f.Title = "Workflow state not found"
		f.Guidance = "Run specgen init to create the workflow state."

	case errors.As(err, &fsErr):
		f.Category = CategoryFileSystem
		f.Title = "File system operation failed"
		f.Path = fsErr.Path
		f.Guidance = fsGuidance(fsErr)

	default:
		f.Category = CategoryInternal
		f.Title = "Generation failed"
		f.Guidance = "Re-run with --log-level debug for details."
	}
	return f
}

func fsGuidance(err *storage.FileSystemError) string {
	switch err.Code {
	case "ENOENT":
		if err.Op == "read" {
			return "Run the reverse engineering stage first, or point inputs.primary at an existing document."
		}
		return "Check that the workspace directory exists."
	case "EACCES", "EPERM", "EROFS":
		return "Check that the workspace is writable by the current user."
	case "ENOSPC":
		return "Free disk space and run again. No partial output was left behind."
	case "EISDIR", "ENOTDIR":
		return "A file and a directory collide in the .semspec tree. Remove the conflicting entry."
	default:
		return "Check the path and run again. No partial output was left behind."
	}
}
