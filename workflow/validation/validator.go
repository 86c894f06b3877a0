// Package validation sanity-checks rendered workflow documents. It checks
// that a document carries the sections its type requires and flags common
// quality issues such as unrendered template syntax. Findings are advisory;
// callers surface them as warnings.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	nextSectionRe = regexp.MustCompile(`(?m)^#{1,2}\s+`)
	// emptySectionRe matches empty sections (## header followed immediately by another ##)
	emptySectionRe = regexp.MustCompile(`(?m)^##\s+[^\n]+\n\s*\n##`)
	// leftoverSyntaxRe matches template tags that survived rendering
	leftoverSyntaxRe = regexp.MustCompile(`\{\{[#/]?[^}]*\}\}`)
)

// DocumentType identifies the type of generated document.
type DocumentType string

const (
	// DocumentTypeConstitution identifies the project constitution.
	DocumentTypeConstitution DocumentType = "constitution"
	// DocumentTypeSpec identifies a feature specification.
	DocumentTypeSpec DocumentType = "spec"
	// DocumentTypePlan identifies a feature implementation plan.
	DocumentTypePlan DocumentType = "plan"
)

// Result contains the result of document validation.
type Result struct {
	Valid           bool              `json:"valid"`
	DocumentType    DocumentType      `json:"document_type"`
	MissingSections []string          `json:"missing_sections,omitempty"`
	Warnings        []string          `json:"warnings,omitempty"`
	SectionDetails  map[string]string `json:"section_details,omitempty"`
}

// Validator validates generated documents.
type Validator struct {
	// RequiredSections maps document types to their required section patterns.
	RequiredSections map[DocumentType][]SectionRequirement
}

// SectionRequirement defines a required section.
type SectionRequirement struct {
	Name        string         // Human-readable name
	Pattern     *regexp.Regexp // Regex pattern to match section header
	MinContent  int            // Minimum content length after header (0 = just header required)
	Description string         // Description for feedback
}

var titleRe = regexp.MustCompile(`(?m)^#\s+.+`)

// NewValidator creates a new document validator with default requirements.
func NewValidator() *Validator {
	return &Validator{
		RequiredSections: map[DocumentType][]SectionRequirement{
			DocumentTypeConstitution: {
				{Name: "Title", Pattern: titleRe, Description: "Document title (# heading)"},
				{
					Name:        "Purpose",
					Pattern:     regexp.MustCompile(`(?mi)^##\s+purpose\b`),
					MinContent:  50,
					Description: "Purpose statement of at least 50 characters",
				},
				{
					Name:        "Core Values",
					Pattern:     regexp.MustCompile(`(?mi)^##\s+core\s+values\b`),
					MinContent:  10,
					Description: "Core values list",
				},
				{
					Name:        "Development Standards",
					Pattern:     regexp.MustCompile(`(?mi)^##\s+development\s+standards\b`),
					MinContent:  10,
					Description: "Development standards list",
				},
				{
					Name:        "Quality Metrics",
					Pattern:     regexp.MustCompile(`(?mi)^##\s+quality\s+metrics\b`),
					MinContent:  10,
					Description: "Quality metrics list",
				},
				{
					Name:        "Governance",
					Pattern:     regexp.MustCompile(`(?mi)^##\s+governance\b`),
					MinContent:  10,
					Description: "Governance rules",
				},
			},
			DocumentTypeSpec: {
				{Name: "Title", Pattern: titleRe, Description: "Specification title"},
				{
					Name:        "Overview",
					Pattern:     regexp.MustCompile(`(?mi)^##\s+overview\b`),
					MinContent:  1,
					Description: "Overview section",
				},
				{
					Name:        "User Stories",
					Pattern:     regexp.MustCompile(`(?mi)^##\s+user\s+stories\b`),
					MinContent:  1,
					Description: "User stories section",
				},
				{
					Name:        "Acceptance Criteria",
					Pattern:     regexp.MustCompile(`(?mi)^##\s+acceptance\s+criteria\b`),
					MinContent:  1,
					Description: "Acceptance criteria section",
				},
			},
			DocumentTypePlan: {
				{Name: "Title", Pattern: titleRe, Description: "Plan title"},
				{
					Name:        "Current State",
					Pattern:     regexp.MustCompile(`(?mi)^##\s+current\s+state\b`),
					MinContent:  1,
					Description: "Current state of the feature",
				},
				{
					Name:        "Target State",
					Pattern:     regexp.MustCompile(`(?mi)^##\s+target\s+state\b`),
					MinContent:  1,
					Description: "Target state of the feature",
				},
				{
					Name:        "Tasks",
					Pattern:     regexp.MustCompile(`(?mi)^##\s+tasks\b`),
					MinContent:  1,
					Description: "Tasks section",
				},
				{
					Name:        "Task Items",
					Pattern:     regexp.MustCompile(`(?m)^-\s+\*\*T\d+\*\*`),
					Description: "At least one task item (- **T1** format)",
				},
			},
		},
	}
}

// Validate validates a document against its type requirements.
func (v *Validator) Validate(content string, docType DocumentType) *Result {
	result := &Result{
		Valid:          true,
		DocumentType:   docType,
		SectionDetails: make(map[string]string),
	}

	requirements, ok := v.RequiredSections[docType]
	if !ok {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Unknown document type: %s", docType))
		return result
	}

	for _, req := range requirements {
		match := req.Pattern.FindStringIndex(content)
		if match == nil {
			result.Valid = false
			result.MissingSections = append(result.MissingSections,
				fmt.Sprintf("%s: %s", req.Name, req.Description))
			continue
		}
		if req.MinContent == 0 {
			result.SectionDetails[req.Name] = "OK"
			continue
		}

		body := sectionBody(content, match[1])
		if len(body) < req.MinContent {
			result.Valid = false
			result.MissingSections = append(result.MissingSections,
				fmt.Sprintf("%s: Section too short (min %d chars, got %d)", req.Name, req.MinContent, len(body)))
			continue
		}
		result.SectionDetails[req.Name] = fmt.Sprintf("OK (%d chars)", len(body))
	}

	result.Warnings = append(result.Warnings, checkCommonIssues(content)...)
	return result
}

// sectionBody returns the trimmed text between the header line containing
// offset and the next level 1 or 2 header.
func sectionBody(content string, offset int) string {
	rest := content[offset:]
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		return ""
	}
	rest = rest[nl+1:]
	if loc := nextSectionRe.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}
	return strings.TrimSpace(rest)
}

// checkCommonIssues checks for common document quality issues.
func checkCommonIssues(content string) []string {
	var warnings []string

	if m := leftoverSyntaxRe.FindString(content); m != "" {
		warnings = append(warnings, fmt.Sprintf("Contains unrendered template syntax: %s", m))
	}

	// Check for placeholder text
	placeholders := []string{
		"TODO", "FIXME", "TBD",
		"[placeholder]", "[insert",
		"Lorem ipsum",
	}
	lower := strings.ToLower(content)
	for _, p := range placeholders {
		if strings.Contains(lower, strings.ToLower(p)) {
			warnings = append(warnings, fmt.Sprintf("Contains placeholder text: %s", p))
		}
	}

	// Check for empty sections
	if emptySectionRe.MatchString(content) {
		warnings = append(warnings, "Contains empty sections")
	}

	return warnings
}

// Issues flattens the result into one line per finding, prefixed with name
// (typically the document path).
func (r *Result) Issues(name string) []string {
	issues := make([]string, 0, len(r.MissingSections)+len(r.Warnings))
	for _, section := range r.MissingSections {
		issues = append(issues, fmt.Sprintf("%s: missing %s", name, section))
	}
	for _, warning := range r.Warnings {
		issues = append(issues, fmt.Sprintf("%s: %s", name, warning))
	}
	return issues
}

// ValidateDocument is a convenience function for validating a document.
func ValidateDocument(content string, docType DocumentType) *Result {
	v := NewValidator()
	return v.Validate(content, docType)
}
