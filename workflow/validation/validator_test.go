package validation

import (
	"strings"
	"testing"
)

const validConstitution = `# Inventory Constitution

## Purpose

Inventory tracks stock levels across warehouses and keeps reorder points accurate for every store.

## Core Values

- Accuracy over speed
- Transparency
- Simplicity

## Development Standards

- Every change is reviewed
- Tests accompany features
- Interfaces are documented

## Quality Metrics

- Unit test coverage above 80%
- No critical defects at release

## Governance

- Amendments require team consensus
`

func TestValidateConstitution(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name          string
		content       string
		expectValid   bool
		expectMissing []string
	}{
		{
			name:        "valid constitution",
			content:     validConstitution,
			expectValid: true,
		},
		{
			name: "short purpose",
			content: strings.Replace(validConstitution,
				"Inventory tracks stock levels across warehouses and keeps reorder points accurate for every store.",
				"Tracks stock.", 1),
			expectValid:   false,
			expectMissing: []string{"Purpose"},
		},
		{
			name:          "missing governance",
			content:       validConstitution[:strings.Index(validConstitution, "## Governance")],
			expectValid:   false,
			expectMissing: []string{"Governance"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.Validate(tt.content, DocumentTypeConstitution)

			if result.Valid != tt.expectValid {
				t.Errorf("expected valid=%v, got valid=%v", tt.expectValid, result.Valid)
				t.Logf("Missing sections: %v", result.MissingSections)
			}

			for _, expected := range tt.expectMissing {
				found := false
				for _, missing := range result.MissingSections {
					if strings.Contains(missing, expected) {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("expected missing section containing %q", expected)
				}
			}
		})
	}
}

func TestValidateSpec(t *testing.T) {
	validator := NewValidator()

	validSpec := `# Feature 001: User Login

**Status**: partial

## Overview

Users sign in with email and password.

## User Stories

- As a shopper, I want to sign in, so that my cart is saved.

## Acceptance Criteria

- [x] Login form validates email
- [ ] Lockout after five failures
`

	result := validator.Validate(validSpec, DocumentTypeSpec)
	if !result.Valid {
		t.Errorf("expected valid spec, got invalid")
		t.Logf("Missing: %v", result.MissingSections)
	}

	specWithoutCriteria := `# Feature 001: User Login

## Overview

Users sign in.

## User Stories

None.
`

	result = validator.Validate(specWithoutCriteria, DocumentTypeSpec)
	if result.Valid {
		t.Error("expected invalid for spec without acceptance criteria")
	}
}

func TestValidatePlan(t *testing.T) {
	validator := NewValidator()

	validPlan := `# Implementation Plan 002: Checkout

## Current State

Payment capture is stubbed.

## Target State

All acceptance criteria are satisfied.

## Tasks

- **T1** Implement card capture (effort: medium)
- **T2** Add receipts (effort: small; after T1)

## Risks

No known risks.
`

	result := validator.Validate(validPlan, DocumentTypePlan)
	if !result.Valid {
		t.Errorf("expected valid plan, got invalid")
		t.Logf("Missing: %v", result.MissingSections)
	}

	planWithoutTasks := `# Implementation Plan 002: Checkout

## Current State

Stubbed.

## Target State

Done.

## Tasks

Nothing listed here.
`

	result = validator.Validate(planWithoutTasks, DocumentTypePlan)
	if result.Valid {
		t.Error("expected invalid for plan without task items")
	}
}

func TestCommonIssues(t *testing.T) {
	content := validConstitution + "\n## Notes\n\nTBD {{leftover}}\n"

	result := ValidateDocument(content, DocumentTypeConstitution)
	if !result.Valid {
		t.Errorf("warnings must not invalidate a document: %v", result.MissingSections)
	}

	wantWarnings := []string{"unrendered template syntax: {{leftover}}", "placeholder text: TBD"}
	for _, expected := range wantWarnings {
		found := false
		for _, warning := range result.Warnings {
			if strings.Contains(warning, expected) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected warning containing %q, got %v", expected, result.Warnings)
		}
	}
}

func TestIssues(t *testing.T) {
	result := &Result{
		Valid:           false,
		DocumentType:    DocumentTypePlan,
		MissingSections: []string{"Tasks: Tasks section"},
		Warnings:        []string{"Contains placeholder text: TODO"},
	}

	issues := result.Issues("specs/001-x/plan.md")
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(issues))
	}
	if issues[0] != "specs/001-x/plan.md: missing Tasks: Tasks section" {
		t.Errorf("unexpected first issue: %q", issues[0])
	}
	if !strings.HasSuffix(issues[1], "TODO") {
		t.Errorf("unexpected second issue: %q", issues[1])
	}

	if got := (&Result{Valid: true}).Issues("x"); len(got) != 0 {
		t.Errorf("expected no issues for clean result, got %v", got)
	}
}

func TestUnknownDocumentType(t *testing.T) {
	validator := NewValidator()
	result := validator.Validate("any content", DocumentType("unknown"))

	// Should return valid with a warning
	if !result.Valid {
		t.Error("expected valid for unknown document type")
	}

	if len(result.Warnings) == 0 {
		t.Error("expected warning for unknown document type")
	}
}
