package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specgen/workflow"
)

func TestExtractConstitution_Agnostic(t *testing.T) {
	data, err := ExtractConstitution(parse(t, shopDoc), workflow.RouteAgnostic)
	require.NoError(t, err)

	assert.Equal(t, "Shop", data.ProjectName)
	assert.Equal(t, "An online shop that sells books and tracks orders for independent stores across the region.", data.Purpose)
	assert.Equal(t, []string{"Customer trust", "Simplicity", "Fast delivery"}, data.CoreValues)
	assert.Nil(t, data.TechnologyStack)

	// Sections the document lacks are padded and flagged.
	assert.Len(t, data.DevelopmentStandards, workflow.MinStandards)
	assert.Len(t, data.QualityMetrics, workflow.MinQualityMetrics)
	assert.Len(t, data.GovernanceRules, workflow.MinGovernanceRules)
	assert.False(t, data.IsPlaceholder(FieldCoreValues))
	assert.True(t, data.IsPlaceholder(FieldDevelopmentStandards))
	assert.True(t, data.IsPlaceholder(FieldQualityMetrics))
	assert.True(t, data.IsPlaceholder(FieldGovernanceRules))
}

func TestExtractConstitution_Prescriptive(t *testing.T) {
	doc := `---
title: Ledger
---
Ledger records every financial transaction for the accounting team with full audit history.

## Technology Stack

- Go 1.22 - backend services
- PostgreSQL: primary store
- React (web)
- Go 1.22 - duplicate line

## Development Standards

- Code review for every change
- Table-driven tests
- Lint clean builds
`
	data, err := ExtractConstitution(parse(t, doc), workflow.RoutePrescriptive)
	require.NoError(t, err)

	assert.Equal(t, "Ledger", data.ProjectName)
	assert.Equal(t, []string{"Go 1.22", "PostgreSQL", "React"}, data.TechnologyStack)
	assert.Equal(t, []string{"Code review for every change", "Table-driven tests", "Lint clean builds"}, data.DevelopmentStandards)
	assert.False(t, data.IsPlaceholder(FieldDevelopmentStandards))
}

func TestExtractConstitution_StackFromCodeBlocks(t *testing.T) {
	doc := "Ledger records every financial transaction for the accounting team.\n\n## Example\n\n```go\nfunc main() {}\n```\n\n```sql\nSELECT 1;\n```\n\n```\nplain\n```\n"
	data, err := ExtractConstitution(parse(t, doc), workflow.RoutePrescriptive)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "sql"}, data.TechnologyStack)
}

func TestExtractConstitution_PrescriptiveWithoutStack(t *testing.T) {
	_, err := ExtractConstitution(parse(t, shopDoc), workflow.RoutePrescriptive)
	require.Error(t, err)

	var xerr *ExtractionError
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, PhaseConstitution, xerr.Phase)
	assert.Contains(t, xerr.Remediation, "Technology Stack")
}

func TestExtractConstitution_FallbackStack(t *testing.T) {
	data, err := ExtractConstitution(parse(t, shopDoc), workflow.RoutePrescriptive, "Go 1.25", "React")
	require.NoError(t, err)
	assert.Equal(t, []string{"Go 1.25", "React"}, data.TechnologyStack)
	assert.Contains(t, data.Placeholders, FieldTechnologyStack)

	// A documented stack wins over the fallback.
	doc := "Ledger records every financial transaction for the accounting team.\n\n## Technology Stack\n\n- Rust\n"
	data, err = ExtractConstitution(parse(t, doc), workflow.RoutePrescriptive, "Go 1.25")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rust"}, data.TechnologyStack)
	assert.NotContains(t, data.Placeholders, FieldTechnologyStack)

	// The agnostic route ignores it.
	data, err = ExtractConstitution(parse(t, shopDoc), workflow.RouteAgnostic, "Go 1.25")
	require.NoError(t, err)
	assert.Empty(t, data.TechnologyStack)
}

func TestExtractConstitution_NoPurpose(t *testing.T) {
	_, err := ExtractConstitution(parse(t, "# Title\n\n- a\n- b\n"), workflow.RouteAgnostic)
	require.Error(t, err)

	var xerr *ExtractionError
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, PhaseConstitution, xerr.Phase)

	_, err = ExtractConstitution(nil, workflow.RouteAgnostic)
	require.True(t, errors.As(err, &xerr))
}

func TestExtractConstitution_PurposeBounds(t *testing.T) {
	short, err := ExtractConstitution(parse(t, "# Tiny\n\nTiny app.\n"), workflow.RouteAgnostic)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(short.Purpose), workflow.MinPurposeLength)
	assert.True(t, short.IsPlaceholder(FieldPurpose))
	assert.True(t, strings.HasPrefix(short.Purpose, "Tiny app."))

	long := strings.Repeat("word ", 200)
	data, err := ExtractConstitution(parse(t, long), workflow.RouteAgnostic)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(data.Purpose), workflow.MaxPurposeLength)
	assert.False(t, strings.HasSuffix(data.Purpose, " "))
	assert.Equal(t, DefaultProjectName, data.ProjectName)
}

func TestExtractConstitution_PurposeAccumulatesParagraphs(t *testing.T) {
	doc := "# Notes\n\n## Purpose\n\nShort intro.\n\nIt keeps a shared record of team decisions over time.\n"
	data, err := ExtractConstitution(parse(t, doc), workflow.RouteAgnostic)
	require.NoError(t, err)
	assert.Equal(t, "Short intro. It keeps a shared record of team decisions over time.", data.Purpose)
	assert.False(t, data.IsPlaceholder(FieldPurpose))
}

func TestExtractConstitution_CoreValuesCapped(t *testing.T) {
	var b strings.Builder
	b.WriteString("A system with a great many values that all deserve to be written down.\n\n## Values\n\n")
	for i := 0; i < 12; i++ {
		b.WriteString("- Value " + string(rune('A'+i)) + "\n")
	}
	data, err := ExtractConstitution(parse(t, b.String()), workflow.RouteAgnostic)
	require.NoError(t, err)
	assert.Len(t, data.CoreValues, workflow.MaxCoreValues)
}
