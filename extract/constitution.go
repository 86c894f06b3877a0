// Package extract turns parsed narrative documents into the domain entities
// rendered by the generator: constitution data, features and implementation
// plans.
package extract

import (
	"regexp"
	"strings"

	"github.com/c360studio/specgen/source"
	"github.com/c360studio/specgen/workflow"
)

// Placeholder field names recorded in ConstitutionData.Placeholders.
const (
	FieldPurpose              = "purpose"
	FieldCoreValues           = "core_values"
	FieldDevelopmentStandards = "development_standards"
	FieldQualityMetrics       = "quality_metrics"
	FieldGovernanceRules      = "governance_rules"
	FieldTechnologyStack      = "technology_stack"
)

// DefaultProjectName is used when no document title can be found.
const DefaultProjectName = "Project"

var (
	purposeHeadingRe    = regexp.MustCompile(`(?i)\b(purpose|overview|introduction|about|summary|mission)\b`)
	valuesHeadingRe     = regexp.MustCompile(`(?i)\b(values|principles)\b`)
	standardsHeadingRe  = regexp.MustCompile(`(?i)\b(standards|conventions|guidelines|practices)\b`)
	qualityHeadingRe    = regexp.MustCompile(`(?i)\b(quality|metrics|kpis?|success\s+criteria)\b`)
	governanceHeadingRe = regexp.MustCompile(`(?i)\b(governance|policies|policy|compliance|rules)\b`)
	stackHeadingRe      = regexp.MustCompile(`(?i)\b(tech(nology)?\s*stack|technolog(y|ies)|tooling|platform)\b`)
	stackItemSplitRe    = regexp.MustCompile(`\s+[-–—]\s+|:\s+|\s+\(`)
)

var (
	defaultCoreValues = []string{
		"Correctness before speed",
		"Clarity over cleverness",
		"Consistency across the codebase",
	}
	defaultStandards = []string{
		"All changes are peer reviewed",
		"Automated tests accompany every feature",
		"Public interfaces are documented",
	}
	defaultQualityMetrics = []string{
		"The automated test suite passes on every change",
		"No known critical defects at release",
	}
	defaultGovernance = []string{
		"Changes to this constitution require team review",
	}
)

// ExtractConstitution derives the project constitution from the primary
// document. Sparse list sections are padded with defaults that are recorded
// in Placeholders. On the prescriptive route a technology stack is required;
// fallbackStack is used, and recorded as a placeholder, when the document
// names none.
func ExtractConstitution(primary *source.Tree, route workflow.Route, fallbackStack ...string) (*workflow.ConstitutionData, error) {
	if primary == nil {
		return nil, &ExtractionError{
			Phase:       PhaseConstitution,
			Message:     "no primary document",
			Remediation: "Provide the functional specification document.",
		}
	}

	data := &workflow.ConstitutionData{
		ProjectName: projectName(primary),
	}

	purpose, ok := findPurpose(primary.Nodes)
	if !ok {
		return nil, &ExtractionError{
			Phase:       PhaseConstitution,
			Message:     "could not locate a purpose statement",
			Remediation: "Add an introductory paragraph before the first heading, or a \"Purpose\" or \"Overview\" section.",
		}
	}
	if len(purpose) < workflow.MinPurposeLength {
		purpose = strings.TrimSpace(purpose + " This constitution governs the development of the " + data.ProjectName + " project.")
		data.Placeholders = append(data.Placeholders, FieldPurpose)
	}
	data.Purpose = truncateWords(purpose, workflow.MaxPurposeLength)

	var padded bool
	data.CoreValues, padded = collectList(primary.Nodes, valuesHeadingRe, defaultCoreValues, workflow.MinCoreValues)
	if padded {
		data.Placeholders = append(data.Placeholders, FieldCoreValues)
	}
	if len(data.CoreValues) > workflow.MaxCoreValues {
		data.CoreValues = data.CoreValues[:workflow.MaxCoreValues]
	}

	data.DevelopmentStandards, padded = collectList(primary.Nodes, standardsHeadingRe, defaultStandards, workflow.MinStandards)
	if padded {
		data.Placeholders = append(data.Placeholders, FieldDevelopmentStandards)
	}

	data.QualityMetrics, padded = collectList(primary.Nodes, qualityHeadingRe, defaultQualityMetrics, workflow.MinQualityMetrics)
	if padded {
		data.Placeholders = append(data.Placeholders, FieldQualityMetrics)
	}

	data.GovernanceRules, padded = collectList(primary.Nodes, governanceHeadingRe, defaultGovernance, workflow.MinGovernanceRules)
	if padded {
		data.Placeholders = append(data.Placeholders, FieldGovernanceRules)
	}

	if route == workflow.RoutePrescriptive {
		stack := technologyStack(primary.Nodes)
		if len(stack) == 0 && len(fallbackStack) > 0 {
			stack = append([]string(nil), fallbackStack...)
			data.Placeholders = append(data.Placeholders, FieldTechnologyStack)
		}
		if len(stack) == 0 {
			return nil, &ExtractionError{
				Phase:       PhaseConstitution,
				Message:     "prescriptive route requires a technology stack, none found",
				Remediation: "Add a \"Technology Stack\" section listing languages and frameworks, add a project manifest such as go.mod, or use the agnostic route.",
			}
		}
		data.TechnologyStack = stack
	}

	return data, nil
}

func projectName(tree *source.Tree) string {
	if title := cleanInline(tree.Title()); title != "" {
		return title
	}
	return DefaultProjectName
}

// findPurpose tries, in order: paragraphs before any heading, a purpose-like
// section, and the body of the first section. Paragraphs are accumulated
// until the minimum purpose length is reached.
func findPurpose(nodes []source.Node) (string, bool) {
	if text := accumulateParagraphs(source.Preamble(nodes)); text != "" {
		return text, true
	}
	if section, ok := source.FindSection(nodes, purposeHeadingRe); ok {
		if text := accumulateParagraphs(section[1:]); text != "" {
			return text, true
		}
	}
	for i, n := range nodes {
		if !n.IsHeading() {
			continue
		}
		// The first section with prose of its own; a title heading's section
		// would otherwise span the whole document.
		body := nodes[i+1:]
		for j, m := range body {
			if m.IsHeading() {
				body = body[:j]
				break
			}
		}
		if text := accumulateParagraphs(body); text != "" {
			return text, true
		}
	}
	return "", false
}

func accumulateParagraphs(nodes []source.Node) string {
	var text string
	for _, n := range nodes {
		if n.Kind != source.KindParagraph {
			continue
		}
		if text == "" {
			text = strings.TrimSpace(n.Text)
		} else {
			text += " " + strings.TrimSpace(n.Text)
		}
		if len(text) >= workflow.MinPurposeLength {
			break
		}
	}
	return text
}

// collectList gathers top-level bullets under the first heading matching
// pattern, padding with defaults up to minItems. It reports whether padding was
// needed.
func collectList(nodes []source.Node, pattern *regexp.Regexp, defaults []string, minItems int) ([]string, bool) {
	var items []string
	if section, ok := findListSection(nodes, pattern); ok {
		items = dedupe(topLevelItems(section[1:]))
	}
	if len(items) >= minItems {
		return items, false
	}
	for _, d := range defaults {
		if len(items) >= minItems {
			break
		}
		if !contains(items, d) {
			items = append(items, d)
		}
	}
	return items, true
}

// findListSection returns the first matching section that holds list items,
// skipping matches such as a title heading that only happens to match.
func findListSection(nodes []source.Node, pattern *regexp.Regexp) ([]source.Node, bool) {
	for i, n := range nodes {
		if !n.IsHeading() || n.Level == 1 || !pattern.MatchString(n.Text) {
			continue
		}
		section := nodes[i:sectionEnd(nodes, i)]
		if len(source.ListItems(section)) > 0 {
			return section, true
		}
	}
	return nil, false
}

// technologyStack reads technology names from a stack-like section, falling
// back to the languages of fenced code blocks.
func technologyStack(nodes []source.Node) []string {
	var stack []string
	if section, ok := findListSection(nodes, stackHeadingRe); ok {
		for _, item := range topLevelItems(section[1:]) {
			name := item
			if loc := stackItemSplitRe.FindStringIndex(item); loc != nil && loc[0] > 0 {
				name = item[:loc[0]]
			}
			stack = append(stack, strings.Trim(name, "` "))
		}
	}
	if len(stack) == 0 {
		for _, n := range nodes {
			if n.Kind == source.KindCodeBlock && n.Language != "" {
				stack = append(stack, n.Language)
			}
		}
	}
	return dedupe(stack)
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
