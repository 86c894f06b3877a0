// Package workflow defines the domain entities produced by the specification
// generation stage and the on-disk layout they are written to.
package workflow

import (
	"fmt"
	"strings"
	"time"
)

// Route selects whether generated documents carry technology-specific detail.
type Route string

const (
	// RouteAgnostic generates technology-neutral documents.
	RouteAgnostic Route = "agnostic"
	// RoutePrescriptive generates documents that name the technology stack.
	RoutePrescriptive Route = "prescriptive"
)

// ParseRoute converts a string to a Route. Matching is case-insensitive.
func ParseRoute(s string) (Route, error) {
	switch Route(strings.ToLower(strings.TrimSpace(s))) {
	case RouteAgnostic:
		return RouteAgnostic, nil
	case RoutePrescriptive:
		return RoutePrescriptive, nil
	default:
		return "", fmt.Errorf("invalid route %q (want %q or %q)", s, RouteAgnostic, RoutePrescriptive)
	}
}

// String returns the string representation of the route.
func (r Route) String() string {
	return string(r)
}

// IsValid returns true if the route is a known value.
func (r Route) IsValid() bool {
	return r == RouteAgnostic || r == RoutePrescriptive
}

// FeatureStatus represents how much of a feature is implemented.
type FeatureStatus string

const (
	// StatusComplete means every acceptance criterion is satisfied.
	StatusComplete FeatureStatus = "complete"
	// StatusPartial means the feature exists but is unfinished.
	StatusPartial FeatureStatus = "partial"
	// StatusMissing means the feature is not implemented at all.
	StatusMissing FeatureStatus = "missing"
)

// String returns the string representation of the status.
func (s FeatureStatus) String() string {
	return string(s)
}

// NeedsPlan returns true if a feature with this status gets an implementation plan.
func (s FeatureStatus) NeedsPlan() bool {
	return s != StatusComplete
}

// UserStory is an "As a X, I want Y, so that Z" statement.
type UserStory struct {
	Role    string `json:"role"`
	Goal    string `json:"goal"`
	Benefit string `json:"benefit,omitempty"`
}

// AcceptanceCriterion is a checkbox item attached to a feature.
type AcceptanceCriterion struct {
	Description string `json:"description"`
	Satisfied   bool   `json:"satisfied"`
}

// Feature is one independently specifiable unit of behavior.
type Feature struct {
	// ID is a zero-padded three digit sequence number ("001").
	ID string `json:"id"`

	// Name is the feature title as written in the source document.
	Name string `json:"name"`

	// Slug is the URL-safe form of Name, unique within a run.
	Slug string `json:"slug"`

	// Description is the first paragraph following the feature heading.
	Description string `json:"description"`

	UserStories        []UserStory           `json:"user_stories,omitempty"`
	AcceptanceCriteria []AcceptanceCriterion `json:"acceptance_criteria,omitempty"`

	Status FeatureStatus `json:"status"`

	// Dependencies holds ids of other features from the same run.
	Dependencies []string `json:"dependencies,omitempty"`

	// ExplicitDependencies is the subset of Dependencies stated with
	// "depends on" rather than inferred from a name mention.
	ExplicitDependencies []string `json:"explicit_dependencies,omitempty"`

	// UnresolvedDependencies holds "depends on" targets that matched no feature.
	UnresolvedDependencies []string `json:"unresolved_dependencies,omitempty"`

	// TechnicalDetails is only populated on the prescriptive route.
	TechnicalDetails []string `json:"technical_details,omitempty"`

	// SourceLine is the line of the heading or list item the feature came from.
	SourceLine int `json:"source_line"`
}

// Dir returns the directory name used for the feature's documents.
func (f Feature) Dir() string {
	return f.ID + "-" + f.Slug
}

// SatisfiedCount returns the number of satisfied acceptance criteria.
func (f Feature) SatisfiedCount() int {
	n := 0
	for _, ac := range f.AcceptanceCriteria {
		if ac.Satisfied {
			n++
		}
	}
	return n
}

// UnmetCriteria returns the acceptance criteria not yet satisfied.
func (f Feature) UnmetCriteria() []AcceptanceCriterion {
	var unmet []AcceptanceCriterion
	for _, ac := range f.AcceptanceCriteria {
		if !ac.Satisfied {
			unmet = append(unmet, ac)
		}
	}
	return unmet
}

// ConstitutionData is the project-wide purpose, values and standards.
type ConstitutionData struct {
	ProjectName          string   `json:"project_name"`
	Purpose              string   `json:"purpose"`
	CoreValues           []string `json:"core_values"`
	DevelopmentStandards []string `json:"development_standards"`
	QualityMetrics       []string `json:"quality_metrics"`
	GovernanceRules      []string `json:"governance_rules"`

	// TechnologyStack is required on the prescriptive route and nil otherwise.
	TechnologyStack []string `json:"technology_stack,omitempty"`

	// Placeholders names the fields that were filled with defaults.
	Placeholders []string `json:"placeholders,omitempty"`
}

// Constitution limits.
const (
	MinPurposeLength   = 50
	MaxPurposeLength   = 500
	MinCoreValues      = 3
	MaxCoreValues      = 10
	MinStandards       = 3
	MinQualityMetrics  = 2
	MinGovernanceRules = 1
)

// IsPlaceholder returns true if the named field was filled with defaults.
func (c *ConstitutionData) IsPlaceholder(field string) bool {
	for _, p := range c.Placeholders {
		if p == field {
			return true
		}
	}
	return false
}

// Level is a coarse low/medium/high rating.
type Level string

// Rating levels used by risks.
const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Effort is a coarse task size estimate.
type Effort string

// Effort estimates used by tasks.
const (
	EffortSmall  Effort = "small"
	EffortMedium Effort = "medium"
	EffortLarge  Effort = "large"
)

// Task is one unit of remaining work in an implementation plan.
type Task struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	Effort       Effort   `json:"effort"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Risk is a known hazard for completing a feature.
type Risk struct {
	Description string `json:"description"`
	Probability Level  `json:"probability"`
	Impact      Level  `json:"impact"`
	Mitigation  string `json:"mitigation"`
}

// ImplementationPlan describes the work remaining on an incomplete feature.
type ImplementationPlan struct {
	FeatureID    string `json:"feature_id"`
	FeatureName  string `json:"feature_name"`
	CurrentState string `json:"current_state"`
	TargetState  string `json:"target_state"`
	Tasks        []Task `json:"tasks"`
	Risks        []Risk `json:"risks,omitempty"`
}

// GeneratedArtifact is a rendered document awaiting persistence.
type GeneratedArtifact struct {
	Path     string
	Content  []byte
	Checksum string
}

// StepDetail records the outcome of one completed workflow step.
type StepDetail struct {
	CompletedAt time.Time      `json:"completed_at"`
	RunID       string         `json:"run_id,omitempty"`
	Summary     map[string]any `json:"summary,omitempty"`
}

// WorkflowState is the small shared record of which steps have run.
type WorkflowState struct {
	CurrentStep    string                `json:"current_step"`
	CompletedSteps []string              `json:"completed_steps"`
	Steps          map[string]StepDetail `json:"steps"`
	Metadata       map[string]any        `json:"metadata"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// NewWorkflowState creates an empty state positioned at the given step.
func NewWorkflowState(step string, now time.Time) *WorkflowState {
	return &WorkflowState{
		CurrentStep:    step,
		CompletedSteps: []string{},
		Steps:          map[string]StepDetail{},
		Metadata:       map[string]any{},
		UpdatedAt:      now,
	}
}

// IsCompleted returns true if the step has been recorded as completed.
func (s *WorkflowState) IsCompleted(step string) bool {
	for _, c := range s.CompletedSteps {
		if c == step {
			return true
		}
	}
	return false
}

// MarkCompleted records a step completion. A step appears at most once in
// CompletedSteps; repeated completions only refresh the detail entry.
func (s *WorkflowState) MarkCompleted(step string, detail StepDetail) {
	if !s.IsCompleted(step) {
		s.CompletedSteps = append(s.CompletedSteps, step)
	}
	if s.Steps == nil {
		s.Steps = map[string]StepDetail{}
	}
	s.Steps[step] = detail
}

// Route returns the route recorded in metadata, if any.
func (s *WorkflowState) Route() (Route, bool) {
	raw, ok := s.Metadata[MetadataRoute].(string)
	if !ok {
		return "", false
	}
	r, err := ParseRoute(raw)
	if err != nil {
		return "", false
	}
	return r, true
}

// SetRoute records the active route in metadata.
func (s *WorkflowState) SetRoute(r Route) {
	if s.Metadata == nil {
		s.Metadata = map[string]any{}
	}
	s.Metadata[MetadataRoute] = r.String()
}

// Well-known step and metadata keys.
const (
	// StepGenerateSpecs is the step identifier recorded by this stage.
	StepGenerateSpecs = "generate-specs"
	// StepReverseEngineer is the upstream step that produces the inputs.
	StepReverseEngineer = "reverse-engineer"
	// MetadataRoute is the metadata key holding the active route.
	MetadataRoute = "route"
)
