package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/c360studio/specgen/source"
	"github.com/c360studio/specgen/workflow"
)

// Task effort thresholds, in words of the criterion text.
const (
	smallEffortWords  = 8
	mediumEffortWords = 16
)

const maxPassageLength = 400

var (
	highImpactRe       = regexp.MustCompile(`(?i)\b(critical|security|vulnerab\w*|data loss|outage|severe|corrupt\w*)\b`)
	lowImpactRe        = regexp.MustCompile(`(?i)\b(minor|cosmetic|trivial)\b`)
	highProbabilityRe  = regexp.MustCompile(`(?i)\b(likely|frequent\w*|always|often)\b`)
	lowProbabilityRe   = regexp.MustCompile(`(?i)\b(unlikely|rare\w*|occasional\w*|edge case)\b`)
	mitigationPrefixRe = regexp.MustCompile(`(?i)\b(?:recommendation|recommended fix|mitigation|remediation|fix)\s*:\s*(.+)$`)
)

// GeneratePlans builds an implementation plan for every feature that is not
// complete, keyed by feature id. The debt analysis may be nil.
func GeneratePlans(features []workflow.Feature, debt *source.Tree) (map[string]workflow.ImplementationPlan, error) {
	byID := make(map[string]workflow.Feature, len(features))
	for _, f := range features {
		if _, dup := byID[f.ID]; dup {
			return nil, &ExtractionError{
				Phase:       PhasePlans,
				Message:     fmt.Sprintf("duplicate feature id %s", f.ID),
				Remediation: "Feature ids must be unique within a run.",
			}
		}
		byID[f.ID] = f
	}

	names := make([]string, len(features))
	for i, f := range features {
		names[i] = f.Name
	}
	m := newMentions(names)

	plans := make(map[string]workflow.ImplementationPlan)
	for _, f := range features {
		if !f.Status.NeedsPlan() {
			continue
		}
		passages := passagesMentioning(debt, f.Name, m)
		plans[f.ID] = workflow.ImplementationPlan{
			FeatureID:    f.ID,
			FeatureName:  f.Name,
			CurrentState: currentState(f, passages),
			TargetState:  targetState(f),
			Tasks:        planTasks(f),
			Risks:        planRisks(f, passages, byID),
		}
	}
	return plans, nil
}

func currentState(f workflow.Feature, passages []passage) string {
	var summary string
	total := len(f.AcceptanceCriteria)
	switch {
	case total == 0 && f.Status == workflow.StatusMissing:
		summary = "Not implemented."
	case total == 0:
		summary = "Implementation status is unverified; no acceptance criteria are defined."
	case f.Status == workflow.StatusMissing:
		summary = fmt.Sprintf("Not implemented: none of the %d acceptance criteria are satisfied.", total)
	default:
		summary = fmt.Sprintf("Partially implemented: %d of %d acceptance criteria are satisfied.", f.SatisfiedCount(), total)
	}

	if len(passages) == 0 {
		return summary
	}
	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		texts = append(texts, p.Text)
	}
	return truncateWords(strings.Join(texts, " "), maxPassageLength) + "\n\n" + summary
}

func targetState(f workflow.Feature) string {
	if len(f.AcceptanceCriteria) == 0 {
		return fmt.Sprintf("%s is fully implemented, with acceptance criteria defined and satisfied.", f.Name)
	}
	return fmt.Sprintf("%s is complete: all %d acceptance criteria are satisfied.", f.Name, len(f.AcceptanceCriteria))
}

// planTasks creates one task per unmet criterion plus a verification task
// that depends on all of them. Features without criteria get a pair of tasks
// to define and then complete them.
func planTasks(f workflow.Feature) []workflow.Task {
	unmet := f.UnmetCriteria()
	if len(f.AcceptanceCriteria) == 0 {
		return []workflow.Task{
			{ID: "T1", Description: fmt.Sprintf("Define acceptance criteria for %s", f.Name), Effort: workflow.EffortSmall},
			{ID: "T2", Description: fmt.Sprintf("Complete the implementation of %s", f.Name), Effort: workflow.EffortLarge, Dependencies: []string{"T1"}},
		}
	}

	tasks := make([]workflow.Task, 0, len(unmet)+1)
	deps := make([]string, 0, len(unmet))
	for i, ac := range unmet {
		id := fmt.Sprintf("T%d", i+1)
		tasks = append(tasks, workflow.Task{
			ID:          id,
			Description: ac.Description,
			Effort:      estimateEffort(ac.Description),
		})
		deps = append(deps, id)
	}
	tasks = append(tasks, workflow.Task{
		ID:           fmt.Sprintf("T%d", len(unmet)+1),
		Description:  fmt.Sprintf("Verify all acceptance criteria for %s", f.Name),
		Effort:       workflow.EffortSmall,
		Dependencies: deps,
	})
	return tasks
}

func estimateEffort(text string) workflow.Effort {
	switch words := len(strings.Fields(text)); {
	case words <= smallEffortWords:
		return workflow.EffortSmall
	case words <= mediumEffortWords:
		return workflow.EffortMedium
	default:
		return workflow.EffortLarge
	}
}

func planRisks(f workflow.Feature, passages []passage, byID map[string]workflow.Feature) []workflow.Risk {
	var risks []workflow.Risk
	seen := map[string]bool{}

	for _, p := range passages {
		desc := truncateWords(p.Text, maxPassageLength)
		if seen[desc] {
			continue
		}
		seen[desc] = true
		risks = append(risks, workflow.Risk{
			Description: desc,
			Probability: rateProbability(p.Text),
			Impact:      rateImpact(p.Text),
			Mitigation:  mitigation(p.Text, f.Name),
		})
	}

	for _, id := range f.Dependencies {
		dep, ok := byID[id]
		if !ok || dep.Status == workflow.StatusComplete {
			continue
		}
		risks = append(risks, workflow.Risk{
			Description: fmt.Sprintf("Depends on incomplete feature %s (%s)", dep.ID, dep.Name),
			Probability: workflow.LevelMedium,
			Impact:      workflow.LevelHigh,
			Mitigation:  fmt.Sprintf("Schedule after feature %s is complete, or agree its interface first.", dep.ID),
		})
	}

	for _, name := range f.UnresolvedDependencies {
		risks = append(risks, workflow.Risk{
			Description: fmt.Sprintf("Depends on %q, which matches no extracted feature", name),
			Probability: workflow.LevelMedium,
			Impact:      workflow.LevelMedium,
			Mitigation:  "Confirm the dependency exists or add it to the functional specification.",
		})
	}
	return risks
}

func rateProbability(text string) workflow.Level {
	switch {
	case missingWordsRe.MatchString(text) || highProbabilityRe.MatchString(text):
		return workflow.LevelHigh
	case lowProbabilityRe.MatchString(text):
		return workflow.LevelLow
	default:
		return workflow.LevelMedium
	}
}

func rateImpact(text string) workflow.Level {
	switch {
	case highImpactRe.MatchString(text):
		return workflow.LevelHigh
	case lowImpactRe.MatchString(text):
		return workflow.LevelLow
	default:
		return workflow.LevelMedium
	}
}

func mitigation(text, feature string) string {
	if m := mitigationPrefixRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return fmt.Sprintf("Resolve this debt item before closing the remaining %s tasks.", feature)
}
