package generator

import (
	"github.com/c360studio/specgen/workflow"
)

// Template data is built as plain maps so that every key a built-in template
// reads is always present, even when its value is empty.

func constitutionView(c *workflow.ConstitutionData) map[string]any {
	return map[string]any{
		"projectName":          c.ProjectName,
		"purpose":              c.Purpose,
		"coreValues":           c.CoreValues,
		"developmentStandards": c.DevelopmentStandards,
		"qualityMetrics":       c.QualityMetrics,
		"governanceRules":      c.GovernanceRules,
		"technologyStack":      c.TechnologyStack,
		"placeholders":         c.Placeholders,
	}
}

func specView(f workflow.Feature, byID map[string]workflow.Feature, stack []string) map[string]any {
	stories := make([]map[string]any, 0, len(f.UserStories))
	for _, s := range f.UserStories {
		stories = append(stories, map[string]any{
			"role":    s.Role,
			"goal":    s.Goal,
			"benefit": s.Benefit,
		})
	}

	criteria := make([]map[string]any, 0, len(f.AcceptanceCriteria))
	for _, ac := range f.AcceptanceCriteria {
		mark := " "
		if ac.Satisfied {
			mark = "x"
		}
		criteria = append(criteria, map[string]any{
			"description": ac.Description,
			"satisfied":   ac.Satisfied,
			"mark":        mark,
		})
	}

	deps := make([]map[string]any, 0, len(f.Dependencies))
	for _, id := range f.Dependencies {
		deps = append(deps, map[string]any{
			"id":   id,
			"name": byID[id].Name,
		})
	}

	return map[string]any{
		"id":                     f.ID,
		"name":                   f.Name,
		"slug":                   f.Slug,
		"status":                 f.Status,
		"description":            f.Description,
		"userStories":            stories,
		"acceptanceCriteria":     criteria,
		"dependencies":           deps,
		"unresolvedDependencies": f.UnresolvedDependencies,
		"technicalDetails":       f.TechnicalDetails,
		"technologyStack":        stack,
	}
}

func planView(p workflow.ImplementationPlan) map[string]any {
	tasks := make([]map[string]any, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		tasks = append(tasks, map[string]any{
			"id":           t.ID,
			"description":  t.Description,
			"effort":       string(t.Effort),
			"dependencies": t.Dependencies,
		})
	}

	risks := make([]map[string]any, 0, len(p.Risks))
	for _, r := range p.Risks {
		risks = append(risks, map[string]any{
			"description": r.Description,
			"probability": string(r.Probability),
			"impact":      string(r.Impact),
			"mitigation":  r.Mitigation,
		})
	}

	return map[string]any{
		"featureId":    p.FeatureID,
		"featureName":  p.FeatureName,
		"currentState": p.CurrentState,
		"targetState":  p.TargetState,
		"tasks":        tasks,
		"risks":        risks,
	}
}
