package extract

import (
	"regexp"

	"github.com/c360studio/specgen/source"
	"github.com/c360studio/specgen/workflow"
)

var (
	missingWordsRe = regexp.MustCompile(`(?i)\b(not (yet )?implemented|unimplemented|missing|absent|not started)\b`)
	partialWordsRe = regexp.MustCompile(`(?i)\b(incomplete|partial|partially|in progress|stub|stubbed|unfinished)\b`)
)

// StatusStrategy gives an opinion on a feature's status. It returns false
// when it has no opinion.
type StatusStrategy struct {
	Name   string
	Decide func(f *workflow.Feature, debt *source.Tree) (workflow.FeatureStatus, bool)
}

// StatusStrategies returns the status strategies in the order they are
// consulted. names lists every feature of the run, so a debt passage about
// one feature is not attributed to another whose name it contains.
func StatusStrategies(names ...string) []StatusStrategy {
	return []StatusStrategy{
		{Name: "debt-analysis", Decide: debtAnalysisStatus(newMentions(names))},
		{Name: "acceptance-ratio", Decide: acceptanceRatioStatus},
		{Name: "conservative-default", Decide: conservativeStatus},
	}
}

// DetermineStatus returns the first definite status among strategies.
func DetermineStatus(f *workflow.Feature, debt *source.Tree, strategies []StatusStrategy) workflow.FeatureStatus {
	for _, s := range strategies {
		if status, ok := s.Decide(f, debt); ok {
			return status
		}
	}
	return workflow.StatusPartial
}

// debtAnalysisStatus looks for status wording near mentions of the feature
// in the debt analysis. "Missing" wording wins over "partial" wording.
func debtAnalysisStatus(m *mentions) func(*workflow.Feature, *source.Tree) (workflow.FeatureStatus, bool) {
	return func(f *workflow.Feature, debt *source.Tree) (workflow.FeatureStatus, bool) {
		passages := passagesMentioning(debt, f.Name, m)
		for _, p := range passages {
			if missingWordsRe.MatchString(p.Scope) {
				return workflow.StatusMissing, true
			}
		}
		for _, p := range passages {
			if partialWordsRe.MatchString(p.Scope) {
				return workflow.StatusPartial, true
			}
		}
		return "", false
	}
}

func acceptanceRatioStatus(f *workflow.Feature, _ *source.Tree) (workflow.FeatureStatus, bool) {
	total := len(f.AcceptanceCriteria)
	if total == 0 {
		return "", false
	}
	switch satisfied := f.SatisfiedCount(); satisfied {
	case total:
		return workflow.StatusComplete, true
	case 0:
		return workflow.StatusMissing, true
	default:
		return workflow.StatusPartial, true
	}
}

func conservativeStatus(*workflow.Feature, *source.Tree) (workflow.FeatureStatus, bool) {
	return workflow.StatusPartial, true
}
