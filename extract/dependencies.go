package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/c360studio/specgen/source"
	"github.com/c360studio/specgen/workflow"
)

var (
	dependsOnRe        = regexp.MustCompile(`(?i)\bdepends\s+on\s+([^.;\n]+)`)
	dependencyListRe   = regexp.MustCompile(`(?i)^(dependencies|depends on|prerequisites)$`)
	conjunctionRe      = regexp.MustCompile(`\s+(?:and|&)\s+`)
	dependencyNoiseRe  = regexp.MustCompile(`(?i)^(the|a|an)\s+|\s+(feature|module|capability)$`)
	featureReferenceRe = regexp.MustCompile(`(?i)^(?:feature\s+)?#?(\d{1,3})$`)
)

// resolveDependencies fills Dependencies, ExplicitDependencies and
// UnresolvedDependencies. Explicit dependencies come from "depends on"
// phrases anywhere in a feature's body or from items under a dependencies
// sub-heading; implicit ones from verbatim mentions of another feature's
// name in the description.
func resolveDependencies(features []workflow.Feature, candidates []candidate) {
	mentions := make([]*regexp.Regexp, len(features))
	for i, f := range features {
		mentions[i] = mentionPattern(f.Name, false)
	}

	for i := range features {
		f := &features[i]
		explicit := map[string]bool{}
		all := map[string]bool{}
		var unresolved []string

		for _, phrase := range explicitTargets(f.Description, candidates[i].body) {
			ids, missing := resolvePhrase(features, phrase)
			unresolved = append(unresolved, missing...)
			for _, id := range ids {
				if id != f.ID {
					explicit[id] = true
					all[id] = true
				}
			}
		}

		for j, other := range features {
			if j == i {
				continue
			}
			if mentions[j].MatchString(f.Description) {
				all[other.ID] = true
			}
		}

		f.Dependencies = sortedKeys(all)
		f.ExplicitDependencies = sortedKeys(explicit)
		f.UnresolvedDependencies = dedupe(unresolved)
	}
}

// explicitTargets returns the raw phrases naming what a feature depends on.
func explicitTargets(description string, body []source.Node) []string {
	texts := []string{description}
	for _, n := range body {
		if n.Kind == source.KindParagraph || n.Kind == source.KindListItem {
			texts = append(texts, n.Text)
		}
	}

	var targets []string
	for _, text := range texts {
		for _, m := range dependsOnRe.FindAllStringSubmatch(cleanInline(text), -1) {
			targets = append(targets, m[1])
		}
	}

	for _, s := range source.FindSections(body, dependencyListRe) {
		for _, item := range topLevelItems(s.Body) {
			// "depends on" items were already picked up above.
			if strings.EqualFold(item, "none") || dependsOnRe.MatchString(item) {
				continue
			}
			targets = append(targets, item)
		}
	}
	return targets
}

// resolvePhrase splits a dependency phrase on commas and matches each part.
// A part is tried whole before being split on "and", so names such as
// "Search and Filter" survive.
func resolvePhrase(features []workflow.Feature, phrase string) (ids, unresolved []string) {
	for _, part := range strings.Split(phrase, ",") {
		part = cleanTarget(part)
		if part == "" {
			continue
		}
		if id, ok := lookupFeature(features, part); ok {
			ids = append(ids, id)
			continue
		}
		for _, sub := range conjunctionRe.Split(part, -1) {
			if sub = cleanTarget(sub); sub == "" {
				continue
			}
			if id, ok := lookupFeature(features, sub); ok {
				ids = append(ids, id)
			} else {
				unresolved = append(unresolved, sub)
			}
		}
	}
	return ids, unresolved
}

func cleanTarget(s string) string {
	s = strings.Trim(strings.TrimSpace(s), "\"'`")
	return strings.TrimSpace(dependencyNoiseRe.ReplaceAllString(s, ""))
}

// lookupFeature matches a dependency target by name, slug or id.
func lookupFeature(features []workflow.Feature, target string) (string, bool) {
	if m := featureReferenceRe.FindStringSubmatch(target); m != nil {
		id := strings.Repeat("0", 3-len(m[1])) + m[1]
		for _, f := range features {
			if f.ID == id {
				return id, true
			}
		}
	}
	slug := workflow.Slugify(target)
	for _, f := range features {
		if strings.EqualFold(f.Name, target) || (slug != "" && f.Slug == slug) {
			return f.ID, true
		}
	}
	return "", false
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DetectCycles returns the dependency cycles among features, each as the
// sorted ids of one strongly connected component. Cycles are ordered by
// their first id.
func DetectCycles(features []workflow.Feature) [][]string {
	return findCycles(features, func(f workflow.Feature) []string { return f.Dependencies })
}

// ExplicitCycles is DetectCycles restricted to "depends on" edges.
func ExplicitCycles(features []workflow.Feature) [][]string {
	return findCycles(features, func(f workflow.Feature) []string { return f.ExplicitDependencies })
}

// findCycles runs Tarjan's strongly connected components algorithm.
func findCycles(features []workflow.Feature, edges func(workflow.Feature) []string) [][]string {
	byID := make(map[string]workflow.Feature, len(features))
	for _, f := range features {
		byID[f.ID] = f
	}

	var (
		index   = 0
		indices = map[string]int{}
		lowlink = map[string]int{}
		onStack = map[string]bool{}
		stack   []string
		cycles  [][]string
	)

	var strongConnect func(id string)
	strongConnect = func(id string) {
		indices[id] = index
		lowlink[id] = index
		index++
		stack = append(stack, id)
		onStack[id] = true

		for _, dep := range edges(byID[id]) {
			if _, known := byID[dep]; !known {
				continue
			}
			if _, visited := indices[dep]; !visited {
				strongConnect(dep)
				lowlink[id] = min(lowlink[id], lowlink[dep])
			} else if onStack[dep] {
				lowlink[id] = min(lowlink[id], indices[dep])
			}
		}

		if lowlink[id] != indices[id] {
			return
		}
		var component []string
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			component = append(component, top)
			if top == id {
				break
			}
		}
		if len(component) > 1 || selfLoop(byID[id], edges) {
			sort.Strings(component)
			cycles = append(cycles, component)
		}
	}

	for _, f := range features {
		if _, visited := indices[f.ID]; !visited {
			strongConnect(f.ID)
		}
	}

	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

func selfLoop(f workflow.Feature, edges func(workflow.Feature) []string) bool {
	for _, dep := range edges(f) {
		if dep == f.ID {
			return true
		}
	}
	return false
}
