package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/c360studio/specgen/source"
	"github.com/c360studio/specgen/workflow"
)

// MinCandidates is the number of candidates a detection strategy must yield
// to win outright.
const MinCandidates = 3

var (
	featuresHeadingRe  = regexp.MustCompile(`(?i)\bfeatures\b`)
	technicalHeadingRe = regexp.MustCompile(`(?i)\b(technical|implementation|architecture)\b`)
	userStoryRe        = regexp.MustCompile(`(?i)^as an?\s+(.+?),\s*I\s+(?:want|need|would like)\s+(.+?)(?:,?\s+so\s+that\s+(.+?))?\.?$`)
	criterionRe        = regexp.MustCompile(`^\[([ xX])\]\s+(.+)$`)
	inlineDescRe       = regexp.MustCompile(`^(.+?)(?:\s+[-–—]\s+|:\s+)(.+)$`)
)

// candidate is a feature-shaped region of the primary document.
type candidate struct {
	name        string
	line        int
	body        []source.Node
	description string // inline description from a list item, if any
}

// CandidateStrategy finds feature candidates in a document.
type CandidateStrategy struct {
	Name string
	find func(nodes []source.Node) []candidate
}

// CandidateStrategies returns the detection strategies in the order they are
// tried.
func CandidateStrategies() []CandidateStrategy {
	return []CandidateStrategy{
		{Name: "features-section", find: featuresSectionCandidates},
		{Name: "level-2-headings", find: headingCandidates(2)},
		{Name: "level-3-headings", find: headingCandidates(3)},
		{Name: "numbered-list", find: numberedListCandidates},
	}
}

func featuresSectionCandidates(nodes []source.Node) []candidate {
	section, ok := source.FindSection(nodes, featuresHeadingRe)
	if !ok {
		return nil
	}
	level := section[0].Level + 1
	return fromSections(source.Sections(section[1:], level))
}

func headingCandidates(level int) func([]source.Node) []candidate {
	return func(nodes []source.Node) []candidate {
		return fromSections(source.Sections(nodes, level))
	}
}

func fromSections(sections []source.Section) []candidate {
	out := make([]candidate, 0, len(sections))
	for _, s := range sections {
		name := cleanInline(s.Heading.Text)
		if name == "" {
			continue
		}
		out = append(out, candidate{name: name, line: s.Heading.Line, body: s.Body})
	}
	return out
}

// numberedListCandidates treats each top-level ordered list item as a
// feature. Nested items and paragraphs that follow it form its body.
func numberedListCandidates(nodes []source.Node) []candidate {
	var out []candidate
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		if n.Kind != source.KindListItem || !n.Ordered || n.Indent != 0 {
			continue
		}

		end := i + 1
		for end < len(nodes) {
			next := nodes[end]
			if next.IsHeading() || (next.Kind == source.KindListItem && next.Indent == 0) {
				break
			}
			end++
		}

		c := candidate{name: cleanInline(n.Text), line: n.Line, body: nodes[i+1 : end]}
		if m := inlineDescRe.FindStringSubmatch(c.name); m != nil {
			c.name = strings.TrimSpace(m[1])
			c.description = strings.TrimSpace(m[2])
		}
		if c.name != "" {
			out = append(out, c)
		}
		i = end - 1
	}
	return out
}

// detectCandidates runs the strategies in order. The first strategy with at
// least MinCandidates results wins; otherwise the first non-empty one does.
func detectCandidates(nodes []source.Node) ([]candidate, string) {
	var fallback []candidate
	var fallbackName string
	for _, s := range CandidateStrategies() {
		found := s.find(nodes)
		if len(found) >= MinCandidates {
			return found, s.Name
		}
		if fallback == nil && len(found) > 0 {
			fallback, fallbackName = found, s.Name
		}
	}
	return fallback, fallbackName
}

// ExtractFeatures detects the features described in the primary document,
// assigns ids and slugs, determines each status using the debt analysis (which
// may be nil) and resolves dependencies between them.
func ExtractFeatures(primary, debt *source.Tree, route workflow.Route) ([]workflow.Feature, error) {
	var nodes []source.Node
	if primary != nil {
		nodes = primary.Nodes
	}

	candidates, _ := detectCandidates(nodes)
	if len(candidates) == 0 {
		return nil, &ExtractionError{
			Phase:       PhaseFeatures,
			Message:     "no features found",
			Remediation: "Add a \"Features\" section with one level-2 heading per feature.",
		}
	}

	features := make([]workflow.Feature, len(candidates))
	slugs := make(map[string]int)
	for i, c := range candidates {
		f := buildFeature(c, route)
		f.ID = fmt.Sprintf("%03d", i+1)
		f.Slug = uniqueSlug(f.Name, f.ID, slugs)
		features[i] = f
	}

	names := make([]string, len(features))
	for i, f := range features {
		names[i] = f.Name
	}
	strategies := StatusStrategies(names...)
	for i := range features {
		features[i].Status = DetermineStatus(&features[i], debt, strategies)
	}

	resolveDependencies(features, candidates)
	return features, nil
}

func buildFeature(c candidate, route workflow.Route) workflow.Feature {
	f := workflow.Feature{
		Name:        c.name,
		Description: c.description,
		SourceLine:  c.line,
	}
	if p, ok := source.FirstParagraph(c.body); ok && f.Description == "" {
		f.Description = strings.TrimSpace(p.Text)
	}

	for _, item := range source.ListItems(c.body) {
		text := cleanInline(item.Text)
		if m := criterionRe.FindStringSubmatch(text); m != nil {
			f.AcceptanceCriteria = append(f.AcceptanceCriteria, workflow.AcceptanceCriterion{
				Description: strings.TrimSpace(m[2]),
				Satisfied:   m[1] != " ",
			})
			continue
		}
		if m := userStoryRe.FindStringSubmatch(text); m != nil {
			f.UserStories = append(f.UserStories, workflow.UserStory{
				Role:    strings.TrimSpace(m[1]),
				Goal:    strings.TrimSpace(m[2]),
				Benefit: strings.TrimSpace(m[3]),
			})
		}
	}

	if route == workflow.RoutePrescriptive {
		f.TechnicalDetails = technicalDetails(c.body)
	}
	return f
}

// technicalDetails collects the prose under a technical sub-heading, falling
// back to the languages of code samples in the feature body.
func technicalDetails(body []source.Node) []string {
	var details []string
	for _, s := range source.FindSections(body, technicalHeadingRe) {
		for _, n := range s.Body {
			if n.Kind == source.KindParagraph || n.Kind == source.KindListItem {
				if text := cleanInline(n.Text); text != "" {
					details = append(details, text)
				}
			}
		}
	}
	if len(details) > 0 {
		return dedupe(details)
	}
	for _, n := range body {
		if n.Kind == source.KindCodeBlock && n.Language != "" {
			details = append(details, "Code sample language: "+n.Language)
		}
	}
	return dedupe(details)
}

// uniqueSlug derives a slug from name, suffixing repeats with a counter.
// Names without any alphanumeric character fall back to "feature-<id>".
func uniqueSlug(name, id string, seen map[string]int) string {
	base := workflow.Slugify(name)
	if base == "" {
		base = "feature-" + id
	}
	seen[base]++
	if seen[base] == 1 {
		return base
	}
	for n := seen[base]; ; n++ {
		slug := fmt.Sprintf("%s-%d", base, n)
		if seen[slug] == 0 {
			seen[slug] = 1
			return slug
		}
	}
}
