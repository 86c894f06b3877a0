package workflow

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DetectedTechnology is a language or framework declared by a manifest file
// in the workspace root.
type DetectedTechnology struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	// Marker is the file that revealed the technology.
	Marker string `json:"marker"`
}

// String returns the name followed by the version, when known.
func (t DetectedTechnology) String() string {
	if t.Version == "" {
		return t.Name
	}
	return t.Name + " " + t.Version
}

// frameworkCandidate maps a package.json dependency to a framework name.
// Candidates are checked in order; SvelteKit precedes Svelte so a kit
// project does not also report plain Svelte.
type frameworkCandidate struct {
	dep  string
	name string
}

var frameworkCandidates = []frameworkCandidate{
	{"@sveltejs/kit", "SvelteKit"},
	{"svelte", "Svelte"},
	{"next", "Next.js"},
	{"react", "React"},
	{"vue", "Vue"},
	{"@angular/core", "Angular"},
	{"express", "Express"},
}

// DetectStack inspects the manifest files directly under root and returns
// the languages and frameworks they declare, languages first. Unreadable or
// malformed manifests are skipped.
func DetectStack(root string) []DetectedTechnology {
	var out []DetectedTechnology
	add := func(name, version, marker string) {
		out = append(out, DetectedTechnology{Name: name, Version: version, Marker: marker})
	}

	if fileExists(filepath.Join(root, "go.mod")) {
		add("Go", goVersion(filepath.Join(root, "go.mod")), "go.mod")
	}

	pkg := readPackageJSON(root)
	switch {
	case fileExists(filepath.Join(root, "tsconfig.json")):
		add("TypeScript", "", "tsconfig.json")
	case pkg != nil && pkg.has("typescript"):
		add("TypeScript", "", "package.json")
	case pkg != nil:
		add("JavaScript", pkg.Engines.Node, "package.json")
	}

	if marker := firstExisting(root, "pyproject.toml", "requirements.txt", "setup.py", "Pipfile"); marker != "" {
		version := ""
		if marker == "pyproject.toml" {
			version = pythonVersion(filepath.Join(root, marker))
		}
		add("Python", version, marker)
	}
	if fileExists(filepath.Join(root, "Cargo.toml")) {
		add("Rust", "", "Cargo.toml")
	}
	if marker := firstExisting(root, "pom.xml", "build.gradle", "build.gradle.kts"); marker != "" {
		name := "Java"
		if strings.HasSuffix(marker, ".kts") {
			name = "Kotlin"
		}
		add(name, "", marker)
	}
	if matches, err := doublestar.Glob(os.DirFS(root), "*.{csproj,sln}"); err == nil && len(matches) > 0 {
		add("C#", "", matches[0])
	}
	if fileExists(filepath.Join(root, "Gemfile")) {
		add("Ruby", "", "Gemfile")
	}
	if fileExists(filepath.Join(root, "composer.json")) {
		add("PHP", "", "composer.json")
	}

	if pkg != nil {
		seen := map[string]bool{}
		for _, c := range frameworkCandidates {
			if seen[c.name] || !pkg.has(c.dep) {
				continue
			}
			add(c.name, "", "package.json")
			seen[c.name] = true
			if c.dep == "@sveltejs/kit" {
				seen["Svelte"] = true
			}
		}
	}
	return out
}

// packageJSON holds the package.json fields used for detection.
type packageJSON struct {
	Dependencies     map[string]string `json:"dependencies"`
	DevDependencies  map[string]string `json:"devDependencies"`
	PeerDependencies map[string]string `json:"peerDependencies"`
	Engines          struct {
		Node string `json:"node"`
	} `json:"engines"`
}

func readPackageJSON(root string) *packageJSON {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return nil
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil
	}
	return &pkg
}

// has reports whether dep, or a scoped package under it, is a dependency.
func (p *packageJSON) has(dep string) bool {
	for _, deps := range []map[string]string{p.Dependencies, p.DevDependencies, p.PeerDependencies} {
		for name := range deps {
			if name == dep || strings.HasPrefix(name, dep+"/") {
				return true
			}
		}
	}
	return false
}

func goVersion(goMod string) string {
	f, err := os.Open(goMod)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "go ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "go "))
		}
	}
	return ""
}

// pythonVersion reads requires-python from pyproject.toml.
func pythonVersion(pyproject string) string {
	data, err := os.ReadFile(pyproject)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "requires-python") {
			continue
		}
		if _, value, ok := strings.Cut(line, "="); ok {
			return strings.Trim(strings.TrimSpace(value), `"'`)
		}
	}
	return ""
}

func firstExisting(root string, names ...string) string {
	for _, name := range names {
		if fileExists(filepath.Join(root, name)) {
			return name
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
