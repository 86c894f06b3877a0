// Package generator runs the specification generation stage: it reads the
// narrative documents of a workspace, extracts the constitution, features and
// plans, renders them through the templates and persists the result together
// with the workflow state.
package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/specgen/config"
	"github.com/c360studio/specgen/extract"
	"github.com/c360studio/specgen/security"
	"github.com/c360studio/specgen/source"
	"github.com/c360studio/specgen/source/parser"
	"github.com/c360studio/specgen/storage"
	"github.com/c360studio/specgen/templates"
	"github.com/c360studio/specgen/workflow"
	"github.com/c360studio/specgen/workflow/validation"
)

// Request describes one generation run.
type Request struct {
	// Dir is the workspace directory. Empty means the first configured root.
	Dir string

	// Route overrides the route recorded in the workflow state and the
	// configured default.
	Route workflow.Route

	// DryRun renders and diffs against the existing documents without
	// writing anything.
	DryRun bool

	// Prune removes generated documents that this run no longer produces.
	Prune bool
}

// ArtifactSummary describes one generated document.
type ArtifactSummary struct {
	// Path is relative to the workspace root, slash separated.
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
	// Changed is false when the document on disk already has this content.
	Changed bool `json:"changed"`
}

// FeatureSummary describes one extracted feature.
type FeatureSummary struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Status       workflow.FeatureStatus `json:"status"`
	Dir          string                 `json:"dir"`
	Dependencies []string               `json:"dependencies,omitempty"`
	HasPlan      bool                   `json:"has_plan"`
}

// Result summarises a run.
type Result struct {
	Root      string            `json:"root"`
	Route     workflow.Route    `json:"route"`
	RunID     string            `json:"run_id"`
	DryRun    bool              `json:"dry_run"`
	Artifacts []ArtifactSummary `json:"artifacts"`
	Features  []FeatureSummary  `json:"features"`
	Plans     int               `json:"plans"`

	StatusCounts map[workflow.FeatureStatus]int `json:"status_counts"`

	// Written is the number of documents written; unchanged ones are skipped.
	Written int `json:"written"`

	Warnings []string `json:"warnings,omitempty"`

	// Diffs maps artifact paths to unified diffs. Dry runs only.
	Diffs map[string]string `json:"diffs,omitempty"`

	// Pruned lists removed paths, or the paths a dry run would remove.
	Pruned []string `json:"pruned,omitempty"`
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithStore sets the storage layer.
func WithStore(store *storage.Store) Option {
	return func(g *Generator) {
		g.store = store
	}
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *Metrics) Option {
	return func(g *Generator) {
		g.metrics = m
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithRunIDs sets the run id source.
func WithRunIDs(next func() string) Option {
	return func(g *Generator) {
		g.newRunID = next
	}
}

// Generator runs the pipeline. It is safe for concurrent use; runs against
// the same workspace root are serialized.
type Generator struct {
	cfg       *config.Config
	validator *security.Validator
	parsers   *parser.Registry
	store     *storage.Store
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
	newRunID  func() string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates a generator for the workspace roots named in cfg.
func New(cfg *config.Config, opts ...Option) (*Generator, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	validator, err := security.NewValidator(cfg.Workspace.Roots...)
	if err != nil {
		return nil, fmt.Errorf("workspace roots: %w", err)
	}

	g := &Generator{
		cfg:       cfg,
		validator: validator,
		parsers:   parser.NewRegistry(cfg.Parser.MaxBytes),
		logger:    slog.Default(),
		now:       time.Now,
		newRunID:  func() string { return uuid.New().String() },
		locks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.store == nil {
		g.store = storage.NewStore(g.logger)
	}
	if g.metrics == nil {
		g.metrics = NewMetrics(nil)
	}
	return g, nil
}

// Config returns the configuration the generator was created with.
func (g *Generator) Config() *config.Config {
	return g.cfg
}

// Metrics returns the generator's metrics collectors.
func (g *Generator) Metrics() *Metrics {
	return g.metrics
}

// ResolveRoot validates dir as a workspace root. Empty means the first
// configured root.
func (g *Generator) ResolveRoot(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return g.validator.Roots()[0], nil
	}
	return g.validator.Validate(dir)
}

// InputPaths returns the validated primary and debt input paths under root.
func (g *Generator) InputPaths(root string) (primary, debt string, err error) {
	primary, err = g.workspacePath(root, g.cfg.Inputs.Primary)
	if err != nil {
		return "", "", fmt.Errorf("primary input: %w", err)
	}
	if g.cfg.Inputs.Debt != "" {
		debt, err = g.workspacePath(root, g.cfg.Inputs.Debt)
		if err != nil {
			return "", "", fmt.Errorf("debt input: %w", err)
		}
	}
	return primary, debt, nil
}

// workspacePath resolves a configured path against root and validates it.
func (g *Generator) workspacePath(root, path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	return g.validator.Validate(path)
}

func (g *Generator) runLock(root string) *sync.Mutex {
	g.locksMu.Lock()
	defer g.locksMu.Unlock()

	lock, ok := g.locks[root]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[root] = lock
	}
	return lock
}

// Run executes the pipeline once. On failure nothing is written; use
// Classify to turn the error into user guidance.
func (g *Generator) Run(ctx context.Context, req Request) (res *Result, err error) {
	start := g.now()
	outcome := OutcomeFailure
	defer func() {
		g.metrics.observeRun(outcome, g.now().Sub(start))
		if res != nil {
			g.metrics.observeResult(len(res.Features), res.Written)
		}
		g.exportMetrics()
	}()

	if req.Route != "" && !req.Route.IsValid() {
		return nil, fmt.Errorf("invalid route %q", req.Route)
	}

	root, err := g.ResolveRoot(req.Dir)
	if err != nil {
		return nil, err
	}

	lock := g.runLock(root)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runID := g.newRunID()
	logger := g.logger.With("root", root, "run_id", runID)
	logger.Debug("Starting generation", "dry_run", req.DryRun)

	state, err := g.store.LoadState(root)
	if err != nil && !errors.Is(err, storage.ErrStateNotFound) {
		return nil, fmt.Errorf("load workflow state: %w", err)
	}
	route := g.resolveRoute(req.Route, state)

	primary, debt, err := g.readInputs(root)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Extraction
	var fallbackStack []string
	if route == workflow.RoutePrescriptive {
		for _, tech := range workflow.DetectStack(root) {
			fallbackStack = append(fallbackStack, tech.String())
		}
		g.logger.Debug("Detected technology stack", "stack", fallbackStack)
	}
	constitution, err := extract.ExtractConstitution(primary, route, fallbackStack...)
	if err != nil {
		return nil, err
	}
	features, err := extract.ExtractFeatures(primary, debt, route)
	if err != nil {
		return nil, err
	}
	warnings, err := dependencyWarnings(features)
	if err != nil {
		return nil, err
	}
	plans, err := extract.GeneratePlans(features, debt)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Rendering
	templateDir, err := g.workspacePath(root, g.cfg.Templates.Dir)
	if err != nil {
		return nil, fmt.Errorf("templates dir: %w", err)
	}
	tstore, err := templates.NewStore(templateDir, logger)
	if err != nil {
		return nil, err
	}
	layout := workflow.NewLayout(root)
	artifacts, renderWarnings, err := g.render(layout, route, tstore, constitution, features, plans)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, renderWarnings...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res = &Result{
		Root:         root,
		Route:        route,
		RunID:        runID,
		DryRun:       req.DryRun,
		Plans:        len(plans),
		StatusCounts: map[workflow.FeatureStatus]int{},
		Warnings:     warnings,
	}
	for _, f := range features {
		_, hasPlan := plans[f.ID]
		res.Features = append(res.Features, FeatureSummary{
			ID:           f.ID,
			Name:         f.Name,
			Status:       f.Status,
			Dir:          f.Dir(),
			Dependencies: f.Dependencies,
			HasPlan:      hasPlan,
		})
		res.StatusCounts[f.Status]++
	}

	// Compare against what is on disk.
	var changed []workflow.GeneratedArtifact
	var previous [][]byte
	for _, a := range artifacts {
		existing, err := g.store.ReadFile(a.Path)
		if errors.Is(err, fs.ErrNotExist) {
			existing = nil
		} else if err != nil {
			return nil, err
		}
		isChanged := existing == nil || !bytes.Equal(existing, a.Content)
		res.Artifacts = append(res.Artifacts, ArtifactSummary{
			Path:     relPath(root, a.Path),
			Checksum: a.Checksum,
			Changed:  isChanged,
		})
		if isChanged {
			changed = append(changed, a)
			previous = append(previous, existing)
		}
	}

	stale, err := g.stalePaths(layout, features, plans)
	if err != nil {
		return nil, err
	}
	prune := req.Prune || g.cfg.Generation.Prune

	if req.DryRun {
		res.Diffs = make(map[string]string, len(changed))
		for i, a := range changed {
			rel := relPath(root, a.Path)
			d, err := unifiedDiff(rel, previous[i], a.Content)
			if err != nil {
				return nil, fmt.Errorf("diff %s: %w", rel, err)
			}
			res.Diffs[rel] = d
		}
		res.Warnings = append(res.Warnings, staleWarnings(root, stale, prune)...)
		if prune {
			res.Pruned = relPaths(root, stale)
		}
		outcome = OutcomeDryRun
		logger.Info("Dry run complete", "route", route, "features", len(features), "changed", len(changed))
		return res, nil
	}

	// Persistence
	if err := g.store.InitializeLayout(root); err != nil {
		return nil, err
	}
	if _, err := g.store.InitializeState(root, workflow.StepGenerateSpecs); err != nil {
		return nil, err
	}
	res.Written = len(changed)
	var removals []string
	if prune {
		removals = stale
		res.Pruned = relPaths(root, stale)
	} else {
		res.Warnings = append(res.Warnings, staleWarnings(root, stale, false)...)
	}

	// The state records the step only if the documents land, and the
	// documents are rolled back if the state cannot be recorded.
	completedAt := g.now().UTC()
	err = g.store.Apply(storage.Transaction{
		Write:  changed,
		Remove: removals,
		Then: func() error {
			_, err := g.store.MutateState(root, func(st *workflow.WorkflowState) error {
				st.SetRoute(route)
				st.CurrentStep = workflow.StepGenerateSpecs
				st.MarkCompleted(workflow.StepGenerateSpecs, workflow.StepDetail{
					CompletedAt: completedAt,
					RunID:       runID,
					Summary:     res.summary(),
				})
				return nil
			})
			if err != nil {
				return fmt.Errorf("update workflow state: %w", err)
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	outcome = OutcomeSuccess
	logger.Info("Generation complete",
		"route", route,
		"features", len(features),
		"plans", len(plans),
		"written", res.Written,
		"unchanged", len(artifacts)-res.Written,
		"pruned", len(res.Pruned))
	return res, nil
}

// resolveRoute picks the request route, then the recorded route, then the
// configured default.
func (g *Generator) resolveRoute(requested workflow.Route, state *workflow.WorkflowState) workflow.Route {
	if requested != "" {
		return requested
	}
	if state != nil {
		if r, ok := state.Route(); ok {
			return r
		}
	}
	return g.cfg.Route()
}

// readInputs parses the primary document and, when present, the debt
// analysis.
func (g *Generator) readInputs(root string) (primary, debt *source.Tree, err error) {
	primaryPath, debtPath, err := g.InputPaths(root)
	if err != nil {
		return nil, nil, err
	}

	content, err := g.store.ReadFile(primaryPath)
	if err != nil {
		return nil, nil, err
	}
	primary, err = g.parsers.Parse(primaryPath, content)
	if err != nil {
		return nil, nil, err
	}

	if debtPath == "" {
		return primary, nil, nil
	}
	content, err = g.store.ReadFile(debtPath)
	if errors.Is(err, fs.ErrNotExist) {
		g.logger.Debug("No debt analysis found", "path", debtPath)
		return primary, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	debt, err = g.parsers.Parse(debtPath, content)
	if err != nil {
		return nil, nil, err
	}
	return primary, debt, nil
}

// render produces every artifact of a run, in a stable order: the
// constitution, then each feature's spec and plan.
func (g *Generator) render(
	layout workflow.Layout,
	route workflow.Route,
	tstore *templates.Store,
	constitution *workflow.ConstitutionData,
	features []workflow.Feature,
	plans map[string]workflow.ImplementationPlan,
) ([]workflow.GeneratedArtifact, []string, error) {
	var artifacts []workflow.GeneratedArtifact
	var warnings []string

	emit := func(path, name string, docType validation.DocumentType, data map[string]any) error {
		if !layout.Contains(path) {
			return &security.SecurityError{Path: path, Reason: "outside the .semspec tree"}
		}
		if _, err := g.validator.Validate(path); err != nil {
			return err
		}

		tpl, err := tstore.Get(name)
		if err != nil {
			return err
		}
		content, err := tpl.Render(data)
		if err != nil {
			return err
		}

		rel := relPath(layout.Root(), path)
		warnings = append(warnings, validation.ValidateDocument(content, docType).Issues(rel)...)

		raw := []byte(content)
		artifacts = append(artifacts, workflow.GeneratedArtifact{
			Path:     path,
			Content:  raw,
			Checksum: parser.ContentHash(raw),
		})
		return nil
	}

	if err := emit(layout.ConstitutionPath(), templates.ConstitutionTemplate(route),
		validation.DocumentTypeConstitution, constitutionView(constitution)); err != nil {
		return nil, nil, err
	}

	byID := make(map[string]workflow.Feature, len(features))
	for _, f := range features {
		byID[f.ID] = f
	}
	for _, f := range features {
		if err := emit(layout.SpecPath(f), templates.SpecTemplate(route),
			validation.DocumentTypeSpec, specView(f, byID, constitution.TechnologyStack)); err != nil {
			return nil, nil, err
		}
		plan, ok := plans[f.ID]
		if !ok {
			continue
		}
		if err := emit(layout.PlanPath(f), templates.Plan,
			validation.DocumentTypePlan, planView(plan)); err != nil {
			return nil, nil, err
		}
	}
	return artifacts, warnings, nil
}

// dependencyWarnings fails on cycles built from explicit "depends on"
// statements and reports the softer findings as warnings.
func dependencyWarnings(features []workflow.Feature) ([]string, error) {
	if cycles := extract.ExplicitCycles(features); len(cycles) > 0 {
		parts := make([]string, len(cycles))
		for i, c := range cycles {
			parts[i] = strings.Join(c, " -> ")
		}
		return nil, &extract.ExtractionError{
			Phase:       extract.PhasePlans,
			Message:     "explicit dependency cycle between features " + strings.Join(parts, "; "),
			Remediation: `Remove one of the "depends on" statements so that the features can be ordered.`,
		}
	}

	var warnings []string
	for _, c := range extract.DetectCycles(features) {
		warnings = append(warnings, fmt.Sprintf("features %s mention each other; their dependencies form a cycle", strings.Join(c, ", ")))
	}
	for _, f := range features {
		for _, name := range f.UnresolvedDependencies {
			warnings = append(warnings, fmt.Sprintf("feature %s (%s) depends on %q, which is not an extracted feature", f.ID, f.Name, name))
		}
	}
	return warnings, nil
}

// stalePaths lists generated documents under specs/ that this run does not
// produce: whole feature directories, and plans of features now complete.
func (g *Generator) stalePaths(layout workflow.Layout, features []workflow.Feature, plans map[string]workflow.ImplementationPlan) ([]string, error) {
	names, err := g.store.ListDirs(layout.SpecsPath())
	if err != nil {
		return nil, err
	}

	current := make(map[string]workflow.Feature, len(features))
	for _, f := range features {
		current[f.Dir()] = f
	}

	var stale []string
	for _, name := range names {
		if !workflow.IsFeatureDir(name) {
			continue
		}
		f, ok := current[name]
		if !ok {
			stale = append(stale, filepath.Join(layout.SpecsPath(), name))
			continue
		}
		if _, hasPlan := plans[f.ID]; hasPlan {
			continue
		}
		planPath := layout.PlanPath(f)
		if _, err := g.store.ReadFile(planPath); err == nil {
			stale = append(stale, planPath)
		}
	}
	sort.Strings(stale)
	return stale, nil
}

func staleWarnings(root string, stale []string, pruning bool) []string {
	if pruning {
		return nil
	}
	warnings := make([]string, 0, len(stale))
	for _, rel := range relPaths(root, stale) {
		warnings = append(warnings, fmt.Sprintf("%s is no longer generated; use --prune to remove it", rel))
	}
	return warnings
}

// summary is the step summary recorded in the workflow state.
func (r *Result) summary() map[string]any {
	counts := make(map[string]any, len(r.StatusCounts))
	for status, n := range r.StatusCounts {
		counts[string(status)] = n
	}
	return map[string]any{
		"route":     string(r.Route),
		"features":  len(r.Features),
		"plans":     r.Plans,
		"artifacts": len(r.Artifacts),
		"written":   r.Written,
		"pruned":    len(r.Pruned),
		"status":    counts,
		"warnings":  len(r.Warnings),
	}
}

func (g *Generator) exportMetrics() {
	path := g.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	if err := g.metrics.WriteTextfile(path); err != nil {
		g.logger.Warn("Failed to write metrics textfile", "path", path, "error", err)
	}
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func relPaths(root string, paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = relPath(root, p)
	}
	return out
}
