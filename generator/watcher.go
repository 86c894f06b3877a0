package generator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/specgen/source/parser"
)

const (
	// runChannelBuffer is the size of the watch outcome channel.
	runChannelBuffer = 16

	defaultDebounce = 500 * time.Millisecond
)

// RunOutcome is the result of one run triggered by the watcher.
type RunOutcome struct {
	// Trigger lists the changed files, relative to the workspace root.
	Trigger []string
	Result  *Result
	Err     error
}

// Watcher reruns the pipeline whenever an input document or a template
// override changes. Changes are debounced and filtered by content hash, so
// saving a file without modifying it does not trigger a run.
type Watcher struct {
	gen         *Generator
	req         Request
	root        string
	inputs      map[string]bool
	templateDir string
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	logger      *slog.Logger

	// Debouncing: collect changes before running
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	// Hash-based change detection
	hashMu sync.Mutex
	hashes map[string]string

	outcomes chan RunOutcome
	dropped  atomic.Int64
}

// NewWatcher creates a watcher that runs req on every relevant change. The
// request's Dir is resolved once, up front.
func (g *Generator) NewWatcher(req Request) (*Watcher, error) {
	root, err := g.ResolveRoot(req.Dir)
	if err != nil {
		return nil, err
	}
	req.Dir = root

	primary, debt, err := g.InputPaths(root)
	if err != nil {
		return nil, err
	}
	inputs := map[string]bool{primary: true}
	if debt != "" {
		inputs[debt] = true
	}

	templateDir, err := g.workspacePath(root, g.cfg.Templates.Dir)
	if err != nil {
		return nil, fmt.Errorf("templates dir: %w", err)
	}

	debounce := g.cfg.Watch.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		gen:         g,
		req:         req,
		root:        root,
		inputs:      inputs,
		templateDir: templateDir,
		debounce:    debounce,
		watcher:     fsw,
		logger:      g.logger.With("root", root),
		pending:     make(map[string]fsnotify.Op),
		hashes:      make(map[string]string),
		outcomes:    make(chan RunOutcome, runChannelBuffer),
	}, nil
}

// Outcomes returns the channel of run outcomes. It is closed when the
// watcher stops.
func (w *Watcher) Outcomes() <-chan RunOutcome {
	return w.outcomes
}

// Start adds the watches and begins processing events. The directory holding
// the primary input must exist.
func (w *Watcher) Start(ctx context.Context) error {
	dirs := map[string]bool{}
	for path := range w.inputs {
		dirs[filepath.Dir(path)] = true
		w.recordHash(path)
	}

	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.logger.Debug("Watching directory", "path", dir)
	}

	if info, err := os.Stat(w.templateDir); err == nil && info.IsDir() {
		if err := w.addWatchesRecursive(w.templateDir); err != nil {
			return err
		}
	}

	go w.processEvents(ctx)

	w.logger.Info("Input watcher started", "debounce", w.debounce, "inputs", len(w.inputs))
	return nil
}

// Stop stops the watcher. The outcomes channel is closed by processEvents
// when it exits.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// DroppedOutcomes returns the number of outcomes dropped because nobody was
// reading them.
func (w *Watcher) DroppedOutcomes() int64 {
	return w.dropped.Load()
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			w.recordHash(path)
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", "path", path, "error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.outcomes)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

// relevant reports whether a changed path can affect the generated output.
func (w *Watcher) relevant(path string) bool {
	if w.inputs[path] {
		return true
	}
	if !strings.EqualFold(filepath.Ext(path), ".md") {
		return false
	}
	rel, err := filepath.Rel(w.templateDir, path)
	return err == nil && !strings.HasPrefix(rel, "..")
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() && w.relevantDir(path) {
			if err := w.watcher.Add(path); err != nil {
				w.logger.Warn("Failed to watch new directory", "path", path, "error", err)
			}
			return
		}
	}

	if !w.relevant(path) {
		return
	}

	w.pendingMu.Lock()
	w.pending[path] = event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("Input change detected", "path", relPath(w.root, path), "op", event.Op.String())
}

func (w *Watcher) relevantDir(path string) bool {
	rel, err := filepath.Rel(w.templateDir, path)
	return err == nil && !strings.HasPrefix(rel, "..")
}

// flushPending runs the pipeline once if any pending file changed content.
func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	var changed []string
	for path := range toProcess {
		if w.recordHash(path) {
			changed = append(changed, relPath(w.root, path))
		}
	}
	if len(changed) == 0 {
		return
	}
	sort.Strings(changed)

	w.logger.Info("Regenerating after input change", "changed", changed)
	res, err := w.gen.Run(ctx, w.req)
	if err != nil {
		w.logger.Warn("Regeneration failed", "error", err)
	}
	w.send(RunOutcome{Trigger: changed, Result: res, Err: err})
}

// recordHash updates the stored content hash of path and reports whether it
// differs from the previous one. A removed file hashes to "".
func (w *Watcher) recordHash(path string) bool {
	hash := ""
	if content, err := os.ReadFile(path); err == nil {
		hash = parser.ContentHash(content)
	}

	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	old, had := w.hashes[path]
	w.hashes[path] = hash
	return !had || old != hash
}

func (w *Watcher) send(outcome RunOutcome) {
	select {
	case w.outcomes <- outcome:
	default:
		dropped := w.dropped.Add(1)
		w.logger.Warn("Outcome channel full, dropping run outcome", "total_dropped", dropped)
	}
}
