package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/c360studio/specgen/workflow"
)

// stateLocks provides a per-root mutex for safe concurrent state updates.
// Roots are keyed by canonical path so aliases of one directory share a lock.
var (
	stateLocksMu sync.Mutex
	stateLocks   = make(map[string]*sync.Mutex)
)

// getStateLock returns a mutex for the given root, creating one if needed.
func getStateLock(root string) *sync.Mutex {
	key := canonicalRoot(root)

	stateLocksMu.Lock()
	defer stateLocksMu.Unlock()

	if stateLocks[key] == nil {
		stateLocks[key] = &sync.Mutex{}
	}
	return stateLocks[key]
}

func canonicalRoot(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return filepath.Clean(root)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// LoadState reads the workflow state under root. It returns ErrStateNotFound
// if no state file exists.
func (s *Store) LoadState(root string) (*workflow.WorkflowState, error) {
	path := workflow.NewLayout(root).StatePath()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrStateNotFound
		}
		return nil, fsError("read", path, err)
	}

	var state workflow.WorkflowState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	normalizeState(&state)
	return &state, nil
}

// InitializeState creates the workflow state under root positioned at step,
// unless one already exists, in which case the existing state is returned.
func (s *Store) InitializeState(root, step string) (*workflow.WorkflowState, error) {
	lock := getStateLock(root)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.LoadState(root)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, ErrStateNotFound) {
		return nil, err
	}

	state = workflow.NewWorkflowState(step, s.now().UTC())
	if err := s.saveState(root, state); err != nil {
		return nil, err
	}
	s.logger.Info("Initialized workflow state", "root", root, "step", step)
	return state, nil
}

// MutateState applies fn to the current state under the root's lock and
// persists the result atomically. Concurrent calls against the same root are
// serialized, so every mutation is reflected. If fn returns an error nothing
// is written.
func (s *Store) MutateState(root string, fn func(*workflow.WorkflowState) error) (*workflow.WorkflowState, error) {
	lock := getStateLock(root)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.LoadState(root)
	if err != nil {
		return nil, err
	}

	if err := fn(state); err != nil {
		return nil, err
	}
	state.UpdatedAt = s.now().UTC()

	if err := s.saveState(root, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Store) saveState(root string, state *workflow.WorkflowState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal workflow state: %w", err)
	}
	return s.WriteAtomic(workflow.NewLayout(root).StatePath(), append(data, '\n'))
}

// normalizeState fills nil collections left by older or hand-edited files.
func normalizeState(state *workflow.WorkflowState) {
	if state.CompletedSteps == nil {
		state.CompletedSteps = []string{}
	}
	if state.Steps == nil {
		state.Steps = map[string]workflow.StepDetail{}
	}
	if state.Metadata == nil {
		state.Metadata = map[string]any{}
	}
}
