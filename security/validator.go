// Package security validates caller-supplied paths against a set of allowed
// workspace roots before anything touches the file system.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// shellMetacharacters are rejected outright; no legitimate workspace path
// needs them and they are the usual vehicle for injection through tooling.
const shellMetacharacters = ";&|$`><!*?(){}[]\n\r\x00"

// ErrPathRejected is matched by every SecurityError.
var ErrPathRejected = errors.New("path rejected")

// SecurityError reports a path that is malformed or escapes the allowed roots.
type SecurityError struct {
	Path   string
	Reason string
}

func (e *SecurityError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("path rejected: %s", e.Reason)
	}
	return fmt.Sprintf("path rejected: %q: %s", e.Path, e.Reason)
}

// Is makes errors.Is(err, ErrPathRejected) true for any SecurityError.
func (e *SecurityError) Is(target error) bool {
	return target == ErrPathRejected
}

// Validator resolves paths to canonical form and checks them against roots.
// It holds no mutable state and is safe for concurrent use.
type Validator struct {
	roots []string
}

// NewValidator creates a validator for the given roots. With no roots the
// process working directory is the only allowed root. Every root must exist.
func NewValidator(roots ...string) (*Validator, error) {
	if len(roots) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		roots = []string{cwd}
	}

	canonical := make([]string, 0, len(roots))
	for _, r := range roots {
		if strings.TrimSpace(r) == "" {
			return nil, fmt.Errorf("empty workspace root")
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("resolve root %s: %w", r, err)
		}
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, fmt.Errorf("resolve root %s: %w", r, err)
		}
		canonical = append(canonical, resolved)
	}

	return &Validator{roots: canonical}, nil
}

// Roots returns the canonical allowed roots.
func (v *Validator) Roots() []string {
	out := make([]string, len(v.roots))
	copy(out, v.roots)
	return out
}

// Validate returns the canonical, symlink-resolved form of path, or a
// SecurityError if the path is malformed or resolves outside every root.
// Relative paths are resolved against the first root. Paths that do not exist
// yet are accepted when their nearest existing ancestor is inside a root.
func (v *Validator) Validate(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", &SecurityError{Path: path, Reason: "empty path"}
	}
	if i := strings.IndexAny(path, shellMetacharacters); i >= 0 {
		return "", &SecurityError{Path: path, Reason: fmt.Sprintf("contains shell metacharacter %q", path[i])}
	}
	if strings.HasPrefix(path, "~") {
		return "", &SecurityError{Path: path, Reason: "home directory expansion is not supported"}
	}

	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(v.roots[0], full)
	}
	full = filepath.Clean(full)

	resolved, err := resolveExisting(full)
	if err != nil {
		return "", &SecurityError{Path: path, Reason: fmt.Sprintf("cannot resolve: %v", err)}
	}

	for _, root := range v.roots {
		if within(root, resolved) {
			return resolved, nil
		}
	}
	return "", &SecurityError{Path: path, Reason: "outside allowed workspace roots"}
}

// resolveExisting evaluates symlinks on the longest existing prefix of path
// and re-appends the components that do not exist yet.
func resolveExisting(path string) (string, error) {
	var missing []string
	current := path
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", err
		}
		missing = append(missing, filepath.Base(current))
		current = parent
	}
}

// within reports whether path equals root or is a descendant of it.
func within(root, path string) bool {
	if path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
