// Package storage persists generated documents and the workflow state file.
//
// Every write goes through a temporary sibling file that is fsynced and then
// renamed over the target, so readers never observe a partially written
// document.
package storage

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/c360studio/specgen/workflow"
)

// Store writes files atomically and manages workflow state.
type Store struct {
	logger *slog.Logger
	now    func() time.Time

	// rename is os.Rename outside of tests.
	rename func(oldpath, newpath string) error
}

// NewStore creates a store. A nil logger uses slog.Default().
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger: logger,
		now:    time.Now,
		rename: os.Rename,
	}
}

// WriteAtomic writes content to path via a temporary sibling and a rename.
// The temporary file is removed on any failure.
func (s *Store) WriteAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fsError("mkdir", dir, err)
	}

	tmp, err := writeTemp(path, content)
	if err != nil {
		return err
	}
	if err := s.rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fsError("rename", path, err)
	}

	s.logger.Debug("Wrote file", "path", path, "bytes", len(content))
	return nil
}

// writeTemp writes content to a fresh temporary file next to path and returns
// its name. The file is synced and closed before returning.
func writeTemp(path string, content []byte) (string, error) {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fsError("create", path, err)
	}
	tmp := f.Name()

	fail := func(op string, err error) (string, error) {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fsError(op, path, err)
	}

	if _, err := f.Write(content); err != nil {
		return fail("write", err)
	}
	if err := f.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := f.Chmod(0o644); err != nil {
		return fail("chmod", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fsError("close", path, err)
	}
	return tmp, nil
}

// staged tracks one artifact through a transaction.
type staged struct {
	target    string
	temp      string
	backup    string
	committed bool
}

// removal tracks one path set aside by a transaction. The path is moved
// into holder and deleted only when the transaction succeeds.
type removal struct {
	target string
	holder string
}

// Transaction is one all-or-nothing change to the workspace.
type Transaction struct {
	// Write lists the artifacts to create or replace.
	Write []workflow.GeneratedArtifact
	// Remove lists files or directory trees to delete.
	Remove []string
	// Then runs once every write and removal is in place. An error undoes
	// the whole transaction.
	Then func() error
}

// WriteAll persists a set of artifacts all-or-nothing.
func (s *Store) WriteAll(artifacts []workflow.GeneratedArtifact) error {
	return s.Apply(Transaction{Write: artifacts})
}

// Apply performs a transaction. Every artifact is first written to a
// temporary file. Originals are then moved aside, the temporaries renamed
// into place and removed paths moved into hidden holders. If any step or
// tx.Then fails, originals and removed paths are restored, files that did
// not exist before are deleted, and no temporary, backup or holder is left
// behind.
func (s *Store) Apply(tx Transaction) error {
	var createdDirs []string
	files := make([]*staged, 0, len(tx.Write))
	removed := make([]removal, 0, len(tx.Remove))

	abort := func(err error) error {
		s.restore(removed)
		s.rollback(files, createdDirs)
		return err
	}

	// Stage every temporary first so a full disk fails before any swap.
	for _, a := range tx.Write {
		dir := filepath.Dir(a.Path)
		dirs, err := mkdirAllTracked(dir)
		createdDirs = append(createdDirs, dirs...)
		if err != nil {
			return abort(fsError("mkdir", dir, err))
		}
		if info, err := os.Stat(a.Path); err == nil && info.IsDir() {
			return abort(fsError("write", a.Path, syscall.EISDIR))
		}

		tmp, err := writeTemp(a.Path, a.Content)
		if err != nil {
			return abort(err)
		}
		files = append(files, &staged{target: a.Path, temp: tmp})
	}

	for _, f := range files {
		if _, err := os.Lstat(f.target); err == nil {
			f.backup = f.temp + ".bak"
			if err := s.rename(f.target, f.backup); err != nil {
				f.backup = ""
				return abort(fsError("backup", f.target, err))
			}
		}
		if err := s.rename(f.temp, f.target); err != nil {
			// The original is already aside; mark committed so rollback restores it.
			f.committed = true
			return abort(fsError("rename", f.target, err))
		}
		f.temp = ""
		f.committed = true
	}

	for _, path := range tx.Remove {
		if _, err := os.Lstat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		holder, err := os.MkdirTemp(filepath.Dir(path), "."+filepath.Base(path)+".remove-*")
		if err != nil {
			return abort(fsError("remove", path, err))
		}
		if err := s.rename(path, filepath.Join(holder, filepath.Base(path))); err != nil {
			_ = os.Remove(holder)
			return abort(fsError("remove", path, err))
		}
		removed = append(removed, removal{target: path, holder: holder})
	}

	if tx.Then != nil {
		if err := tx.Then(); err != nil {
			return abort(err)
		}
	}

	for _, f := range files {
		if f.backup != "" {
			if err := os.Remove(f.backup); err != nil {
				s.logger.Warn("Failed to remove backup", "path", f.backup, "error", err)
			}
		}
	}
	for _, r := range removed {
		if err := os.RemoveAll(r.holder); err != nil {
			s.logger.Warn("Failed to delete removed path", "path", r.target, "error", err)
		}
	}

	s.logger.Debug("Applied transaction", "written", len(files), "removed", len(removed))
	return nil
}

// restore moves removed paths back, newest first.
func (s *Store) restore(removed []removal) {
	for i := len(removed) - 1; i >= 0; i-- {
		r := removed[i]
		if err := s.rename(filepath.Join(r.holder, filepath.Base(r.target)), r.target); err != nil {
			s.logger.Error("Failed to restore removed path", "path", r.target, "holder", r.holder, "error", err)
			continue
		}
		_ = os.Remove(r.holder)
	}
}

// rollback undoes partially applied writes, newest change first.
func (s *Store) rollback(files []*staged, createdDirs []string) {
	for i := len(files) - 1; i >= 0; i-- {
		f := files[i]
		if f.temp != "" {
			_ = os.Remove(f.temp)
		}
		if !f.committed {
			continue
		}
		if f.backup != "" {
			if err := s.rename(f.backup, f.target); err != nil {
				s.logger.Error("Failed to restore original", "path", f.target, "backup", f.backup, "error", err)
			}
			continue
		}
		if err := os.Remove(f.target); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Error("Failed to remove new file", "path", f.target, "error", err)
		}
	}

	for i := len(createdDirs) - 1; i >= 0; i-- {
		// Only empty directories are removed.
		_ = os.Remove(createdDirs[i])
	}
}

// mkdirAllTracked behaves like os.MkdirAll and returns the directories it
// created, parents first.
func mkdirAllTracked(dir string) ([]string, error) {
	var missing []string
	for d := dir; ; d = filepath.Dir(d) {
		if _, err := os.Stat(d); err == nil {
			break
		}
		missing = append(missing, d)
		if filepath.Dir(d) == d {
			break
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}

	created := make([]string, 0, len(missing))
	for i := len(missing) - 1; i >= 0; i-- {
		created = append(created, missing[i])
	}
	// On failure the caller still gets every candidate; removing a directory
	// that was never created is harmless.
	return created, os.MkdirAll(dir, 0o755)
}

// InitializeLayout creates the .semspec directory tree under root. It is
// safe to call repeatedly.
func (s *Store) InitializeLayout(root string) error {
	layout := workflow.NewLayout(root)
	for _, dir := range layout.Directories() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fsError("mkdir", dir, err)
		}
	}
	return nil
}

// ReadFile reads a whole file. Failures, including a missing file, are
// reported as FileSystemError, so errors.Is(err, fs.ErrNotExist) still holds.
func (s *Store) ReadFile(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fsError("read", path, err)
	}
	return content, nil
}

// ListDirs returns the names of the subdirectories of dir, or nil if dir is
// absent.
func (s *Store) ListDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fsError("readdir", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
