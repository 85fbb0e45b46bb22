// Package stage writes synthesized scripts to the staging directory.
//
// The directory holds exactly one well-known file per script kind. Every
// write replaces the whole file through a temporary file and a rename, so a
// reader sees either the previous script or the new one, never a mix. Two
// writes of the same kind in quick succession share the path and the last
// one wins; nothing here serializes them.
package stage

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"pyrun/internal/logging"
	"pyrun/internal/types"
)

const (
	DefaultSelectionFile = "selection.py"
	DefaultFunctionFile  = "function.py"
)

// Stager owns the staging directory.
type Stager struct {
	dir   string
	names map[types.ScriptKind]string
	perm  os.FileMode
}

// Option configures a Stager.
type Option func(*Stager)

// WithFileName overrides the well-known file name for kind.
func WithFileName(kind types.ScriptKind, name string) Option {
	return func(s *Stager) {
		if name != "" {
			s.names[kind] = name
		}
	}
}

// New returns a Stager writing into dir. The directory is created on the
// first write, not here.
func New(dir string, opts ...Option) *Stager {
	s := &Stager{
		dir: dir,
		names: map[types.ScriptKind]string{
			types.ScriptSelection: DefaultSelectionFile,
			types.ScriptFunction:  DefaultFunctionFile,
		},
		perm: 0644,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the staging directory.
func (s *Stager) Dir() string { return s.dir }

// PathFor returns the staging path for kind.
func (s *Stager) PathFor(kind types.ScriptKind) (string, error) {
	name, ok := s.names[kind]
	if !ok {
		return "", fmt.Errorf("unknown script kind %q", kind)
	}
	return filepath.Join(s.dir, name), nil
}

// Write replaces the staging file for script.Kind with the script's text and
// returns its path. Any filesystem failure is a *types.ResourceError.
func (s *Stager) Write(ctx context.Context, script types.SynthesizedScript) (string, error) {
	timer := logging.StartTimer(logging.CategoryStage, "Write")
	defer timer.Stop()

	dest, err := s.PathFor(script.Kind)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		logging.StageError("Failed to create staging directory: %s - %v", s.dir, err)
		return "", &types.ResourceError{Op: "mkdir", Path: s.dir, Err: err}
	}
	if err := s.writeAtomic(dest, script.Text()); err != nil {
		logging.StageError("Failed to write %s: %v", dest, err)
		return "", err
	}

	logging.Stage("Staged %s script: %s (%d lines)", script.Kind, dest, len(script.Lines))
	return dest, nil
}

func (s *Stager) writeAtomic(dest, content string) (err error) {
	tmp, err := os.CreateTemp(s.dir, ".pyrun-*.tmp")
	if err != nil {
		return &types.ResourceError{Op: "create", Path: dest, Err: err}
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if _, err = bw.WriteString(content); err != nil {
		return &types.ResourceError{Op: "write", Path: dest, Err: err}
	}
	if err = bw.Flush(); err != nil {
		return &types.ResourceError{Op: "write", Path: dest, Err: err}
	}
	if err = tmp.Sync(); err != nil {
		return &types.ResourceError{Op: "sync", Path: dest, Err: err}
	}
	if err = tmp.Chmod(s.perm); err != nil {
		return &types.ResourceError{Op: "chmod", Path: dest, Err: err}
	}
	if err = tmp.Close(); err != nil {
		return &types.ResourceError{Op: "close", Path: dest, Err: err}
	}
	if err = os.Rename(tmpPath, dest); err != nil {
		return &types.ResourceError{Op: "rename", Path: dest, Err: err}
	}
	return nil
}
