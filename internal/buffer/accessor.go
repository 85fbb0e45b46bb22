// Package buffer supplies the editor-facing inputs of pyrun: the current
// buffer lines, the current selection and the current file path.
package buffer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pyrun/internal/logging"
	"pyrun/internal/types"
)

// Accessor is what an editor integration provides for one triggered action.
type Accessor interface {
	// BufferLines returns the snapshot of the buffer's lines.
	BufferLines() []string
	// SelectionRange returns the current selection, if there is one.
	SelectionRange() (types.SelectionRange, bool)
	// FilePath returns the absolute path of the buffer's file, or "".
	FilePath() string
}

// Snapshot is an Accessor over lines captured once.
type Snapshot struct {
	buf   types.SourceBuffer
	path  string
	rng   types.SelectionRange
	hasRg bool
}

// NewSnapshot builds an accessor from lines already in memory.
// path may be empty for an unsaved buffer.
func NewSnapshot(lines []string, path string) *Snapshot {
	return &Snapshot{buf: types.NewSourceBuffer(lines), path: absPath(path)}
}

// FromFile reads path and snapshots its lines.
func FromFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open buffer: %w", err)
	}
	defer f.Close()

	lines, err := ReadLines(f)
	if err != nil {
		return nil, fmt.Errorf("read buffer %s: %w", path, err)
	}
	logging.ExtractDebug("Buffer read: %s (%d lines)", path, len(lines))
	return NewSnapshot(lines, path), nil
}

// FromReader snapshots r, reporting path as the buffer's file. The editor
// may pipe unsaved contents this way while naming the file on disk.
func FromReader(r io.Reader, path string) (*Snapshot, error) {
	lines, err := ReadLines(r)
	if err != nil {
		return nil, fmt.Errorf("read buffer: %w", err)
	}
	return NewSnapshot(lines, path), nil
}

// WithRange returns a copy of s carrying rng as its selection.
func (s *Snapshot) WithRange(rng types.SelectionRange) *Snapshot {
	cp := *s
	cp.rng = rng
	cp.hasRg = true
	return &cp
}

func (s *Snapshot) BufferLines() []string { return s.buf.Lines() }

func (s *Snapshot) SelectionRange() (types.SelectionRange, bool) { return s.rng, s.hasRg }

func (s *Snapshot) FilePath() string { return s.path }

// ReadLines splits r into lines without their terminators. A trailing "\r"
// is dropped so CRLF files scan like LF files.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func absPath(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
