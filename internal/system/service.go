// Package system wires the two run pipelines together.
//
// Selection run: buffer -> extract -> synth -> stage -> runner.
// Function run:  buffer -> catalog -> chooser -> invoker -> stage -> runner.
//
// Input errors surface before anything is written and resource errors
// before anything is executed. Execution itself is fire-and-forget.
package system

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"pyrun/internal/buffer"
	"pyrun/internal/catalog"
	"pyrun/internal/config"
	"pyrun/internal/logging"
	"pyrun/internal/pycheck"
	"pyrun/internal/stage"
	"pyrun/internal/store"
	"pyrun/internal/synth"
	"pyrun/internal/tactile"
	"pyrun/internal/types"
)

// Tag keys carried on every submitted command.
const (
	TagKind   = "kind"
	TagTarget = "target"
	TagScript = "script"
)

// Recorder persists finished runs.
type Recorder interface {
	Record(rec store.RunRecord) error
}

// Service runs selections and functions of a Python buffer.
type Service struct {
	cfg     config.Config
	stager  *stage.Stager
	runner  tactile.Runner
	history Recorder

	// check parses a script; pycheck.Check outside tests.
	check func(ctx context.Context, src []byte) ([]pycheck.Issue, error)
}

// NewService builds a Service. cfg is copied; later changes to the
// caller's value are not seen. history may be nil.
func NewService(cfg config.Config, stager *stage.Stager, runner tactile.Runner, history Recorder) *Service {
	cfg.Python.Args = append([]string(nil), cfg.Python.Args...)
	return &Service{cfg: cfg, stager: stager, runner: runner, history: history, check: pycheck.Check}
}

// Config returns the service configuration.
func (s *Service) Config() config.Config { return s.cfg }

// Stager returns the staging directory owner.
func (s *Service) Stager() *stage.Stager { return s.stager }

// PrepareSelection synthesizes the selection script for acc without writing
// or checking it.
func (s *Service) PrepareSelection(ctx context.Context, acc buffer.Accessor) (types.SynthesizedScript, error) {
	rng, ok := acc.SelectionRange()
	if !ok {
		return types.SynthesizedScript{}, types.NewInputError("no selection")
	}

	return synth.SynthesizeSelectionScript(acc.BufferLines(), rng, s.cfg.Script)
}

// PrepareFunction picks a function of acc and synthesizes its invocation
// script. A non-empty name selects by name and bypasses the chooser.
// ok is false, with a nil error, when the chooser was cancelled.
func (s *Service) PrepareFunction(ctx context.Context, acc buffer.Accessor, chooser catalog.Chooser, name string) (types.SynthesizedScript, types.FunctionCatalogEntry, bool, error) {
	entries := catalog.BuildFunctionCatalog(acc.BufferLines())

	var entry types.FunctionCatalogEntry
	if name != "" {
		e, err := catalog.Find(entries, name)
		if err != nil {
			return types.SynthesizedScript{}, types.FunctionCatalogEntry{}, false, err
		}
		entry = e
	} else {
		e, ok, err := catalog.Select(ctx, entries, chooser, s.cfg.Chooser.Prompt)
		if err != nil || !ok {
			return types.SynthesizedScript{}, types.FunctionCatalogEntry{}, false, err
		}
		entry = e
	}

	script, err := catalog.SynthesizeInvocationScript(acc.FilePath(), entry.Name, s.cfg.Script)
	if err != nil {
		return types.SynthesizedScript{}, types.FunctionCatalogEntry{}, false, err
	}
	return script, entry, true, nil
}

// RunSelection synthesizes, stages and submits the selection of acc.
func (s *Service) RunSelection(ctx context.Context, acc buffer.Accessor) (*tactile.Handle, error) {
	script, err := s.PrepareSelection(ctx, acc)
	if err != nil {
		return nil, err
	}
	rng, _ := acc.SelectionRange()
	return s.launch(ctx, script, acc, fmt.Sprintf("%s:%s", displayPath(acc), rng))
}

// RunFunction picks, stages and submits a function of acc. A cancelled
// chooser returns a nil handle and a nil error.
func (s *Service) RunFunction(ctx context.Context, acc buffer.Accessor, chooser catalog.Chooser, name string) (*tactile.Handle, error) {
	script, entry, ok, err := s.PrepareFunction(ctx, acc, chooser, name)
	if err != nil || !ok {
		return nil, err
	}
	return s.launch(ctx, script, acc, fmt.Sprintf("%s:%s", displayPath(acc), entry.Name))
}

func (s *Service) launch(ctx context.Context, script types.SynthesizedScript, acc buffer.Accessor, target string) (*tactile.Handle, error) {
	s.Check(ctx, script)
	path, err := s.stager.Write(ctx, script)
	if err != nil {
		return nil, err
	}

	cmd := s.Command(path, acc)
	cmd.Tags = map[string]string{
		TagKind:   string(script.Kind),
		TagTarget: target,
		TagScript: path,
	}

	h, err := s.runner.Submit(cmd)
	if err != nil {
		logging.RunnerError("Submit failed for %s: %v", target, err)
		return nil, fmt.Errorf("launch %s: %w", s.cfg.Python.Binary, err)
	}
	logging.Runner("Submitted %s run %s for %s", script.Kind, h.ID, target)
	return h, nil
}

// Command builds the interpreter command for a staged script. The working
// directory is the buffer file's directory, or the caller's cwd when the
// buffer has no path.
func (s *Service) Command(scriptPath string, acc buffer.Accessor) tactile.Command {
	args := make([]string, 0, len(s.cfg.Python.Args)+1)
	args = append(args, s.cfg.Python.Args...)
	args = append(args, scriptPath)

	var dir string
	if p := acc.FilePath(); p != "" {
		dir = filepath.Dir(p)
	}
	return tactile.Command{
		Binary:           s.cfg.Python.Binary,
		Arguments:        args,
		WorkingDirectory: dir,
	}
}

// Check parses script with the Python grammar and logs any syntax issue.
// The script is still run: the synthesizer is heuristic and the
// interpreter has the final word.
func (s *Service) Check(ctx context.Context, script types.SynthesizedScript) []pycheck.Issue {
	issues, err := s.check(ctx, []byte(script.Text()))
	if err != nil {
		logging.SynthDebug("Syntax check skipped: %v", err)
		return nil
	}
	for _, is := range issues {
		logging.SynthWarn("Synthesized %s script: %s", script.Kind, is)
	}
	return issues
}

// RecordAudit stores a completed run in the history. It is installed as
// the runner's audit callback and runs on the runner goroutine.
func (s *Service) RecordAudit(ev tactile.AuditEvent) {
	if s.history == nil || ev.Type != tactile.AuditEventComplete || ev.Result == nil {
		return
	}
	res := ev.Result
	rec := store.RunRecord{
		RunID:       ev.RunID,
		Kind:        ev.Command.Tags[TagKind],
		Target:      ev.Command.Tags[TagTarget],
		ScriptPath:  ev.Command.Tags[TagScript],
		Command:     ev.Command.CommandString(),
		ExitCode:    res.ExitCode,
		StartedAt:   res.StartedAt,
		DurationMs:  res.Duration.Milliseconds(),
		StdoutBytes: res.StdoutBytes,
		StderrBytes: res.StderrBytes,
	}
	if err := s.history.Record(rec); err != nil {
		logging.StoreError("History record failed for %s: %v", ev.RunID, err)
		return
	}

	if p, ok := s.history.(interface{ Prune(int) (int64, error) }); ok && s.cfg.History.Keep > 0 {
		if _, err := p.Prune(s.cfg.History.Keep); err != nil {
			logging.StoreError("History prune failed: %v", err)
		}
	}
}

func displayPath(acc buffer.Accessor) string {
	if p := acc.FilePath(); strings.TrimSpace(p) != "" {
		return p
	}
	return "<buffer>"
}
