package system

import (
	"errors"
	"fmt"

	"pyrun/internal/config"
	"pyrun/internal/logging"
	"pyrun/internal/stage"
	"pyrun/internal/store"
	"pyrun/internal/tactile"
	"pyrun/internal/types"
)

// Runtime is a fully wired pyrun instance.
type Runtime struct {
	Service *Service
	Runner  *tactile.ProcessRunner
	History *store.HistoryStore // nil when history is disabled or unavailable
}

// Boot validates cfg, initializes logging and wires staging, the process
// runner and the run history. The history is optional: failing to open it
// is logged and the runtime works without it.
func Boot(cfg config.Config) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := logging.Initialize(cfg.StateDir, logging.Options{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		JSONFormat: cfg.Logging.JSONFormat,
		Categories: cfg.Logging.Categories,
	}); err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}

	stager := stage.New(cfg.Staging.Dir,
		stage.WithFileName(types.ScriptSelection, cfg.Staging.SelectionFile),
		stage.WithFileName(types.ScriptFunction, cfg.Staging.FunctionFile),
	)
	runner := tactile.NewProcessRunner()

	rt := &Runtime{Runner: runner}
	var recorder Recorder
	if cfg.History.Enabled {
		hist, err := store.Open(cfg.HistoryPath())
		if err != nil {
			logging.BootWarn("Run history unavailable: %v", err)
		} else {
			rt.History = hist
			recorder = hist
		}
	}

	rt.Service = NewService(cfg, stager, runner, recorder)
	runner.SetAuditCallback(rt.Service.RecordAudit)

	logging.Boot("pyrun booted: python=%s staging=%s history=%v",
		cfg.Python.Binary, cfg.Staging.Dir, rt.History != nil)
	return rt, nil
}

// Close releases the history database and log files. In-flight runs keep
// going, but their completion is no longer recorded.
func (rt *Runtime) Close() error {
	if rt == nil {
		return nil
	}

	var errs []error
	if rt.Runner != nil {
		rt.Runner.SetAuditCallback(nil)
	}
	if rt.History != nil {
		if err := rt.History.Close(); err != nil {
			errs = append(errs, err)
		}
		rt.History = nil
	}
	logging.CloseAll()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
