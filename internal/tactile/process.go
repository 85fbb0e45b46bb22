package tactile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pyrun/internal/logging"
)

// ProcessRunner runs commands directly on the host using os/exec.
type ProcessRunner struct {
	mu       sync.RWMutex
	config   RunnerConfig
	inflight sync.WaitGroup

	auditCallback func(AuditEvent)
	eventCallback func(Event)
}

// NewProcessRunner creates a runner with the default config.
func NewProcessRunner() *ProcessRunner {
	return NewProcessRunnerWithConfig(DefaultRunnerConfig())
}

// NewProcessRunnerWithConfig creates a runner with a custom config. Zero
// limits fall back to the defaults.
func NewProcessRunnerWithConfig(config RunnerConfig) *ProcessRunner {
	def := DefaultRunnerConfig()
	if config.MaxOutputBytes <= 0 {
		config.MaxOutputBytes = def.MaxOutputBytes
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = def.ChunkSize
	}
	logging.RunnerDebug("Creating ProcessRunner: maxOutput=%d bytes, chunk=%d", config.MaxOutputBytes, config.ChunkSize)
	return &ProcessRunner{config: config}
}

// SetAuditCallback sets the callback for start/complete/error events. It is
// called from runner goroutines.
func (r *ProcessRunner) SetAuditCallback(callback func(AuditEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auditCallback = callback
}

// SetEventCallback sets a callback invoked for every output and exit event of
// every run, in the same order the handle's stream delivers them.
func (r *ProcessRunner) SetEventCallback(callback func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eventCallback = callback
}

func (r *ProcessRunner) emitAudit(event AuditEvent) {
	r.mu.RLock()
	callback := r.auditCallback
	r.mu.RUnlock()

	if callback != nil {
		callback(event)
	}
}

// Capabilities returns what this runner supports.
func (r *ProcessRunner) Capabilities() RunnerCapabilities {
	return RunnerCapabilities{
		Name:           "process",
		Platform:       runtime.GOOS,
		Streaming:      true,
		ResourceUsage:  r.config.EnableResourceUsage,
		MaxOutputBytes: r.config.MaxOutputBytes,
	}
}

// Validate checks if a command can be submitted.
func (r *ProcessRunner) Validate(cmd Command) error {
	if cmd.Binary == "" {
		return fmt.Errorf("binary is required")
	}
	if cmd.WorkingDirectory != "" {
		info, err := os.Stat(cmd.WorkingDirectory)
		if err != nil {
			return fmt.Errorf("working directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("working directory %s is not a directory", cmd.WorkingDirectory)
		}
	}
	return nil
}

// Submit starts cmd and returns immediately.
func (r *ProcessRunner) Submit(cmd Command) (*Handle, error) {
	if err := r.Validate(cmd); err != nil {
		return nil, err
	}

	id := cmd.RunID
	if id == "" {
		id = uuid.NewString()
	}
	cmd.RunID = id

	execCmd := exec.Command(cmd.Binary, cmd.Arguments...)
	execCmd.Dir = cmd.WorkingDirectory
	execCmd.Env = r.buildEnvironment(cmd.Environment)

	stdout, err := execCmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := execCmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	h := newHandle(id, cmd)
	res := &ExecutionResult{RunID: id, StartedAt: time.Now()}

	if err := execCmd.Start(); err != nil {
		logging.RunnerError("Failed to start %s: %v", cmd.CommandString(), err)
		r.emitAudit(AuditEvent{
			Type:      AuditEventError,
			Timestamp: time.Now(),
			RunID:     id,
			Command:   cmd,
			Runner:    "process",
			Error:     err.Error(),
		})
		return nil, fmt.Errorf("start %s: %w", cmd.Binary, err)
	}

	logging.Runner("Started run %s: %s (pid %d)", id, cmd.CommandString(), execCmd.Process.Pid)
	r.emitAudit(AuditEvent{
		Type:      AuditEventStart,
		Timestamp: res.StartedAt,
		RunID:     id,
		Command:   cmd,
		Runner:    "process",
	})

	r.inflight.Add(1)
	go r.supervise(h, execCmd, res, stdout, stderr)
	return h, nil
}

// Wait blocks until every run submitted so far has finished and its
// completion callback has returned. Submit never needs it; it exists for
// callers that must flush callbacks before shutting down.
func (r *ProcessRunner) Wait() {
	r.inflight.Wait()
}

// supervise pumps both streams, reaps the process, and completes the handle.
func (r *ProcessRunner) supervise(h *Handle, execCmd *exec.Cmd, res *ExecutionResult, stdout, stderr io.Reader) {
	defer r.inflight.Done()

	var stdoutBuf, stderrBuf bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdoutBuf, max: r.config.MaxOutputBytes}
	stderrLimited := &limitedWriter{w: &stderrBuf, max: r.config.MaxOutputBytes}

	// Serializes callback delivery and log order across the two pumps.
	var emitMu sync.Mutex
	emit := func(ev Event) {
		r.mu.RLock()
		callback := r.eventCallback
		r.mu.RUnlock()

		emitMu.Lock()
		defer emitMu.Unlock()
		h.log.append(ev)
		if callback != nil {
			callback(ev)
		}
	}

	var g errgroup.Group
	g.Go(func() error { return r.pump(h.ID, stdout, EventStdout, stdoutLimited, emit) })
	g.Go(func() error { return r.pump(h.ID, stderr, EventStderr, stderrLimited, emit) })
	pumpErr := g.Wait()

	// Wait closes the pipes, so it runs only after both pumps hit EOF.
	waitErr := execCmd.Wait()

	res.FinishedAt = time.Now()
	res.Duration = res.FinishedAt.Sub(res.StartedAt)
	res.Stdout = stdoutBuf.String()
	res.Stderr = stderrBuf.String()
	res.StdoutBytes = stdoutLimited.total()
	res.StderrBytes = stderrLimited.total()
	if stdoutLimited.truncated || stderrLimited.truncated {
		res.Truncated = true
		res.TruncatedBytes = stdoutLimited.discarded + stderrLimited.discarded
		logging.RunnerWarn("Run %s output truncated: %d bytes discarded", h.ID, res.TruncatedBytes)
	}
	if r.config.EnableResourceUsage {
		res.ResourceUsage = processResourceUsage(execCmd)
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		res.ExitCode = 0
	case errors.As(waitErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = -1
		res.Error = waitErr.Error()
	}
	if pumpErr != nil && res.Error == "" {
		res.Error = pumpErr.Error()
	}
	res.Success = res.ExitCode == 0 && res.Error == ""

	emit(Event{RunID: h.ID, Kind: EventExit, ExitCode: res.ExitCode, At: res.FinishedAt})
	h.finish(res)

	logging.Runner("Run %s completed: exit=%d, duration=%s, stdout=%d bytes, stderr=%d bytes",
		h.ID, res.ExitCode, res.Duration, res.StdoutBytes, res.StderrBytes)

	r.emitAudit(AuditEvent{
		Type:      AuditEventComplete,
		Timestamp: res.FinishedAt,
		RunID:     h.ID,
		Command:   h.Command,
		Result:    res,
		Runner:    "process",
		Error:     res.Error,
	})
}

func (r *ProcessRunner) pump(id string, src io.Reader, kind EventKind, capture *limitedWriter, emit func(Event)) error {
	buf := make([]byte, r.config.ChunkSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			_, _ = capture.Write(chunk)
			emit(Event{RunID: id, Kind: kind, Data: chunk, At: time.Now()})
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			logging.RunnerDebug("Run %s %s pump stopped: %v", id, kind, err)
			return fmt.Errorf("read %s: %w", kind, err)
		}
	}
}

// buildEnvironment creates the environment variable list.
func (r *ProcessRunner) buildEnvironment(cmdEnv []string) []string {
	var env []string
	if r.config.InheritEnvironment {
		env = append(env, os.Environ()...)
	}
	// Later entries win in os/exec, so command values override inherited ones.
	return append(env, cmdEnv...)
}

// limitedWriter is an io.Writer that limits total bytes written.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
	discarded int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.written >= lw.max {
		lw.truncated = true
		lw.discarded += int64(n)
		return n, nil
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		lw.discarded += int64(n) - remaining
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}

func (lw *limitedWriter) total() int64 {
	return lw.written + lw.discarded
}
