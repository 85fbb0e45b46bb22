package tactile

import (
	"fmt"
	"strings"
	"time"

	"pyrun/internal/types"
)

// Command describes one interpreter invocation.
type Command struct {
	// Binary is the executable, resolved through PATH when not absolute.
	Binary string `json:"binary"`

	Arguments []string `json:"arguments,omitempty"`

	// WorkingDirectory is the process cwd. Empty means the caller's cwd.
	WorkingDirectory string `json:"working_directory,omitempty"`

	// Environment holds extra KEY=VALUE pairs appended to the inherited environment.
	Environment []string `json:"environment,omitempty"`

	// RunID is used as the handle ID when set; otherwise one is generated.
	RunID string `json:"run_id,omitempty"`

	// Tags are opaque labels carried into audit events (script kind, target).
	Tags map[string]string `json:"tags,omitempty"`
}

// CommandString renders the command line, quoting arguments that contain spaces.
func (c Command) CommandString() string {
	parts := make([]string, 0, len(c.Arguments)+1)
	parts = append(parts, quoteArg(c.Binary))
	for _, arg := range c.Arguments {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\"'") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

// EventKind identifies what an Event carries.
type EventKind string

const (
	EventStdout EventKind = "stdout"
	EventStderr EventKind = "stderr"
	EventExit   EventKind = "exit"
)

// Event is one item of a run's output stream. Stdout and stderr chunks are
// relayed verbatim; exactly one EventExit ends the stream.
type Event struct {
	RunID    string    `json:"run_id"`
	Kind     EventKind `json:"kind"`
	Data     []byte    `json:"data,omitempty"`
	ExitCode int       `json:"exit_code"`
	At       time.Time `json:"at"`
}

// ResourceUsage is what the OS reports about a finished process.
type ResourceUsage struct {
	UserTimeMs   int64 `json:"user_time_ms"`
	SystemTimeMs int64 `json:"system_time_ms"`

	// MaxRSSBytes is peak resident set size, zero where the platform does not report it.
	MaxRSSBytes int64 `json:"max_rss_bytes"`

	VoluntaryContextSwitches   int64 `json:"voluntary_context_switches"`
	InvoluntaryContextSwitches int64 `json:"involuntary_context_switches"`
}

// TotalCPUTimeMs returns total CPU time (user + system).
func (r *ResourceUsage) TotalCPUTimeMs() int64 {
	return r.UserTimeMs + r.SystemTimeMs
}

// ExecutionResult summarizes a finished run.
type ExecutionResult struct {
	RunID string `json:"run_id"`

	// Success is true when the process ran to completion with exit code 0.
	Success bool `json:"success"`

	// ExitCode is the process exit code, or -1 when it was killed by a
	// signal or never produced one.
	ExitCode int `json:"exit_code"`

	// Stdout and Stderr hold the captured output up to the runner's cap.
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`

	// StdoutBytes and StderrBytes count everything the process wrote, captured or not.
	StdoutBytes int64 `json:"stdout_bytes"`
	StderrBytes int64 `json:"stderr_bytes"`

	Truncated      bool  `json:"truncated"`
	TruncatedBytes int64 `json:"truncated_bytes,omitempty"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`

	ResourceUsage *ResourceUsage `json:"resource_usage,omitempty"`

	// Error describes a failure to wait on the process, not a non-zero exit.
	Error string `json:"error,omitempty"`
}

// IsNonZeroExit reports whether the process exited with a failure code.
func (r *ExecutionResult) IsNonZeroExit() bool {
	return r.ExitCode != 0
}

// Output returns stdout followed by stderr.
func (r *ExecutionResult) Output() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// DownstreamError returns a *types.DownstreamError for a non-zero exit and nil
// otherwise. Output is never inspected.
func (r *ExecutionResult) DownstreamError() error {
	if r == nil || !r.IsNonZeroExit() {
		return nil
	}
	return &types.DownstreamError{ExitCode: r.ExitCode}
}

// RunnerCapabilities describes what a Runner supports.
type RunnerCapabilities struct {
	Name           string `json:"name"`
	Platform       string `json:"platform"`
	Streaming      bool   `json:"streaming"`
	ResourceUsage  bool   `json:"resource_usage"`
	MaxOutputBytes int64  `json:"max_output_bytes"`

	// Runs cannot be cancelled or timed out once submitted.
	SupportsCancel  bool `json:"supports_cancel"`
	SupportsTimeout bool `json:"supports_timeout"`
}

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventStart    AuditEventType = "start"
	AuditEventComplete AuditEventType = "complete"
	AuditEventError    AuditEventType = "error"
)

// AuditEvent is delivered to the audit callback at the start and end of each run.
type AuditEvent struct {
	Type      AuditEventType   `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	RunID     string           `json:"run_id"`
	Command   Command          `json:"command"`
	Result    *ExecutionResult `json:"result,omitempty"`
	Runner    string           `json:"runner"`
	Error     string           `json:"error,omitempty"`
}

// RunnerConfig tunes a ProcessRunner.
type RunnerConfig struct {
	// MaxOutputBytes caps what is kept per stream in the ExecutionResult.
	// Events are still delivered past the cap.
	MaxOutputBytes int64 `json:"max_output_bytes"`

	// ChunkSize is the read size of each output pump.
	ChunkSize int `json:"chunk_size"`

	// InheritEnvironment passes the caller's environment to the process.
	InheritEnvironment bool `json:"inherit_environment"`

	EnableResourceUsage bool `json:"enable_resource_usage"`
}

// DefaultRunnerConfig returns sensible defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		MaxOutputBytes:      1024 * 1024,
		ChunkSize:           4096,
		InheritEnvironment:  true,
		EnableResourceUsage: true,
	}
}
