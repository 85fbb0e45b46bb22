package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is classification.
var (
	// ErrInput marks problems with what the user selected or asked for.
	// They are detected before any file is written.
	ErrInput = errors.New("input error")

	// ErrResource marks a staging directory or file that cannot be written.
	ErrResource = errors.New("resource error")

	// ErrDownstream marks a script that ran and exited non-zero.
	ErrDownstream = errors.New("downstream error")
)

// InputError carries a user-visible message.
type InputError struct {
	Msg string
}

// NewInputError formats a new InputError.
func NewInputError(format string, args ...any) *InputError {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

func (e *InputError) Error() string {
	return e.Msg
}

// Is matches ErrInput.
func (e *InputError) Is(target error) bool {
	return target == ErrInput
}

// ResourceError wraps the OS error raised while staging a script.
type ResourceError struct {
	Op   string
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying OS error.
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// Is matches ErrResource.
func (e *ResourceError) Is(target error) bool {
	return target == ErrResource
}

// DownstreamError reports a non-zero exit of the external process.
// The process output is relayed verbatim elsewhere and never parsed.
type DownstreamError struct {
	ExitCode int
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("script exited with status %d", e.ExitCode)
}

// Is matches ErrDownstream.
func (e *DownstreamError) Is(target error) bool {
	return target == ErrDownstream
}
