package core

import (
	"fmt"
	"time"

	"github.com/grafana/pincers/errext"
	"github.com/grafana/pincers/errext/exitcodes"
)

// EmptyResultError is returned when an operation needs at least one element
// but the context holds none.
type EmptyResultError struct {
	Operation string
	Chain     string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("%s: no elements matched %s", e.Operation, e.Chain)
}

// ExitCode implements errext.HasExitCode.
func (e *EmptyResultError) ExitCode() exitcodes.ExitCode {
	return exitcodes.EmptyResult
}

// IndexOutOfRangeError is returned by At for positions outside the held
// elements.
type IndexOutOfRangeError struct {
	Index int
	Len   int
	Chain string
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range [0:%d) for %s", e.Index, e.Len, e.Chain)
}

// InvalidArgumentError is returned for malformed navigation targets and
// option values.
type InvalidArgumentError struct {
	Operation string
	Reason    string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument to %s: %s", e.Operation, e.Reason)
}

// NoSuchFrameError is returned when a frame selector matches nothing.
type NoSuchFrameError struct {
	Selector string
	Chain    string
}

func (e *NoSuchFrameError) Error() string {
	return fmt.Sprintf("no frame matches %q under %s", e.Selector, e.Chain)
}

// Hint implements errext.HasHint.
func (e *NoSuchFrameError) Hint() string {
	return "frame selectors are resolved against the current frame scope, go to the top frame first if needed"
}

// FrameNavigationError is returned when the backend cannot move between
// frames, e.g. going to the parent of the top frame.
type FrameNavigationError struct {
	Reason string
}

func (e *FrameNavigationError) Error() string {
	return "frame navigation failed: " + e.Reason
}

// CapabilityNotSupportedError is returned by backends for operations they
// have no notion of.
type CapabilityNotSupportedError struct {
	Backend   string
	Operation string
}

func (e *CapabilityNotSupportedError) Error() string {
	return fmt.Sprintf("%s backend does not support %s", e.Backend, e.Operation)
}

// ExitCode implements errext.HasExitCode.
func (e *CapabilityNotSupportedError) ExitCode() exitcodes.ExitCode {
	return exitcodes.UnsupportedByBackend
}

// Hint implements errext.HasHint.
func (e *CapabilityNotSupportedError) Hint() string {
	return "use a backend that drives a live browser for interaction and visibility checks"
}

// InteractionError wraps a backend failure to mutate an element, e.g.
// because it is hidden or detached.
type InteractionError struct {
	Operation string
	Err       error
}

func (e *InteractionError) Error() string {
	return fmt.Sprintf("%s: element is not interactable: %v", e.Operation, e.Err)
}

func (e *InteractionError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned when a wait condition is not met in time.
type TimeoutError struct {
	Condition string
	Chain     string
	Elapsed   time.Duration
	LastCount int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf(
		"waiting for %s to be %s timed out after %s (last seen %d elements)",
		e.Chain, e.Condition, e.Elapsed.Round(time.Millisecond), e.LastCount,
	)
}

// ExitCode implements errext.HasExitCode.
func (e *TimeoutError) ExitCode() exitcodes.ExitCode {
	return exitcodes.WaitTimeout
}

var (
	_ errext.HasExitCode = &EmptyResultError{}
	_ errext.HasExitCode = &TimeoutError{}
	_ errext.HasExitCode = &CapabilityNotSupportedError{}
	_ errext.HasHint     = &NoSuchFrameError{}
	_ errext.HasHint     = &CapabilityNotSupportedError{}
)
