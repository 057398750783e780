// Package merrors defines the error taxonomy shared by every orchestration
// package: configuration failures detected while building the entity model,
// per-container failures raised by tasks, and the non-fatal/soft failures
// that a play tolerates.
package merrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigurationError is raised while parsing or validating the environment
// description: unknown references, invalid port/volume/restart/log/
// lifecycle specs, dependency cycles, or a missing environment name. It
// never carries remote-engine side effects.
type ConfigurationError struct {
	Err error
}

func NewConfigurationError(format string, args ...interface{}) error {
	return ConfigurationError{Err: fmt.Errorf(format, args...)}
}

func WrapConfigurationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigurationError{Err: err}
}

func (e ConfigurationError) Error() string { return e.Err.Error() }
func (e ConfigurationError) Unwrap() error { return e.Err }

// ContainerOrchestrationError is a per-container failure raised while a
// Task drives a container through its state machine (create, start, pull
// error event, failed lifecycle gate). It carries the offending container
// name so the play and auditors can attribute blame.
type ContainerOrchestrationError struct {
	Container string
	Err       error
}

func NewContainerError(container string, err error) error {
	if err == nil {
		return nil
	}
	return ContainerOrchestrationError{Container: container, Err: err}
}

func (e ContainerOrchestrationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Container, e.Err.Error())
}
func (e ContainerOrchestrationError) Unwrap() error { return e.Err }

// RemoteEngineError wraps a transport timeout or API error surfaced by the
// remote container engine. It propagates identically to
// ContainerOrchestrationError but keeps the original transport message
// available for audit sinks.
type RemoteEngineError struct {
	Container string
	Err       error
}

func NewRemoteEngineError(container string, err error) error {
	if err == nil {
		return nil
	}
	return RemoteEngineError{Container: container, Err: err}
}

func (e RemoteEngineError) Error() string {
	return fmt.Sprintf("%s: remote engine error: %s", e.Container, e.Err.Error())
}
func (e RemoteEngineError) Unwrap() error { return e.Err }

// StopFailure is non-fatal: it is logged on the task's output line and the
// play continues scheduling other containers.
type StopFailure struct {
	Container string
	Reason    string
}

func (e StopFailure) Error() string {
	return fmt.Sprintf("%s: failed to stop cleanly: %s", e.Container, e.Reason)
}

// AuditorConfigurationError is raised while constructing audit sinks from
// the environment description's `audit` entries.
type AuditorConfigurationError struct {
	Err error
}

func (e AuditorConfigurationError) Error() string { return "auditor configuration: " + e.Err.Error() }
func (e AuditorConfigurationError) Unwrap() error  { return e.Err }

// ErrManualAbort is the synthetic error a play raises when a user interrupt
// (SIGINT) or explicit cancellation request converts into an abort.
var ErrManualAbort = errors.New("Manual abort")

// IsManualAbort reports whether err is (or wraps) ErrManualAbort.
func IsManualAbort(err error) bool {
	return errors.Is(err, ErrManualAbort)
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce ConfigurationError
	return errors.As(err, &ce)
}

// IsStopFailure reports whether err is a StopFailure.
func IsStopFailure(err error) bool {
	var sf StopFailure
	return errors.As(err, &sf)
}
