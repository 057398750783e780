// Package audit implements the before/success/error hook dispatch that
// surrounds each play and each task, per spec.md §4.7. The Auditor
// interface is deliberately narrow, mirroring the Writer interface shape
// of pkg/progress/writer.go in the teacher (a handful of notification
// methods, no shared mutable state required of implementations); the
// three-hook shape (action/success/error) itself is grounded on
// maestro/audit.py in the original implementation.
package audit

import (
	"github.com/hashicorp/go-multierror"
)

// Level is the audit severity of a notification ("play" vs "task", in the
// original's vocabulary); kept as a string so external sinks can define
// their own vocabulary without a shared enum.
type Level string

const (
	LevelPlay Level = "play"
	LevelTask Level = "task"
)

// Auditor receives before/success/error notifications around a play and
// around each task within it, per spec.md §4.7.
type Auditor interface {
	// Action fires before the work described by `what`/`verb` begins.
	Action(level Level, what, verb string) error
	// Success fires after the work completes without error.
	Success(level Level, what, verb string)
	// Error fires after the work fails, carrying the error message.
	Error(what, verb, message string)
}

// NopAuditor discards every notification; the zero value is ready to use,
// matching the convention of the teacher's no-op writer
// (pkg/progress/writer.go's noopWriter).
type NopAuditor struct{}

func (NopAuditor) Action(Level, string, string) error { return nil }
func (NopAuditor) Success(Level, string, string)      {}
func (NopAuditor) Error(string, string, string)       {}

// Multiplexer broadcasts every notification to a set of sinks.
//
// Open Question (a) from spec.md §9: Action re-raises a sink's error
// unless that sink is wrapped in IgnoreErrors — Success/Error never
// propagate sink failures (there is nothing useful a caller could do
// with a failed *notification* of an already-decided outcome), which is
// the behavior this implementation picks.
type Multiplexer struct {
	Sinks []Auditor
}

func NewMultiplexer(sinks ...Auditor) *Multiplexer {
	return &Multiplexer{Sinks: sinks}
}

func (m *Multiplexer) Action(level Level, what, verb string) error {
	var merr *multierror.Error
	for _, sink := range m.Sinks {
		if err := sink.Action(level, what, verb); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}

func (m *Multiplexer) Success(level Level, what, verb string) {
	for _, sink := range m.Sinks {
		sink.Success(level, what, verb)
	}
}

func (m *Multiplexer) Error(what, verb, message string) {
	for _, sink := range m.Sinks {
		sink.Error(what, verb, message)
	}
}

// ignoreErrors wraps a sink so its Action failures never propagate,
// implementing the "ignore_errors" adapter named in spec.md §7.
type ignoreErrors struct {
	Auditor
}

// IgnoreErrors wraps sink so Multiplexer.Action never surfaces its
// failures, per the `audit` entry's `ignore_errors` flag in spec.md §6.
func IgnoreErrors(sink Auditor) Auditor {
	return ignoreErrors{Auditor: sink}
}

func (i ignoreErrors) Action(level Level, what, verb string) error {
	_ = i.Auditor.Action(level, what, verb)
	return nil
}
