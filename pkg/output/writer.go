package output

import (
	"context"
	"io"

	"github.com/mattn/go-isatty"
)

// Writer renders container status lines as Tasks report them. Start/Stop
// bracket a Play's lifetime; Event publishes one container's current
// line.
type Writer interface {
	Start(ctx context.Context) error
	Stop()
	Event(Event)
}

type writerKey struct{}

// WithContextWriter attaches w to ctx so a Task deep in pkg/task can
// publish without threading a Writer through every function signature,
// mirroring progress.WithContextWriter/ContextWriter in the teacher.
func WithContextWriter(ctx context.Context, w Writer) context.Context {
	return context.WithValue(ctx, writerKey{}, w)
}

// ContextWriter returns the Writer stashed by WithContextWriter, or a
// no-op Writer if none was attached.
func ContextWriter(ctx context.Context) Writer {
	w, ok := ctx.Value(writerKey{}).(Writer)
	if !ok {
		return noopWriter{}
	}
	return w
}

// Mode selects how a Writer renders: auto-detect, force ANSI TTY
// rendering, or force plain line-per-event output.
type Mode string

const (
	ModeAuto  Mode = "auto"
	ModeTTY   Mode = "tty"
	ModePlain Mode = "plain"
	ModeQuiet Mode = "quiet"
)

// NewWriter builds the Writer appropriate for out and mode, detecting a
// real terminal with mattn/go-isatty the same way the teacher detects it
// via streams.Out.IsTerminal.
func NewWriter(out io.Writer, mode Mode) Writer {
	if mode == ModeQuiet {
		return noopWriter{}
	}

	tty := mode == ModeTTY
	if mode == ModeAuto {
		if f, ok := out.(interface{ Fd() uintptr }); ok {
			tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}

	if tty {
		return newTTYWriter(out)
	}
	return newPlainWriter(out)
}

type noopWriter struct{}

func (noopWriter) Start(context.Context) error { return nil }
func (noopWriter) Stop()                       {}
func (noopWriter) Event(Event)                 {}
