package output

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// plainWriter prints one line per status change, append-only — the
// right behavior for a non-terminal (redirected to a file, piped to
// another process), where in-place redraw is meaningless. Grounded on
// docker-compose's pkg/progress/plain.go.
type plainWriter struct {
	out  io.Writer
	mu   sync.Mutex
	done chan struct{}
}

func newPlainWriter(out io.Writer) *plainWriter {
	return &plainWriter{out: out, done: make(chan struct{})}
}

func (w *plainWriter) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return nil
	}
}

func (w *plainWriter) Stop() {
	close(w.done)
}

func (w *plainWriter) Event(e Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s %s\n", e.Container, e.Text)
}
