package output

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/buger/goterm"
	"github.com/morikuni/aec"
)

// ttyWriter redraws a fixed-height block of lines, one per container,
// in place — the same "move cursor up N lines, overwrite" technique as
// docker-compose's pkg/progress/tty.go, narrowed to a flat per-container
// event map (no nested parent/child build steps; every container is a
// top-level line here).
type ttyWriter struct {
	out      io.Writer
	mu       sync.Mutex
	order    []string
	events   map[string]Event
	numLines int
	repeated bool
	done     chan struct{}
}

func newTTYWriter(out io.Writer) *ttyWriter {
	return &ttyWriter{out: out, events: map[string]Event{}, done: make(chan struct{})}
}

func (w *ttyWriter) Start(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.print()
			return ctx.Err()
		case <-w.done:
			w.print()
			return nil
		case <-ticker.C:
			w.print()
		}
	}
}

func (w *ttyWriter) Stop() {
	close(w.done)
}

func (w *ttyWriter) Event(e Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	existing, ok := w.events[e.Container]
	if !ok {
		w.order = append(w.order, e.Container)
		e.startTime = time.Now()
		if e.Status != Working {
			e.stop()
		}
		w.events[e.Container] = e
		return
	}

	if existing.Status != e.Status && e.Status != Working {
		existing.stop()
	}
	existing.Status = e.Status
	existing.Text = e.Text
	w.events[e.Container] = existing
}

func (w *ttyWriter) print() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.order) == 0 {
		return
	}

	width := goterm.Width()
	b := aec.EmptyBuilder
	for i := 0; i <= w.numLines; i++ {
		b = b.Up(1)
	}
	if !w.repeated {
		b = b.Down(1)
	}
	w.repeated = true
	fmt.Fprint(w.out, b.Column(0).ANSI)
	fmt.Fprint(w.out, aec.Hide)
	defer fmt.Fprint(w.out, aec.Show)

	done := 0
	for _, name := range w.order {
		if w.events[name].Status == Done {
			done++
		}
	}
	header := fmt.Sprintf("[+] %d/%d", done, len(w.order))
	if done == len(w.order) {
		header = aec.Apply(header, aec.BlueF)
	}
	fmt.Fprintln(w.out, header)

	nameWidth := 0
	for _, name := range w.order {
		if len(name) > nameWidth {
			nameWidth = len(name)
		}
	}

	ordered := append([]string(nil), w.order...)
	sort.Strings(ordered)
	for _, name := range ordered {
		fmt.Fprint(w.out, renderLine(w.events[name], nameWidth, width))
	}
	w.numLines = len(ordered)
}

func renderLine(e Event, nameWidth, terminalWidth int) string {
	end := time.Now()
	if e.Status != Working {
		end = e.startTime
		if !e.endTime.IsZero() {
			end = e.endTime
		}
	}
	elapsed := end.Sub(e.startTime).Seconds()

	padding := nameWidth - len(e.Container)
	if padding < 0 {
		padding = 0
	}
	text := fmt.Sprintf("%s%s %s", e.Container, strings.Repeat(" ", padding), e.Text)
	timer := fmt.Sprintf("%.1fs", elapsed)

	line := align(text, timer, terminalWidth)
	color := aec.WhiteF
	switch e.Status {
	case Done:
		color = aec.BlueF
	case Failed:
		color = aec.RedF
	}
	return aec.Apply(line, color) + "\n"
}

func align(left, right string, width int) string {
	pad := width - len(right) - 1
	if pad < len(left) {
		pad = len(left)
	}
	return fmt.Sprintf("%-*s %s", pad, left, right)
}
