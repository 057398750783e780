package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/maestroship/maestro/internal/graph"
	"github.com/maestroship/maestro/internal/merrors"
	"github.com/maestroship/maestro/pkg/audit"
	"github.com/maestroship/maestro/pkg/conductor"
	"github.com/maestroship/maestro/pkg/config"
	"github.com/maestroship/maestro/pkg/entities"
	"github.com/maestroship/maestro/pkg/output"
	"github.com/maestroship/maestro/pkg/play"
	"github.com/maestroship/maestro/pkg/task"
)

// selectionOptions are the flags every multi-container verb shares:
// concurrency bound, ignore-dependencies, and display mode.
type selectionOptions struct {
	concurrency        int
	ignoreDependencies bool
	quiet              bool
}

func addSelectionFlags(cmd *cobra.Command, opts *selectionOptions) {
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 0, "max containers acted on simultaneously (0 = unbounded)")
	cmd.Flags().BoolVarP(&opts.ignoreDependencies, "ignore-deps", "i", false, "ignore dependency ordering")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "d", false, "suppress the progress display")
}

// buildConductor loads the environment description named by the root
// `-f` flag and builds a Conductor from it.
func buildConductor(g *globalOptions) (*conductor.Conductor, error) {
	doc, err := config.LoadFile(g.file)
	if err != nil {
		return nil, err
	}
	return conductor.Build(doc)
}

// writerMode picks an output.Mode from the shared -d/--quiet flag.
func writerMode(quiet bool) output.Mode {
	if quiet {
		return output.ModeQuiet
	}
	return output.ModeAuto
}

// runPlay gathers/orders things over c's container graph in dir, then
// schedules fn across them with a Play, streaming progress to a
// newly-built output.Writer.
func runPlay(ctx context.Context, c *conductor.Conductor, things []string, dir graph.Direction, sel selectionOptions, fn play.TaskFunc) error {
	expanded, err := c.ExpandThings(things)
	if err != nil {
		return err
	}
	containers, err := c.GatherAndOrder(expanded, dir)
	if err != nil {
		return err
	}

	writer := output.NewWriter(os.Stdout, writerMode(sel.quiet))
	writerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go writer.Start(writerCtx)
	defer writer.Stop()

	ctx = output.WithContextWriter(ctx, writer)

	p := play.New(c, containers, fn, play.Options{
		Direction:          dir,
		IgnoreDependencies: sel.ignoreDependencies,
		Concurrency:        sel.concurrency,
		Auditor:            audit.NopAuditor{},
		Writer:             writer,
	})
	return p.Run(ctx)
}

// newTask builds the per-container Task for c, wiring its Ship's engine
// client and the output writer stashed on ctx by runPlay.
func newTask(ctx context.Context, cond *conductor.Conductor, c *entities.Container) (*task.Task, error) {
	client, ok := cond.Clients[c.Ship.Name]
	if !ok {
		return nil, merrors.NewConfigurationError("no engine client built for ship %q", c.Ship.Name)
	}
	return &task.Task{
		Container: c,
		Client:    client,
		Writer:    output.ContextWriter(ctx),
		Auditor:   audit.NopAuditor{},
	}, nil
}
