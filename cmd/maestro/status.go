package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maestroship/maestro/internal/graph"
	"github.com/maestroship/maestro/pkg/entities"
	"github.com/maestroship/maestro/pkg/task"
)

type statusOptions struct {
	selectionOptions
	full bool
}

func newStatusCommand(g *globalOptions) *cobra.Command {
	opts := &statusOptions{}
	cmd := &cobra.Command{
		Use:   "status [things...]",
		Short: "Report each container's running state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, g, opts, args)
		},
	}
	addSelectionFlags(cmd, &opts.selectionOptions)
	cmd.Flags().BoolVarP(&opts.full, "full", "F", false, "probe each declared port as well")
	return cmd
}

func runStatus(cmd *cobra.Command, g *globalOptions, opts *statusOptions, things []string) error {
	cond, err := buildConductor(g)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	return runPlay(ctx, cond, things, graph.Forward, opts.selectionOptions, func(ctx context.Context, c *entities.Container) error {
		t, err := newTask(ctx, cond, c)
		if err != nil {
			return err
		}
		var report task.StatusReport
		if opts.full {
			report, err = t.FullStatus(ctx)
		} else {
			report, err = t.Status(ctx)
		}
		if err != nil {
			return err
		}
		printStatus(report)
		return nil
	})
}

func printStatus(r task.StatusReport) {
	state := "down"
	if r.Running {
		state = fmt.Sprintf("running (%s)", r.Since)
	}
	fmt.Printf("%-30s %-10s %-30s %s\n", r.Container, r.ShortID, r.Image, state)
	for _, p := range r.PortProbes {
		mark := "down"
		if p.Up {
			mark = "up"
		}
		fmt.Printf("  %-20s %s\n", p.Name, mark)
	}
}
