package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/maestroship/maestro/internal/graph"
	"github.com/maestroship/maestro/pkg/entities"
)

func newStopCommand(g *globalOptions) *cobra.Command {
	opts := &selectionOptions{}
	cmd := &cobra.Command{
		Use:   "stop [things...]",
		Short: "Stop each container",
		RunE: func(cmd *cobra.Command, args []string) error {
			cond, err := buildConductor(g)
			if err != nil {
				return err
			}
			return runPlay(cmd.Context(), cond, args, graph.Reverse, *opts, func(ctx context.Context, c *entities.Container) error {
				t, err := newTask(ctx, cond, c)
				if err != nil {
					return err
				}
				return t.Stop(ctx)
			})
		},
	}
	addSelectionFlags(cmd, opts)
	return cmd
}
