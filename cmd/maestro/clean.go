package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/maestroship/maestro/internal/graph"
	"github.com/maestroship/maestro/pkg/entities"
)

func newCleanCommand(g *globalOptions) *cobra.Command {
	opts := &selectionOptions{}
	cmd := &cobra.Command{
		Use:   "clean [things...]",
		Short: "Remove each stopped container's record",
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
				return t.Clean(ctx)
			})
		},
	}
	addSelectionFlags(cmd, opts)
	return cmd
}
