package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/maestroship/maestro/internal/graph"
	"github.com/maestroship/maestro/pkg/entities"
	"github.com/maestroship/maestro/pkg/task"
)

func newPullCommand(g *globalOptions) *cobra.Command {
	opts := &selectionOptions{}
	cmd := &cobra.Command{
		Use:   "pull [things...]",
		Short: "Pull each container's configured image",
		RunE: func(cmd *cobra.Command, args []string) error {
			cond, err := buildConductor(g)
			if err != nil {
				return err
			}
			return runPlay(cmd.Context(), cond, args, graph.Forward, *opts, func(ctx context.Context, c *entities.Container) error {
				t, err := newTask(ctx, cond, c)
				if err != nil {
					return err
				}
				return t.Pull(ctx, task.Registries(cond.Registries))
			})
		},
	}
	addSelectionFlags(cmd, opts)
	return cmd
}
