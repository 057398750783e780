package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/maestroship/maestro/internal/graph"
	"github.com/maestroship/maestro/pkg/entities"
	"github.com/maestroship/maestro/pkg/task"
)

func newStartCommand(g *globalOptions) *cobra.Command {
	opts := &selectionOptions{}
	var reuse, refreshImages bool
	cmd := &cobra.Command{
		Use:   "start [things...]",
		Short: "Start each container, pulling and creating it if needed",
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
				return t.Start(ctx, task.StartOptions{
					Registries: task.Registries(cond.Registries),
					Reuse:      reuse,
					Refresh:    refreshImages,
				})
			})
		},
	}
	addSelectionFlags(cmd, opts)
	cmd.Flags().BoolVar(&reuse, "reuse", false, "reuse an existing stopped container instead of recreating it")
	cmd.Flags().BoolVarP(&refreshImages, "refresh-images", "r", false, "force refresh of container images from the registry")
	cmd.MarkFlagsMutuallyExclusive("reuse", "refresh-images")
	return cmd
}
