package main

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/maestroship/maestro/internal/graph"
	"github.com/maestroship/maestro/pkg/entities"
	"github.com/maestroship/maestro/pkg/task"
)

func newRestartCommand(g *globalOptions) *cobra.Command {
	opts := &selectionOptions{}
	var (
		reuse          bool
		refreshImages  bool
		stepDelay      int
		stopStartDelay int
		onlyIfChanged  bool
	)
	cmd := &cobra.Command{
		Use:   "restart [things...]",
		Short: "Stop then start each container, oldest dependents first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cond, err := buildConductor(g)
			if err != nil {
				return err
			}

			// first tracks which container actually begins restarting
			// first at runtime, per spec.md §6's "1st restart incurs no
			// delay" example — the step delay is paid before every
			// restart except the one that wins this race.
			var first atomic.Bool
			first.Store(true)

			return runPlay(cmd.Context(), cond, args, graph.Reverse, *opts, func(ctx context.Context, c *entities.Container) error {
				t, err := newTask(ctx, cond, c)
				if err != nil {
					return err
				}
				isFirst := first.CompareAndSwap(true, false)
				return t.Restart(ctx, task.RestartOptions{
					StartOptions: task.StartOptions{
						Registries: task.Registries(cond.Registries),
						Reuse:      reuse,
						Refresh:    refreshImages,
					},
					OnlyIfChanged:  onlyIfChanged,
					StepDelay:      time.Duration(stepDelay) * time.Second,
					StopStartDelay: time.Duration(stopStartDelay) * time.Second,
					First:          isFirst,
				})
			})
		},
	}
	addSelectionFlags(cmd, opts)
	cmd.Flags().BoolVar(&reuse, "reuse", false, "reuse an existing stopped container instead of recreating it")
	cmd.Flags().BoolVarP(&refreshImages, "refresh-images", "r", false, "force refresh of container images from the registry")
	cmd.MarkFlagsMutuallyExclusive("reuse", "refresh-images")
	cmd.Flags().IntVar(&stepDelay, "step-delay", 0, "seconds to wait before each restart but the first")
	cmd.Flags().IntVar(&stopStartDelay, "stop-start-delay", 0, "seconds to wait between stop and start")
	cmd.Flags().BoolVar(&onlyIfChanged, "only-if-changed", false, "skip containers whose image hasn't changed")
	return cmd
}
