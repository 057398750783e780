package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maestroship/maestro/internal/graph"
)

func newDeptreeCommand(g *globalOptions) *cobra.Command {
	var reverse bool
	cmd := &cobra.Command{
		Use:   "deptree [things...]",
		Short: "Print the ordered container list a play would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			cond, err := buildConductor(g)
			if err != nil {
				return err
			}
			expanded, err := cond.ExpandThings(args)
			if err != nil {
				return err
			}
			dir := graph.Forward
			if reverse {
				dir = graph.Reverse
			}
			containers, err := cond.GatherAndOrder(expanded, dir)
			if err != nil {
				return err
			}
			for i, c := range containers {
				fmt.Printf("%3d  %s\n", i+1, c.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "order as stop/restart would (dependents first)")
	return cmd
}
