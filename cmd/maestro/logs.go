package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/maestroship/maestro/internal/merrors"
)

func newLogsCommand(g *globalOptions) *cobra.Command {
	var (
		follow bool
		tail   int
	)
	cmd := &cobra.Command{
		Use:   "logs <thing>",
		Short: "Print a single container's log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cond, err := buildConductor(g)
			if err != nil {
				return err
			}
			c, ok := cond.Containers[args[0]]
			if !ok {
				return merrors.NewConfigurationError("unknown container %q", args[0])
			}
			client, ok := cond.Clients[c.Ship.Name]
			if !ok {
				return merrors.NewConfigurationError("no engine client built for ship %q", c.Ship.Name)
			}

			ctx := cmd.Context()
			for {
				logs, err := client.Logs(ctx, c.Name, tail)
				if err != nil {
					return merrors.NewRemoteEngineError(c.Name, err)
				}
				fmt.Print(logs)
				if !follow {
					return nil
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(2 * time.Second):
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "F", false, "keep polling for new log output")
	cmd.Flags().IntVarP(&tail, "lines", "n", 100, "number of lines to show")
	return cmd
}
