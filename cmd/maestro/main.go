// Command maestro is the CLI front end for the orchestration engine in
// pkg/conductor, pkg/play and pkg/task: one cobra command per verb of
// spec.md §6, sharing a persistent `-f`/`-l` flag pair. Grounded on
// docker-compose's cli/main.go for the root-command/persistent-flags
// shape, adapted to a single-binary tool with no sibling "docker" exec
// fallback.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	root := newRootCommand()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "maestro",
		Short:         "Orchestrate a fleet of containers across ships",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.logLevel != "" {
				level, err := logrus.ParseLevel(opts.logLevel)
				if err == nil {
					logrus.SetLevel(level)
				}
			}
		},
	}

	root.PersistentFlags().StringVarP(&opts.file, "file", "f", "./maestro.yaml", "environment description (- reads stdin)")
	root.PersistentFlags().StringVarP(&opts.logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newStatusCommand(opts),
		newPullCommand(opts),
		newStartCommand(opts),
		newStopCommand(opts),
		newRestartCommand(opts),
		newCleanCommand(opts),
		newLogsCommand(opts),
		newDeptreeCommand(opts),
		newCompleteCommand(opts),
	)
	return root
}

// globalOptions holds the root command's persistent flags, threaded into
// every subcommand.
type globalOptions struct {
	file     string
	logLevel string
}
