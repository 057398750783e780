package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// newCompleteCommand implements the `complete` subcommand named in
// spec.md §6: given partial tokens, print the matching service and
// container names, one per line, for shell completion scripts to
// consume.
func newCompleteCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:    "complete <tokens...>",
		Short:  "List service/container names matching a prefix",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cond, err := buildConductor(g)
			if err != nil {
				return err
			}

			prefix := ""
			if len(args) > 0 {
				prefix = args[len(args)-1]
			}

			names := map[string]struct{}{}
			for name := range cond.Services {
				names[name] = struct{}{}
			}
			for name := range cond.Containers {
				names[name] = struct{}{}
			}

			var out []string
			for name := range names {
				if strings.HasPrefix(name, prefix) {
					out = append(out, name)
				}
			}
			sort.Strings(out)
			for _, name := range out {
				fmt.Println(name)
			}
			return nil
		},
	}
}
