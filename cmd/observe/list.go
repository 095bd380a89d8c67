package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/observe/internal/demo"
)

func listCmd() *cobra.Command {
	var namesOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the available scenarios",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, sc := range demo.All() {
				if namesOnly {
					fmt.Fprintln(out, sc.Name)
					continue
				}
				fmt.Fprintf(out, "  %-18s %s (%d steps)\n", sc.Name, sc.Description, sc.Steps)
			}
		},
	}

	cmd.Flags().BoolVar(&namesOnly, "names", false, "Print only scenario names")

	return cmd
}
