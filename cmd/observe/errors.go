package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/observe/internal/errors"
)

func errorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "errors [code]",
		Short: "Explain error codes",
		Long: `List the error codes observe reports, or explain one of them.

Examples:
  observe errors
  observe errors E004`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return errors.GetAllCodes(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, code := range errors.GetAllCodes() {
					t, _ := errors.GetTemplate(code)
					fmt.Fprintf(out, "  %s  %-9s %s\n", code, t.Category, t.Message)
				}
				return nil
			}

			code := strings.ToUpper(args[0])
			t, ok := errors.GetTemplate(code)
			if !ok {
				return errors.New("E140").
					WithDetail(fmt.Sprintf("%q is not a known error code", args[0])).
					WithSuggestion("Run 'observe errors' to list the codes")
			}
			fmt.Fprintf(out, "%s: %s (%s)\n\n", code, t.Message, t.Category)
			if t.Detail != "" {
				fmt.Fprintf(out, "%s\n", t.Detail)
			}
			return nil
		},
	}
}
