package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/observe/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		printError(rootCmd, os.Stderr, err)
		os.Exit(1)
	}
}

// printError prints err in the style chosen with --error-format.
func printError(rootCmd *cobra.Command, w io.Writer, err error) {
	style, _ := rootCmd.PersistentFlags().GetString("error-format")
	errors.PrintAs(w, err, style)
}

func newRootCmd() *cobra.Command {
	var (
		noColor     bool
		errorFormat string
	)

	rootCmd := &cobra.Command{
		Use:   "observe",
		Short: "Run and inspect reactive dependency graphs",
		Long: `observe drives the reactive engine through small scenarios and
shows what happens inside: which derived values recompute, which
effects run and how transactions batch them.

Attach instrumentation with --log, --metrics, --trace or --record.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				errors.DisableColors()
			}
			if !errors.ValidOutput(errorFormat) {
				return errors.New("E140").
					WithDetail(fmt.Sprintf("--error-format %q is not a known style", errorFormat)).
					WithSuggestion("Use --error-format=text, compact or json")
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&errorFormat, "error-format", errors.OutputText, "Error output style: text, compact or json")

	rootCmd.AddCommand(
		runCmd(),
		listCmd(),
		configCmd(),
		errorsCmd(),
		versionCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
