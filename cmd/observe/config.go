package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/observe/internal/config"
	"github.com/vango-dev/observe/internal/errors"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the configuration file",
	}
	cmd.AddCommand(configInitCmd(), configShowCmd())
	return cmd
}

func configInitCmd() *cobra.Command {
	var (
		format string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a configuration file with the defaults",
		Long: `Write observe.yaml (or observe.json with --format=json) holding the
default settings to dir, or to the current directory.

Examples:
  observe config init
  observe config init ./demo --format=json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			var name string
			switch format {
			case "yaml":
				name = config.YAMLFileName
			case "json":
				name = config.JSONFileName
			default:
				return errors.New("E140").
					WithDetail(fmt.Sprintf("--format %q is not a known format", format)).
					WithSuggestion("Use --format=yaml or --format=json")
			}

			if existing, ok := config.Find(dir); ok && !force {
				return errors.New("E140").
					WithDetail(existing + " already exists").
					WithSuggestion("Pass --force to overwrite it")
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return errors.New("E141").Wrap(err)
			}

			cfg := config.New()
			if err := cfg.SaveTo(filepath.Join(dir, name)); err != nil {
				return err
			}
			success(cmd.ErrOrStderr(), "wrote %s", cfg.Path())
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "File format: yaml or json")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")

	return cmd
}

func configShowCmd() *cobra.Command {
	var (
		configPath string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  `Print the configuration run would use, with defaults filled in.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			data, err := cfg.Marshal(format)
			if err != nil {
				return err
			}

			source := cfg.Path()
			if source == "" {
				source = "defaults"
			}
			info(cmd.ErrOrStderr(), "from %s", source)
			if _, err := cmd.OutOrStdout().Write(data); err != nil {
				return errors.New("E141").Wrap(err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (default observe.yaml or observe.json)")
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml or json")

	return cmd
}
