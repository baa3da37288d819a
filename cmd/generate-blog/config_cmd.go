package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xostack/xoblog/config"
)

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the supported LLM providers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			def := config.Default().DefaultProvider
			for _, p := range config.SupportedProviders() {
				if p == def {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (default)\n", p)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
		},
	}
}

func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := configPath(opts)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write a commented configuration template",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := configPath(opts)
				if err != nil {
					return err
				}
				if err := config.WriteTemplate(path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Configuration template written to %s\n", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Load and validate the configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(opts.configPath)
				if err != nil {
					return err
				}
				if err := config.Validate(cfg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Configuration OK (provider: %s)\n", cfg.DefaultProvider)
				return nil
			},
		},
	)
	return cmd
}

func configPath(opts *options) (string, error) {
	if opts.configPath != "" {
		return opts.configPath, nil
	}
	return config.GetConfigFilePath()
}
