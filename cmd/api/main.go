package main

import (
	"context"
	"fmt"
	"os"

	"github.com/petermazzocco/project-journal/internal/config"
	"github.com/petermazzocco/project-journal/internal/logger"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "journal"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Project Journal API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		logger.Init(cfg.Log)
		return cfg, nil
	}

	// Without a subcommand the binary serves, migrating first.
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := load()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg, true)
	}

	cmd.AddCommand(
		serveCmd(load),
		migrateCmd(load),
		adminCmd(load),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}
