// Package cli implements the teasergen command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Siddharth-vip/teasergen/internal/config"
)

// Version is stamped by the build; "dev" otherwise.
var Version = "dev"

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := newRootCommand()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "teasergen",
		Short:         "Generate short teaser videos from long-form footage",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "teasergen.toml", "Configuration file path")

	root.AddCommand(newGenerateCommand(&configPath))
	root.AddCommand(newServeCommand(&configPath))
	root.AddCommand(newWatchCommand(&configPath))
	root.AddCommand(newJobsCommand(&configPath))
	root.AddCommand(newConfigCommand(&configPath))
	root.AddCommand(newVersionCommand())

	return root
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}
