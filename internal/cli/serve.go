package cli

import (
	"github.com/spf13/cobra"

	"github.com/Siddharth-vip/teasergen/internal/jobs"
	"github.com/Siddharth-vip/teasergen/internal/logging"
	"github.com/Siddharth-vip/teasergen/internal/server"
	"github.com/Siddharth-vip/teasergen/internal/watch"
)

func newServeCommand(configPath *string) *cobra.Command {
	var withWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and job workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			store, err := jobs.Open(cfg.Paths.DataDir)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			if withWatch {
				watcher := watch.New(cfg, store, logger)
				go func() {
					if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
						logger.Error("watcher stopped", "error", err)
					}
				}()
			}

			return server.New(cfg, store, logger).Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&withWatch, "watch", false, "Also watch the input directory for new videos")
	return cmd
}

func newWatchCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the input directory and process new videos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			store, err := jobs.Open(cfg.Paths.DataDir)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			watcher := watch.New(cfg, store, logger)
			go func() {
				if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
					logger.Error("watcher stopped", "error", err)
				}
			}()

			return server.New(cfg, store, logger).RunWorkers(ctx)
		},
	}
}
