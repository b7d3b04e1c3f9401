package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"pixelpaws-server/internal/config"
	"pixelpaws-server/internal/logging"
	"pixelpaws-server/internal/metrics"
	"pixelpaws-server/internal/server"
	"pixelpaws-server/internal/store"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pixelpaws",
		Short:         "PixelPaws device state and cat manifest API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Migrate the database and serve the HTTP API",
			Args:  cobra.NoArgs,
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update tables and insert fixture cats, then exit",
			Args:  cobra.NoArgs,
			RunE:  runMigrate,
		},
	)
	return root
}

// bootstrap loads configuration, builds the logger and opens a migrated store.
func bootstrap(ctx context.Context) (config.Config, *slog.Logger, *store.Store, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return config.Config{}, nil, nil, err
	}

	logger := logging.NewLogger(logging.Config{
		ServiceName: cfg.APITitle,
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})
	slog.SetDefault(logger)

	st, err := store.Open(store.Options{DatabaseURL: cfg.DatabaseURL, LogSQL: cfg.LogSQL})
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return config.Config{}, nil, nil, err
	}
	return cfg, logger, st, nil
}

func seed(ctx context.Context, logger *slog.Logger, st *store.Store) error {
	n, err := st.Seed(ctx)
	if err != nil {
		return err
	}
	logger.Info("fixture cats seeded", "inserted", n)
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	_, logger, st, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := seed(ctx, logger, st); err != nil {
		return err
	}
	logger.Info("migration complete")
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, st, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.SeedFixtures {
		if err := seed(ctx, logger, st); err != nil {
			return err
		}
	}

	gin.SetMode(cfg.GinMode)
	router := server.NewRouter(server.Deps{
		Store:       st,
		Logger:      logger,
		Metrics:     metrics.New(),
		CORSOrigins: cfg.CORSOrigins,
		ServiceName: cfg.APITitle,
	})

	logger.Info("listening", "addr", fmt.Sprintf(":%d", cfg.Port), "cors_origins", cfg.CORSOrigins)
	if err := server.Run(ctx, cfg, router); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
