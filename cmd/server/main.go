package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/go-proposals/internal/config"
	"github.com/diewo77/go-proposals/internal/db"
	"github.com/diewo77/go-proposals/internal/logger"
	"github.com/diewo77/go-proposals/internal/repository"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables from .env file
	_ = godotenv.Load()

	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "proposals",
		Short:         "Proposal and quote tool for electrical services",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	cmd.AddCommand(serveCmd(), migrateCmd(), exportCmd())
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the storage schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := bootstrap()
			defer func() { _ = log.Sync() }()
			conn, err := db.Open(cfg.Storage, log)
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := db.Migrate(conn, cfg.Storage.Migrations, log); err != nil {
				return err
			}
			log.Info("migrations completed", zap.String("driver", conn.Driver))
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write the PDF of a stored proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := bootstrap()
			defer func() { _ = log.Sync() }()
			if dir != "" {
				cfg.App.ExportDir = dir
			}
			if cfg.App.ExportDir == "" {
				cfg.App.ExportDir = "."
			}
			conn, err := db.Open(cfg.Storage, log)
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := db.Migrate(conn, cfg.Storage.Migrations, log); err != nil {
				return err
			}

			ctx := cmd.Context()
			repo := repository.New(conn.Store, log.Named("repository"))
			ctl := newController(ctx, cfg, repo, log)
			ch, err := ctl.Export(ctx, args[0])
			if err != nil {
				return err
			}
			res := <-ch
			if res.Err != nil {
				return res.Err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Output directory (defaults to EXPORT_DIR or the working directory)")
	return cmd
}

func bootstrap() (*config.Config, *zap.Logger) {
	cfg := config.Load()
	log := logger.Must(logger.Options{Level: cfg.App.LogLevel, Development: cfg.App.Dev})
	return cfg, log
}

func serve(ctx context.Context) error {
	cfg, log := bootstrap()
	defer func() { _ = log.Sync() }()

	conn, err := db.Open(cfg.Storage, log)
	if err != nil {
		log.Fatal("failed to open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer conn.Close()

	if err := db.Migrate(conn, cfg.Storage.Migrations, log); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	repo := repository.New(conn.Store, log.Named("repository"))
	if cfg.Storage.Seed {
		n, err := db.Seed(ctx, repo, cfg.App.Defaults(), time.Now())
		if err != nil {
			log.Fatal("seeding failed", zap.Error(err))
		}
		log.Info("seed finished", zap.Int("created", n))
	}

	ctl := newController(ctx, cfg, repo, log)
	app := NewApp(cfg, ctl, conn, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.Bool("dev", cfg.App.Dev),
			zap.String("storage", conn.Driver),
			zap.Bool("rewrite", ctl.RewriteEnabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	log.Info("server stopped gracefully")
	return nil
}
