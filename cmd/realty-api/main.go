package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/indrealty/realty-cms/pkg/realtycms/api"
	"github.com/indrealty/realty-cms/pkg/realtycms/config"
	repopg "github.com/indrealty/realty-cms/pkg/realtycms/repo/postgres"
)

func main() {
	migrate := flag.Bool("migrate", false, "apply the database schema before serving")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintln(flag.CommandLine.Output(), config.Usage())
	}
	flag.Parse()

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))

	if err := run(cfg, *migrate); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.ServerConfig, migrate bool) error {
	rt, err := cfg.Build(context.Background())
	if err != nil {
		return err
	}
	defer rt.Close()

	if migrate {
		if rt.Pool == nil {
			return errors.New("-migrate requires DATABASE_URL")
		}
		if err := repopg.Migrate(context.Background(), rt.Pool); err != nil {
			return err
		}
		slog.Info("Database schema applied", "schema", cfg.DBSchema)
	}

	server, err := api.NewServer(rt.Services, cfg.ServerOptions(rt)...)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Realty CMS starting",
			"port", cfg.Port,
			"env", cfg.Environment,
			"database", cfg.DatabaseType(),
			"storage", cfg.StorageURL,
			"sitemap_cache", cfg.RedisURL != "",
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	slog.Info("Server exiting")
	return nil
}
