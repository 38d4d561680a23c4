package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/admingrid/admingrid/internal/config"
	"github.com/admingrid/admingrid/internal/console"
	"github.com/admingrid/admingrid/internal/entities"
	"github.com/admingrid/admingrid/internal/lookup"
	"github.com/admingrid/admingrid/internal/metrics"
)

const shutdownTimeout = 60 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin console",
	Long: `Start the admin console HTTP server. Grids are created on first use and
kept for the life of the process. When a config file is given it is watched
and changes are applied without a restart.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	slog.Info("admingrid starting...")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	requester, err := newRequester(cfg.Upstream)
	if err != nil {
		return fmt.Errorf("failed to set up upstream: %w", err)
	}

	// The lookup service and the registry depend on each other: definitions
	// resolve foreign keys through the service, and the service refreshes the
	// tables the registered definitions name.
	m := metrics.New()
	var reg *entities.Registry
	lk := lookup.NewService(requester, func() []entities.LookupSpec { return reg.Lookups() }, m, cfg.Lookups)
	reg = entities.NewRegistry(entities.Builtin(lk), cfg)

	lk.Start()

	server := console.NewServer(reg, requester, lk, m, cfg.Listen)
	if err := server.Start(); err != nil {
		lk.Stop()
		return fmt.Errorf("failed to start console: %w", err)
	}

	var configWatcher *config.Watcher
	if configPath != "" {
		configWatcher, err = config.NewWatcher(configPath, func(newCfg *config.Config) {
			slog.Info("reloading configuration...")
			reg.Reload(newCfg)
			server.Reload()
		})
		if err != nil {
			slog.Warn("config hot-reload not available", "err", err)
		}
	}

	slog.Info("admingrid ready",
		"addr", cfg.Listen.Addr(),
		"tls", cfg.Listen.TLSEnabled(),
		"entities", len(reg.List()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down...", "signal", sig)

	done := make(chan struct{})
	go func() {
		if configWatcher != nil {
			configWatcher.Stop()
		}
		if err := server.Stop(); err != nil {
			slog.Warn("console shutdown", "err", err)
		}
		lk.Stop()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("admingrid stopped")
		return nil
	case <-time.After(shutdownTimeout):
		return fmt.Errorf("shutdown timed out after %s", shutdownTimeout)
	}
}
