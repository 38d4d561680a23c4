package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/admingrid/admingrid/internal/upstream"
)

var (
	upstreamFixture string
	upstreamAddr    string
	upstreamAPIKey  string
)

var upstreamCmd = &cobra.Command{
	Use:   "upstream",
	Short: "Serve a fixture as a remote request service",
	Long: `Serve the in-memory store over HTTP with the same request protocol the
console speaks to a remote upstream: POST /requests/{operationID} with a JSON
parameter object. Point upstream.base_url at it to exercise the remote path.`,
	RunE: runUpstream,
}

func init() {
	upstreamCmd.Flags().StringVarP(&upstreamFixture, "fixture", "f", "", "fixture file (the built-in demo data when empty)")
	upstreamCmd.Flags().StringVar(&upstreamAddr, "addr", "127.0.0.1:8090", "listen address")
	upstreamCmd.Flags().StringVar(&upstreamAPIKey, "api-key", os.Getenv("ADMINGRID_UPSTREAM_API_KEY"), "bearer key required on requests")
	rootCmd.AddCommand(upstreamCmd)
}

func runUpstream(cmd *cobra.Command, args []string) error {
	store, err := newStore(upstreamFixture)
	if err != nil {
		return fmt.Errorf("failed to load fixture: %w", err)
	}

	srv := &http.Server{
		Addr:              upstreamAddr,
		Handler:           upstream.NewHandler(store, upstreamAPIKey),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("upstream listening", "addr", upstreamAddr, "tables", store.Tables())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("upstream server failed: %w", err)
	case sig := <-sigCh:
		slog.Info("received signal, shutting down...", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
