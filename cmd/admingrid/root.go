package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/admingrid/admingrid/internal/config"
	"github.com/admingrid/admingrid/internal/grid"
	"github.com/admingrid/admingrid/internal/remote"
	"github.com/admingrid/admingrid/internal/upstream"
)

var rootCmd = &cobra.Command{
	Use:   "admingrid",
	Short: "Admin console for paginated, searchable, editable data grids",
	Long: `admingrid serves an admin console of data grids backed by a remote
request service. Each grid pages, searches, filters by status and edits
rows inline through numbered operations on the upstream.`,
	SilenceUsage: true,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (defaults are used when empty)")
}

// loadConfig reads the configuration file, or returns the defaults when no
// path was given.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		slog.Info("no config file given, using defaults")
		return config.Default(), nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	slog.Info("configuration loaded", "path", configPath, "entities", len(cfg.Entities))
	return cfg, nil
}

// newRequester returns the remote client when an upstream URL is configured
// and the in-memory store otherwise.
func newRequester(cfg config.UpstreamConfig) (grid.Requester, error) {
	if cfg.BaseURL != "" {
		c, err := remote.New(cfg.BaseURL, cfg.APIKey, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		slog.Info("using remote upstream", "base_url", cfg.BaseURL)
		return c, nil
	}
	store, err := newStore(cfg.DemoFixture)
	if err != nil {
		return nil, err
	}
	slog.Info("using in-memory upstream", "tables", store.Tables())
	return store, nil
}

func newStore(fixturePath string) (*upstream.Store, error) {
	f := upstream.DemoFixture()
	if fixturePath != "" {
		var err error
		if f, err = upstream.LoadFixture(fixturePath); err != nil {
			return nil, err
		}
	}
	return upstream.NewStore(f)
}
