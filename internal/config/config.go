package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the admin console.
type Config struct {
	Listen   ListenConfig            `yaml:"listen"`
	Upstream UpstreamConfig          `yaml:"upstream"`
	Grid     GridConfig              `yaml:"grid"`
	Lookups  LookupConfig            `yaml:"lookups"`
	Entities map[string]EntityConfig `yaml:"entities"`
}

// ListenConfig defines where the console HTTP server listens.
type ListenConfig struct {
	Port    int    `yaml:"port"`
	Bind    string `yaml:"bind"`
	APIKey  string `yaml:"api_key"`
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`
	// SessionIdleTimeout is how long a browser session's grids are kept
	// after its last request.
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`
}

// UpstreamConfig defines the remote request service the grids read from and
// write to. When BaseURL is empty the console serves the in-memory demo store.
type UpstreamConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	DemoFixture string        `yaml:"demo_fixture"`
}

// GridConfig holds the defaults shared by every grid.
type GridConfig struct {
	PageSize          int           `yaml:"page_size"`
	SearchDebounce    time.Duration `yaml:"search_debounce"`
	NotifyDuration    time.Duration `yaml:"notify_duration"`
	NumberedPageLimit int           `yaml:"numbered_page_limit"`
}

// LookupConfig controls the background refresh of id-to-name lookup tables.
type LookupConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	PageSize        int           `yaml:"page_size"`
	Concurrency     int           `yaml:"concurrency"`
}

// EntityConfig overrides the built-in definition of one entity.
type EntityConfig struct {
	QueryOp     string             `yaml:"query_op"`
	UpdateOp    string             `yaml:"update_op"`
	CreateOp    string             `yaml:"create_op"`
	PageSize    *int               `yaml:"page_size,omitempty"`
	StatusParam string             `yaml:"status_param"`
	StatusCodes *StatusCodesConfig `yaml:"status_codes,omitempty"`
	Disabled    bool               `yaml:"disabled"`
}

// StatusCodesConfig holds the opaque values an entity's query operation
// expects for each status filter state.
type StatusCodesConfig struct {
	Active   int `yaml:"active"`
	Inactive int `yaml:"inactive"`
	Both     int `yaml:"both"`
}

// EffectivePageSize returns the entity's page size or the grid default.
func (e EntityConfig) EffectivePageSize(grid GridConfig) int {
	if e.PageSize != nil {
		return *e.PageSize
	}
	return grid.PageSize
}

// Redacted returns a copy of the Config with API keys masked.
func (c Config) Redacted() Config {
	r := c
	if r.Listen.APIKey != "" {
		r.Listen.APIKey = "***REDACTED***"
	}
	if r.Upstream.APIKey != "" {
		r.Upstream.APIKey = "***REDACTED***"
	}
	return r
}

// TLSEnabled returns true if both TLS cert and key paths are configured.
func (lc ListenConfig) TLSEnabled() bool {
	return lc.TLSCert != "" && lc.TLSKey != ""
}

// Addr returns the bind:port listen address.
func (lc ListenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", lc.Bind, lc.Port)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func substituteEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		if val, ok := os.LookupEnv(string(varName)); ok {
			return []byte(val)
		}
		return match
	})
}

// Load reads and parses a YAML config file with env var substitution.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML config data with env var substitution.
func Parse(data []byte) (*Config, error) {
	data = substituteEnvVars(data)

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Listen.Port == 0 {
		cfg.Listen.Port = 8080
	}
	if cfg.Listen.Bind == "" {
		cfg.Listen.Bind = "127.0.0.1"
	}
	if cfg.Listen.SessionIdleTimeout == 0 {
		cfg.Listen.SessionIdleTimeout = 30 * time.Minute
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 10 * time.Second
	}
	if cfg.Grid.PageSize == 0 {
		cfg.Grid.PageSize = 5
	}
	if cfg.Grid.SearchDebounce == 0 {
		cfg.Grid.SearchDebounce = 250 * time.Millisecond
	}
	if cfg.Grid.NotifyDuration == 0 {
		cfg.Grid.NotifyDuration = 3 * time.Second
	}
	if cfg.Grid.NumberedPageLimit == 0 {
		cfg.Grid.NumberedPageLimit = 7
	}
	if cfg.Lookups.RefreshInterval == 0 {
		cfg.Lookups.RefreshInterval = 5 * time.Minute
	}
	if cfg.Lookups.PageSize == 0 {
		cfg.Lookups.PageSize = 100
	}
	if cfg.Lookups.Concurrency == 0 {
		cfg.Lookups.Concurrency = 4
	}
	if cfg.Entities == nil {
		cfg.Entities = make(map[string]EntityConfig)
	}
}

func validate(cfg *Config) error {
	if cfg.Upstream.BaseURL != "" {
		u, err := url.Parse(cfg.Upstream.BaseURL)
		if err != nil {
			return fmt.Errorf("upstream: invalid base_url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("upstream: base_url scheme %q (must be http or https)", u.Scheme)
		}
		if cfg.Upstream.DemoFixture != "" {
			return fmt.Errorf("upstream: base_url and demo_fixture are mutually exclusive")
		}
	}
	if cfg.Grid.PageSize < 0 {
		return fmt.Errorf("grid: page_size must not be negative")
	}
	if cfg.Grid.NumberedPageLimit < 0 {
		return fmt.Errorf("grid: numbered_page_limit must not be negative")
	}
	if cfg.Lookups.PageSize < 0 {
		return fmt.Errorf("lookups: page_size must not be negative")
	}
	for name, e := range cfg.Entities {
		if e.PageSize != nil && *e.PageSize <= 0 {
			return fmt.Errorf("entity %q: page_size must be positive", name)
		}
		if e.StatusCodes != nil && e.StatusParam == "" {
			return fmt.Errorf("entity %q: status_codes requires status_param", name)
		}
	}
	return nil
}

// Watcher watches a config file for changes and calls the callback with the new config.
type Watcher struct {
	path     string
	callback func(*Config)
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	stopCh   chan struct{}
}

// NewWatcher creates a new config file watcher.
func NewWatcher(path string, callback func(*Config)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching config file: %w", err)
	}

	cw := &Watcher{
		path:     path,
		callback: callback,
		watcher:  w,
		stopCh:   make(chan struct{}),
	}

	go cw.run()
	return cw, nil
}

func (cw *Watcher) run() {
	// Debounce timer to avoid rapid reloads
	var debounce *time.Timer
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, func() {
					cw.reload()
				})
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[config] watcher error: %v", err)
		case <-cw.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return
		}
	}
}

func (cw *Watcher) reload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cfg, err := Load(cw.path)
	if err != nil {
		log.Printf("[config] hot-reload failed: %v", err)
		return
	}

	log.Printf("[config] configuration reloaded from %s", cw.path)
	cw.callback(cfg)
}

// Stop stops the config watcher.
func (cw *Watcher) Stop() error {
	close(cw.stopCh)
	return cw.watcher.Close()
}
