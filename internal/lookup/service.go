// Package lookup keeps id-to-name maps of small remote tables warm so grid
// columns can show a referenced record's name instead of its id.
package lookup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/admingrid/admingrid/internal/config"
	"github.com/admingrid/admingrid/internal/entities"
	"github.com/admingrid/admingrid/internal/grid"
	"github.com/admingrid/admingrid/internal/metrics"
)

// TableStatus holds refresh information for one lookup table.
type TableStatus struct {
	Entries             int       `json:"entries"`
	LastRefresh         time.Time `json:"last_refresh"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastError           string    `json:"last_error,omitempty"`
}

type table struct {
	names  map[string]string
	status TableStatus
}

// Service periodically reads every page of each lookup table.
type Service struct {
	mu     sync.RWMutex
	tables map[string]*table

	requester grid.Requester
	specs     func() []entities.LookupSpec
	metrics   *metrics.Collector

	interval    time.Duration
	pageSize    int
	concurrency int

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewService creates a lookup service. specs is consulted on every refresh so
// config reloads take effect without a restart.
func NewService(r grid.Requester, specs func() []entities.LookupSpec, m *metrics.Collector, cfg config.LookupConfig) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		tables:      make(map[string]*table),
		requester:   r,
		specs:       specs,
		metrics:     m,
		interval:    cfg.RefreshInterval,
		pageSize:    max(cfg.PageSize, 1),
		concurrency: max(cfg.Concurrency, 1),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins periodic refreshing. The first refresh runs immediately.
func (s *Service) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run()
	}()
	slog.Info("lookup refresher started", "interval", s.interval, "page_size", s.pageSize)
}

// Stop stops the refresher and waits for in-flight reads. Safe to call
// multiple times.
func (s *Service) Stop() {
	s.stopOnce.Do(s.cancel)
	s.wg.Wait()
	slog.Info("lookup refresher stopped")
}

func (s *Service) run() {
	s.RefreshAll(s.ctx)
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RefreshAll(s.ctx)
		case <-s.ctx.Done():
			return
		}
	}
}

// RefreshAll reloads every table with bounded parallelism. A failing table
// keeps its previous entries.
func (s *Service) RefreshAll(ctx context.Context) {
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, spec := range s.specs() {
		g.Go(func() error {
			s.Refresh(ctx, spec)
			return nil
		})
	}
	g.Wait()
}

// Refresh reloads one table and reports whether it succeeded.
func (s *Service) Refresh(ctx context.Context, spec entities.LookupSpec) bool {
	f := grid.NewFetcher(s.requester, spec.OperationID, spec.IDField, grid.StatusCodes{})
	rows, err := f.FetchAll(ctx, grid.PageQuery{PageSize: s.pageSize})

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.getOrCreate(spec.Table)
	t.status.LastRefresh = time.Now()
	if err != nil {
		t.status.ConsecutiveFailures++
		t.status.LastError = err.Error()
		slog.Warn("lookup refresh failed", "table", spec.Table, "failures", t.status.ConsecutiveFailures, "err", err)
		s.metrics.LookupRefreshFailed(spec.Table)
		return false
	}

	names := make(map[string]string, len(rows))
	for _, row := range rows {
		id, ok := row.ID(spec.IDField)
		if !ok {
			continue
		}
		names[id] = grid.Stringify(row[spec.NameField])
	}
	if t.status.ConsecutiveFailures > 0 {
		slog.Info("lookup recovered", "table", spec.Table, "failures", t.status.ConsecutiveFailures)
	}
	t.names = names
	t.status.Entries = len(names)
	t.status.ConsecutiveFailures = 0
	t.status.LastError = ""
	s.metrics.SetLookupEntries(spec.Table, len(names))
	return true
}

func (s *Service) getOrCreate(name string) *table {
	t, ok := s.tables[name]
	if !ok {
		t = &table{names: map[string]string{}}
		s.tables[name] = t
	}
	return t
}

// Name implements entities.NameResolver.
func (s *Service) Name(tableName, id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[tableName]
	if !ok {
		return "", false
	}
	name, ok := t.names[id]
	return name, ok
}

// Status returns the refresh status of a table.
func (s *Service) Status(tableName string) TableStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.tables[tableName]; ok {
		return t.status
	}
	return TableStatus{}
}

// AllStatuses returns the status of every known table.
func (s *Service) AllStatuses() map[string]TableStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]TableStatus, len(s.tables))
	for name, t := range s.tables {
		result[name] = t.status
	}
	return result
}

// Healthy returns true if no table's most recent refresh failed.
func (s *Service) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tables {
		if t.status.ConsecutiveFailures > 0 {
			return false
		}
	}
	return true
}
