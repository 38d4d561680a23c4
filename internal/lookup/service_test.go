package lookup

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/admingrid/admingrid/internal/config"
	"github.com/admingrid/admingrid/internal/entities"
	"github.com/admingrid/admingrid/internal/grid"
	"github.com/admingrid/admingrid/internal/metrics"
	"github.com/admingrid/admingrid/internal/upstream"
)

var testLookupCfg = config.LookupConfig{
	RefreshInterval: time.Hour,
	PageSize:        2,
	Concurrency:     2,
}

var typeSpec = entities.LookupSpec{Table: "datasourcetypes", OperationID: "13", IDField: "DataSourceTypeID", NameField: "Name"}

func newDemoStore(t *testing.T) *upstream.Store {
	t.Helper()
	s, err := upstream.NewStore(upstream.DemoFixture())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return s
}

func staticSpecs(specs ...entities.LookupSpec) func() []entities.LookupSpec {
	return func() []entities.LookupSpec { return specs }
}

func TestRefreshBuildsNames(t *testing.T) {
	s := NewService(newDemoStore(t), staticSpecs(typeSpec), nil, testLookupCfg)

	if !s.Refresh(context.Background(), typeSpec) {
		t.Fatal("expected refresh to succeed")
	}
	name, ok := s.Name("datasourcetypes", "2")
	if !ok || name != "REST API" {
		t.Errorf("expected REST API, got %q (%v)", name, ok)
	}
	if st := s.Status("datasourcetypes"); st.Entries != 4 {
		t.Errorf("expected 4 entries across pages, got %d", st.Entries)
	}
	if _, ok := s.Name("datasources", "1"); ok {
		t.Error("expected unknown table to miss")
	}
}

func TestRefreshFailureKeepsEntries(t *testing.T) {
	var fail atomic.Bool
	store := newDemoStore(t)
	r := grid.RequesterFunc(func(ctx context.Context, op string, params map[string]any) (any, error) {
		if fail.Load() {
			return nil, errors.New("upstream down")
		}
		return store.Request(ctx, op, params)
	})

	reg := prometheus.NewRegistry()
	s := NewService(r, staticSpecs(typeSpec), metrics.NewWithRegisterer(reg), testLookupCfg)
	s.Refresh(context.Background(), typeSpec)

	fail.Store(true)
	if s.Refresh(context.Background(), typeSpec) {
		t.Fatal("expected refresh to fail")
	}
	if name, _ := s.Name("datasourcetypes", "1"); name != "SQL Server" {
		t.Errorf("expected stale entry to survive, got %q", name)
	}
	st := s.Status("datasourcetypes")
	if st.ConsecutiveFailures != 1 || st.LastError == "" {
		t.Errorf("unexpected status %+v", st)
	}
	if s.Healthy() {
		t.Error("expected unhealthy after failure")
	}

	if v := gatheredValue(t, reg, "admingrid_lookup_entries"); v != 4 {
		t.Errorf("expected entries gauge 4, got %v", v)
	}
	if v := gatheredValue(t, reg, "admingrid_lookup_refresh_errors_total"); v != 1 {
		t.Errorf("expected 1 refresh error, got %v", v)
	}

	fail.Store(false)
	s.Refresh(context.Background(), typeSpec)
	if !s.Healthy() {
		t.Error("expected recovery after successful refresh")
	}
}

func TestRefreshAllIsBounded(t *testing.T) {
	var inFlight, peak atomic.Int32
	r := grid.RequesterFunc(func(ctx context.Context, op string, params map[string]any) (any, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return `{"Results":[],"RowCount":0}`, nil
	})

	var specs []entities.LookupSpec
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		specs = append(specs, entities.LookupSpec{Table: name, OperationID: name, IDField: "ID", NameField: "Name"})
	}
	s := NewService(r, staticSpecs(specs...), nil, testLookupCfg)
	s.RefreshAll(context.Background())

	if peak.Load() > 2 {
		t.Errorf("expected at most 2 concurrent refreshes, got %d", peak.Load())
	}
	if len(s.AllStatuses()) != 5 {
		t.Errorf("expected 5 tables, got %d", len(s.AllStatuses()))
	}
}

func TestStartStop(t *testing.T) {
	s := NewService(newDemoStore(t), staticSpecs(typeSpec), nil, testLookupCfg)
	s.Start()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := s.Name("datasourcetypes", "1"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for initial refresh")
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.Stop()
	s.Stop()
}

func gatheredValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		return metricValue(f.GetMetric()[0])
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func metricValue(m *dto.Metric) float64 {
	if m.GetGauge() != nil {
		return m.GetGauge().GetValue()
	}
	return m.GetCounter().GetValue()
}
