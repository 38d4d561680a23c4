package console

import (
	"context"
	"log/slog"

	"github.com/admingrid/admingrid/internal/entities"
	"github.com/admingrid/admingrid/internal/grid"
)

// liveGrid is the server-side grid of one entity in one browser session. It
// lives until the session goes idle, the entity is disabled or its
// operations change.
type liveGrid struct {
	def    entities.Definition
	orch   *grid.Orchestrator
	toasts *grid.Toasts
}

func newMount() grid.Mount {
	return grid.Mount{
		Table:      grid.Element("div", "id", "grid-table"),
		Pagination: grid.Element("nav", "id", "grid-pagination", "aria-label", "Pagination"),
		Count:      grid.Element("span", "id", "grid-count"),
	}
}

// gridFor returns the session's live grid of an entity, creating and loading
// it on first use. It returns false for unknown or disabled entities.
func (s *Server) gridFor(ctx context.Context, sess *session, name string) (*liveGrid, bool) {
	if s.registry.IsDisabled(name) {
		return nil, false
	}
	def, err := s.registry.Resolve(name)
	if err != nil {
		return nil, false
	}

	sess.mu.Lock()
	g, ok := sess.grids[name]
	if ok {
		sess.mu.Unlock()
		return g, true
	}
	g = s.newLiveGrid(def)
	sess.grids[name] = g
	sess.mu.Unlock()

	if err := g.orch.Load(ctx); err != nil {
		slog.Warn("initial grid load failed", "entity", name, "session", sess.id, "err", err)
	}
	return g, true
}

func (s *Server) newLiveGrid(def entities.Definition) *liveGrid {
	toasts := grid.NewToasts()
	toasts.OnNotify = func(n grid.Notification) {
		s.metrics.NotificationSent(string(n.Kind))
	}

	tuning := s.registry.Tuning(def.Name)
	opts := def.Options()
	opts.SearchDebounce = tuning.SearchDebounce
	opts.NotifyDuration = tuning.NotifyDuration
	opts.NumberedPageLimit = tuning.NumberedPageLimit
	if s.metrics != nil {
		opts.Observer = s.metrics
	}

	slog.Info("grid created", "entity", def.Name, "operation", def.QueryOp, "page_size", opts.PageSize)
	return &liveGrid{
		def:    def,
		orch:   grid.New(s.requester, newMount(), toasts, opts),
		toasts: toasts,
	}
}

// Reload applies a new registry state to the live grids of every session.
// Grids whose entity disappeared, was disabled or changed operations are
// detached and rebuilt on next use. The rest are retuned in place.
func (s *Server) Reload() {
	removed := make(map[string]bool)
	for _, sess := range s.sessions.all() {
		sess.mu.Lock()
		for name, g := range sess.grids {
			def, err := s.registry.Resolve(name)
			if err != nil || s.registry.IsDisabled(name) || operationsChanged(g.def, def) {
				g.orch.Detach()
				delete(sess.grids, name)
				removed[name] = true
				continue
			}
			g.orch.Tune(s.registry.Tuning(name))
		}
		sess.mu.Unlock()
	}
	for name := range removed {
		s.metrics.RemoveEntity(name)
		slog.Info("grids detached", "entity", name)
	}
}

func operationsChanged(a, b entities.Definition) bool {
	if a.QueryOp != b.QueryOp || a.UpdateOp != b.UpdateOp || a.CreateOp != b.CreateOp {
		return true
	}
	if (a.Status == nil) != (b.Status == nil) {
		return true
	}
	return a.Status != nil && *a.Status != *b.Status
}

// closeGrids detaches every live grid and forgets all sessions.
func (s *Server) closeGrids() {
	for _, sess := range s.sessions.all() {
		sess.detachAll()
		s.sessions.remove(sess.id)
	}
}

// liveGrids counts the grids held across all sessions.
func (s *Server) liveGrids() int {
	n := 0
	for _, sess := range s.sessions.all() {
		n += sess.gridCount()
	}
	return n
}
