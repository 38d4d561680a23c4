// Package console serves the admin grids over HTTP. Grid state lives on the
// server; the browser posts interactions and swaps in the returned markup.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/admingrid/admingrid/internal/config"
	"github.com/admingrid/admingrid/internal/entities"
	"github.com/admingrid/admingrid/internal/grid"
	"github.com/admingrid/admingrid/internal/lookup"
	"github.com/admingrid/admingrid/internal/metrics"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// Server is the admin console HTTP server.
type Server struct {
	registry   *entities.Registry
	requester  grid.Requester
	lookups    *lookup.Service
	metrics    *metrics.Collector
	gatherer   prometheus.Gatherer
	httpServer *http.Server
	startTime  time.Time
	listenCfg  config.ListenConfig
	sessions   *sessionStore
}

// NewServer creates a console server. lookups and m may be nil.
func NewServer(reg *entities.Registry, r grid.Requester, lk *lookup.Service, m *metrics.Collector, lc config.ListenConfig) *Server {
	return &Server{
		registry:  reg,
		requester: r,
		lookups:   lk,
		metrics:   m,
		startTime: time.Now(),
		listenCfg: lc,
		sessions:  newSessionStore(lc.SessionIdleTimeout),
	}
}

// SetGatherer selects the registry served at /metrics. The default registry
// is used when unset.
func (s *Server) SetGatherer(g prometheus.Gatherer) {
	s.gatherer = g
}

// authMiddleware returns a middleware that checks for a valid API key.
// Health and metrics are excluded.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/health" || path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := s.listenCfg.APIKey
		if apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != apiKey {
			writeError(w, http.StatusUnauthorized, "unauthorized: invalid or missing API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handler returns the console's routes wrapped in its middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", s.indexHandler).Methods("GET")
	r.HandleFunc("/entities/{entity}", s.pageHandler).Methods("GET")
	r.HandleFunc("/entities/{entity}/grid", s.gridHandler).Methods("GET")
	r.HandleFunc("/entities/{entity}/search", s.searchHandler).Methods("POST")
	r.HandleFunc("/entities/{entity}/page", s.pageInputHandler).Methods("POST")
	r.HandleFunc("/entities/{entity}/status", s.statusHandler).Methods("POST")
	r.HandleFunc("/entities/{entity}/action", s.actionHandler).Methods("POST")
	r.HandleFunc("/entities/{entity}/rows", s.createHandler).Methods("POST")
	r.HandleFunc("/entities/{entity}/toasts", s.toastsHandler).Methods("GET")

	r.HandleFunc("/health", s.healthHandler).Methods("GET")
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	return s.securityHeaders(s.authMiddleware(r))
}

// Start starts the console HTTP server.
func (s *Server) Start() error {
	addr := s.listenCfg.Addr()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	if s.listenCfg.APIKey == "" {
		slog.Warn("API key not configured, console is unauthenticated")
	}
	slog.Info("console listening", "addr", addr, "tls", s.listenCfg.TLSEnabled())
	s.sessions.startReaper(reaperInterval(s.listenCfg.SessionIdleTimeout))

	go func() {
		var err error
		if s.listenCfg.TLSEnabled() {
			err = s.httpServer.ListenAndServeTLS(s.listenCfg.TLSCert, s.listenCfg.TLSKey)
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			slog.Error("console server error", "err", err)
		}
	}()

	return nil
}

// Stop detaches every grid and gracefully shuts down the server.
func (s *Server) Stop() error {
	s.sessions.stop()
	s.closeGrids()
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// --- Grid Handlers ---

type gridResponse struct {
	grid.Snapshot
	Entity  string              `json:"entity"`
	Session *sessionResponse    `json:"session,omitempty"`
	Toasts  []grid.Notification `json:"toasts,omitempty"`
	Error   string              `json:"error,omitempty"`
}

type sessionResponse struct {
	RowID  string            `json:"row_id"`
	Status string            `json:"status"`
	Values map[string]string `json:"values"`
}

type createResponse struct {
	gridResponse
	Row     grid.Row `json:"row,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
}

func (s *Server) lookupGrid(w http.ResponseWriter, r *http.Request) (*liveGrid, bool) {
	name := mux.Vars(r)["entity"]
	g, ok := s.gridFor(r.Context(), s.session(w, r), name)
	if !ok {
		writeError(w, http.StatusNotFound, "entity not found")
		return nil, false
	}
	return g, true
}

func (s *Server) gridHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookupGrid(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("refresh") == "1" {
		err := g.orch.Refresh(r.Context())
		s.respond(w, g, err)
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot(g, nil))
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookupGrid(w, r)
	if !ok {
		return
	}
	if !parseForm(w, r) {
		return
	}

	select {
	case err := <-g.orch.SearchInput(r.PostForm.Get("q")):
		s.respond(w, g, err)
	case <-r.Context().Done():
	}
}

func (s *Server) pageInputHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookupGrid(w, r)
	if !ok {
		return
	}
	if !parseForm(w, r) {
		return
	}
	s.respond(w, g, g.orch.SubmitPageInput(r.Context(), r.PostForm.Get("page")))
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookupGrid(w, r)
	if !ok {
		return
	}
	if !parseForm(w, r) {
		return
	}
	kind := grid.StatusKind(r.PostForm.Get("kind"))
	if kind != grid.StatusActive && kind != grid.StatusInactive {
		writeError(w, http.StatusBadRequest, "kind must be active or inactive")
		return
	}
	s.respond(w, g, g.orch.ToggleStatus(r.Context(), kind))
}

var actionKinds = map[grid.ActionKind]bool{
	grid.ActionToggle:    true,
	grid.ActionEdit:      true,
	grid.ActionCancel:    true,
	grid.ActionSave:      true,
	grid.ActionInput:     true,
	grid.ActionPage:      true,
	grid.ActionPageInput: true,
	grid.ActionStatus:    true,
	grid.ActionSearch:    true,
	grid.ActionSort:      true,
}

func (s *Server) actionHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookupGrid(w, r)
	if !ok {
		return
	}
	if !parseForm(w, r) {
		return
	}

	a := grid.Action{
		Kind:   grid.ActionKind(r.PostForm.Get("action")),
		RowID:  r.PostForm.Get("id"),
		Field:  r.PostForm.Get("field"),
		Value:  r.PostForm.Get("value"),
		Status: grid.StatusKind(r.PostForm.Get("kind")),
	}
	if !actionKinds[a.Kind] {
		writeError(w, http.StatusBadRequest, "unknown action")
		return
	}
	if a.Kind == grid.ActionPage {
		page, err := strconv.Atoi(r.PostForm.Get("page"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "page must be a number")
			return
		}
		a.Page = page
	}

	s.respond(w, g, g.orch.Do(r.Context(), a))
}

func (s *Server) createHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookupGrid(w, r)
	if !ok {
		return
	}
	if !g.def.Creatable() {
		writeError(w, http.StatusMethodNotAllowed, g.def.Title+" cannot be created here")
		return
	}
	if !parseForm(w, r) {
		return
	}

	form := make(map[string]string, len(g.def.CreateFields))
	for _, f := range g.def.CreateFields {
		if f.Kind == grid.FieldCheckbox {
			form[f.Key] = strconv.FormatBool(r.PostForm.Has(f.Key))
			continue
		}
		form[f.Key] = r.PostForm.Get(f.Key)
	}

	row, err := g.orch.Add(r.Context(), form)
	code := statusFor(err)
	if err == nil {
		code = http.StatusCreated
		slog.Info("record created", "entity", g.def.Name)
	}
	resp := createResponse{gridResponse: s.snapshot(g, err), Row: row}
	var verr *grid.ValidationError
	if errors.As(err, &verr) {
		resp.Invalid = verr.Keys
	}
	writeJSON(w, code, resp)
}

func (s *Server) toastsHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookupGrid(w, r)
	if !ok {
		return
	}
	toasts := g.toasts.Drain()
	if toasts == nil {
		toasts = []grid.Notification{}
	}
	writeJSON(w, http.StatusOK, toasts)
}

// respond writes the grid state after an interaction. A superseded request
// gets an empty 204 since a newer response carries the state.
func (s *Server) respond(w http.ResponseWriter, g *liveGrid, err error) {
	code := statusFor(err)
	if code == http.StatusNoContent {
		w.WriteHeader(code)
		return
	}
	writeJSON(w, code, s.snapshot(g, err))
}

func (s *Server) snapshot(g *liveGrid, err error) gridResponse {
	resp := gridResponse{
		Snapshot: g.orch.Snapshot(),
		Entity:   g.def.Name,
		Toasts:   g.toasts.Drain(),
	}
	if sess := g.orch.Session(); sess != nil {
		resp.Session = &sessionResponse{RowID: sess.RowID, Status: sess.Status.String(), Values: sess.Values}
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func statusFor(err error) int {
	var (
		validation *grid.ValidationError
		pageErr    *grid.OutOfRangePageError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, grid.ErrSuperseded):
		return http.StatusNoContent
	case errors.As(err, &validation), errors.As(err, &pageErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, grid.ErrEditInProgress), errors.Is(err, grid.ErrSaveInProgress), errors.Is(err, grid.ErrNoSession):
		return http.StatusConflict
	case errors.Is(err, grid.ErrRowNotFound):
		return http.StatusNotFound
	case errors.Is(err, grid.ErrStatusFilterDisabled):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// --- Health Handler ---

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthy := true
	var tables map[string]lookup.TableStatus
	if s.lookups != nil {
		healthy = s.lookups.Healthy()
		tables = s.lookups.AllStatuses()
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status":         boolToStatus(healthy),
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
		"entities":       len(s.registry.List()),
		"sessions":       s.sessions.count(),
		"live_grids":     s.liveGrids(),
		"lookups":        tables,
	})
}

// securityHeaders adds security-related HTTP headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// --- Helpers ---

func parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func boolToStatus(b bool) string {
	if b {
		return "healthy"
	}
	return "unhealthy"
}
