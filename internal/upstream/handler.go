package upstream

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// Handler serves a Store over the request service protocol:
// POST /requests/{operationID} with a JSON params body.
type Handler struct {
	store  *Store
	apiKey string
	router *mux.Router
}

// NewHandler creates a Handler. An empty apiKey disables authentication.
func NewHandler(s *Store, apiKey string) *Handler {
	h := &Handler{store: s, apiKey: apiKey, router: mux.NewRouter()}
	h.router.HandleFunc("/requests/{operationID}", h.request).Methods("POST")
	h.router.HandleFunc("/health", h.health).Methods("GET")
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.apiKey != "" && r.URL.Path != "/health" {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != h.apiKey {
			writeError(w, http.StatusUnauthorized, "unauthorized: invalid or missing API key")
			return
		}
	}
	h.router.ServeHTTP(w, r)
}

func (h *Handler) request(w http.ResponseWriter, r *http.Request) {
	op := mux.Vars(r)["operationID"]
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	params := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.store.Request(r.Context(), op, params)
	switch {
	case errors.Is(err, ErrUnknownOperation), errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		slog.Warn("upstream request failed", "operation", op, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, resp.(string))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"tables": h.store.Tables(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
