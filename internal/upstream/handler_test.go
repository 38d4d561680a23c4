package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/admingrid/admingrid/internal/remote"
)

func TestHandlerServesRemoteClient(t *testing.T) {
	srv := httptest.NewServer(NewHandler(newTestStore(t), "key"))
	defer srv.Close()

	c, err := remote.New(srv.URL, "key", time.Second)
	if err != nil {
		t.Fatalf("remote.New failed: %v", err)
	}

	resp, err := c.Request(context.Background(), "1", map[string]any{"page": 1, "pageSize": 2, "activeStatus": 2})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if !strings.Contains(resp.(string), `"RowCount":2`) {
		t.Errorf("expected 2 inactive rows, got %s", resp)
	}

	_, err = c.Request(context.Background(), "42", nil)
	if !remote.IsStatus(err, http.StatusNotFound) {
		t.Errorf("expected 404 for unknown operation, got %v", err)
	}
}

func TestHandlerRequiresAPIKey(t *testing.T) {
	h := NewHandler(newTestStore(t), "key")

	req := httptest.NewRequest("POST", "/requests/1", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/health", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected health without auth, got %d", w.Code)
	}
}

func TestHandlerBadBody(t *testing.T) {
	h := NewHandler(newTestStore(t), "")

	req := httptest.NewRequest("POST", "/requests/1", strings.NewReader(`{not json`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/requests/1", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected empty body to be accepted, got %d", w.Code)
	}
}
