package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRequestPostsParams(t *testing.T) {
	var gotPath, gotAuth string
	var gotParams map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&gotParams)
		w.Write([]byte(`{"Results":[],"RowCount":0}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/", "secret", time.Second)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	resp, err := c.Request(context.Background(), "5", map[string]any{"page": 2, "search": "abc"})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if gotPath != "/requests/5" {
		t.Errorf("expected /requests/5, got %s", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotParams["search"] != "abc" || gotParams["page"] != float64(2) {
		t.Errorf("unexpected params %v", gotParams)
	}
	if resp != `{"Results":[],"RowCount":0}` {
		t.Errorf("unexpected body %v", resp)
	}
}

func TestRequestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"unknown operation 99"}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL, "", time.Second)
	_, err := c.Request(context.Background(), "99", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsStatus(err, http.StatusNotFound) {
		t.Errorf("expected 404 StatusError, got %v", err)
	}
	if err.Error() != "operation 99: unknown operation 99" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestRequestNullBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("expected no auth header without api key")
		}
		w.Write([]byte("null"))
	}))
	defer srv.Close()

	c, _ := New(srv.URL, "", time.Second)
	resp, err := c.Request(context.Background(), "21", map[string]any{"id": 1})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp != "null" {
		t.Errorf("expected raw null body, got %v", resp)
	}
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := New("/requests", "", 0); err == nil {
		t.Error("expected error for relative url")
	}
}

func TestRequestHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c, _ := New(srv.URL, "", 0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Request(ctx, "5", nil); err == nil {
		t.Error("expected context error")
	}
}
