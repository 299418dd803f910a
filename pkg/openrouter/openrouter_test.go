package openrouter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func modelsServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"openai/gpt-4o-mini","object":"model","created":0,"owned_by":"openai"}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClientWithoutKey(t *testing.T) {
	t.Parallel()

	if c := NewClient(Config{}); c != nil {
		t.Fatal("expected nil client without api key")
	}
}

func TestCheckModel(t *testing.T) {
	t.Parallel()

	srv := modelsServer(t)
	client := NewClient(Config{BaseURL: srv.URL + "/api/v1", APIKey: "test-key"})
	if client == nil {
		t.Fatal("NewClient() returned nil")
	}

	if err := CheckModel(context.Background(), client, "openai/gpt-4o-mini"); err != nil {
		t.Fatalf("CheckModel() error = %v", err)
	}
	err := CheckModel(context.Background(), client, "nobody/nothing")
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("CheckModel() error = %v, want ErrModelUnavailable", err)
	}
}

func TestCheckModelNilClient(t *testing.T) {
	t.Parallel()

	if err := CheckModel(context.Background(), nil, "x"); err == nil {
		t.Fatal("expected error for nil client")
	}
}
