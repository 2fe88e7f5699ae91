package intensity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientFetchIntensity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/intensity" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"from":"2024-01-01T00:00Z","to":"2024-01-01T00:30Z","intensity":{"forecast":120,"actual":115,"index":"moderate"}}]}`))
	}))
	defer srv.Close()

	client := NewClient(&http.Client{Timeout: 5 * time.Second}, srv.URL)

	payload, err := client.FetchIntensity(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payload.Data) != 1 {
		t.Fatalf("expected one data entry, got %d", len(payload.Data))
	}
	if payload.Data[0].Intensity == nil || payload.Data[0].Intensity.Actual == nil {
		t.Fatal("expected intensity actual to be decoded")
	}
	if *payload.Data[0].Intensity.Actual != 115 {
		t.Errorf("expected actual 115, got %v", *payload.Data[0].Intensity.Actual)
	}
}

// TestClientUpstreamStatus verifies a hard non-2xx status surfaces as
// ErrUpstream without retrying.
func TestClientUpstreamStatus(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewClient(&http.Client{Timeout: 5 * time.Second}, srv.URL)

	_, err := client.FetchGeneration(context.Background())
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if hits != 1 {
		t.Errorf("expected a single attempt for a 404, got %d", hits)
	}
}

func TestClientMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewClient(&http.Client{Timeout: 5 * time.Second}, srv.URL)

	if _, err := client.FetchRegional(context.Background()); !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

func TestClientCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client := NewClient(&http.Client{Timeout: 5 * time.Second}, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.FetchIntensity(ctx); !errors.Is(err, ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}
