package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestRobotsGateDisallows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	gate := NewRobotsGate()

	allowed, err := gate.Allowed(context.Background(), server.URL+"/private/page", "hubcrawl/1.0")
	if err != nil {
		t.Fatalf("Allowed: %v", err)
	}
	if allowed {
		t.Error("expected /private/ to be disallowed")
	}

	allowed, err = gate.Allowed(context.Background(), server.URL+"/models", "hubcrawl/1.0")
	if err != nil {
		t.Fatalf("Allowed: %v", err)
	}
	if !allowed {
		t.Error("expected /models to be allowed")
	}
}

func TestRobotsGateFailsOpenOnMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	allowed, err := NewRobotsGate().Allowed(context.Background(), server.URL+"/anything", "hubcrawl/1.0")
	if err != nil {
		t.Fatalf("missing robots.txt should not error: %v", err)
	}
	if !allowed {
		t.Error("missing robots.txt must allow all")
	}
}

func TestRobotsGateFailsOpenOnNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	allowed, err := NewRobotsGate().Allowed(context.Background(), url+"/page", "hubcrawl/1.0")
	if !allowed {
		t.Error("unreachable robots.txt must allow all")
	}
	if err == nil {
		t.Error("expected the network error to be surfaced alongside the allow verdict")
	}
}

func TestRobotsGateCachesPerHost(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			atomic.AddInt32(&hits, 1)
		}
		w.Write([]byte("User-agent: *\nAllow: /\n"))
	}))
	defer server.Close()

	gate := NewRobotsGate()
	for range 5 {
		if _, err := gate.Allowed(context.Background(), server.URL+"/models", "hubcrawl/1.0"); err != nil {
			t.Fatalf("Allowed: %v", err)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("expected 1 robots.txt fetch, got %d", n)
	}
}
